package compact

import (
	"context"
	"strings"
	"testing"

	"github.com/sweetpotato0/aura/history"
	"github.com/sweetpotato0/aura/llm"
	"github.com/sweetpotato0/aura/message"
)

type summaryProvider struct {
	summary  string
	requests int
}

func (p *summaryProvider) Name() string       { return "mock" }
func (p *summaryProvider) Format() llm.Format { return llm.FormatOpenAI }

func (p *summaryProvider) Generate(_ context.Context, req *llm.Request) (*llm.Response, error) {
	p.requests++
	if !req.DisableTools {
		return nil, context.Canceled
	}
	return &llm.Response{Text: p.summary, FinishReason: "stop"}, nil
}

func chatter(n int) []*message.Message {
	msgs := []*message.Message{
		message.NewMessage(message.RoleSystem, "You are a helpful assistant."),
	}
	for i := 0; i < n; i++ {
		msgs = append(msgs,
			message.NewMessage(message.RoleUser, strings.Repeat("tell me more about Go concurrency ", 10)),
			message.NewMessage(message.RoleAssistant, strings.Repeat("goroutines are cheap and channels compose ", 10)),
		)
	}
	return msgs
}

func TestCompactBelowThresholdIsNoop(t *testing.T) {
	provider := &summaryProvider{summary: "unused"}
	c, err := New(provider, WithMaxTokens(1_000_000))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	h := history.FromMessages(chatter(5))
	before := h.Len()
	if err := c.Compact(context.Background(), h, "s1"); err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if h.Len() != before || provider.requests != 0 {
		t.Errorf("short history was touched: len=%d requests=%d", h.Len(), provider.requests)
	}
}

func TestCompactSummarizesMiddle(t *testing.T) {
	provider := &summaryProvider{summary: "They discussed Go concurrency at length."}
	c, err := New(provider, WithMaxTokens(100), WithKeepRecent(4))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	h := history.FromMessages(chatter(10))
	if err := c.Compact(context.Background(), h, "s1"); err != nil {
		t.Fatalf("Compact: %v", err)
	}

	msgs := h.Messages()
	// system + summary + 4 recent
	if len(msgs) != 6 {
		t.Fatalf("got %d messages, want 6", len(msgs))
	}
	if msgs[0].Role != message.RoleSystem {
		t.Error("system message not preserved at the front")
	}
	if msgs[1].Role != message.RoleUser || !strings.Contains(msgs[1].Content, "[Summary of earlier conversation:") {
		t.Errorf("summary message = %+v", msgs[1])
	}
	if !strings.Contains(msgs[1].Content, provider.summary) {
		t.Errorf("summary text missing: %q", msgs[1].Content)
	}
	if provider.requests != 1 {
		t.Errorf("summarize calls = %d, want 1", provider.requests)
	}
}

func TestCompactBoundaryKeepsToolExchangeIntact(t *testing.T) {
	provider := &summaryProvider{summary: "earlier chatter"}
	c, err := New(provider, WithMaxTokens(100), WithKeepRecent(2))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	msgs := chatter(8)
	msgs = append(msgs,
		message.NewToolCallMessage("", []message.ToolCall{
			{ID: "call_1", Name: "get_weather", Arguments: `{"city":"Oslo"}`},
		}),
		message.NewToolResponseMessage("call_1", "4C"),
		message.NewMessage(message.RoleAssistant, "It is 4C."),
	)
	h := history.FromMessages(msgs)
	if err := c.Compact(context.Background(), h, "s1"); err != nil {
		t.Fatalf("Compact: %v", err)
	}

	for i, m := range h.Messages() {
		if m.Role != message.RoleTool {
			continue
		}
		// the call that produced this result must still be present
		found := false
		for _, earlier := range h.Messages()[:i] {
			for _, call := range earlier.ToolCalls {
				if call.ID == m.ToolCallID {
					found = true
				}
			}
		}
		if !found {
			t.Errorf("tool result %q split from its call", m.ToolCallID)
		}
	}
}

func TestCountTokensCoversBlocks(t *testing.T) {
	c, err := New(&summaryProvider{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	plain := []*message.Message{message.NewMessage(message.RoleUser, "hello world")}
	blocky := []*message.Message{message.NewBlockMessage(message.RoleAssistant,
		message.TextBlock("hello world"),
		message.ToolUseBlock("id", "search", []byte(`{"q":"hello world"}`)),
	)}

	if c.CountTokens(plain) <= 0 {
		t.Error("plain message counted as zero tokens")
	}
	if c.CountTokens(blocky) <= c.CountTokens(plain) {
		t.Error("block content not counted")
	}
}
