package llm

import (
	"strings"
	"testing"

	"github.com/sweetpotato0/aura/message"
	"github.com/sweetpotato0/aura/tool"
)

func TestConvertToClaudeSystemExtraction(t *testing.T) {
	msgs := []*message.Message{
		message.NewMessage(message.RoleSystem, "You are a helpful assistant."),
		message.NewMessage(message.RoleUser, "hi"),
	}
	conv := ConvertToClaude(msgs, ConvertOptions{})

	if len(conv.System) != 1 || conv.System[0].Text != "You are a helpful assistant." {
		t.Errorf("System = %+v", conv.System)
	}
	for _, m := range conv.Messages {
		if m.Role == message.RoleSystem {
			t.Error("system message left in the message list")
		}
	}
}

func TestConvertToClaudeToolExchange(t *testing.T) {
	msgs := []*message.Message{
		message.NewMessage(message.RoleUser, "weather in Oslo?"),
		message.NewToolCallMessage("Checking.", []message.ToolCall{
			{ID: "call_1", Name: "get_weather", Arguments: `{"city":"Oslo"}`},
		}),
		message.NewToolResponseMessage("call_1", "4C, cloudy"),
	}
	conv := ConvertToClaude(msgs, ConvertOptions{})

	if len(conv.Messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(conv.Messages))
	}
	assistant := conv.Messages[1]
	if len(assistant.Blocks) != 2 {
		t.Fatalf("assistant blocks = %+v", assistant.Blocks)
	}
	if assistant.Blocks[0].Type != message.BlockText || assistant.Blocks[1].Type != message.BlockToolUse {
		t.Errorf("assistant block order = %v, %v", assistant.Blocks[0].Type, assistant.Blocks[1].Type)
	}
	if assistant.Blocks[1].Name != "get_weather" {
		t.Errorf("tool_use name = %q", assistant.Blocks[1].Name)
	}

	result := conv.Messages[2]
	if result.Role != message.RoleUser {
		t.Fatalf("result role = %q", result.Role)
	}
	if len(result.Blocks) != 1 || result.Blocks[0].Type != message.BlockToolResult {
		t.Fatalf("result blocks = %+v", result.Blocks)
	}
	if result.Blocks[0].ToolUseID != "call_1" {
		t.Errorf("tool_use_id = %q", result.Blocks[0].ToolUseID)
	}
}

func TestConvertToClaudeOrphanFiltering(t *testing.T) {
	msgs := []*message.Message{
		message.NewMessage(message.RoleUser, "hi"),
		message.NewToolResponseMessage("call_gone", "stale result"),
	}

	conv := ConvertToClaude(msgs, ConvertOptions{Iteration: 0})
	if len(conv.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(conv.Messages))
	}
	orphan := conv.Messages[1]
	if orphan.Role != message.RoleAssistant {
		t.Errorf("orphan role = %q, want assistant summary", orphan.Role)
	}
	if !strings.Contains(orphan.Content, "stale result") {
		t.Errorf("orphan content = %q", orphan.Content)
	}

	// Mid-loop the exchange is in flight and must pass through untouched;
	// the tool_result merges into the preceding user message.
	conv = ConvertToClaude(msgs, ConvertOptions{Iteration: 1})
	if len(conv.Messages) != 1 {
		t.Fatalf("iteration 1: got %d messages, want 1 after merging", len(conv.Messages))
	}
	merged := conv.Messages[0]
	if merged.Role != message.RoleUser {
		t.Fatalf("iteration 1 role = %q, want user", merged.Role)
	}
	last := merged.Blocks[len(merged.Blocks)-1]
	if last.Type != message.BlockToolResult || last.ToolUseID != "call_gone" {
		t.Errorf("iteration 1 trailing block = %+v, want tool_result call_gone", last)
	}
}

func TestConvertToClaudeOrphanToolUseDropped(t *testing.T) {
	msgs := []*message.Message{
		message.NewMessage(message.RoleUser, "hi"),
		message.NewBlockMessage(message.RoleAssistant,
			message.TextBlock("calling"),
			message.ToolUseBlock("toolu_orphan", "get_weather", []byte(`{}`)),
		),
	}

	conv := ConvertToClaude(msgs, ConvertOptions{Iteration: 0})
	for _, m := range conv.Messages {
		for _, b := range m.Blocks {
			if b.Type == message.BlockToolUse {
				t.Errorf("unpaired tool_use %q survived first-call conversion", b.ID)
			}
		}
	}

	// An assistant turn that was nothing but the unpaired call disappears.
	bare := []*message.Message{
		message.NewMessage(message.RoleUser, "hi"),
		message.NewBlockMessage(message.RoleAssistant,
			message.ToolUseBlock("toolu_orphan", "get_weather", []byte(`{}`)),
		),
	}
	conv = ConvertToClaude(bare, ConvertOptions{Iteration: 0})
	if len(conv.Messages) != 1 || conv.Messages[0].Role != message.RoleUser {
		t.Errorf("messages = %+v, want the user turn only", conv.Messages)
	}

	// Mid-loop the pairing is guaranteed upstream; nothing is filtered.
	conv = ConvertToClaude(msgs, ConvertOptions{Iteration: 1})
	found := false
	for _, m := range conv.Messages {
		for _, b := range m.Blocks {
			if b.Type == message.BlockToolUse && b.ID == "toolu_orphan" {
				found = true
			}
		}
	}
	if !found {
		t.Error("iteration 1 filtered a tool_use it should have kept")
	}
}

func TestConvertToClaudePairedToolUseKept(t *testing.T) {
	msgs := []*message.Message{
		message.NewMessage(message.RoleUser, "weather?"),
		message.NewBlockMessage(message.RoleAssistant,
			message.ToolUseBlock("toolu_1", "get_weather", []byte(`{}`)),
		),
		message.NewBlockMessage(message.RoleUser,
			message.ToolResultBlock("toolu_1", "4C", false),
		),
	}
	conv := ConvertToClaude(msgs, ConvertOptions{Iteration: 0})

	if len(conv.Messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(conv.Messages))
	}
	if uses := conv.Messages[1].ToolUses(); len(uses) != 1 || uses[0].ID != "toolu_1" {
		t.Errorf("paired tool_use filtered away: %+v", conv.Messages[1].Blocks)
	}
}

func TestConvertToClaudeRoleAlternation(t *testing.T) {
	msgs := []*message.Message{
		message.NewMessage(message.RoleUser, "first"),
		message.NewMessage(message.RoleUser, "second"),
		message.NewMessage(message.RoleAssistant, "reply"),
		message.NewBlockMessage(message.RoleAssistant, message.TextBlock("more")),
	}
	conv := ConvertToClaude(msgs, ConvertOptions{})

	if len(conv.Messages) != 2 {
		t.Fatalf("got %d messages, want 2 after merging", len(conv.Messages))
	}
	if conv.Messages[0].Content != "first\n\nsecond" {
		t.Errorf("merged user = %q", conv.Messages[0].Content)
	}
	merged := conv.Messages[1]
	if len(merged.Blocks) != 2 {
		t.Errorf("merged assistant blocks = %+v", merged.Blocks)
	}
}

func TestConvertToClaudeToolResultJoinsPreviousUser(t *testing.T) {
	msgs := []*message.Message{
		message.NewToolCallMessage("", []message.ToolCall{
			{ID: "call_1", Name: "get_time", Arguments: "{}"},
		}),
		message.NewToolResponseMessage("call_1", "12:00"),
		message.NewMessage(message.RoleUser, "thanks, and the date?"),
	}
	conv := ConvertToClaude(msgs, ConvertOptions{})

	if len(conv.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(conv.Messages))
	}
	joined := conv.Messages[1]
	if joined.Role != message.RoleUser || len(joined.Blocks) != 2 {
		t.Fatalf("joined = %+v", joined)
	}
	if joined.Blocks[0].Type != message.BlockToolResult || joined.Blocks[1].Type != message.BlockText {
		t.Errorf("joined block order = %v, %v", joined.Blocks[0].Type, joined.Blocks[1].Type)
	}
}

func TestConvertToClaudeThinkingGating(t *testing.T) {
	plain := []*message.Message{message.NewMessage(message.RoleUser, "hi")}

	conv := ConvertToClaude(plain, ConvertOptions{SupportsThinking: true})
	if !conv.ThinkingEnabled {
		t.Error("thinking should be enabled on a fresh conversation")
	}
	if conv.MaxTokens < conv.ThinkingBudget {
		t.Errorf("MaxTokens %d not raised above budget %d", conv.MaxTokens, conv.ThinkingBudget)
	}

	conv = ConvertToClaude(plain, ConvertOptions{SupportsThinking: true, DisableThinking: true})
	if conv.ThinkingEnabled {
		t.Error("DisableThinking ignored")
	}

	conv = ConvertToClaude(plain, ConvertOptions{SupportsThinking: false})
	if conv.ThinkingEnabled {
		t.Error("thinking enabled without model support")
	}
}

func TestConvertToClaudeThinkingPendingExchange(t *testing.T) {
	// Assistant called a tool without a leading thinking block; resuming
	// that exchange with thinking on would be rejected upstream.
	pending := []*message.Message{
		message.NewMessage(message.RoleUser, "weather?"),
		message.NewToolCallMessage("", []message.ToolCall{
			{ID: "call_1", Name: "get_weather", Arguments: "{}"},
		}),
		message.NewToolResponseMessage("call_1", "4C"),
	}
	conv := ConvertToClaude(pending, ConvertOptions{SupportsThinking: true})
	if conv.ThinkingEnabled {
		t.Error("thinking enabled while resuming an exchange without a thinking block")
	}

	// With signed thinking in history it must stay on.
	signed := []*message.Message{
		message.NewMessage(message.RoleUser, "weather?"),
		message.NewBlockMessage(message.RoleAssistant,
			message.ThinkingBlock("checking", "sig"),
			message.ToolUseBlock("call_1", "get_weather", []byte(`{}`)),
		),
		message.NewToolResponseMessage("call_1", "4C"),
	}
	conv = ConvertToClaude(signed, ConvertOptions{SupportsThinking: true, DisableThinking: true})
	if !conv.ThinkingEnabled {
		t.Error("history with thinking blocks must keep thinking enabled")
	}
}

func TestConvertToClaudeThinkingMidHistoryExchange(t *testing.T) {
	// The unthought tool exchange sits in the middle of the conversation;
	// a later plain-text assistant turn must not re-enable thinking.
	msgs := []*message.Message{
		message.NewMessage(message.RoleUser, "weather?"),
		message.NewToolCallMessage("", []message.ToolCall{
			{ID: "call_1", Name: "get_weather", Arguments: "{}"},
		}),
		message.NewToolResponseMessage("call_1", "4C"),
		message.NewMessage(message.RoleAssistant, "It is 4C."),
		message.NewMessage(message.RoleUser, "and tomorrow?"),
	}
	conv := ConvertToClaude(msgs, ConvertOptions{SupportsThinking: true})
	if conv.ThinkingEnabled {
		t.Error("thinking enabled despite an earlier tool exchange without a thinking block")
	}
}

func TestConvertToClaudeVisionAttach(t *testing.T) {
	png := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	msgs := []*message.Message{
		message.NewMessage(message.RoleUser, "what is this?"),
		message.NewMessage(message.RoleAssistant, "let me see"),
	}
	conv := ConvertToClaude(msgs, ConvertOptions{
		SupportsVision: true,
		Vision:         []tool.Vision{{Data: png}},
	})

	user := conv.Messages[0]
	if len(user.Blocks) != 2 || user.Blocks[1].Type != message.BlockImage {
		t.Fatalf("user blocks = %+v", user.Blocks)
	}
	if got := user.Blocks[1].Source.MediaType; got != "image/png" {
		t.Errorf("media type = %q", got)
	}

	conv = ConvertToClaude(msgs, ConvertOptions{
		SupportsVision: false,
		Vision:         []tool.Vision{{Data: png}},
	})
	if conv.Messages[0].IsBlockForm() {
		t.Error("vision attached despite model not supporting it")
	}
}

func TestDetectMediaType(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"iVBORw0KGgo", "image/png"},
		{"/9j/4AAQSkZJRg", "image/jpeg"},
		{"R0lGODlh", "image/gif"},
		{"UklGRh4A", "image/webp"},
		{"AAAA", "image/jpeg"},
	}
	for _, tt := range tests {
		if got := detectMediaType(tt.prefix); got != tt.want {
			t.Errorf("detectMediaType(%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestConvertToOpenAIFlattensBlocks(t *testing.T) {
	msgs := []*message.Message{
		message.NewMessage(message.RoleUser, "weather?"),
		message.NewBlockMessage(message.RoleAssistant,
			message.ThinkingBlock("checking", "sig"),
			message.TextBlock("Looking it up."),
			message.ToolUseBlock("toolu_1", "get_weather", []byte(`{"city":"Oslo"}`)),
		),
		message.NewBlockMessage(message.RoleUser,
			message.ToolResultBlock("toolu_1", "4C, cloudy", false),
		),
	}
	out := ConvertToOpenAI(msgs, ConvertOptions{Iteration: 1})

	assistant := out[1]
	if assistant.IsBlockForm() {
		t.Fatal("assistant not flattened")
	}
	if !strings.Contains(assistant.Content, `[Called tools: get_weather({"city":"Oslo"})]`) {
		t.Errorf("assistant content = %q", assistant.Content)
	}
	if strings.Contains(assistant.Content, "checking") {
		t.Error("thinking leaked into flattened content")
	}

	user := out[2]
	if user.Content != "[Tool result: 4C, cloudy]" {
		t.Errorf("user content = %q", user.Content)
	}
}

func TestConvertToOpenAIImageToDataURI(t *testing.T) {
	msgs := []*message.Message{
		message.NewBlockMessage(message.RoleUser,
			message.TextBlock("look"),
			message.ImageBlock("image/png", "iVBORw0KGgo"),
		),
	}
	out := ConvertToOpenAI(msgs, ConvertOptions{SupportsVision: true})

	user := out[0]
	if len(user.Blocks) != 2 {
		t.Fatalf("blocks = %+v", user.Blocks)
	}
	if got := user.Blocks[1].URL; got != "data:image/png;base64,iVBORw0KGgo" {
		t.Errorf("URL = %q", got)
	}

	out = ConvertToOpenAI(msgs, ConvertOptions{SupportsVision: false})
	if out[0].IsBlockForm() {
		t.Error("image kept for non-vision model")
	}
}

func TestConvertToOpenAIOrphanFiltering(t *testing.T) {
	msgs := []*message.Message{
		message.NewMessage(message.RoleUser, "hi"),
		message.NewToolResponseMessage("call_gone", "stale"),
	}
	out := ConvertToOpenAI(msgs, ConvertOptions{Iteration: 0})
	if out[1].Role != message.RoleAssistant {
		t.Errorf("orphan role = %q, want assistant summary", out[1].Role)
	}

	out = ConvertToOpenAI(msgs, ConvertOptions{Iteration: 2})
	if out[1].Role != message.RoleTool {
		t.Errorf("iteration 2 orphan role = %q, want tool", out[1].Role)
	}
}
