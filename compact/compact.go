// Package compact keeps conversation history inside the model context
// window by summarizing the middle of long conversations.
package compact

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/sweetpotato0/aura/history"
	"github.com/sweetpotato0/aura/llm"
	"github.com/sweetpotato0/aura/message"
	"github.com/sweetpotato0/aura/pkg/logging"
)

const (
	// DefaultMaxTokens is the token threshold that triggers compaction.
	DefaultMaxTokens = 24000
	// DefaultKeepRecent is how many trailing messages survive untouched.
	DefaultKeepRecent = 8

	summaryPrompt = "Summarize the conversation so far in a few short paragraphs. Keep concrete facts, names, numbers, and decisions; drop pleasantries. The summary replaces the messages, so it must stand on its own."
)

// Compactor summarizes the middle of a conversation once its token count
// crosses a threshold. System messages and the most recent turns are kept
// verbatim; everything between is replaced by a single summary message.
type Compactor struct {
	provider   llm.Provider
	encoder    *tiktoken.Tiktoken
	maxTokens  int
	keepRecent int
	logger     *slog.Logger
}

// Option configures a Compactor.
type Option func(*Compactor)

// WithMaxTokens sets the compaction threshold.
func WithMaxTokens(n int) Option {
	return func(c *Compactor) { c.maxTokens = n }
}

// WithKeepRecent sets how many trailing messages are kept verbatim.
func WithKeepRecent(n int) Option {
	return func(c *Compactor) { c.keepRecent = n }
}

// New creates a Compactor that summarizes through provider.
func New(provider llm.Provider, opts ...Option) (*Compactor, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("compact: load encoding: %w", err)
	}
	c := &Compactor{
		provider:   provider,
		encoder:    enc,
		maxTokens:  DefaultMaxTokens,
		keepRecent: DefaultKeepRecent,
		logger:     logging.WithComponent("compact"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Compact summarizes the middle of h in place when it exceeds the token
// threshold. A conversation short enough, or one without a compactable
// middle, is left untouched.
func (c *Compactor) Compact(ctx context.Context, h *history.History, sessionID string) error {
	msgs := h.Messages()
	total := c.CountTokens(msgs)
	if total <= c.maxTokens {
		return nil
	}

	var system, rest []*message.Message
	for _, m := range msgs {
		if m.Role == message.RoleSystem {
			system = append(system, m)
		} else {
			rest = append(rest, m)
		}
	}

	cut := len(rest) - c.keepRecent
	// Never cut through a tool exchange: the tail must not open with a
	// result whose call would land in the summary.
	for cut > 0 && startsWithToolResult(rest[cut]) {
		cut--
	}
	if cut <= 0 {
		return nil
	}

	summary, err := c.summarize(ctx, rest[:cut], sessionID)
	if err != nil {
		return fmt.Errorf("compact: %w", err)
	}

	compacted := make([]*message.Message, 0, len(system)+1+len(rest)-cut)
	compacted = append(compacted, system...)
	compacted = append(compacted, message.NewMessage(message.RoleUser,
		fmt.Sprintf("[Summary of earlier conversation: %s]", summary)))
	compacted = append(compacted, rest[cut:]...)
	h.Replace(compacted)

	c.logger.Info("history compacted",
		"session", sessionID,
		"before_tokens", total,
		"after_tokens", c.CountTokens(h.Messages()),
		"dropped_messages", cut)
	return nil
}

func (c *Compactor) summarize(ctx context.Context, msgs []*message.Message, sessionID string) (string, error) {
	resp, err := c.provider.Generate(ctx, &llm.Request{
		History:         history.FromMessages(msgs),
		Input:           summaryPrompt,
		DisableTools:    true,
		DisableThinking: true,
		SessionID:       sessionID,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

// CountTokens estimates the token footprint of msgs with the cl100k_base
// encoding. A close estimate is enough here; the provider has the final
// word on context limits.
func (c *Compactor) CountTokens(msgs []*message.Message) int {
	var total int
	for _, m := range msgs {
		total += len(c.encoder.Encode(m.Content, nil, nil))
		for _, b := range m.Blocks {
			total += len(c.encoder.Encode(b.Text, nil, nil))
			total += len(c.encoder.Encode(b.Thinking, nil, nil))
			total += len(c.encoder.Encode(b.Content, nil, nil))
			total += len(c.encoder.Encode(string(b.Input), nil, nil))
		}
		for _, call := range m.ToolCalls {
			total += len(c.encoder.Encode(call.Arguments, nil, nil))
		}
		// rough per-message framing overhead
		total += 4
	}
	return total
}

func startsWithToolResult(m *message.Message) bool {
	if m.Role == message.RoleTool {
		return true
	}
	if m.Role == message.RoleUser && len(m.Blocks) > 0 && m.Blocks[0].Type == message.BlockToolResult {
		return true
	}
	return false
}
