// Package llm implements the streaming-protocol and tool-calling
// orchestration core: per-provider stream parsers feeding a bounded
// accumulator, the bidirectional history format converter, and the tool
// iteration loop.
package llm

import (
	"context"
	"time"

	"github.com/sweetpotato0/aura/history"
	"github.com/sweetpotato0/aura/tool"
)

// Format identifies the native conversation-history shape a provider
// requires.
type Format int

const (
	// FormatOpenAI is the flat message-array shape with tool_calls fields.
	FormatOpenAI Format = iota
	// FormatClaude is the nested content-block shape with strict role
	// alternation.
	FormatClaude
)

func (f Format) String() string {
	switch f {
	case FormatClaude:
		return "claude"
	default:
		return "openai"
	}
}

// Usage carries token and timing counters for one provider call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	CachedTokens     int

	// TTFT is the time from request start to the first streamed token.
	TTFT time.Duration
	// TokensPerSecond is the decode speed reported by the provider, when
	// available (llama.cpp timings).
	TokensPerSecond float64
}

// Request is the input to one single-shot provider call.
type Request struct {
	History *history.History
	Input   string
	Vision  []tool.Vision

	BaseURL string
	APIKey  string
	Model   string

	// Tools offered for this call; nil or DisableTools means none.
	Tools        []*tool.Tool
	DisableTools bool

	// DisableThinking turns extended reasoning off even when the model
	// supports it.
	DisableThinking bool

	// OnText receives each text fragment as it is parsed. OnThinking
	// receives reasoning fragments; they are never delivered to OnText.
	OnText     func(string)
	OnThinking func(string)

	// Iteration is the zero-based tool loop iteration; the converters use
	// it to decide whether orphaned tool artifacts may still exist.
	Iteration int

	SessionID string
}

// Response is the structured result of one single-shot provider call.
type Response struct {
	Text              string
	Thinking          string
	ThinkingSignature string
	ToolCalls         tool.CallList
	FinishReason      string
	Usage             Usage
}

// HasToolCalls reports whether the model requested tool execution.
func (r *Response) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

// Provider performs exactly one network call per Generate invocation: no
// recursion, no tool execution, no history mutation. Streamed fragments are
// delivered through the request callbacks while the call is in flight.
type Provider interface {
	Name() string
	Format() Format
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// Compactor shrinks conversation history to fit context limits. The loop
// invokes it every iteration with the freshly updated history.
type Compactor interface {
	Compact(ctx context.Context, h *history.History, sessionID string) error
}
