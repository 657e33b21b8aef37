package llm

import (
	"strings"
	"time"

	"github.com/sweetpotato0/aura/errors"
	"github.com/sweetpotato0/aura/tool"
)

const (
	// maxTextBytes bounds accumulated assistant text for one response.
	maxTextBytes = 10 << 20
	// maxThinkingBytes bounds accumulated reasoning for one response.
	maxThinkingBytes = 2 << 20
)

// Accumulator assembles one streamed model response from parser events. It
// owns the buffer caps, tool-call slot bookkeeping, and TTFT measurement.
// Fragments are forwarded to the callbacks as they arrive, even once a
// buffer cap refuses further appends.
type Accumulator struct {
	text     strings.Builder
	thinking strings.Builder

	signature string

	// calls is indexed by provider slot; slots may arrive out of order.
	calls [tool.MaxParallelCalls]*tool.Call

	finishReason string
	usage        Usage

	started  time.Time
	firstAt  time.Time
	complete bool

	onText     func(string)
	onThinking func(string)
}

// NewAccumulator creates an accumulator for one response. The callbacks may
// be nil.
func NewAccumulator(onText, onThinking func(string)) *Accumulator {
	return &Accumulator{
		started:    time.Now(),
		onText:     onText,
		onThinking: onThinking,
	}
}

func (a *Accumulator) markFirst() {
	if a.firstAt.IsZero() {
		a.firstAt = time.Now()
	}
}

// AddText appends an assistant text fragment. The callback always fires; the
// buffer silently stops growing at its cap.
func (a *Accumulator) AddText(fragment string) {
	if a.complete || fragment == "" {
		return
	}
	a.markFirst()
	if a.onText != nil {
		a.onText(fragment)
	}
	if a.text.Len()+len(fragment) <= maxTextBytes {
		a.text.WriteString(fragment)
	}
}

// AddThinking appends a reasoning fragment. Reasoning is never routed to the
// text callback.
func (a *Accumulator) AddThinking(fragment string) {
	if a.complete || fragment == "" {
		return
	}
	a.markFirst()
	if a.onThinking != nil {
		a.onThinking(fragment)
	}
	if a.thinking.Len()+len(fragment) <= maxThinkingBytes {
		a.thinking.WriteString(fragment)
	}
}

// AddSignature appends to the reasoning continuation signature.
func (a *Accumulator) AddSignature(fragment string) {
	if a.complete {
		return
	}
	a.signature += fragment
}

// StartCall opens the tool-call slot at index with an id and name. Starting
// a slot beyond the parallel bound fails. Reopening a slot updates its id
// and name but keeps arguments already accumulated, since some backends
// resend identity fields on every chunk.
func (a *Accumulator) StartCall(index int, id, name string) error {
	if a.complete {
		return nil
	}
	if index < 0 || index >= tool.MaxParallelCalls {
		return errors.ErrTooManyCalls
	}
	a.markFirst()
	if a.calls[index] == nil {
		a.calls[index] = &tool.Call{}
	}
	if id != "" {
		a.calls[index].ID = id
	}
	if name != "" {
		a.calls[index].Name = name
	}
	return nil
}

// AppendCallArgs concatenates an argument fragment onto the slot at index.
// The slot must have been started.
func (a *Accumulator) AppendCallArgs(index int, fragment string) error {
	if a.complete {
		return nil
	}
	if index < 0 || index >= tool.MaxParallelCalls || a.calls[index] == nil {
		return errors.ErrInvalidInput
	}
	a.calls[index].Arguments += fragment
	return nil
}

// ReplaceCallArgs overwrites the accumulated arguments of the slot at index.
// Some OpenAI-compatible backends resend the full argument string per chunk
// instead of a delta.
func (a *Accumulator) ReplaceCallArgs(index int, args string) error {
	if a.complete {
		return nil
	}
	if index < 0 || index >= tool.MaxParallelCalls || a.calls[index] == nil {
		return errors.ErrInvalidInput
	}
	a.calls[index].Arguments = args
	return nil
}

// SetFinishReason records the provider finish reason.
func (a *Accumulator) SetFinishReason(reason string) {
	if a.complete || reason == "" {
		return
	}
	a.finishReason = reason
}

// SetUsage merges non-zero token counters from the provider.
func (a *Accumulator) SetUsage(prompt, completion, cached int) {
	if a.complete {
		return
	}
	if prompt > 0 {
		a.usage.PromptTokens = prompt
	}
	if completion > 0 {
		a.usage.CompletionTokens = completion
	}
	if cached > 0 {
		a.usage.CachedTokens = cached
	}
}

// SetDecodeSpeed records the provider-reported tokens-per-second figure.
func (a *Accumulator) SetDecodeSpeed(tps float64) {
	if a.complete || tps <= 0 {
		return
	}
	a.usage.TokensPerSecond = tps
}

// Complete seals the accumulator. Events arriving afterwards are ignored.
func (a *Accumulator) Complete() {
	a.complete = true
}

// Completed reports whether the stream has been sealed.
func (a *Accumulator) Completed() bool {
	return a.complete
}

// Response packages the accumulated state. Unfilled tool-call slots are
// dropped; filled slots keep their arrival order by index.
func (a *Accumulator) Response() *Response {
	resp := &Response{
		Text:              a.text.String(),
		Thinking:          a.thinking.String(),
		ThinkingSignature: a.signature,
		FinishReason:      a.finishReason,
		Usage:             a.usage,
	}
	for _, c := range a.calls {
		if c != nil {
			resp.ToolCalls = append(resp.ToolCalls, *c)
		}
	}
	if !a.firstAt.IsZero() {
		resp.Usage.TTFT = a.firstAt.Sub(a.started)
	}
	return resp
}
