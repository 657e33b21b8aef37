package llm

import (
	"github.com/tidwall/gjson"
)

// OpenAIStreamParser feeds chat-completion stream chunks into an
// Accumulator. One parser handles one streamed response.
type OpenAIStreamParser struct {
	acc *Accumulator

	// replaceArgs switches tool-call argument handling from delta
	// concatenation to whole-string replacement, for backends that resend
	// the full argument JSON on every chunk (Gemini-compatible endpoints).
	replaceArgs bool
}

// NewOpenAIStreamParser creates a parser feeding acc.
func NewOpenAIStreamParser(acc *Accumulator, replaceArgs bool) *OpenAIStreamParser {
	return &OpenAIStreamParser{acc: acc, replaceArgs: replaceArgs}
}

// Feed consumes one SSE data payload. The "[DONE]" sentinel seals the
// accumulator; malformed payloads are skipped.
func (p *OpenAIStreamParser) Feed(data string) error {
	if data == "[DONE]" {
		p.acc.Complete()
		return nil
	}
	if p.acc.Completed() {
		return nil
	}
	chunk := gjson.Parse(data)
	if !chunk.IsObject() {
		return nil
	}

	if usage := chunk.Get("usage"); usage.Exists() {
		p.acc.SetUsage(
			int(usage.Get("prompt_tokens").Int()),
			int(usage.Get("completion_tokens").Int()),
			int(usage.Get("prompt_tokens_details.cached_tokens").Int()),
		)
	}
	// llama.cpp appends decode timings to the final chunk.
	if tps := chunk.Get("timings.predicted_per_second"); tps.Exists() {
		p.acc.SetDecodeSpeed(tps.Float())
	}

	choice := chunk.Get("choices.0")
	if !choice.Exists() {
		return nil
	}
	if reason := choice.Get("finish_reason"); reason.Exists() && reason.Type == gjson.String {
		p.acc.SetFinishReason(reason.String())
	}

	delta := choice.Get("delta")
	if text := delta.Get("content"); text.Type == gjson.String && text.String() != "" {
		p.acc.AddText(text.String())
	}
	if thinking := delta.Get("reasoning_content"); thinking.Type == gjson.String && thinking.String() != "" {
		p.acc.AddThinking(thinking.String())
	}

	var err error
	delta.Get("tool_calls").ForEach(func(_, call gjson.Result) bool {
		err = p.feedToolCall(call)
		return err == nil
	})
	return err
}

func (p *OpenAIStreamParser) feedToolCall(call gjson.Result) error {
	index := int(call.Get("index").Int())
	id := call.Get("id").String()
	name := call.Get("function.name").String()
	args := call.Get("function.arguments").String()

	// A chunk carrying an id or name opens (or reopens) the slot.
	if id != "" || name != "" {
		if err := p.acc.StartCall(index, id, name); err != nil {
			return err
		}
	}
	if args == "" {
		return nil
	}
	if p.replaceArgs {
		return p.acc.ReplaceCallArgs(index, args)
	}
	return p.acc.AppendCallArgs(index, args)
}
