package llm

import (
	"github.com/tidwall/gjson"
)

type claudeBlockKind int

const (
	claudeBlockNone claudeBlockKind = iota
	claudeBlockText
	claudeBlockToolUse
	claudeBlockThinking
)

// ClaudeStreamParser feeds Anthropic message-stream events into an
// Accumulator. Content blocks arrive bracketed by content_block_start and
// content_block_stop; the parser tracks which kind of block each index
// carries so deltas route to the right buffer.
type ClaudeStreamParser struct {
	acc *Accumulator

	// blocks maps a content block index to its kind for the duration of
	// the block.
	blocks map[int]claudeBlockKind
	// slots maps a tool_use block index to its accumulator slot.
	slots map[int]int
	next  int
}

// NewClaudeStreamParser creates a parser feeding acc.
func NewClaudeStreamParser(acc *Accumulator) *ClaudeStreamParser {
	return &ClaudeStreamParser{
		acc:    acc,
		blocks: make(map[int]claudeBlockKind),
		slots:  make(map[int]int),
	}
}

// Feed consumes one event payload. Unknown event types (ping, error
// envelopes already surfaced through the transport) are ignored.
func (p *ClaudeStreamParser) Feed(data string) error {
	if p.acc.Completed() {
		return nil
	}
	event := gjson.Parse(data)
	switch event.Get("type").String() {
	case "message_start":
		usage := event.Get("message.usage")
		p.acc.SetUsage(
			int(usage.Get("input_tokens").Int()),
			int(usage.Get("output_tokens").Int()),
			int(usage.Get("cache_read_input_tokens").Int()),
		)
	case "content_block_start":
		return p.startBlock(event)
	case "content_block_delta":
		return p.feedDelta(event)
	case "content_block_stop":
		delete(p.blocks, int(event.Get("index").Int()))
	case "message_delta":
		if reason := event.Get("delta.stop_reason"); reason.Type == gjson.String {
			p.acc.SetFinishReason(reason.String())
		}
		usage := event.Get("usage")
		p.acc.SetUsage(
			int(usage.Get("input_tokens").Int()),
			int(usage.Get("output_tokens").Int()),
			int(usage.Get("cache_read_input_tokens").Int()),
		)
	case "message_stop":
		p.acc.Complete()
	}
	return nil
}

func (p *ClaudeStreamParser) startBlock(event gjson.Result) error {
	index := int(event.Get("index").Int())
	block := event.Get("content_block")
	switch block.Get("type").String() {
	case "text":
		p.blocks[index] = claudeBlockText
	case "thinking":
		p.blocks[index] = claudeBlockThinking
	case "tool_use":
		p.blocks[index] = claudeBlockToolUse
		slot := p.next
		p.next++
		p.slots[index] = slot
		return p.acc.StartCall(slot, block.Get("id").String(), block.Get("name").String())
	}
	return nil
}

func (p *ClaudeStreamParser) feedDelta(event gjson.Result) error {
	index := int(event.Get("index").Int())
	delta := event.Get("delta")
	switch delta.Get("type").String() {
	case "text_delta":
		p.acc.AddText(delta.Get("text").String())
	case "thinking_delta":
		p.acc.AddThinking(delta.Get("thinking").String())
	case "signature_delta":
		p.acc.AddSignature(delta.Get("signature").String())
	case "input_json_delta":
		if p.blocks[index] == claudeBlockToolUse {
			return p.acc.AppendCallArgs(p.slots[index], delta.Get("partial_json").String())
		}
	}
	return nil
}
