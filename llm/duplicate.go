package llm

import (
	"reflect"

	"github.com/tidwall/gjson"

	"github.com/sweetpotato0/aura/history"
	"github.com/sweetpotato0/aura/message"
	"github.com/sweetpotato0/aura/tool"
)

// IsDuplicateCall reports whether the first newly requested call repeats
// the most recent executed call of the same name, comparing arguments as
// JSON values rather than strings. The scan reads the history in the shape
// native to format.
func IsDuplicateCall(format Format, h *history.History, calls tool.CallList) bool {
	if len(calls) == 0 {
		return false
	}
	candidate := calls[0]

	msgs := h.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		if msg.Role != message.RoleAssistant {
			continue
		}
		if format == FormatClaude {
			for j := len(msg.Blocks) - 1; j >= 0; j-- {
				b := msg.Blocks[j]
				if b.Type == message.BlockToolUse && b.Name == candidate.Name {
					return jsonEqual(string(b.Input), candidate.Arguments)
				}
			}
			continue
		}
		for j := len(msg.ToolCalls) - 1; j >= 0; j-- {
			c := msg.ToolCalls[j]
			if c.Name == candidate.Name {
				return jsonEqual(c.Arguments, candidate.Arguments)
			}
		}
	}
	return false
}

// jsonEqual compares two JSON documents by value, so key order and
// whitespace differences do not count.
func jsonEqual(a, b string) bool {
	if a == "" {
		a = "{}"
	}
	if b == "" {
		b = "{}"
	}
	if a == b {
		return true
	}
	return reflect.DeepEqual(gjson.Parse(a).Value(), gjson.Parse(b).Value())
}
