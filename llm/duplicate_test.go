package llm

import (
	"testing"

	"github.com/sweetpotato0/aura/history"
	"github.com/sweetpotato0/aura/message"
	"github.com/sweetpotato0/aura/tool"
)

func TestIsDuplicateCallOpenAI(t *testing.T) {
	h := history.FromMessages([]*message.Message{
		message.NewMessage(message.RoleUser, "weather?"),
		message.NewToolCallMessage("", []message.ToolCall{
			{ID: "call_1", Name: "get_weather", Arguments: `{"city":"Oslo"}`},
		}),
		message.NewToolResponseMessage("call_1", "4C"),
	})

	tests := []struct {
		name string
		call tool.Call
		want bool
	}{
		{
			name: "same name same args",
			call: tool.Call{Name: "get_weather", Arguments: `{"city":"Oslo"}`},
			want: true,
		},
		{
			name: "same args different whitespace",
			call: tool.Call{Name: "get_weather", Arguments: `{ "city" : "Oslo" }`},
			want: true,
		},
		{
			name: "same name different args",
			call: tool.Call{Name: "get_weather", Arguments: `{"city":"Bergen"}`},
			want: false,
		},
		{
			name: "different tool",
			call: tool.Call{Name: "get_time", Arguments: `{"city":"Oslo"}`},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsDuplicateCall(FormatOpenAI, h, tool.CallList{tt.call})
			if got != tt.want {
				t.Errorf("IsDuplicateCall() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsDuplicateCallClaude(t *testing.T) {
	h := history.FromMessages([]*message.Message{
		message.NewMessage(message.RoleUser, "search go"),
		message.NewBlockMessage(message.RoleAssistant,
			message.ToolUseBlock("toolu_1", "search", []byte(`{"q":"go","limit":5}`)),
		),
		message.NewBlockMessage(message.RoleUser,
			message.ToolResultBlock("toolu_1", "results", false),
		),
	})

	// Key order must not matter.
	dup := tool.CallList{{Name: "search", Arguments: `{"limit":5,"q":"go"}`}}
	if !IsDuplicateCall(FormatClaude, h, dup) {
		t.Error("reordered keys not detected as duplicate")
	}

	fresh := tool.CallList{{Name: "search", Arguments: `{"q":"rust","limit":5}`}}
	if IsDuplicateCall(FormatClaude, h, fresh) {
		t.Error("different arguments flagged as duplicate")
	}
}

func TestIsDuplicateCallComparesMostRecent(t *testing.T) {
	h := history.FromMessages([]*message.Message{
		message.NewToolCallMessage("", []message.ToolCall{
			{ID: "call_1", Name: "search", Arguments: `{"q":"old"}`},
		}),
		message.NewToolResponseMessage("call_1", "r1"),
		message.NewToolCallMessage("", []message.ToolCall{
			{ID: "call_2", Name: "search", Arguments: `{"q":"new"}`},
		}),
		message.NewToolResponseMessage("call_2", "r2"),
	})

	if IsDuplicateCall(FormatOpenAI, h, tool.CallList{{Name: "search", Arguments: `{"q":"old"}`}}) {
		t.Error("matched an older call instead of the most recent one")
	}
	if !IsDuplicateCall(FormatOpenAI, h, tool.CallList{{Name: "search", Arguments: `{"q":"new"}`}}) {
		t.Error("most recent identical call not detected")
	}
}

func TestIsDuplicateCallEmptyArgs(t *testing.T) {
	h := history.FromMessages([]*message.Message{
		message.NewToolCallMessage("", []message.ToolCall{
			{ID: "call_1", Name: "get_time", Arguments: ""},
		}),
	})
	if !IsDuplicateCall(FormatOpenAI, h, tool.CallList{{Name: "get_time", Arguments: "{}"}}) {
		t.Error("empty arguments should equal the empty object")
	}
}

func TestIsDuplicateCallNoHistory(t *testing.T) {
	h := history.New()
	if IsDuplicateCall(FormatOpenAI, h, tool.CallList{{Name: "search", Arguments: "{}"}}) {
		t.Error("duplicate reported against empty history")
	}
	if IsDuplicateCall(FormatOpenAI, h, nil) {
		t.Error("duplicate reported for empty call list")
	}
}
