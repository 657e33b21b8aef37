package llm

import (
	"encoding/json"
	"fmt"

	"github.com/sweetpotato0/aura/history"
	"github.com/sweetpotato0/aura/message"
	"github.com/sweetpotato0/aura/tool"
)

// steeringText is injected as a user message when the model repeats a tool
// call it already made, before one final tools-disabled turn.
const steeringText = "You already called %s with the same arguments and have its result above. Do not call it again; answer the user directly from the results you already have."

// AppendOpenAIExchange records a tool exchange in the flat native shape:
// one assistant message carrying the tool_calls, then one tool message per
// result.
func AppendOpenAIExchange(h *history.History, resp *Response, results tool.ResultList) {
	assistant := message.NewToolCallMessage(resp.Text, toMessageCalls(resp.ToolCalls))
	h.Append(assistant)
	for _, r := range results {
		h.Append(message.NewToolResponseMessage(r.ToolCallID, r.Text))
	}
}

// AppendClaudeExchange records a tool exchange in the nested native shape:
// an assistant block message (thinking first when present, then text, then
// tool_use) and a user message of tool_result blocks.
func AppendClaudeExchange(h *history.History, resp *Response, results tool.ResultList) {
	var blocks []message.Block
	if resp.Thinking != "" {
		blocks = append(blocks, message.ThinkingBlock(resp.Thinking, resp.ThinkingSignature))
	}
	if resp.Text != "" {
		blocks = append(blocks, message.TextBlock(resp.Text))
	}
	for _, call := range resp.ToolCalls {
		input := json.RawMessage(call.Arguments)
		if !json.Valid(input) || len(input) == 0 {
			input = json.RawMessage("{}")
		}
		blocks = append(blocks, message.ToolUseBlock(call.ID, call.Name, input))
	}
	h.Append(message.NewBlockMessage(message.RoleAssistant, blocks...))

	var resultBlocks []message.Block
	for _, r := range results {
		resultBlocks = append(resultBlocks, message.ToolResultBlock(r.ToolCallID, r.Text, !r.Success))
	}
	h.Append(message.NewBlockMessage(message.RoleUser, resultBlocks...))
}

// AppendExchange records the exchange in the shape native to format.
func AppendExchange(format Format, h *history.History, resp *Response, results tool.ResultList) {
	if format == FormatClaude {
		AppendClaudeExchange(h, resp, results)
		return
	}
	AppendOpenAIExchange(h, resp, results)
}

// AppendSteering injects the repeated-call steering message.
func AppendSteering(h *history.History, callName string) {
	h.Append(message.NewMessage(message.RoleUser,
		fmt.Sprintf(steeringText, callName)))
}

func toMessageCalls(calls tool.CallList) []message.ToolCall {
	out := make([]message.ToolCall, 0, len(calls))
	for _, c := range calls {
		out = append(out, message.ToolCall{ID: c.ID, Name: c.Name, Arguments: c.Arguments})
	}
	return out
}
