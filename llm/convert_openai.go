package llm

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/sweetpotato0/aura/message"
)

// ConvertToOpenAI rewrites canonical history into the flat chat-completion
// shape. Block-form messages left behind by an Anthropic-family provider
// are flattened: tool_use becomes a bracketed call summary, tool_result a
// bracketed result summary, thinking is dropped, and base64 images become
// data URIs. The input is not modified.
func ConvertToOpenAI(msgs []*message.Message, opts ConvertOptions) []*message.Message {
	var out []*message.Message
	seenCalls := map[string]bool{}

	for _, msg := range msgs {
		switch msg.Role {
		case message.RoleAssistant:
			for _, call := range msg.ToolCalls {
				seenCalls[call.ID] = true
			}
			for _, b := range msg.Blocks {
				if b.Type == message.BlockToolUse {
					seenCalls[b.ID] = true
				}
			}
			out = append(out, flattenAssistant(msg))

		case message.RoleTool:
			if opts.Iteration == 0 && !seenCalls[msg.ToolCallID] {
				out = append(out, message.NewMessage(message.RoleAssistant,
					fmt.Sprintf("[Previous tool result: %s]", msg.Content)))
				continue
			}
			out = append(out, msg.Clone())

		case message.RoleUser:
			out = append(out, flattenUser(msg, opts.SupportsVision))

		default:
			out = append(out, msg.Clone())
		}
	}
	return attachVisionOpenAI(out, opts)
}

// flattenAssistant collapses an assistant turn to string content plus
// native tool_calls. Block-form tool_use entries made by another provider
// family become text summaries since their ids mean nothing here.
func flattenAssistant(msg *message.Message) *message.Message {
	if !msg.IsBlockForm() {
		return msg.Clone()
	}
	var text strings.Builder
	var calls []string
	for _, b := range msg.Blocks {
		switch b.Type {
		case message.BlockText:
			if text.Len() > 0 {
				text.WriteString("\n")
			}
			text.WriteString(b.Text)
		case message.BlockToolUse:
			calls = append(calls, fmt.Sprintf("%s(%s)", b.Name, string(b.Input)))
		}
	}
	if len(calls) > 0 {
		if text.Len() > 0 {
			text.WriteString("\n")
		}
		fmt.Fprintf(&text, "[Called tools: %s]", strings.Join(calls, ", "))
	}
	flat := message.NewMessage(message.RoleAssistant, text.String())
	flat.ToolCalls = append(flat.ToolCalls, msg.ToolCalls...)
	return flat
}

// flattenUser collapses a block-form user turn: tool_result blocks become
// bracketed summaries, images become data URIs or are stripped.
func flattenUser(msg *message.Message, supportsVision bool) *message.Message {
	if !msg.IsBlockForm() {
		return msg.Clone()
	}
	var text strings.Builder
	var images []message.Block
	for _, b := range msg.Blocks {
		switch b.Type {
		case message.BlockText:
			if text.Len() > 0 {
				text.WriteString("\n")
			}
			text.WriteString(b.Text)
		case message.BlockToolResult:
			if text.Len() > 0 {
				text.WriteString("\n")
			}
			fmt.Fprintf(&text, "[Tool result: %s]", b.Content)
		case message.BlockImage:
			if !supportsVision {
				continue
			}
			if b.URL != "" {
				images = append(images, b.Clone())
			} else if b.Source != nil {
				images = append(images, message.ImageURLBlock(
					fmt.Sprintf("data:%s;base64,%s", b.Source.MediaType, b.Source.Data)))
			}
		}
	}
	if len(images) == 0 {
		return message.NewMessage(message.RoleUser, text.String())
	}
	blocks := append([]message.Block{message.TextBlock(text.String())}, images...)
	return message.NewBlockMessage(message.RoleUser, blocks...)
}

func attachVisionOpenAI(out []*message.Message, opts ConvertOptions) []*message.Message {
	if len(opts.Vision) == 0 || !opts.SupportsVision {
		return out
	}
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Role != message.RoleUser {
			continue
		}
		target := toBlockForm(out[i])
		for _, v := range opts.Vision {
			data := base64Encode(v.Data)
			mediaType := v.MediaType
			if mediaType == "" {
				mediaType = detectMediaType(data)
			}
			target.Blocks = append(target.Blocks, message.ImageURLBlock(
				fmt.Sprintf("data:%s;base64,%s", mediaType, data)))
		}
		out[i] = target
		break
	}
	return out
}

func base64Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
