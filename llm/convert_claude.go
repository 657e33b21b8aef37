package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sweetpotato0/aura/message"
	"github.com/sweetpotato0/aura/tool"
)

const (
	// defaultMaxTokens is the response budget when the caller sets none.
	defaultMaxTokens = 8192
	// defaultThinkingBudget is the reasoning token budget when extended
	// thinking is enabled.
	defaultThinkingBudget = 4096
)

// ClaudeConversation is canonical history rewritten into the Anthropic
// native shape: system prompt extracted, tool exchanges expressed as
// content blocks, roles strictly alternating.
type ClaudeConversation struct {
	System   []message.Block
	Messages []*message.Message

	ThinkingEnabled bool
	ThinkingBudget  int
	MaxTokens       int
}

// ConvertOptions controls a canonical-to-native conversion.
type ConvertOptions struct {
	// Iteration is the zero-based tool loop iteration. Orphaned tool
	// results can only pre-exist the loop, so they are rewritten on
	// iteration 0 only.
	Iteration int

	SupportsThinking bool
	DisableThinking  bool
	SupportsVision   bool

	// ThinkingBudget and MaxTokens fall back to package defaults when
	// zero.
	ThinkingBudget int
	MaxTokens      int

	// Vision payloads attach to the most recent user message.
	Vision []tool.Vision
}

// ConvertToClaude rewrites canonical history into the Anthropic native
// shape. The input is not modified.
func ConvertToClaude(msgs []*message.Message, opts ConvertOptions) *ClaudeConversation {
	conv := &ClaudeConversation{
		MaxTokens:      opts.MaxTokens,
		ThinkingBudget: opts.ThinkingBudget,
	}
	if conv.MaxTokens <= 0 {
		conv.MaxTokens = defaultMaxTokens
	}
	if conv.ThinkingBudget <= 0 {
		conv.ThinkingBudget = defaultThinkingBudget
	}

	var out []*message.Message
	seenCalls := map[string]bool{}
	resultIDs := collectResultIDs(msgs)

	for _, msg := range msgs {
		switch msg.Role {
		case message.RoleSystem:
			conv.System = append(conv.System, systemBlocks(msg)...)

		case message.RoleAssistant:
			native := assistantToClaude(msg)
			if opts.Iteration == 0 {
				// A tool_use with no matching result anywhere in history can
				// only come from a trimmed conversation; sending it unpaired
				// gets the request rejected.
				native = dropOrphanToolUse(native, resultIDs)
				if native == nil {
					continue
				}
			}
			for _, b := range native.Blocks {
				if b.Type == message.BlockToolUse {
					seenCalls[b.ID] = true
				}
			}
			out = append(out, native)

		case message.RoleTool:
			if opts.Iteration == 0 && !seenCalls[msg.ToolCallID] {
				// A result whose call was trimmed away cannot be sent as
				// tool_result; keep its information as plain assistant
				// context instead.
				out = append(out, message.NewMessage(message.RoleAssistant,
					fmt.Sprintf("[Previous tool result: %s]", msg.Content)))
				continue
			}
			result := message.NewBlockMessage(message.RoleUser,
				message.ToolResultBlock(msg.ToolCallID, msg.Content, false))
			out = append(out, result)

		default:
			out = append(out, msg.Clone())
		}
	}

	out = attachVision(out, opts)
	conv.Messages = mergeAlternating(out)

	enabled := opts.SupportsThinking && !opts.DisableThinking
	if enabled && !thinkingCompatible(conv.Messages) {
		enabled = false
	}
	// Once a conversation contains signed thinking blocks the API requires
	// thinking to stay on for the rest of the exchange.
	if opts.SupportsThinking && historyHasThinking(conv.Messages) {
		enabled = true
	}
	conv.ThinkingEnabled = enabled
	if enabled && conv.MaxTokens < conv.ThinkingBudget+defaultThinkingBudget {
		conv.MaxTokens = conv.ThinkingBudget + defaultThinkingBudget
	}
	return conv
}

func systemBlocks(msg *message.Message) []message.Block {
	if msg.IsBlockForm() {
		blocks := make([]message.Block, 0, len(msg.Blocks))
		for _, b := range msg.Blocks {
			if b.Type == message.BlockText {
				blocks = append(blocks, b.Clone())
			}
		}
		return blocks
	}
	if msg.Content == "" {
		return nil
	}
	return []message.Block{message.TextBlock(msg.Content)}
}

// assistantToClaude rewrites an assistant turn into block form, turning
// flat tool_calls into tool_use blocks.
func assistantToClaude(msg *message.Message) *message.Message {
	if len(msg.ToolCalls) == 0 {
		return msg.Clone()
	}
	var blocks []message.Block
	if msg.IsBlockForm() {
		for _, b := range msg.Blocks {
			blocks = append(blocks, b.Clone())
		}
	} else if msg.Content != "" {
		blocks = append(blocks, message.TextBlock(msg.Content))
	}
	for _, call := range msg.ToolCalls {
		input := json.RawMessage(call.Arguments)
		if !json.Valid(input) || len(input) == 0 {
			input = json.RawMessage("{}")
		}
		blocks = append(blocks, message.ToolUseBlock(call.ID, call.Name, input))
	}
	return message.NewBlockMessage(message.RoleAssistant, blocks...)
}

// collectResultIDs gathers every tool_result id present in history, in
// either the flat tool-role shape or the block form.
func collectResultIDs(msgs []*message.Message) map[string]bool {
	ids := map[string]bool{}
	for _, msg := range msgs {
		if msg.Role == message.RoleTool && msg.ToolCallID != "" {
			ids[msg.ToolCallID] = true
		}
		for _, b := range msg.Blocks {
			if b.Type == message.BlockToolResult {
				ids[b.ToolUseID] = true
			}
		}
	}
	return ids
}

// dropOrphanToolUse strips tool_use blocks whose result never made it into
// history. A message left with no blocks is dropped entirely (nil).
func dropOrphanToolUse(msg *message.Message, resultIDs map[string]bool) *message.Message {
	if !msg.IsBlockForm() {
		return msg
	}
	kept := make([]message.Block, 0, len(msg.Blocks))
	for _, b := range msg.Blocks {
		if b.Type == message.BlockToolUse && !resultIDs[b.ID] {
			continue
		}
		kept = append(kept, b)
	}
	if len(kept) == 0 {
		return nil
	}
	msg.Blocks = kept
	return msg
}

// attachVision appends image blocks to the most recent user message,
// converting it to block form if needed. Without a user message to carry
// them the payloads are dropped.
func attachVision(out []*message.Message, opts ConvertOptions) []*message.Message {
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
			target.Blocks = append(target.Blocks, message.ImageBlock(mediaType, data))
		}
		out[i] = target
		break
	}
	return out
}

// mergeAlternating enforces the strict user/assistant alternation the
// messages API requires by merging consecutive same-role messages.
func mergeAlternating(msgs []*message.Message) []*message.Message {
	var out []*message.Message
	for _, msg := range msgs {
		if len(out) == 0 || out[len(out)-1].Role != msg.Role {
			out = append(out, msg)
			continue
		}
		prev := out[len(out)-1]
		if !prev.IsBlockForm() && !msg.IsBlockForm() {
			merged := message.NewMessage(prev.Role, prev.Content+"\n\n"+msg.Content)
			out[len(out)-1] = merged
			continue
		}
		merged := toBlockForm(prev)
		merged.Blocks = append(merged.Blocks, toBlockForm(msg).Blocks...)
		out[len(out)-1] = merged
	}
	return out
}

func toBlockForm(msg *message.Message) *message.Message {
	if msg.IsBlockForm() {
		return msg.Clone()
	}
	return message.NewBlockMessage(msg.Role, message.TextBlock(msg.Content))
}

// thinkingCompatible reports whether thinking may be enabled for this
// history. Any assistant turn that called tools without leading with a
// thinking block poisons the conversation: the API rejects thinking-enabled
// requests whose tool exchanges lack thinking blocks.
func thinkingCompatible(msgs []*message.Message) bool {
	for _, msg := range msgs {
		if msg.Role != message.RoleAssistant {
			continue
		}
		hasToolUse := len(msg.ToolCalls) > 0
		for _, b := range msg.Blocks {
			if b.Type == message.BlockToolUse {
				hasToolUse = true
				break
			}
		}
		if !hasToolUse {
			continue
		}
		if len(msg.Blocks) == 0 || msg.Blocks[0].Type != message.BlockThinking {
			return false
		}
	}
	return true
}

func historyHasThinking(msgs []*message.Message) bool {
	for _, msg := range msgs {
		if msg.HasThinking() {
			return true
		}
	}
	return false
}

// detectMediaType sniffs a base64 payload's image type from its leading
// characters.
func detectMediaType(b64 string) string {
	switch {
	case strings.HasPrefix(b64, "iVBORw"):
		return "image/png"
	case strings.HasPrefix(b64, "/9j/"):
		return "image/jpeg"
	case strings.HasPrefix(b64, "R0lGOD"):
		return "image/gif"
	case strings.HasPrefix(b64, "UklGR"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
