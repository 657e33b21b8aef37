package message

import "time"

// Role represents the role of the message sender
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message represents a single conversation turn. Content holds plain text;
// when Blocks is non-nil the message instead carries an ordered sequence of
// typed content blocks (the nested form used by Claude-style providers).
// A message never carries both at once.
type Message struct {
	ID         string         `json:"id,omitempty"`
	Role       Role           `json:"role"`
	Content    string         `json:"content,omitempty"`
	Blocks     []Block        `json:"blocks,omitempty"`
	ToolCalls  []ToolCall     `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"` // For tool response messages
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at,omitempty"`
}

// ToolCall represents a tool invocation request. Arguments is the raw JSON
// argument payload exactly as accumulated from the provider stream.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// NewMessage creates a new message with the given role and plain text content
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// NewBlockMessage creates a message whose content is a block sequence.
func NewBlockMessage(role Role, blocks ...Block) *Message {
	return &Message{
		ID:        generateID(),
		Role:      role,
		Blocks:    blocks,
		CreatedAt: time.Now(),
	}
}

// NewToolCallMessage creates an assistant message carrying tool calls
func NewToolCallMessage(content string, toolCalls []ToolCall) *Message {
	return &Message{
		ID:        generateID(),
		Role:      RoleAssistant,
		Content:   content,
		ToolCalls: toolCalls,
		CreatedAt: time.Now(),
	}
}

// NewToolResponseMessage creates a tool response message
func NewToolResponseMessage(toolCallID, content string) *Message {
	return &Message{
		ID:         generateID(),
		Role:       RoleTool,
		Content:    content,
		ToolCallID: toolCallID,
		CreatedAt:  time.Now(),
	}
}

// IsBlockForm reports whether the message content is a block sequence.
func (m *Message) IsBlockForm() bool {
	return m != nil && m.Blocks != nil
}

// Text returns the plain text view of the message: Content for flat messages,
// the concatenated text blocks for block-form messages. Thinking content is
// excluded.
func (m *Message) Text() string {
	if m == nil {
		return ""
	}
	if m.Blocks == nil {
		return m.Content
	}
	var out string
	for _, b := range m.Blocks {
		if b.Type == BlockText {
			out += b.Text
		}
	}
	return out
}

// ToolUses returns the tool_use blocks of a block-form message.
func (m *Message) ToolUses() []Block {
	if m == nil {
		return nil
	}
	var uses []Block
	for _, b := range m.Blocks {
		if b.Type == BlockToolUse {
			uses = append(uses, b)
		}
	}
	return uses
}

// HasThinking reports whether any block carries extended-reasoning content.
func (m *Message) HasThinking() bool {
	for _, b := range m.Blocks {
		if b.Type == BlockThinking {
			return true
		}
	}
	return false
}

// Clone creates a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	cloned := *m
	if m.Metadata != nil {
		cloned.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			cloned.Metadata[k] = v
		}
	}
	if len(m.ToolCalls) > 0 {
		cloned.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		copy(cloned.ToolCalls, m.ToolCalls)
	}
	if len(m.Blocks) > 0 {
		cloned.Blocks = make([]Block, len(m.Blocks))
		for i, b := range m.Blocks {
			cloned.Blocks[i] = b.Clone()
		}
	}
	return &cloned
}

// Clone creates a deep copy of msg.
func Clone(msg *Message) *Message {
	return msg.Clone()
}

// CloneMessages copies a slice of messages.
func CloneMessages(msgs []*Message) []*Message {
	if len(msgs) == 0 {
		return nil
	}
	clones := make([]*Message, 0, len(msgs))
	for _, msg := range msgs {
		clones = append(clones, Clone(msg))
	}
	return clones
}

// generateID generates a unique message ID
func generateID() string {
	return time.Now().Format("20060102150405.000000")
}
