// Package history holds the canonical conversation history: an ordered,
// mutable sequence of messages owned by the caller for the duration of one
// tool loop invocation. Messages may be in the flat canonical shape or, after
// tool iterations against a Claude-style provider, in that provider's native
// block shape.
package history

import (
	"github.com/sweetpotato0/aura/message"
)

// History manages the conversation message sequence.
type History struct {
	messages []*message.Message
	maxSize  int // Maximum number of messages to keep
}

// New creates an empty history with default settings.
func New() *History {
	return &History{
		messages: make([]*message.Message, 0),
		maxSize:  1000,
	}
}

// NewWithMaxSize creates a history with the specified message cap.
func NewWithMaxSize(maxSize int) *History {
	return &History{
		messages: make([]*message.Message, 0),
		maxSize:  maxSize,
	}
}

// FromMessages creates a history seeded with existing messages.
func FromMessages(msgs []*message.Message) *History {
	h := New()
	h.messages = append(h.messages, msgs...)
	return h
}

// Append adds a message to the history.
func (h *History) Append(msg *message.Message) {
	if msg == nil {
		return
	}
	h.messages = append(h.messages, msg)

	// Trim old messages if exceeds max size, keeping system messages.
	if len(h.messages) > h.maxSize {
		systemMsgs := make([]*message.Message, 0)
		for _, m := range h.messages {
			if m.Role == message.RoleSystem {
				systemMsgs = append(systemMsgs, m)
			}
		}

		keepCount := h.maxSize - len(systemMsgs)
		if keepCount < 0 {
			keepCount = 0
		}
		recentMsgs := h.messages[len(h.messages)-keepCount:]

		newMessages := make([]*message.Message, 0, h.maxSize)
		newMessages = append(newMessages, systemMsgs...)
		for _, m := range recentMsgs {
			if m.Role != message.RoleSystem {
				newMessages = append(newMessages, m)
			}
		}
		h.messages = newMessages
	}
}

// Messages returns the message sequence. The returned slice is the live
// backing store; callers who need a stable copy should clone it.
func (h *History) Messages() []*message.Message {
	return h.messages
}

// Replace swaps the entire message sequence, used by compaction.
func (h *History) Replace(msgs []*message.Message) {
	h.messages = msgs
}

// Last returns the last message or nil if empty.
func (h *History) Last() *message.Message {
	if len(h.messages) == 0 {
		return nil
	}
	return h.messages[len(h.messages)-1]
}

// ByRole returns all messages with the specified role.
func (h *History) ByRole(role message.Role) []*message.Message {
	result := make([]*message.Message, 0)
	for _, msg := range h.messages {
		if msg.Role == role {
			result = append(result, msg)
		}
	}
	return result
}

// Clear removes all messages.
func (h *History) Clear() {
	h.messages = make([]*message.Message, 0)
}

// Len returns the current number of messages.
func (h *History) Len() int {
	return len(h.messages)
}
