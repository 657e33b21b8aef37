package history

import (
	"fmt"
	"testing"

	"github.com/sweetpotato0/aura/message"
)

func TestAppendAndLen(t *testing.T) {
	h := New()
	h.Append(message.NewMessage(message.RoleUser, "hi"))
	h.Append(message.NewMessage(message.RoleAssistant, "hello"))

	if h.Len() != 2 {
		t.Errorf("Expected 2 messages, got %d", h.Len())
	}
	if h.Last().Role != message.RoleAssistant {
		t.Errorf("Expected last role assistant, got %s", h.Last().Role)
	}
}

func TestTrimKeepsSystemMessages(t *testing.T) {
	h := NewWithMaxSize(5)
	h.Append(message.NewMessage(message.RoleSystem, "you are a helpful assistant"))
	for i := 0; i < 10; i++ {
		h.Append(message.NewMessage(message.RoleUser, fmt.Sprintf("msg %d", i)))
	}

	if h.Len() > 5 {
		t.Errorf("Expected at most 5 messages after trim, got %d", h.Len())
	}
	if h.Messages()[0].Role != message.RoleSystem {
		t.Error("Expected system message to survive trimming")
	}
	if h.Last().Content != "msg 9" {
		t.Errorf("Expected most recent message retained, got %q", h.Last().Content)
	}
}

func TestReplace(t *testing.T) {
	h := FromMessages([]*message.Message{
		message.NewMessage(message.RoleUser, "one"),
		message.NewMessage(message.RoleAssistant, "two"),
	})
	h.Replace([]*message.Message{message.NewMessage(message.RoleUser, "summary")})

	if h.Len() != 1 || h.Last().Content != "summary" {
		t.Errorf("Replace did not swap contents: len=%d", h.Len())
	}
}

func TestByRole(t *testing.T) {
	h := New()
	h.Append(message.NewMessage(message.RoleUser, "a"))
	h.Append(message.NewMessage(message.RoleAssistant, "b"))
	h.Append(message.NewMessage(message.RoleUser, "c"))

	users := h.ByRole(message.RoleUser)
	if len(users) != 2 {
		t.Errorf("Expected 2 user messages, got %d", len(users))
	}
}
