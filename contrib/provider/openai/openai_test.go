package openai

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/sweetpotato0/aura/message"
)

func TestEncodeToolCallsEmptyArguments(t *testing.T) {
	out := encodeToolCalls([]message.ToolCall{
		{ID: "call_1", Name: "get_time", Arguments: ""},
		{ID: "call_2", Name: "get_weather", Arguments: `{"city":"Oslo"}`},
	})
	if len(out) != 2 {
		t.Fatalf("Expected 2 calls, got %d", len(out))
	}
	fn := out[0]["function"].(map[string]interface{})
	if fn["arguments"] != "{}" {
		t.Errorf("Empty arguments = %v, want {}", fn["arguments"])
	}
	fn = out[1]["function"].(map[string]interface{})
	if fn["arguments"] != `{"city":"Oslo"}` {
		t.Errorf("arguments = %v", fn["arguments"])
	}
}

func TestEncodeMessageToolRole(t *testing.T) {
	enc, err := encodeMessage(message.NewToolResponseMessage("call_1", "4C"))
	if err != nil {
		t.Fatalf("encodeMessage: %v", err)
	}
	raw, err := json.Marshal(enc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(raw)
	if !strings.Contains(s, `"tool_call_id":"call_1"`) || !strings.Contains(s, `"role":"tool"`) {
		t.Errorf("encoded tool message = %s", s)
	}
}

func TestEncodeMessageAssistantToolCalls(t *testing.T) {
	msg := message.NewToolCallMessage("Checking.", []message.ToolCall{
		{ID: "call_1", Name: "get_weather", Arguments: `{"city":"Oslo"}`},
	})
	enc, err := encodeMessage(msg)
	if err != nil {
		t.Fatalf("encodeMessage: %v", err)
	}
	raw, err := json.Marshal(enc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(raw)
	if !strings.Contains(s, `"name":"get_weather"`) || !strings.Contains(s, `"id":"call_1"`) {
		t.Errorf("encoded assistant message = %s", s)
	}
}

func TestEncodeUserPartsSkipsEmptyImage(t *testing.T) {
	parts := encodeUserParts([]message.Block{
		message.TextBlock("look"),
		message.ImageURLBlock(""),
		message.ImageURLBlock("data:image/png;base64,iVBORw0KGgo"),
	})
	if len(parts) != 2 {
		t.Fatalf("Expected 2 parts, got %d", len(parts))
	}
	if parts[1]["type"] != "image_url" {
		t.Errorf("part type = %v", parts[1]["type"])
	}
}
