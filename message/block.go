package message

import "encoding/json"

// BlockType identifies one kind of typed message content.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockImage      BlockType = "image"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
	BlockThinking   BlockType = "thinking"
)

// Block is one typed unit of message content. Only the fields relevant to
// the block's Type are populated.
type Block struct {
	Type BlockType

	// BlockText
	Text string

	// BlockThinking
	Thinking  string
	Signature string

	// BlockToolUse
	ID    string
	Name  string
	Input json.RawMessage

	// BlockToolResult
	ToolUseID string
	Content   string
	IsError   bool

	// BlockImage: Source carries the Claude base64 shape, URL the
	// OpenAI-style data URI. Exactly one is set.
	Source *ImageSource
	URL    string
}

// ImageSource carries a base64 image payload in the Claude wire shape.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// TextBlock builds a text block.
func TextBlock(text string) Block {
	return Block{Type: BlockText, Text: text}
}

// ThinkingBlock builds an extended-reasoning block with its continuation
// signature.
func ThinkingBlock(thinking, signature string) Block {
	return Block{Type: BlockThinking, Thinking: thinking, Signature: signature}
}

// ToolUseBlock builds a tool_use block. Input must be a JSON object.
func ToolUseBlock(id, name string, input json.RawMessage) Block {
	return Block{Type: BlockToolUse, ID: id, Name: name, Input: input}
}

// ToolResultBlock builds a tool_result block paired to a tool_use id.
func ToolResultBlock(toolUseID, content string, isError bool) Block {
	return Block{Type: BlockToolResult, ToolUseID: toolUseID, Content: content, IsError: isError}
}

// ImageBlock builds a base64 image block.
func ImageBlock(mediaType, data string) Block {
	return Block{Type: BlockImage, Source: &ImageSource{Type: "base64", MediaType: mediaType, Data: data}}
}

// ImageURLBlock builds an image block referenced by a data URI.
func ImageURLBlock(url string) Block {
	return Block{Type: BlockImage, URL: url}
}

// Clone deep-copies the block's owned buffers.
func (b Block) Clone() Block {
	cloned := b
	if b.Input != nil {
		cloned.Input = append(json.RawMessage(nil), b.Input...)
	}
	if b.Source != nil {
		src := *b.Source
		cloned.Source = &src
	}
	return cloned
}

// MarshalJSON emits the provider wire shape for the block type.
func (b Block) MarshalJSON() ([]byte, error) {
	switch b.Type {
	case BlockText:
		return json.Marshal(struct {
			Type BlockType `json:"type"`
			Text string    `json:"text"`
		}{b.Type, b.Text})
	case BlockThinking:
		return json.Marshal(struct {
			Type      BlockType `json:"type"`
			Thinking  string    `json:"thinking"`
			Signature string    `json:"signature,omitempty"`
		}{b.Type, b.Thinking, b.Signature})
	case BlockToolUse:
		input := b.Input
		if len(input) == 0 {
			input = json.RawMessage("{}")
		}
		return json.Marshal(struct {
			Type  BlockType       `json:"type"`
			ID    string          `json:"id"`
			Name  string          `json:"name"`
			Input json.RawMessage `json:"input"`
		}{b.Type, b.ID, b.Name, input})
	case BlockToolResult:
		return json.Marshal(struct {
			Type      BlockType `json:"type"`
			ToolUseID string    `json:"tool_use_id"`
			Content   string    `json:"content"`
			IsError   bool      `json:"is_error,omitempty"`
		}{b.Type, b.ToolUseID, b.Content, b.IsError})
	case BlockImage:
		return json.Marshal(struct {
			Type   BlockType    `json:"type"`
			Source *ImageSource `json:"source,omitempty"`
			URL    string       `json:"url,omitempty"`
		}{b.Type, b.Source, b.URL})
	default:
		return json.Marshal(struct {
			Type BlockType `json:"type"`
		}{b.Type})
	}
}

// UnmarshalJSON reads any of the wire block shapes.
func (b *Block) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type      BlockType       `json:"type"`
		Text      string          `json:"text"`
		Thinking  string          `json:"thinking"`
		Signature string          `json:"signature"`
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		Input     json.RawMessage `json:"input"`
		ToolUseID string          `json:"tool_use_id"`
		Content   string          `json:"content"`
		IsError   bool            `json:"is_error"`
		Source    *ImageSource    `json:"source"`
		URL       string          `json:"url"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = Block{
		Type:      raw.Type,
		Text:      raw.Text,
		Thinking:  raw.Thinking,
		Signature: raw.Signature,
		ID:        raw.ID,
		Name:      raw.Name,
		Input:     raw.Input,
		ToolUseID: raw.ToolUseID,
		Content:   raw.Content,
		IsError:   raw.IsError,
		Source:    raw.Source,
		URL:       raw.URL,
	}
	return nil
}
