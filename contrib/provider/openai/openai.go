// Package openai implements the chat-completion provider on the official
// SDK. It serves both cloud endpoints and OpenAI-compatible backends.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	auraerrors "github.com/sweetpotato0/aura/errors"
	"github.com/sweetpotato0/aura/llm"
	"github.com/sweetpotato0/aura/message"
)

// Config holds OpenAI provider configuration
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64

	// SupportsVision gates image attachment during history conversion.
	SupportsVision bool
	// ReplaceArgs switches streamed tool-call arguments from delta
	// concatenation to whole-string replacement for Gemini-compatible
	// backends.
	ReplaceArgs bool
}

// WithBaseURL set BaseURL.
func (cfg *Config) WithBaseURL(url string) *Config {
	cfg.BaseURL = url
	return cfg
}

// WithAPIKey set api key.
func (cfg *Config) WithAPIKey(apiKey string) *Config {
	cfg.APIKey = apiKey
	return cfg
}

// WithModel set model.
func (cfg *Config) WithModel(model string) *Config {
	cfg.Model = model
	return cfg
}

// WithVision marks the configured model as vision capable.
func (cfg *Config) WithVision() *Config {
	cfg.SupportsVision = true
	return cfg
}

// DefaultConfig returns default OpenAI configuration
func DefaultConfig() *Config {
	return &Config{
		Model:       "gpt-4o-mini",
		MaxTokens:   8192,
		Temperature: 0.7,
	}
}

// Provider implements llm.Provider for chat-completion APIs
type Provider struct {
	config *Config
}

// New creates a new OpenAI provider using official SDK
func New(config *Config) *Provider {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	return &Provider{config: config}
}

// Name implements llm.Provider
func (p *Provider) Name() string { return "openai" }

// Format implements llm.Provider
func (p *Provider) Format() llm.Format { return llm.FormatOpenAI }

// Generate streams one completion, forwarding fragments through the
// request callbacks and returning the assembled response.
func (p *Provider) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("generate request cannot be nil")
	}

	apiKey, baseURL, model := p.config.APIKey, p.config.BaseURL, p.config.Model
	if req.APIKey != "" {
		apiKey = req.APIKey
	}
	if req.BaseURL != "" {
		baseURL = req.BaseURL
	}
	if req.Model != "" {
		model = req.Model
	}

	options := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(options...)

	var msgs []*message.Message
	if req.History != nil {
		msgs = req.History.Messages()
	}
	converted := llm.ConvertToOpenAI(msgs, llm.ConvertOptions{
		Iteration:      req.Iteration,
		SupportsVision: p.config.SupportsVision,
		Vision:         req.Vision,
	})

	openAIMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(converted)+1)
	for _, msg := range converted {
		encoded, err := encodeMessage(msg)
		if err != nil {
			return nil, fmt.Errorf("failed to encode message: %w", err)
		}
		openAIMessages = append(openAIMessages, encoded)
	}
	if req.Input != "" {
		openAIMessages = append(openAIMessages, openai.UserMessage(req.Input))
	}

	params := openai.ChatCompletionNewParams{
		Messages: openAIMessages,
		Model:    openai.ChatModel(model),
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: param.NewOpt(true),
		},
	}
	if p.config.Temperature > 0 {
		params.Temperature = param.NewOpt(p.config.Temperature)
	}
	if p.config.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(p.config.MaxTokens)
	}

	if !req.DisableTools && len(req.Tools) > 0 {
		openAITools := make([]openai.ChatCompletionToolUnionParam, 0, len(req.Tools))
		for _, t := range req.Tools {
			toolJSON, err := json.Marshal(t.ToJSONSchema())
			if err != nil {
				return nil, fmt.Errorf("failed to marshal tool: %w", err)
			}
			var toolParam openai.ChatCompletionToolUnionParam
			if err := json.Unmarshal(toolJSON, &toolParam); err != nil {
				return nil, fmt.Errorf("failed to unmarshal tool param: %w", err)
			}
			openAITools = append(openAITools, toolParam)
		}
		params.Tools = openAITools
	}

	acc := llm.NewAccumulator(req.OnText, req.OnThinking)
	parser := llm.NewOpenAIStreamParser(acc, p.config.ReplaceArgs)

	stream := client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()
	for stream.Next() {
		chunk := stream.Current()
		if err := parser.Feed(chunk.RawJSON()); err != nil {
			return nil, fmt.Errorf("stream parse error: %w", err)
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	acc.Complete()
	resp := acc.Response()
	if resp.Text == "" && resp.Thinking == "" && !resp.HasToolCalls() {
		return nil, auraerrors.ErrNoResponse
	}
	return resp, nil
}

// encodeMessage maps one canonical message onto the SDK's message union.
// Shapes the typed constructors do not cover (assistant tool_calls, image
// parts) go through a JSON round trip into the union.
func encodeMessage(msg *message.Message) (openai.ChatCompletionMessageParamUnion, error) {
	switch msg.Role {
	case message.RoleSystem:
		return openai.SystemMessage(msg.Text()), nil
	case message.RoleTool:
		return unmarshalUnion(map[string]interface{}{
			"role":         "tool",
			"tool_call_id": msg.ToolCallID,
			"content":      msg.Content,
		})
	case message.RoleAssistant:
		if len(msg.ToolCalls) == 0 {
			return openai.AssistantMessage(msg.Text()), nil
		}
		return unmarshalUnion(map[string]interface{}{
			"role":       "assistant",
			"content":    msg.Content,
			"tool_calls": encodeToolCalls(msg.ToolCalls),
		})
	default:
		if !msg.IsBlockForm() {
			return openai.UserMessage(msg.Content), nil
		}
		return unmarshalUnion(map[string]interface{}{
			"role":    "user",
			"content": encodeUserParts(msg.Blocks),
		})
	}
}

func unmarshalUnion(msg map[string]interface{}) (openai.ChatCompletionMessageParamUnion, error) {
	var result openai.ChatCompletionMessageParamUnion
	raw, err := json.Marshal(msg)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, err
	}
	return result, nil
}

func encodeToolCalls(calls []message.ToolCall) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(calls))
	for _, tc := range calls {
		args := tc.Arguments
		if args == "" {
			args = "{}"
		}
		out = append(out, map[string]interface{}{
			"id":   tc.ID,
			"type": "function",
			"function": map[string]interface{}{
				"name":      tc.Name,
				"arguments": args,
			},
		})
	}
	return out
}

func encodeUserParts(blocks []message.Block) []map[string]interface{} {
	parts := make([]map[string]interface{}, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case message.BlockText:
			parts = append(parts, map[string]interface{}{
				"type": "text",
				"text": b.Text,
			})
		case message.BlockImage:
			if b.URL == "" {
				continue
			}
			parts = append(parts, map[string]interface{}{
				"type":      "image_url",
				"image_url": map[string]interface{}{"url": b.URL},
			})
		}
	}
	return parts
}

// SetTemperature updates the temperature setting
func (p *Provider) SetTemperature(temp float64) {
	p.config.Temperature = temp
}

// SetMaxTokens updates the max tokens setting
func (p *Provider) SetMaxTokens(max int64) {
	p.config.MaxTokens = max
}

// SetModel updates the model
func (p *Provider) SetModel(model string) {
	p.config.Model = model
}
