// Package claude implements the messages-API provider on the official
// Anthropic SDK, with prompt caching and extended thinking.
package claude

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	auraerrors "github.com/sweetpotato0/aura/errors"
	"github.com/sweetpotato0/aura/llm"
	"github.com/sweetpotato0/aura/message"
)

// Config holds Claude provider configuration
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int64
	Temperature float64

	// ThinkingBudget is the extended-reasoning token budget.
	ThinkingBudget int64
	// SupportsVision gates image attachment during history conversion.
	SupportsVision bool
}

// DefaultConfig returns default Claude configuration
func DefaultConfig(apiKey, baseURL string) *Config {
	return &Config{
		APIKey:         apiKey,
		BaseURL:        baseURL,
		Model:          "claude-sonnet-4-5-20250929",
		MaxTokens:      8192,
		ThinkingBudget: 4096,
		SupportsVision: true,
	}
}

// Provider implements llm.Provider for the messages API
type Provider struct {
	config *Config
}

// New creates a new Claude provider using official SDK
func New(config *Config) *Provider {
	if config.Model == "" {
		config.Model = "claude-sonnet-4-5-20250929"
	}
	return &Provider{config: config}
}

// Name implements llm.Provider
func (p *Provider) Name() string { return "claude" }

// Format implements llm.Provider
func (p *Provider) Format() llm.Format { return llm.FormatClaude }

// Generate streams one message turn, forwarding fragments through the
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
	client := anthropic.NewClient(options...)

	var msgs []*message.Message
	if req.History != nil {
		msgs = req.History.Messages()
	}
	if req.Input != "" {
		msgs = append(append([]*message.Message{}, msgs...),
			message.NewMessage(message.RoleUser, req.Input))
	}
	conv := llm.ConvertToClaude(msgs, llm.ConvertOptions{
		Iteration:        req.Iteration,
		SupportsThinking: p.config.ThinkingBudget > 0,
		DisableThinking:  req.DisableThinking,
		SupportsVision:   p.config.SupportsVision,
		ThinkingBudget:   int(p.config.ThinkingBudget),
		MaxTokens:        int(p.config.MaxTokens),
		Vision:           req.Vision,
	})

	conversationMessages := make([]anthropic.MessageParam, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		encoded, err := encodeMessage(msg)
		if err != nil {
			return nil, fmt.Errorf("failed to encode message: %w", err)
		}
		conversationMessages = append(conversationMessages, encoded)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  conversationMessages,
		MaxTokens: int64(conv.MaxTokens),
	}

	// The system prompt is stable across a conversation; an ephemeral cache
	// point on its last block makes every followup call a prefix hit.
	if len(conv.System) > 0 {
		system := make([]anthropic.TextBlockParam, 0, len(conv.System))
		for _, b := range conv.System {
			system = append(system, anthropic.TextBlockParam{Text: b.Text})
		}
		system[len(system)-1].CacheControl = anthropic.NewCacheControlEphemeralParam()
		params.System = system
	}

	if conv.ThinkingEnabled {
		params.Thinking = anthropic.ThinkingConfigParamUnion{
			OfEnabled: &anthropic.ThinkingConfigEnabledParam{
				BudgetTokens: int64(conv.ThinkingBudget),
			},
		}
	} else if p.config.Temperature > 0 {
		// temperature and extended thinking are mutually exclusive
		params.Temperature = param.NewOpt(p.config.Temperature)
	}

	if !req.DisableTools && len(req.Tools) > 0 {
		claudeTools := make([]anthropic.ToolUnionParam, 0, len(req.Tools))
		for _, t := range req.Tools {
			toolJSON, err := json.Marshal(t.ToClaudeSchema())
			if err != nil {
				return nil, fmt.Errorf("failed to marshal tool: %w", err)
			}
			var toolParam anthropic.ToolParam
			if err := json.Unmarshal(toolJSON, &toolParam); err != nil {
				return nil, fmt.Errorf("failed to unmarshal tool param: %w", err)
			}
			claudeTools = append(claudeTools, anthropic.ToolUnionParam{
				OfTool: &toolParam,
			})
		}
		params.Tools = claudeTools
	}

	acc := llm.NewAccumulator(req.OnText, req.OnThinking)
	parser := llm.NewClaudeStreamParser(acc)

	stream := client.Messages.NewStreaming(ctx, params)
	defer stream.Close()
	for stream.Next() {
		event := stream.Current()
		if err := parser.Feed(event.RawJSON()); err != nil {
			return nil, fmt.Errorf("stream parse error: %w", err)
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("Claude API error: %w", err)
	}
	acc.Complete()
	resp := acc.Response()
	if resp.Text == "" && resp.Thinking == "" && !resp.HasToolCalls() {
		return nil, auraerrors.ErrNoResponse
	}
	return resp, nil
}

// encodeMessage maps one native-shape message onto SDK message params.
func encodeMessage(msg *message.Message) (anthropic.MessageParam, error) {
	blocks, err := encodeBlocks(msg)
	if err != nil {
		return anthropic.MessageParam{}, err
	}
	if msg.Role == message.RoleAssistant {
		return anthropic.NewAssistantMessage(blocks...), nil
	}
	return anthropic.NewUserMessage(blocks...), nil
}

func encodeBlocks(msg *message.Message) ([]anthropic.ContentBlockParamUnion, error) {
	if !msg.IsBlockForm() {
		return []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(msg.Content)}, nil
	}
	out := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Blocks))
	for _, b := range msg.Blocks {
		switch b.Type {
		case message.BlockText:
			out = append(out, anthropic.NewTextBlock(b.Text))
		case message.BlockThinking:
			out = append(out, anthropic.NewThinkingBlock(b.Signature, b.Thinking))
		case message.BlockToolUse:
			input := b.Input
			if len(input) == 0 {
				input = json.RawMessage("{}")
			}
			out = append(out, anthropic.NewToolUseBlock(b.ID, input, b.Name))
		case message.BlockToolResult:
			out = append(out, anthropic.NewToolResultBlock(b.ToolUseID, b.Content, b.IsError))
		case message.BlockImage:
			if b.Source == nil {
				continue
			}
			out = append(out, anthropic.NewImageBlockBase64(b.Source.MediaType, b.Source.Data))
		default:
			return nil, fmt.Errorf("unsupported block type %q", b.Type)
		}
	}
	return out, nil
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
