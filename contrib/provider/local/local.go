// Package local serves llama.cpp and other self-hosted OpenAI-compatible
// servers. It rides the chat-completion provider with local defaults: no
// real API key, a loopback base URL, and decode-timing capture.
package local

import (
	"context"

	"github.com/sweetpotato0/aura/contrib/provider/openai"
	"github.com/sweetpotato0/aura/llm"
)

// DefaultBaseURL is the llama.cpp server default.
const DefaultBaseURL = "http://127.0.0.1:8080/v1"

// Config holds local provider configuration
type Config struct {
	BaseURL string
	Model   string

	// ReplaceArgs enables whole-string tool argument replacement for
	// backends that resend full argument JSON per chunk.
	ReplaceArgs bool
}

// DefaultConfig returns default local configuration
func DefaultConfig() *Config {
	return &Config{
		BaseURL: DefaultBaseURL,
		Model:   "local",
	}
}

// Provider implements llm.Provider for local OpenAI-compatible servers
type Provider struct {
	inner *openai.Provider
}

// New creates a new local provider
func New(config *Config) *Provider {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Model == "" {
		config.Model = "local"
	}
	inner := openai.DefaultConfig().
		WithBaseURL(config.BaseURL).
		WithModel(config.Model).
		WithAPIKey("not-needed")
	inner.ReplaceArgs = config.ReplaceArgs
	return &Provider{inner: openai.New(inner)}
}

// Name implements llm.Provider
func (p *Provider) Name() string { return "local" }

// Format implements llm.Provider
func (p *Provider) Format() llm.Format { return llm.FormatOpenAI }

// Generate implements llm.Provider
func (p *Provider) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	return p.inner.Generate(ctx, req)
}
