package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Family identifies a provider wire protocol family.
type Family string

const (
	// FamilyOpenAI covers cloud OpenAI-compatible chat completion APIs.
	FamilyOpenAI Family = "openai"
	// FamilyClaude covers Anthropic-style message APIs.
	FamilyClaude Family = "claude"
	// FamilyLocal covers local OpenAI-compatible servers (llama.cpp).
	FamilyLocal Family = "local"
)

// Provider is the resolved provider selection for the next model call.
type Provider struct {
	Family  Family
	Model   string
	APIKey  string
	BaseURL string

	// Capability flags for the resolved model.
	SupportsVision   bool
	SupportsThinking bool
}

// Validate checks the resolved provider configuration.
func (p Provider) Validate() error {
	v := NewValidator()
	v.ValidateOneOf("family", string(p.Family), string(FamilyOpenAI), string(FamilyClaude), string(FamilyLocal))
	v.RequireNonEmpty("model", p.Model)
	if p.Family != FamilyLocal {
		v.RequireNonEmpty("apiKey", p.APIKey)
	}
	if p.Family == FamilyLocal {
		v.RequireNonEmpty("baseURL", p.BaseURL)
	}
	return v.Error()
}

// Resolver returns the provider selection currently in effect. The tool loop
// re-resolves after every tool execution so that a tool may switch providers
// mid-conversation.
type Resolver interface {
	Resolve() (Provider, error)
}

// Static is a resolver with a fixed provider selection.
type Static struct {
	Provider Provider
}

// Resolve returns the fixed selection.
func (s Static) Resolve() (Provider, error) {
	return s.Provider, nil
}

// Switchable is a resolver whose selection can be swapped at runtime, e.g. by
// a "switch model" tool. Safe for concurrent use.
type Switchable struct {
	mu  sync.RWMutex
	cur Provider
}

// NewSwitchable creates a switchable resolver with an initial selection.
func NewSwitchable(initial Provider) *Switchable {
	return &Switchable{cur: initial}
}

// Resolve returns the current selection.
func (s *Switchable) Resolve() (Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur, nil
}

// Set swaps the current selection.
func (s *Switchable) Set(p Provider) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = p
	return nil
}

// FromEnv builds a provider selection from AURA_* environment variables:
// AURA_PROVIDER (openai|claude|local), AURA_MODEL, AURA_API_KEY,
// AURA_BASE_URL.
func FromEnv() (Provider, error) {
	family := Family(strings.ToLower(os.Getenv("AURA_PROVIDER")))
	if family == "" {
		family = FamilyLocal
	}

	p := Provider{
		Family:  family,
		Model:   os.Getenv("AURA_MODEL"),
		APIKey:  os.Getenv("AURA_API_KEY"),
		BaseURL: os.Getenv("AURA_BASE_URL"),
	}
	if p.Model == "" {
		switch family {
		case FamilyClaude:
			p.Model = "claude-sonnet-4-5-20250929"
		case FamilyOpenAI:
			p.Model = "gpt-4o-mini"
		default:
			p.Model = "local"
		}
	}
	if p.BaseURL == "" && family == FamilyLocal {
		p.BaseURL = "http://127.0.0.1:8080/v1"
	}
	p.SupportsVision = family != FamilyLocal
	p.SupportsThinking = family == FamilyClaude

	if err := p.Validate(); err != nil {
		return Provider{}, fmt.Errorf("config: %w", err)
	}
	return p, nil
}
