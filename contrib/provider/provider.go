// Package provider hosts the backend implementations of llm.Provider:
// openai for cloud chat-completion APIs, claude for the Anthropic messages
// API, and local for self-hosted OpenAI-compatible servers.
package provider

import (
	"github.com/sweetpotato0/aura/llm"
)

// Provider .
type Provider = llm.Provider
