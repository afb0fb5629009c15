// Package llm provides factory functions for creating tool-calling LLM adapters.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/fedreg/internal/adapters/driven/llm/gemini"
	"github.com/custodia-labs/fedreg/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/fedreg/internal/core/domain"
	"github.com/custodia-labs/fedreg/internal/core/ports/driven"
)

// Provider names an LLM backend.
type Provider string

const (
	// ProviderOpenAI is the OpenAI API or any OpenAI-compatible server
	// (Ollama, vLLM, Azure) selected through BaseURL.
	ProviderOpenAI Provider = "openai"
	// ProviderGemini is Google Gemini.
	ProviderGemini Provider = "gemini"
)

// Settings select and configure a provider.
type Settings struct {
	Provider Provider
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// IsConfigured reports whether enough settings exist to create a service.
func (s Settings) IsConfigured() bool {
	return s.Provider != "" && s.APIKey != ""
}

// ParseProvider normalises a provider name.
func ParseProvider(name string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(name))); p {
	case ProviderOpenAI, ProviderGemini:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unsupported LLM provider: %q", domain.ErrConfigInvalid, name)
	}
}

// New creates the LLM service for the configured provider.
func New(ctx context.Context, settings Settings) (driven.ToolCallingLLM, error) {
	if settings.APIKey == "" {
		return nil, fmt.Errorf("%w: %s API key is required", domain.ErrConfigInvalid, settings.Provider)
	}

	switch settings.Provider {
	case ProviderOpenAI:
		return createOpenAILLM(settings)
	case ProviderGemini:
		return createGeminiLLM(ctx, settings)
	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %q", domain.ErrConfigInvalid, settings.Provider)
	}
}

// createOpenAILLM creates an OpenAI LLM service.
func createOpenAILLM(settings Settings) (driven.ToolCallingLLM, error) {
	return openai.NewLLMService(openai.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
		Timeout: settings.Timeout,
	})
}

// createGeminiLLM creates a Gemini LLM service.
func createGeminiLLM(ctx context.Context, settings Settings) (driven.ToolCallingLLM, error) {
	return gemini.NewLLMService(ctx, gemini.LLMConfig{
		APIKey:   settings.APIKey,
		Model:    settings.Model,
		Endpoint: settings.BaseURL,
	})
}
