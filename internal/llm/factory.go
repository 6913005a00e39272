package llm

import (
	"fmt"
	"time"
)

// Provider names accepted by the factory functions.
const (
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

// FactoryConfig selects and configures an LLM provider.
type FactoryConfig struct {
	Provider string

	// Ollama settings
	BaseURL string
	Timeout time.Duration

	// Anthropic settings
	APIKey    string
	MaxTokens int64

	// Model applies to whichever provider is selected.
	Model string

	// EmbedModel overrides Model for embedding requests (Ollama only).
	EmbedModel string
}

// NewTextStreamer builds a streaming text generator for the configured
// provider.
func NewTextStreamer(config FactoryConfig) (TextStreamer, error) {
	switch config.Provider {
	case ProviderAnthropic:
		return NewAnthropicClient(AnthropicConfig{
			APIKey:    config.APIKey,
			Model:     config.Model,
			MaxTokens: config.MaxTokens,
		}), nil
	case ProviderOllama, "":
		return NewOllamaClient(OllamaConfig{
			BaseURL: config.BaseURL,
			Model:   config.Model,
			Timeout: config.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", config.Provider)
	}
}

// NewTextGenerator builds a non-streaming text generator for the configured
// provider.
func NewTextGenerator(config FactoryConfig) (TextGenerator, error) {
	return NewTextStreamer(config)
}

// NewEmbeddingGenerator builds an embedding generator. Embeddings always go
// through Ollama; the Anthropic API does not expose an embeddings endpoint.
func NewEmbeddingGenerator(config FactoryConfig) (EmbeddingGenerator, error) {
	model := config.EmbedModel
	if model == "" {
		model = "nomic-embed-text"
	}
	return NewOllamaClient(OllamaConfig{
		BaseURL: config.BaseURL,
		Model:   model,
		Timeout: config.Timeout,
	}), nil
}
