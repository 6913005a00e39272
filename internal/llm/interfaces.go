// Package llm provides the language-model integration for Memovo: provider
// clients (Anthropic, Ollama) behind small interfaces, circuit-breaker
// protection, prompt templates, and strict parsers for model JSON output.
package llm

import "context"

// TextGenerator is the single-shot completion interface. Relevance analysis,
// title upgrades, snapshot synthesis, and wellbeing insights all use it.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	GetModel() string
}

// StreamFunc receives one response fragment. Returning an error aborts the
// stream and propagates out of Stream.
type StreamFunc func(fragment string) error

// TextStreamer generates a completion as a lazy sequence of text fragments.
// Response generation uses it so chunks reach the client incrementally.
type TextStreamer interface {
	TextGenerator
	Stream(ctx context.Context, prompt string, fn StreamFunc) error
}

// EmbeddingGenerator produces vector embeddings for semantic indexing and
// search. Returns float32 slices matching the provider's native precision.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string
}
