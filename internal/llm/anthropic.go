package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient generates completions through the Anthropic Messages API,
// with streaming support and circuit breaker protection.
type AnthropicClient struct {
	client         *anthropic.Client
	circuitBreaker *CircuitBreaker
	model          string
	maxTokens      int64
}

// AnthropicConfig holds Anthropic client configuration.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key (falls back to ANTHROPIC_API_KEY when empty)
	APIKey string

	// Model is the model name (default: claude-sonnet-4-20250514)
	Model string

	// MaxTokens caps response length (default: 4096)
	MaxTokens int64
}

// NewAnthropicClient creates a new Anthropic client, applying defaults for
// any unset configuration values.
func NewAnthropicClient(config AnthropicConfig) *AnthropicClient {
	if config.Model == "" {
		config.Model = "claude-sonnet-4-20250514"
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 4096
	}

	var opts []option.RequestOption
	if config.APIKey != "" {
		opts = append(opts, option.WithAPIKey(config.APIKey))
	}
	client := anthropic.NewClient(opts...)

	return &AnthropicClient{
		client:         &client,
		circuitBreaker: NewCircuitBreaker(),
		model:          config.Model,
		maxTokens:      config.MaxTokens,
	}
}

func (c *AnthropicClient) params(prompt string) anthropic.MessageNewParams {
	return anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
}

// Complete sends a non-streaming message request and returns the
// concatenated text blocks of the response.
func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		resp, err := c.client.Messages.New(ctx, c.params(prompt))
		if err != nil {
			return nil, fmt.Errorf("anthropic request failed: %w", err)
		}

		var sb strings.Builder
		for _, block := range resp.Content {
			if text, ok := block.AsAny().(anthropic.TextBlock); ok {
				sb.WriteString(text.Text)
			}
		}
		return sb.String(), nil
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return "", fmt.Errorf("anthropic circuit breaker open: %w", err)
		}
		return "", err
	}
	return result.(string), nil
}

// Stream sends a streaming message request and invokes fn for every text
// delta as it arrives.
func (c *AnthropicClient) Stream(ctx context.Context, prompt string, fn StreamFunc) error {
	_, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return nil, c.stream(ctx, prompt, fn)
	})
	if errors.Is(err, ErrCircuitOpen) {
		return fmt.Errorf("anthropic circuit breaker open: %w", err)
	}
	return err
}

func (c *AnthropicClient) stream(ctx context.Context, prompt string, fn StreamFunc) error {
	stream := c.client.Messages.NewStreaming(ctx, c.params(prompt))
	defer stream.Close()

	for stream.Next() {
		event := stream.Current()
		switch evt := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := evt.Delta.AsAny().(anthropic.TextDelta); ok {
				if err := fn(delta.Text); err != nil {
					return err
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("anthropic stream failed: %w", err)
	}
	return nil
}

// GetModel returns the configured model name.
func (c *AnthropicClient) GetModel() string {
	return c.model
}

var _ TextStreamer = (*AnthropicClient)(nil)
