// Package llm defines the language-model provider abstraction used by the
// query pipeline and the factory that builds configured providers.
package llm

import (
	"context"
	"errors"
)

// ErrProvider marks a failure of the external language-model service.
// Callers use errors.Is to distinguish it from validation failures.
var ErrProvider = errors.New("language model service error")

// Provider is the interface all LLM backends must implement.
type Provider interface {
	// Complete sends a prompt and returns a completion.
	Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error)
	// Embed returns embedding vectors for the given texts, order-preserving.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Name returns the provider identifier (e.g. "ollama", "openai").
	Name() string
}

// RequestOptions tune a single completion call.
type RequestOptions struct {
	Temperature *float64
	MaxTokens   *int
}
