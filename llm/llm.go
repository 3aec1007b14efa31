// Package llm provides text generation for the assistant.
//
// Generators are plain prompt-in, text-out clients. Conversation
// assembly, grounding, and fallback logic live in the rag package;
// the failover wrapper in this package only handles backend routing.
package llm

import (
	"context"
	"time"
)

// Options are per-call sampling parameters.
type Options struct {
	// Temperature controls sampling randomness.
	Temperature float64 `yaml:"temperature,omitempty"`

	// TopP is the nucleus sampling cutoff.
	TopP float64 `yaml:"top_p,omitempty"`

	// MaxTokens caps the generated length (num_predict).
	MaxTokens int `yaml:"max_tokens,omitempty"`
}

// Result is a single completed generation.
type Result struct {
	// Text is the generated answer.
	Text string

	// EvalCount is the number of tokens generated, when reported.
	EvalCount int

	// Duration is the wall-clock generation time.
	Duration time.Duration
}

// Generator produces text completions.
type Generator interface {
	// Generate runs a single non-streaming completion.
	Generate(ctx context.Context, prompt string, opts Options) (*Result, error)

	// ListModels returns the model names the backend serves.
	// Doubles as a cheap health probe.
	ListModels(ctx context.Context) ([]string, error)

	// Model returns the model this generator targets.
	Model() string

	// Close releases any resources.
	Close() error
}
