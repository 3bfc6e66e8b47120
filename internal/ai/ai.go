// Package ai defines the contracts for the hosted models the analysis pipeline talks to.
package ai

import (
	"context"
	"errors"
)

const (
	// RoleUser is the only message role the pipeline sends.
	RoleUser = "user"

	DefaultMaxTokens   = 150
	DefaultTemperature = 0.3
)

// ErrEmptyResponse is returned when a provider answers without usable content.
var ErrEmptyResponse = errors.New("model returned empty response")

// CompletionRequest is a single-turn generation request.
type CompletionRequest struct {
	Role        string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Completer sends a prompt to a generative-language service and returns its text.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Named is implemented by providers that can describe themselves for logging.
type Named interface {
	Provider() string
	Model() string
}
