// Package llm defines the text-generation provider interface used by the
// model gateway.
//
// Each Complete call opens a fresh conversational context on the backend:
// one prompt in, one text reply out. All conversational state (recent turns,
// remembered facts) is carried inside the prompt itself, so providers stay
// stateless and trivially swappable in tests.
package llm

import (
	"context"
	"errors"
)

// ErrCapacity marks a backend refusal caused by rate or quota limits.
// The gateway treats it as recoverable and falls back to the next model;
// every other provider error is fatal for the call.
var ErrCapacity = errors.New("llm: backend capacity exhausted")

// CompletionRequest is the input to a single completion call.
type CompletionRequest struct {
	// Model is the backend model identifier.
	Model string
	// Prompt is the full prompt text, sent as a single user message.
	Prompt string
	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
}

// CompletionResponse is the output of a single completion call.
type CompletionResponse struct {
	// Text is the raw reply text, not yet trimmed.
	Text string
}

// Provider is implemented by all text-generation backends.
type Provider interface {
	// Complete submits one prompt in a fresh context and returns the reply.
	// Capacity refusals are reported as errors wrapping ErrCapacity.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
