// Package trace generates per-request correlation IDs and propagates them
// through context so every log line emitted while handling one chat message
// carries the same identifier.
package trace

import (
	"context"

	"github.com/google/uuid"
)

// traceKey is the unexported context key for the trace ID.
type traceKey struct{}

// NewID returns a fresh trace ID for one inbound request.
func NewID() string {
	return "t_" + uuid.NewString()
}

// WithID returns a child context carrying the given trace ID.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

// FromContext extracts the trace ID from ctx, returning "" when absent.
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(traceKey{}).(string); ok {
		return v
	}
	return ""
}
