// Package gateway routes prompts across an ordered list of backend models,
// falling back to the next model when the current one reports capacity
// exhaustion. Fallback is reserved strictly for capacity signals; any other
// backend failure aborts the call.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bdobrica/Tomo/internal/tomo/llm"
)

// DegradedReply is returned when every configured model is capacity-exhausted.
// It is user-facing text: the caller hands it to the user as-is.
const DegradedReply = "I'm temporarily unavailable."

// ErrExhausted reports that every configured model refused the prompt with a
// capacity signal. It always accompanies DegradedReply so callers can tell a
// degraded reply from a real one (the curator, for example, must not treat
// the sentinel text as a fact list).
var ErrExhausted = errors.New("gateway: all models capacity-exhausted")

// DefaultModels is the fallback chain used when no model list is configured:
// most capable first, cheapest last.
var DefaultModels = []string{
	"gemma-3-27b-it",
	"gemma-3-12b-it",
	"gemma-3-4b-it",
	"gemma-3-2b-it",
	"gemma-3-1b-it",
	"gemini-2.5-flash-lite",
}

// Gateway sends prompts to a Provider with ordered model fallback.
// It is safe for concurrent use when the underlying provider is.
type Gateway struct {
	provider llm.Provider
	models   []string
	log      *slog.Logger
}

// New creates a Gateway over the given provider and model list.
// An empty model list falls back to DefaultModels.
func New(provider llm.Provider, models []string, log *slog.Logger) *Gateway {
	if len(models) == 0 {
		models = DefaultModels
	}
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{provider: provider, models: models, log: log}
}

// Models returns the configured fallback chain, most capable first.
func (g *Gateway) Models() []string {
	out := make([]string, len(g.models))
	copy(out, g.models)
	return out
}

// Generate submits the prompt to each model in order and returns the first
// successful reply, trimmed of surrounding whitespace.
//
// Outcomes:
//   - success: (text, nil)
//   - every model capacity-exhausted: (DegradedReply, ErrExhausted)
//   - any other backend failure: ("", wrapped error) — no further fallback
func (g *Gateway) Generate(ctx context.Context, prompt string) (string, error) {
	for _, model := range g.models {
		resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
			Model:  model,
			Prompt: prompt,
		})
		if err == nil {
			return strings.TrimSpace(resp.Text), nil
		}
		if errors.Is(err, llm.ErrCapacity) {
			g.log.Warn("gateway: model capacity-exhausted, falling back",
				"model", model, "err", err)
			continue
		}
		return "", fmt.Errorf("gateway: model %s: %w", model, err)
	}

	g.log.Warn("gateway: fallback chain exhausted", "models", len(g.models))
	return DegradedReply, ErrExhausted
}
