package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bdobrica/Tomo/internal/tomo/gateway"
)

// relevancePromptTmpl asks the backend to narrow the fact list to what the
// current message actually touches. Two printf verbs:
//  1. %s — the user's latest message
//  2. %s — the full fact list as a bulleted block
const relevancePromptTmpl = `You are a memory relevance filter.
User said: "%s"

Existing memories:
%s

RULES:
- Only keep memories that are directly relevant to the user's message.
- Discard unrelated memories.
- Output a bullet list of relevant memories only, or NONE if none apply.
- The name is ALWAYS relevant and should almost ALWAYS be included.
- Do not modify the memories in any way.
- If the memory includes 'Always must be included' the memory must be included in the output.
- EXAMPLE OUTPUT:
- Relevant memory 1
- Relevant memory 2
`

// Relevance selects the subset of a user's facts pertinent to one message.
type Relevance struct {
	gen Generator
	log *slog.Logger
}

// NewRelevance creates a Relevance filter over the given generator.
func NewRelevance(gen Generator, log *slog.Logger) *Relevance {
	if log == nil {
		log = slog.Default()
	}
	return &Relevance{gen: gen, log: log}
}

// Filter returns the facts relevant to the message. An empty fact list
// short-circuits without touching the backend. Capacity exhaustion degrades
// to "no relevant facts" rather than failing the request.
func (r *Relevance) Filter(ctx context.Context, message string, facts []string) ([]string, error) {
	if len(facts) == 0 {
		return nil, nil
	}

	prompt := fmt.Sprintf(relevancePromptTmpl, message, bulletList(facts))

	reply, err := r.gen.Generate(ctx, prompt)
	if errors.Is(err, gateway.ErrExhausted) {
		r.log.Warn("relevance: backend exhausted, omitting memories from prompt")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("relevance: %w", err)
	}

	if isNone(reply) {
		return nil, nil
	}
	return parseBullets(reply), nil
}
