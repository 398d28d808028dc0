package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bdobrica/Tomo/internal/tomo/gateway"
)

// curatorPromptTmpl embeds the existing fact list and the new message. The
// retention policy lives in the instructions, not in code: the backend is
// trusted to merge, deduplicate, and drop transient content. Two printf verbs:
//  1. %s — existing facts as a bulleted block, or NONE
//  2. %s — the new user message
const curatorPromptTmpl = `You are a LONG-TERM MEMORY FILTER.

Existing memories:
%s

New user message:
%s

STRICT RULES:
- Save only durable personal info (identity, preferences, projects, constraints)
- Ignore conversation, questions, debugging, temporary info
- If nothing qualifies, respond EXACTLY: NONE
- Merge and deduplicate
- Keep each memory factual, neutral, under 80 characters
- Do not reference the conversation or user message
- Keep the amount of memories manageable (max 20)
- If the user has more than 15 memories, prioritize the most relevant ones
- Delete less relevant memories if necessary
- If the message has 'Always must be included' ensure that memory is kept and is not edited in any way.
- Output bullet list only:
EXAMPLE OUTPUT:
- Memory 1
- Memory 2
`

// Curator maintains a user's durable fact list. Given a new message it asks
// the backend for an updated list and interprets the reply: NONE means no
// change, a bulleted list fully replaces the previous facts. The backend is
// trusted to have merged; the curator does not merge client-side. It does,
// however, run a defensive normalisation pass afterwards (re-pin, dedupe,
// cap), because the retention rules are enforced by instruction only.
type Curator struct {
	gen Generator
	log *slog.Logger
}

// NewCurator creates a Curator over the given generator.
func NewCurator(gen Generator, log *slog.Logger) *Curator {
	if log == nil {
		log = slog.Default()
	}
	return &Curator{gen: gen, log: log}
}

// Update returns the user's fact list after considering the new message.
// An empty existing list still consults the backend — the very first message
// may seed new facts. When every model is capacity-exhausted the existing
// list is returned unchanged: stale memory beats wiped memory.
func (c *Curator) Update(ctx context.Context, message string, existing []string) ([]string, error) {
	prompt := fmt.Sprintf(curatorPromptTmpl, bulletList(existing), message)

	reply, err := c.gen.Generate(ctx, prompt)
	if errors.Is(err, gateway.ErrExhausted) {
		c.log.Warn("curator: backend exhausted, keeping existing facts")
		return copyFacts(existing), nil
	}
	if err != nil {
		return nil, fmt.Errorf("curator: %w", err)
	}

	if isNone(reply) {
		return copyFacts(existing), nil
	}

	return normaliseFacts(existing, parseBullets(reply)), nil
}

// normaliseFacts applies the client-side safety net over the backend's
// replacement list: pinned facts from the previous list are restored verbatim
// when the backend dropped them, duplicates are collapsed, and the total is
// capped at MaxFacts without ever evicting a pinned fact. Non-pinned facts
// are dropped from the end first — the backend lists most-relevant first.
func normaliseFacts(existing, updated []string) []string {
	seen := make(map[string]bool, len(updated))
	out := make([]string, 0, len(updated))
	for _, f := range updated {
		key := strings.ToLower(strings.TrimSpace(f))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}

	for _, f := range existing {
		if !isPinned(f) {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(f))
		if !seen[key] {
			seen[key] = true
			out = append(out, f)
		}
	}

	if len(out) <= MaxFacts {
		return out
	}

	pinned := 0
	for _, f := range out {
		if isPinned(f) {
			pinned++
		}
	}
	slots := MaxFacts - pinned
	capped := make([]string, 0, MaxFacts)
	for _, f := range out {
		if isPinned(f) {
			capped = append(capped, f)
			continue
		}
		if slots > 0 {
			capped = append(capped, f)
			slots--
		}
	}
	return capped
}
