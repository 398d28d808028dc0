// Package memory implements Tomo's two memory tiers and the prompt pipeline
// built on top of them. Short-term memory is a bounded per-user window of
// recent dialogue turns; long-term memory is a curated per-user list of
// durable fact strings persisted across restarts. The curator and the
// relevance filter both delegate the actual judgement to the model gateway
// and only parse its replies.
package memory

import (
	"context"
	"strings"
)

// Role identifies who produced a dialogue turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single entry in a user's short-term dialogue window.
type Turn struct {
	Role    Role
	Content string
}

// PinnedMarker is the literal phrase that pins a fact: the curator must never
// edit or drop a fact carrying it, and the relevance filter always includes it.
const PinnedMarker = "Always must be included"

// MaxFacts is the soft cap on a user's fact list. The curator instructs the
// backend to honour it and additionally enforces it client-side, since an
// instructed model is not a hard guarantee.
const MaxFacts = 20

// noneReply is the backend's "nothing qualifies" sentinel.
const noneReply = "NONE"

// Generator produces one text reply for one prompt. *gateway.Gateway
// satisfies it; tests substitute scripted fakes.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// isNone reports whether a backend reply is the no-op sentinel,
// case-insensitively and ignoring surrounding whitespace.
func isNone(reply string) bool {
	return strings.EqualFold(strings.TrimSpace(reply), noneReply)
}

// parseBullets extracts fact lines from a backend reply. The backend is an
// untrusted text source: only lines beginning with the "- " marker qualify,
// everything else (prose, headings, stray formatting) is ignored rather than
// treated as an error.
func parseBullets(reply string) []string {
	var facts []string
	for _, line := range strings.Split(reply, "\n") {
		if !strings.HasPrefix(line, "- ") {
			continue
		}
		if fact := strings.TrimSpace(line[2:]); fact != "" {
			facts = append(facts, fact)
		}
	}
	return facts
}

// bulletList renders facts as the "- " bulleted block embedded in prompts,
// or the literal NONE marker when the list is empty.
func bulletList(facts []string) string {
	if len(facts) == 0 {
		return noneReply
	}
	var b strings.Builder
	for i, f := range facts {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(f)
	}
	return b.String()
}

// isPinned reports whether a fact carries the preservation marker.
func isPinned(fact string) bool {
	return strings.Contains(fact, PinnedMarker)
}

// copyFacts returns a defensive copy so callers cannot mutate shared state.
func copyFacts(facts []string) []string {
	if facts == nil {
		return nil
	}
	out := make([]string, len(facts))
	copy(out, facts)
	return out
}
