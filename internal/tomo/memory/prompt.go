package memory

import (
	"context"
	"strings"
)

// DefaultPreamble is the fixed system instruction opening every prompt. The
// 2000-character ceiling is stated to the backend so it self-limits; the app
// additionally hard-truncates before sending, since instructions alone are
// not a guarantee.
const DefaultPreamble = "System: You are Tomo, a helpful Matrix assistant. " +
	"Use the user's name when appropriate. " +
	"Do not reference personal memories unless the user explicitly mentions them. " +
	"If you do use personal details, do so sparingly and only when directly relevant. " +
	"Format your messages as plain text with light Markdown. " +
	"Your response can be a MAXIMUM of 2000 characters, any longer and it will be cut off!" +
	"Focus on providing clear, helpful, and neutral responses.\n\n"

// Composer assembles the final prompt from the system preamble, the
// relevance-filtered facts, and the short-term dialogue window. The result
// is ephemeral — built fresh per request, never stored.
type Composer struct {
	filter   *Relevance
	preamble string
}

// NewComposer creates a Composer. An empty preamble selects DefaultPreamble.
func NewComposer(filter *Relevance, preamble string) *Composer {
	if preamble == "" {
		preamble = DefaultPreamble
	}
	return &Composer{filter: filter, preamble: preamble}
}

// Compose builds the prompt for one reply. Facts are narrowed by the
// relevance filter against the most recent turn's content; when either facts
// or turns are empty no filtering happens and the prompt degrades gracefully
// to preamble + dialogue.
func (c *Composer) Compose(ctx context.Context, facts []string, turns []Turn) (string, error) {
	var b strings.Builder
	b.WriteString(c.preamble)

	if len(facts) > 0 && len(turns) > 0 {
		relevant, err := c.filter.Filter(ctx, turns[len(turns)-1].Content, facts)
		if err != nil {
			return "", err
		}
		if len(relevant) > 0 {
			b.WriteString("Relevant user memories:\n")
			for _, f := range relevant {
				b.WriteString("- ")
				b.WriteString(f)
				b.WriteByte('\n')
			}
			b.WriteByte('\n')
		}
	}

	b.WriteString("Recent conversation:\n")
	for _, turn := range turns {
		if turn.Role == RoleUser {
			b.WriteString("You: ")
		} else {
			b.WriteString("Bot: ")
		}
		b.WriteString(turn.Content)
		b.WriteByte('\n')
	}

	return b.String(), nil
}
