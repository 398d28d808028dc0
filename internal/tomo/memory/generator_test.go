package memory

import (
	"context"
	"fmt"
)

// scriptedGen is a fake Generator returning queued replies in order and
// recording every prompt it was given.
type scriptedGen struct {
	replies []string
	errs    []error
	prompts []string
}

func (g *scriptedGen) Generate(ctx context.Context, prompt string) (string, error) {
	i := len(g.prompts)
	g.prompts = append(g.prompts, prompt)
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i >= len(g.replies) {
		return "", fmt.Errorf("scriptedGen: unexpected call %d", i)
	}
	return g.replies[i], nil
}

func (g *scriptedGen) calls() int { return len(g.prompts) }

var _ Generator = (*scriptedGen)(nil)
