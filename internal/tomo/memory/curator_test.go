package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bdobrica/Tomo/internal/tomo/gateway"
)

func TestCuratorParsesBullets(t *testing.T) {
	gen := &scriptedGen{replies: []string{"- Likes tea\n- Uses Linux"}}
	c := NewCurator(gen, nil)

	got, err := c.Update(context.Background(), "I like tea and use Linux", nil)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	want := []string{"Likes tea", "Uses Linux"}
	if len(got) != len(want) {
		t.Fatalf("Update() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fact[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCuratorIgnoresNonBulletLines(t *testing.T) {
	gen := &scriptedGen{replies: []string{
		"Here is the updated list:\n- Likes tea\nSome commentary.\n- Uses Linux\n",
	}}
	c := NewCurator(gen, nil)

	got, err := c.Update(context.Background(), "msg", nil)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(got) != 2 || got[0] != "Likes tea" || got[1] != "Uses Linux" {
		t.Errorf("Update() = %v, want only the bulleted lines", got)
	}
}

func TestCuratorNoneKeepsExistingFacts(t *testing.T) {
	existing := []string{"Name is Alex", "Works in Python"}
	for _, reply := range []string{"NONE", "none", "  NoNe \n"} {
		gen := &scriptedGen{replies: []string{reply}}
		c := NewCurator(gen, nil)

		got, err := c.Update(context.Background(), "what's up?", existing)
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if len(got) != len(existing) {
			t.Fatalf("reply %q: Update() = %v, want existing list unchanged", reply, got)
		}
		for i := range existing {
			if got[i] != existing[i] {
				t.Errorf("reply %q: fact[%d] = %q, want %q", reply, i, got[i], existing[i])
			}
		}
	}
}

func TestCuratorEmptyExistingStillCallsBackend(t *testing.T) {
	gen := &scriptedGen{replies: []string{"- Name is Alex"}}
	c := NewCurator(gen, nil)

	got, err := c.Update(context.Background(), "My name is Alex", nil)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if gen.calls() != 1 {
		t.Errorf("backend calls = %d, want 1 (first message may seed facts)", gen.calls())
	}
	if len(got) != 1 || got[0] != "Name is Alex" {
		t.Errorf("Update() = %v", got)
	}
	// The empty list is rendered as the literal NONE marker in the prompt.
	if !strings.Contains(gen.prompts[0], "Existing memories:\nNONE") {
		t.Errorf("prompt missing NONE marker:\n%s", gen.prompts[0])
	}
}

func TestCuratorPromptEmbedsExistingFacts(t *testing.T) {
	gen := &scriptedGen{replies: []string{"NONE"}}
	c := NewCurator(gen, nil)

	if _, err := c.Update(context.Background(), "hello", []string{"Likes tea"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !strings.Contains(gen.prompts[0], "- Likes tea") {
		t.Errorf("prompt missing existing fact:\n%s", gen.prompts[0])
	}
	if !strings.Contains(gen.prompts[0], "hello") {
		t.Errorf("prompt missing user message:\n%s", gen.prompts[0])
	}
}

func TestCuratorRestoresDroppedPinnedFact(t *testing.T) {
	pinned := "Allergic to peanuts (Always must be included)"
	gen := &scriptedGen{replies: []string{"- Likes tea"}}
	c := NewCurator(gen, nil)

	got, err := c.Update(context.Background(), "msg", []string{pinned, "Old hobby"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	found := false
	for _, f := range got {
		if f == pinned {
			found = true
		}
	}
	if !found {
		t.Errorf("Update() = %v, pinned fact was not restored verbatim", got)
	}
}

func TestCuratorDedupesCaseInsensitively(t *testing.T) {
	gen := &scriptedGen{replies: []string{"- Likes tea\n- likes tea\n- Uses Linux"}}
	c := NewCurator(gen, nil)

	got, err := c.Update(context.Background(), "msg", nil)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Update() = %v, want duplicate collapsed", got)
	}
}

func TestCuratorCapsAtMaxFacts(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&b, "- Fact number %d\n", i)
	}
	gen := &scriptedGen{replies: []string{b.String()}}
	c := NewCurator(gen, nil)

	got, err := c.Update(context.Background(), "msg", nil)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(got) != MaxFacts {
		t.Fatalf("Update() = %d facts, want cap %d", len(got), MaxFacts)
	}
	// Earliest (most relevant) facts survive; the tail is dropped.
	if got[0] != "Fact number 0" || got[MaxFacts-1] != fmt.Sprintf("Fact number %d", MaxFacts-1) {
		t.Errorf("cap dropped from the wrong end: first=%q last=%q", got[0], got[MaxFacts-1])
	}
}

func TestCuratorCapNeverEvictsPinned(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 24; i++ {
		fmt.Fprintf(&b, "- Fact number %d\n", i)
	}
	pinned := "Pinned detail (Always must be included)"
	b.WriteString("- " + pinned + "\n")
	gen := &scriptedGen{replies: []string{b.String()}}
	c := NewCurator(gen, nil)

	got, err := c.Update(context.Background(), "msg", nil)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(got) != MaxFacts {
		t.Fatalf("Update() = %d facts, want %d", len(got), MaxFacts)
	}
	found := false
	for _, f := range got {
		if f == pinned {
			found = true
		}
	}
	if !found {
		t.Errorf("pinned fact evicted by the cap: %v", got)
	}
}

func TestCuratorExhaustedGatewayKeepsFacts(t *testing.T) {
	existing := []string{"Name is Alex"}
	gen := &scriptedGen{errs: []error{gateway.ErrExhausted}}
	c := NewCurator(gen, nil)

	got, err := c.Update(context.Background(), "msg", existing)
	if err != nil {
		t.Fatalf("Update() error = %v, want nil on exhaustion", err)
	}
	if len(got) != 1 || got[0] != "Name is Alex" {
		t.Errorf("Update() = %v, want existing facts preserved", got)
	}
}

func TestCuratorPropagatesHardErrors(t *testing.T) {
	hard := errors.New("auth failure")
	gen := &scriptedGen{errs: []error{hard}}
	c := NewCurator(gen, nil)

	if _, err := c.Update(context.Background(), "msg", nil); !errors.Is(err, hard) {
		t.Fatalf("Update() error = %v, want wrapped hard error", err)
	}
}
