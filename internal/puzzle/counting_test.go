package puzzle

import (
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"testing"
)

func TestCountingGenerate(t *testing.T) {
	c := &Counting{Width: 10, Height: 5}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 50; i++ {
		spec := c.Generate(rng)

		if len(spec.Content) != 50 {
			t.Fatalf("Expected content length 50, got %d", len(spec.Content))
		}
		for _, ch := range spec.Content {
			if ch != '0' && ch != '1' {
				t.Fatalf("Unexpected character %q in content", ch)
			}
		}

		want := strings.Count(spec.Content, "0")
		got, err := strconv.Atoi(spec.Solution)
		if err != nil {
			t.Fatalf("Solution %q is not an integer: %v", spec.Solution, err)
		}
		if got != want {
			t.Errorf("Solution %d does not match zero count %d in %q", got, want, spec.Content)
		}
		if spec.Congruent != nil {
			t.Error("Counting puzzles should not set a congruent flag")
		}
	}
}

func TestCountingGenerateDeterministic(t *testing.T) {
	c := &Counting{Width: 8, Height: 4}

	a := c.Generate(rand.New(rand.NewSource(7)))
	b := c.Generate(rand.New(rand.NewSource(7)))

	if a.Content != b.Content {
		t.Errorf("Same seed produced different content: %q vs %q", a.Content, b.Content)
	}
}

func TestCountingGrade(t *testing.T) {
	c := &Counting{Width: 7, Height: 1}

	// content "0101100" has four zeros
	if got := strings.Count("0101100", "0"); got != 4 {
		t.Fatalf("Sanity check failed: expected 4 zeros, got %d", got)
	}

	tests := []struct {
		name    string
		answer  string
		correct bool
		wantErr bool
	}{
		{"exact match", "4", true, false},
		{"wrong count", "3", false, false},
		{"whitespace tolerated", " 4 ", true, false},
		{"empty answer", "", false, true},
		{"non-numeric", "four", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			correct, err := c.Grade("4", tt.answer)
			if tt.wantErr {
				if !errors.Is(err, ErrUnparsableAnswer) {
					t.Fatalf("Expected ErrUnparsableAnswer, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if correct != tt.correct {
				t.Errorf("Expected correct=%v, got %v", tt.correct, correct)
			}
		})
	}
}

func TestCountingBlankIsNeutral(t *testing.T) {
	c := &Counting{Width: 10, Height: 5}
	if c.BlankIsNeutral() {
		t.Error("Counting variant must reject blank answers, not treat them as neutral")
	}
}
