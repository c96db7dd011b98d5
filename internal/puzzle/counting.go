package puzzle

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

const (
	// VariantCounting is the matrix-counting puzzle: a grid of characters in
	// which the participant counts occurrences of the target character.
	VariantCounting = "counting"

	countingCharacters = "01"
	countedCharacter   = "0"
)

// Counting generates Width x Height matrices over a two-character alphabet.
// The solution is the count of the target character.
type Counting struct {
	Width  int
	Height int
}

// Name implements Variant.
func (c *Counting) Name() string { return VariantCounting }

// Generate implements Variant.
func (c *Counting) Generate(rng *rand.Rand) Spec {
	length := c.Width * c.Height

	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(countingCharacters[rng.Intn(len(countingCharacters))])
	}
	content := b.String()

	return Spec{
		Variant:  VariantCounting,
		Width:    c.Width,
		Height:   c.Height,
		Content:  content,
		Solution: strconv.Itoa(strings.Count(content, countedCharacter)),
	}
}

// Grade implements Variant. The answer must parse as an integer; anything
// else, including an empty string, is unparsable.
func (c *Counting) Grade(solution, answer string) (bool, error) {
	got, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil {
		return false, fmt.Errorf("%w: %q is not an integer", ErrUnparsableAnswer, answer)
	}
	want, err := strconv.Atoi(solution)
	if err != nil {
		return false, fmt.Errorf("corrupt solution %q: %w", solution, err)
	}
	return got == want, nil
}

// BlankIsNeutral implements Variant. Empty answers are never valid here.
func (c *Counting) BlankIsNeutral() bool { return false }
