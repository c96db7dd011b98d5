// Package puzzle provides the puzzle variants served to participants. Each
// variant is a pure generator plus a grader, so the protocol layer stays
// identical across variants.
package puzzle

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrUnparsableAnswer reports an answer that cannot be graded against the
// variant's solution format.
var ErrUnparsableAnswer = errors.New("answer cannot be parsed")

// Spec is a generated puzzle: what to display and the ground-truth solution.
type Spec struct {
	Variant   string
	Width     int
	Height    int
	Content   string
	Solution  string
	Congruent *bool
}

// Variant generates and grades one kind of puzzle. Generate must be a pure
// function of the injected randomness source; Grade must be side-effect free.
type Variant interface {
	Name() string
	Generate(rng *rand.Rand) Spec
	Grade(solution, answer string) (bool, error)

	// BlankIsNeutral reports whether an empty submitted answer is treated as
	// "no response yet" (neutral feedback, trial untouched) instead of being
	// rejected as invalid.
	BlankIsNeutral() bool
}

// New returns the variant with the given name. Width and height only apply to
// the counting variant.
func New(name string, width, height int) (Variant, error) {
	switch name {
	case VariantCounting:
		return &Counting{Width: width, Height: height}, nil
	case VariantStroop:
		return &Stroop{}, nil
	default:
		return nil, fmt.Errorf("unknown puzzle variant %q", name)
	}
}
