package puzzle

import (
	"math/rand"
	"strings"
)

// VariantStroop is the color-word puzzle: a color name rendered in an
// independently chosen ink color. The participant names the ink color.
const VariantStroop = "stroop"

// Colors is the stroop palette, in stable order.
var Colors = []string{"red", "green", "blue", "yellow", "magenta", "cyan"}

// ColorValues maps color names to RRGGBB hexcodes used for rendering.
var ColorValues = map[string]string{
	"red":     "#FF0000",
	"green":   "#00FF00",
	"blue":    "#0000FF",
	"yellow":  "#FFFF00",
	"magenta": "#FF00FF",
	"cyan":    "#00FFFF",
}

// ColorKeys maps single-key aliases to color names, exposed to the client for
// keyboard input.
var ColorKeys = map[string]string{
	"r": "red",
	"g": "green",
	"b": "blue",
	"y": "yellow",
	"m": "magenta",
	"c": "cyan",
}

// Stroop generates color-word puzzles. Content is the displayed word, the
// solution is the ink color.
type Stroop struct{}

// Name implements Variant.
func (s *Stroop) Name() string { return VariantStroop }

// Generate implements Variant. Word and ink are picked independently, so
// congruent puzzles occur at chance rate.
func (s *Stroop) Generate(rng *rand.Rand) Spec {
	color := Colors[rng.Intn(len(Colors))]
	word := Colors[rng.Intn(len(Colors))]
	congruent := color == word

	return Spec{
		Variant:   VariantStroop,
		Content:   word,
		Solution:  color,
		Congruent: &congruent,
	}
}

// Grade implements Variant. Single-key aliases are accepted alongside full
// color names.
func (s *Stroop) Grade(solution, answer string) (bool, error) {
	answer = strings.ToLower(strings.TrimSpace(answer))
	if full, ok := ColorKeys[answer]; ok {
		answer = full
	}
	return answer == solution, nil
}

// BlankIsNeutral implements Variant. An empty answer means "no response yet"
// and yields neutral feedback.
func (s *Stroop) BlankIsNeutral() bool { return true }
