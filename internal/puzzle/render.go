package puzzle

import (
	"encoding/base64"
	"fmt"
	"html"
	"strings"
)

// Renderer turns a puzzle spec into an opaque encoded image the client can
// display without learning anything beyond the pixels.
type Renderer interface {
	RenderDataURI(spec Spec) (string, error)
}

const (
	cellSize     = 24
	stroopWidth  = 320
	stroopHeight = 120
)

// SVGRenderer renders puzzles as base64 SVG data URIs.
type SVGRenderer struct{}

// NewSVGRenderer returns the default renderer.
func NewSVGRenderer() *SVGRenderer { return &SVGRenderer{} }

// RenderDataURI implements Renderer.
func (r *SVGRenderer) RenderDataURI(spec Spec) (string, error) {
	var svg string
	switch spec.Variant {
	case VariantCounting:
		svg = renderMatrix(spec)
	case VariantStroop:
		svg = renderColorWord(spec)
	default:
		return "", fmt.Errorf("cannot render variant %q", spec.Variant)
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(svg))
	return "data:image/svg+xml;base64," + encoded, nil
}

func renderMatrix(spec Spec) string {
	w := spec.Width * cellSize
	h := spec.Height * cellSize

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`, w, h)
	b.WriteString(`<rect width="100%" height="100%" fill="white"/>`)
	for row := 0; row < spec.Height; row++ {
		start := row * spec.Width
		end := start + spec.Width
		if end > len(spec.Content) {
			end = len(spec.Content)
		}
		fmt.Fprintf(&b,
			`<text x="%d" y="%d" font-family="monospace" font-size="%d" letter-spacing="%d" fill="black">%s</text>`,
			cellSize/4, (row+1)*cellSize-cellSize/4, cellSize-6, cellSize/2,
			html.EscapeString(spec.Content[start:end]),
		)
	}
	b.WriteString(`</svg>`)
	return b.String()
}

func renderColorWord(spec Spec) string {
	fill, ok := ColorValues[spec.Solution]
	if !ok {
		fill = "black"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`, stroopWidth, stroopHeight)
	b.WriteString(`<rect width="100%" height="100%" fill="white"/>`)
	fmt.Fprintf(&b,
		`<text x="50%%" y="50%%" dominant-baseline="middle" text-anchor="middle" font-family="sans-serif" font-size="48" font-weight="bold" fill="%s">%s</text>`,
		fill, html.EscapeString(strings.ToUpper(spec.Content)),
	)
	b.WriteString(`</svg>`)
	return b.String()
}
