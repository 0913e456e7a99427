// Package typeset measures text objects with the Go regular font so
// their bounding boxes match what the renderer draws.
package typeset

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"

	"github.com/presemt/presemt/backend-go/internal/plane"
)

const (
	DefaultText     = "Hello world"
	DefaultFontSize = 48
)

var regular = sync.OnceValues(func() (*truetype.Font, error) {
	return truetype.Parse(goregular.TTF)
})

// Measurer caches one face per font size. It is not safe for concurrent
// use.
type Measurer struct {
	font  *truetype.Font
	faces map[float64]font.Face
}

func New() (*Measurer, error) {
	f, err := regular()
	if err != nil {
		return nil, fmt.Errorf("parse goregular: %w", err)
	}
	return &Measurer{font: f, faces: make(map[float64]font.Face)}, nil
}

// Face returns the face for size points at 72 DPI, so one point is one
// plane unit.
func (m *Measurer) Face(size float64) font.Face {
	if size <= 0 {
		size = DefaultFontSize
	}
	if f, ok := m.faces[size]; ok {
		return f
	}
	f := truetype.NewFace(m.font, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	m.faces[size] = f
	return f
}

// LineHeight is the baseline-to-baseline distance at size.
func (m *Measurer) LineHeight(size float64) float64 {
	return toFloat(m.Face(size).Metrics().Height)
}

// Measure returns the box of text laid out one line per newline. Empty
// text still measures one line with a caret-wide box.
func (m *Measurer) Measure(text string, size float64) plane.Size {
	face := m.Face(size)
	lines := strings.Split(text, "\n")

	width := 0.0
	for _, line := range lines {
		width = max(width, toFloat(font.MeasureString(face, line)))
	}
	lineHeight := m.LineHeight(size)
	return plane.Size{
		Width:  max(math.Ceil(width), math.Ceil(lineHeight/4)),
		Height: math.Ceil(lineHeight * float64(len(lines))),
	}
}

func toFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
