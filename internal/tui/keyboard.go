package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/icco/keytutor/internal/lights"
	"github.com/icco/keytutor/internal/tutor"
)

// Piano range shown on screen, A0 to C8.
const (
	lowKey  = 21
	highKey = 108
)

var (
	whiteKey     = mustHex("#FFFFFF")
	blackKey     = mustHex("#000000")
	dueColor     = mustHex("#FFD700")
	previewColor = mustHex("#00AAFF")
	heldColor    = mustHex("#00FF00")
)

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

func isBlack(key int) bool {
	switch key % 12 {
	case 1, 3, 6, 8, 10:
		return true
	}
	return false
}

// glow eases each key's brightness toward its light level so keys fade in
// and out instead of snapping.
type glow struct {
	spring harmonica.Spring
	level  [tutor.Capacity]float64
	vel    [tutor.Capacity]float64
	kind   [tutor.Capacity]lights.Kind // last lit kind, kept while fading out
}

func newGlow() *glow {
	return &glow{spring: harmonica.NewSpring(harmonica.FPS(60), 6.0, 1.0)}
}

// step advances the animation one frame toward f.
func (g *glow) step(f lights.Frame) {
	for k := lowKey; k <= highKey; k++ {
		g.level[k], g.vel[k] = g.spring.Update(g.level[k], g.vel[k], f[k].Level)
		if f[k].Kind != lights.Off {
			g.kind[k] = f[k].Kind
		}
	}
}

// settled reports whether every key has reached its target.
func (g *glow) settled(f lights.Frame) bool {
	const eps = 0.005
	for k := lowKey; k <= highKey; k++ {
		d := g.level[k] - f[k].Level
		if d > eps || d < -eps {
			return false
		}
	}
	return true
}

func keyColor(kind lights.Kind, level float64, black bool) string {
	base := whiteKey
	if black {
		base = blackKey
	}
	var lit colorful.Color
	switch kind {
	case lights.Due:
		lit = dueColor
	case lights.Preview:
		lit = previewColor
	case lights.Held:
		lit = heldColor
	default:
		return base.Hex()
	}
	if level <= 0 {
		return base.Hex()
	}
	if level > 1 {
		level = 1
	}
	return base.BlendRgb(lit, level).Clamped().Hex()
}

// renderKeyboard draws the piano with black keys on the top row, each
// between the white keys it sits between.
func renderKeyboard(f lights.Frame, g *glow) string {
	var top, bottom strings.Builder
	for k := lowKey; k <= highKey; k++ {
		if isBlack(k) {
			continue
		}
		bottom.WriteString(keyCell(f, g, k, false))
		bottom.WriteString(" ")

		top.WriteString(" ")
		if next := k + 1; next <= highKey && isBlack(next) {
			top.WriteString(keyCell(f, g, next, true))
		} else {
			top.WriteString(" ")
		}
	}
	return top.String() + "\n" + bottom.String()
}

func keyCell(f lights.Frame, g *glow, k int, black bool) string {
	kind := f[k].Kind
	if kind == lights.Off {
		kind = g.kind[k]
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(keyColor(kind, g.level[k], black)))
	return style.Render("█")
}

func midiNoteName(note uint8) string {
	notes := []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	octave := int(note/12) - 1
	return fmt.Sprintf("%s%d", notes[note%12], octave)
}
