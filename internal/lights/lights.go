// Package lights turns tracker state into per-key light levels for whatever
// drives the physical strip or the screen.
package lights

import (
	"github.com/icco/keytutor/internal/tutor"
)

// Kind is what a key's light is showing.
type Kind int

const (
	Off     Kind = iota // dark
	Due                 // play now
	Preview             // coming up
	Held                // played, lit until released
)

func (k Kind) String() string {
	switch k {
	case Off:
		return "off"
	case Due:
		return "due"
	case Preview:
		return "preview"
	case Held:
		return "held"
	default:
		return "unknown"
	}
}

const maxVelocity = 127

// Light is one key's light.
type Light struct {
	Kind    Kind
	Channel int
	Offset  int
	Level   float64 // 0..1
}

// Frame is a light per key slot.
type Frame [tutor.Capacity]Light

// Build converts a snapshot. Due keys shine at velocity scaled by
// coefficient, previews halve per step ahead, held keys are full. A
// coefficient <= 0 is treated as 1.
func Build(snapshot [tutor.Capacity]tutor.State, coefficient float64) Frame {
	if coefficient <= 0 {
		coefficient = 1
	}

	var f Frame
	for i, st := range snapshot {
		switch s := st.(type) {
		case tutor.Expected:
			level := clamp(float64(s.Velocity) / maxVelocity * coefficient)
			if s.Offset == 0 {
				f[i] = Light{Kind: Due, Channel: s.Channel, Level: level}
				continue
			}
			for k := 0; k < s.Offset; k++ {
				level /= 2
			}
			f[i] = Light{Kind: Preview, Channel: s.Channel, Offset: s.Offset, Level: level}
		case tutor.WaitingForRelease:
			f[i] = Light{Kind: Held, Channel: s.Channel, Level: 1}
		}
	}
	return f
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
