// Package score turns a Standard MIDI File into the ordered chord steps a
// student plays through, and drives the tracker along them.
package score

import (
	"errors"
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"
)

const defaultBPM = 120

// ErrEmptyScore is returned when a file contains no note starts.
var ErrEmptyScore = errors.New("score has no notes")

// Note is one key to press within a step.
type Note struct {
	Key      uint8
	Velocity uint8
	Channel  uint8
}

// Step is every note that starts on the same tick.
type Step struct {
	Tick  uint32
	Notes []Note
}

// Score is a file reduced to its steps.
type Score struct {
	Steps           []Step
	TicksPerQuarter uint16
	BPM             float64
}

// Load reads the MIDI file at path.
func Load(path string) (*Score, error) {
	sm, err := smf.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading MIDI file %s: %w", path, err)
	}
	sc, err := FromSMF(sm)
	if err != nil {
		return nil, fmt.Errorf("error loading %s: %w", path, err)
	}
	return sc, nil
}

// FromSMF groups note starts across all tracks by absolute tick. When the
// same key starts twice on one channel in a step the loudest is kept.
func FromSMF(sm *smf.SMF) (*Score, error) {
	sc := &Score{BPM: defaultBPM}
	if mt, ok := sm.TimeFormat.(smf.MetricTicks); ok {
		sc.TicksPerQuarter = mt.Resolution()
	}
	if tc := sm.TempoChanges(); len(tc) > 0 {
		sc.BPM = tc[0].BPM
	}

	type noteKey struct{ key, ch uint8 }
	byTick := map[uint32]map[noteKey]uint8{}

	for _, track := range sm.Tracks {
		var tick uint32
		for _, ev := range track {
			tick += ev.Delta

			var ch, key, vel uint8
			if !ev.Message.GetNoteStart(&ch, &key, &vel) {
				continue
			}
			notes := byTick[tick]
			if notes == nil {
				notes = map[noteKey]uint8{}
				byTick[tick] = notes
			}
			k := noteKey{key, ch}
			if vel > notes[k] {
				notes[k] = vel
			}
		}
	}

	if len(byTick) == 0 {
		return nil, ErrEmptyScore
	}

	ticks := make([]uint32, 0, len(byTick))
	for tick := range byTick {
		ticks = append(ticks, tick)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })

	for _, tick := range ticks {
		step := Step{Tick: tick}
		for k, vel := range byTick[tick] {
			step.Notes = append(step.Notes, Note{Key: k.key, Velocity: vel, Channel: k.ch})
		}
		sort.Slice(step.Notes, func(i, j int) bool {
			a, b := step.Notes[i], step.Notes[j]
			if a.Key != b.Key {
				return a.Key < b.Key
			}
			return a.Channel < b.Channel
		})
		sc.Steps = append(sc.Steps, step)
	}
	return sc, nil
}

// Channels lists the distinct channels used by the score, ascending.
func (s *Score) Channels() []uint8 {
	var seen [16]bool
	for _, st := range s.Steps {
		for _, n := range st.Notes {
			seen[n.Channel&0x0F] = true
		}
	}
	var out []uint8
	for ch, ok := range seen {
		if ok {
			out = append(out, uint8(ch)) //nolint:gosec // ch is bounded by 16
		}
	}
	return out
}
