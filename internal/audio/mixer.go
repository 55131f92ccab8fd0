package audio

import (
	"math"
	"sync"
)

const (
	sampleRate   = 44100
	channelCount = 2 // stereo
	bitDepth     = 2 // 16-bit
)

// waveType is an oscillator shape.
type waveType int

const (
	waveSine waveType = iota
	waveSquare
	waveTriangle
)

// tone is one short enveloped blip.
type tone struct {
	wave      waveType
	frequency float64
	amplitude float64
	phase     float64
	remaining int // samples left before the tone ends
	length    int
}

// mixer sums active tones into interleaved 16-bit stereo.
type mixer struct {
	mu       sync.Mutex
	tones    []*tone
	maxTones int
	volume   float64
}

func newMixer() *mixer {
	return &mixer{maxTones: 16, volume: 0.3}
}

// add starts a tone lasting the given seconds. The oldest tone is dropped when the
// mixer is full.
func (m *mixer) add(w waveType, freq, amplitude, seconds float64) {
	n := int(seconds * sampleRate)
	if n <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.tones) >= m.maxTones {
		m.tones = m.tones[1:]
	}
	m.tones = append(m.tones, &tone{
		wave:      w,
		frequency: freq,
		amplitude: amplitude,
		remaining: n,
		length:    n,
	})
}

func (m *mixer) silence() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tones = nil
}

func (m *mixer) active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tones)
}

// Read implements io.Reader for the oto player.
func (m *mixer) Read(buf []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	numSamples := len(buf) / (channelCount * bitDepth)
	for i := 0; i < numSamples; i++ {
		var sample float64
		for _, t := range m.tones {
			if t.remaining <= 0 {
				continue
			}
			sample += generateWave(t.wave, t.phase) * t.amplitude * envelope(t)

			t.phase += t.frequency / sampleRate
			if t.phase >= 1.0 {
				t.phase -= 1.0
			}
			t.remaining--
		}

		sample *= m.volume
		if sample > 1.0 {
			sample = 1.0
		} else if sample < -1.0 {
			sample = -1.0
		}

		v := int16(sample * 32767)
		idx := i * channelCount * bitDepth
		buf[idx] = byte(v)
		buf[idx+1] = byte(v >> 8)
		buf[idx+2] = byte(v)
		buf[idx+3] = byte(v >> 8)
	}

	live := m.tones[:0]
	for _, t := range m.tones {
		if t.remaining > 0 {
			live = append(live, t)
		}
	}
	m.tones = live

	return len(buf), nil
}

// envelope is a short linear attack followed by a linear decay to zero.
func envelope(t *tone) float64 {
	pos := t.length - t.remaining
	attack := t.length / 20
	if attack > 0 && pos < attack {
		return float64(pos) / float64(attack)
	}
	return float64(t.remaining) / float64(t.length)
}

func generateWave(w waveType, phase float64) float64 {
	switch w {
	case waveSquare:
		if phase < 0.5 {
			return 0.8
		}
		return -0.8
	case waveTriangle:
		if phase < 0.5 {
			return 4*phase - 1
		}
		return 3 - 4*phase
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

// keyToFreq converts a MIDI key number to Hz.
func keyToFreq(key uint8) float64 {
	// A4 (key 69) = 440 Hz
	return 440.0 * math.Pow(2.0, (float64(key)-69.0)/12.0)
}
