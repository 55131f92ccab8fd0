// Package audio plays short feedback tones while practising.
package audio

import (
	"fmt"

	"github.com/ebitengine/oto/v3"
)

const (
	hitSeconds  = 0.35
	missSeconds = 0.12
	missFreq    = 110.0 // A2
)

// Voice sounds satisfied keys at their pitch and a low buzz for misses.
type Voice struct {
	otoCtx *oto.Context
	player *oto.Player
	mix    *mixer
}

// NewVoice opens the default audio device.
func NewVoice() (*Voice, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	otoCtx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio device: %w", err)
	}
	<-readyChan

	v := &Voice{otoCtx: otoCtx, mix: newMixer()}
	v.player = otoCtx.NewPlayer(v.mix)
	v.player.Play()
	return v, nil
}

// Satisfied plays key's pitch, louder with velocity.
func (v *Voice) Satisfied(key, velocity uint8) {
	v.mix.add(waveTriangle, keyToFreq(key), float64(velocity)/127.0, hitSeconds)
}

// Miss plays a short low square blip.
func (v *Voice) Miss() {
	v.mix.add(waveSquare, missFreq, 0.5, missSeconds)
}

// Close silences the voice.
func (v *Voice) Close() error {
	v.mix.silence()
	// As of oto v3.4 the player needs no explicit Close.
	return nil
}
