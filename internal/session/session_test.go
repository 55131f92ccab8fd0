package session

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/icco/keytutor/internal/config"
	"github.com/icco/keytutor/internal/lights"
	"github.com/icco/keytutor/internal/score"
	"github.com/icco/keytutor/internal/tutor"
)

type countingFeedback struct {
	mu     sync.Mutex
	hits   []uint8
	misses int
}

func (f *countingFeedback) Satisfied(key, _ uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits = append(f.hits, key)
}

func (f *countingFeedback) Miss() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.misses++
}

func quiet() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// melody is C+E, G, C', one quarter note apart at 120 BPM (500ms).
func melody() *score.Score {
	return &score.Score{
		TicksPerQuarter: 480,
		BPM:             120,
		Steps: []score.Step{
			{Tick: 0, Notes: []score.Note{{Key: 60, Velocity: 90}, {Key: 64, Velocity: 90}}},
			{Tick: 480, Notes: []score.Note{{Key: 67, Velocity: 90}}},
			{Tick: 960, Notes: []score.Note{{Key: 72, Velocity: 90, Channel: 1}}},
		},
	}
}

func newTestSession(t *testing.T, mutate func(*config.Config)) (*Session, *countingFeedback) {
	t.Helper()
	cfg := config.Default()
	cfg.Tempo = 0
	if mutate != nil {
		mutate(cfg)
	}
	fb := &countingFeedback{}
	s := New(cfg, melody(), WithFeedback(fb), WithLogger(quiet()))
	t.Cleanup(s.Close)
	return s, fb
}

func TestSessionPlaysThrough(t *testing.T) {
	s, fb := newTestSession(t, nil)

	if got := s.Pending(); got != 2 {
		t.Fatalf("Pending() = %d, want 2", got)
	}

	s.NoteOn(0, 60, 80)
	if pos, _ := s.Position(); pos != 0 {
		t.Errorf("moved on with half the chord played")
	}
	s.NoteOn(0, 64, 80)
	if pos, _ := s.Position(); pos != 1 {
		t.Errorf("Position() = %d, want 1", pos)
	}

	s.NoteOn(0, 67, 80)
	s.NoteOn(0, 72, 80)
	if !s.Done() {
		t.Error("Done() = false after the last note")
	}
	if len(fb.hits) != 4 || fb.misses != 0 {
		t.Errorf("hits = %v, misses = %d", fb.hits, fb.misses)
	}

	var last Event
	for i := 0; i < 4; i++ {
		last = <-s.Events()
	}
	if last.Key != 72 || last.Outcome.Kind != tutor.Satisfied || !last.Done {
		t.Errorf("last event = %+v", last)
	}
}

func TestSessionWrongKey(t *testing.T) {
	s, fb := newTestSession(t, nil)

	s.NoteOn(0, 61, 80)
	if fb.misses != 1 {
		t.Errorf("misses = %d, want 1", fb.misses)
	}
	ev := <-s.Events()
	if ev.Outcome.Kind != tutor.Unexpected {
		t.Errorf("outcome = %v, want unexpected", ev.Outcome)
	}
	if got := s.Pending(); got != 2 {
		t.Errorf("Pending() = %d, want 2", got)
	}
}

func TestSessionLitUntilRelease(t *testing.T) {
	s, _ := newTestSession(t, func(c *config.Config) { c.LitUntilRelease = true })

	s.NoteOn(0, 60, 80)
	<-s.Events()
	if got := s.Frame()[60].Kind; got != lights.Held {
		t.Errorf("key 60 light = %v, want held", got)
	}

	s.NoteOff(0, 60)
	ev := <-s.Events()
	if !ev.Released || ev.Key != 60 {
		t.Errorf("release event = %+v", ev)
	}
	if got := s.Frame()[60].Kind; got != lights.Off {
		t.Errorf("key 60 light = %v after release, want off", got)
	}

	// Releasing a key that is not held emits nothing.
	s.NoteOff(0, 64)
	select {
	case ev := <-s.Events():
		t.Errorf("unexpected event %+v", ev)
	default:
	}

	if s.ToggleLitUntilRelease() {
		t.Error("ToggleLitUntilRelease() = true, want false")
	}
}

func TestSessionMutedChannelSkipsSteps(t *testing.T) {
	s, _ := newTestSession(t, func(c *config.Config) { c.MutedChannels = []int{1} })

	s.NoteOn(0, 60, 80)
	s.NoteOn(0, 64, 80)
	s.NoteOn(0, 67, 80)
	// The last step is channel 1 only.
	if !s.Done() {
		t.Error("muted final step was not skipped")
	}
}

func TestSessionToggleMute(t *testing.T) {
	s, _ := newTestSession(t, nil)

	if !s.ToggleMute(0) {
		t.Fatal("ToggleMute(0) = false, want muted")
	}
	// Steps 0 and 1 are channel 0 only; the player moves to the last step.
	if pos, _ := s.Position(); pos != 2 {
		t.Errorf("Position() = %d, want 2", pos)
	}
	if got := s.Pending(); got != 1 {
		t.Errorf("Pending() = %d, want 1", got)
	}
	if s.ToggleMute(0) {
		t.Error("ToggleMute(0) = true, want unmuted")
	}
}

func TestSessionUnmuteKeepsPlayedKeys(t *testing.T) {
	sc := &score.Score{Steps: []score.Step{
		{Notes: []score.Note{{Key: 60, Velocity: 90}, {Key: 64, Velocity: 90}, {Key: 67, Velocity: 90, Channel: 1}}},
		{Notes: []score.Note{{Key: 72, Velocity: 90}}},
	}}
	cfg := config.Default()
	cfg.Tempo = 0
	s := New(cfg, sc, WithLogger(quiet()))
	t.Cleanup(s.Close)

	s.NoteOn(0, 60, 80)
	if got := s.Pending(); got != 2 {
		t.Fatalf("Pending() = %d, want 2", got)
	}

	s.ToggleMute(1)
	if got := s.Pending(); got != 1 {
		t.Fatalf("Pending() = %d with channel 1 muted, want 1", got)
	}
	s.ToggleMute(1)

	// Only channel 1's key comes back.
	if got := s.Pending(); got != 2 {
		t.Errorf("Pending() = %d after unmute, want 2", got)
	}
	if got := s.Tracker().Slot(60); got != (tutor.Unused{}) {
		t.Errorf("Slot(60) = %v, want unused", got)
	}
	if got := s.Tracker().Slot(67); got != (tutor.Expected{Velocity: 90, Channel: 1}) {
		t.Errorf("Slot(67) = %v, want due on channel 1", got)
	}
}

func TestSessionRestart(t *testing.T) {
	s, _ := newTestSession(t, nil)
	s.NoteOn(0, 60, 80)
	s.NoteOn(0, 64, 80)
	s.Restart()

	if pos, _ := s.Position(); pos != 0 {
		t.Errorf("Position() = %d, want 0", pos)
	}
	if got := s.Pending(); got != 2 {
		t.Errorf("Pending() = %d, want 2", got)
	}
}

func TestSessionWaitsForTempo(t *testing.T) {
	s, _ := newTestSession(t, func(c *config.Config) { c.Tempo = 100 })

	s.NoteOn(0, 60, 80)
	s.NoteOn(0, 64, 80)

	// The next step stays a preview until the 500ms gap elapses.
	if pos, _ := s.Position(); pos != 0 {
		t.Fatalf("Position() = %d, want 0 while waiting", pos)
	}
	if got := s.Tracker().Slot(67); got != (tutor.Expected{Velocity: 90, Offset: 1}) {
		t.Errorf("Slot(67) = %v, want preview", got)
	}

	deadline := time.Now().Add(3 * time.Second)
	for s.Pending() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if pos, _ := s.Position(); pos != 1 {
		t.Errorf("Position() = %d, want 1 after the gap", pos)
	}
}

func TestSessionEarlyPreviewHitIsDebounced(t *testing.T) {
	s, fb := newTestSession(t, func(c *config.Config) { c.Tempo = 100 })

	s.NoteOn(0, 60, 80)
	s.NoteOn(0, 64, 80)
	// Played before the gap elapsed: a preview hit that moves the score on.
	s.NoteOn(0, 67, 80)

	var ev Event
	for i := 0; i < 3; i++ {
		ev = <-s.Events()
	}
	if ev.Outcome != (tutor.Outcome{Kind: tutor.FuturePreview, Offset: 1}) {
		t.Fatalf("outcome = %v, want future-preview(1)", ev.Outcome)
	}
	if pos, _ := s.Position(); pos != 1 {
		t.Errorf("Position() = %d, want 1", pos)
	}
	if got := s.Tracker().Slot(67); got != (tutor.Unused{}) {
		t.Errorf("Slot(67) = %v, want unused", got)
	}
	if got := s.Pending(); got != 0 {
		t.Errorf("Pending() = %d, want 0", got)
	}
	if len(fb.hits) != 3 {
		t.Errorf("hits = %v, want 3", fb.hits)
	}
}

func TestSessionEarlyPreviewHitKeepsHeldKeys(t *testing.T) {
	s, _ := newTestSession(t, func(c *config.Config) {
		c.Tempo = 100
		c.LitUntilRelease = true
	})

	s.NoteOn(0, 60, 80)
	s.NoteOn(0, 64, 80)
	// 60 and 64 are still held down when 67 is played early.
	s.NoteOn(0, 67, 80)

	if pos, _ := s.Position(); pos != 1 {
		t.Fatalf("Position() = %d, want 1", pos)
	}
	for _, id := range []int{60, 64} {
		if got := s.Tracker().Slot(id); got != (tutor.WaitingForRelease{Channel: 0}) {
			t.Errorf("Slot(%d) = %v, want waiting-for-release", id, got)
		}
		if got := s.Frame()[id].Kind; got != lights.Held {
			t.Errorf("key %d light = %v, want held", id, got)
		}
	}

	s.NoteOff(0, 60)
	if got := s.Tracker().Slot(60); got != (tutor.Unused{}) {
		t.Errorf("Slot(60) = %v after release, want unused", got)
	}
}

func TestSessionClose(t *testing.T) {
	s, fb := newTestSession(t, nil)
	s.Close()
	s.Close()

	if _, ok := <-s.Events(); ok {
		t.Error("Events() still open after Close")
	}
	if got := s.Pending(); got != 0 {
		t.Errorf("Pending() = %d after Close, want 0", got)
	}
	s.NoteOn(0, 60, 80)
	if len(fb.hits) != 0 || fb.misses != 0 {
		t.Errorf("key handled after Close: hits = %v, misses = %d", fb.hits, fb.misses)
	}
}
