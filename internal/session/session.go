// Package session runs one practice session: it feeds key presses from the
// keyboard to the tracker and moves the score along in response.
package session

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/icco/keytutor/internal/config"
	"github.com/icco/keytutor/internal/lights"
	"github.com/icco/keytutor/internal/score"
	"github.com/icco/keytutor/internal/tutor"
)

const eventBuffer = 64

// Feedback is notified of press outcomes, usually to make a sound.
type Feedback interface {
	Satisfied(key, velocity uint8)
	Miss()
}

// Event describes one handled key event.
type Event struct {
	At       time.Time
	Channel  uint8
	Key      uint8
	Velocity uint8
	Released bool
	Outcome  tutor.Outcome
	Step     int
	Done     bool
}

// Session owns the tracker and the player for one score.
type Session struct {
	mu       sync.Mutex // serialises press handling
	tracker  *tutor.Tracker
	player   *score.Player
	feedback Feedback
	events   chan Event
	log      logrus.FieldLogger

	tempo  int // percent of score tempo, 0 = no waiting
	timer  *time.Timer
	gen    int // bumped to invalidate a scheduled advance
	closed bool
}

// Option configures a Session.
type Option func(*Session)

// WithFeedback sets the outcome listener.
func WithFeedback(f Feedback) Option {
	return func(s *Session) { s.feedback = f }
}

// WithLogger sets the session logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Session) { s.log = log }
}

// New builds a session from cfg and positions it at the first step.
func New(cfg *config.Config, sc *score.Score, opts ...Option) *Session {
	s := &Session{
		events: make(chan Event, eventBuffer),
		log:    logrus.StandardLogger(),
		tempo:  cfg.Tempo,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.tracker = tutor.New(
		tutor.WithLogger(s.log),
		tutor.WithLitUntilRelease(cfg.LitUntilRelease),
		tutor.WithCoefficient(cfg.Brightness),
	)
	s.player = score.NewPlayer(sc, s.tracker, cfg.Lookahead, s.log)
	for _, ch := range cfg.MutedChannels {
		s.player.Mute(uint8(ch)) //nolint:gosec // validated to 0..15
	}
	s.player.Seek(0)
	s.settle()
	return s
}

// settle moves past every step that has nothing left to play. With a tempo
// set, the next step only becomes due after the score's gap has elapsed;
// until then its keys stay previews and can be hit early.
func (s *Session) settle() {
	for !s.player.Done() && s.tracker.Size() == 0 {
		if gap := s.gap(); gap > 0 {
			s.schedule(gap)
			return
		}
		if !s.player.Advance() {
			return
		}
	}
}

func (s *Session) gap() time.Duration {
	if s.tempo <= 0 {
		return 0
	}
	return s.player.Gap() * 100 / time.Duration(s.tempo)
}

func (s *Session) schedule(d time.Duration) {
	s.cancel()
	gen := s.gen
	s.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen {
			return
		}
		s.timer = nil
		if s.player.Advance() {
			s.settle()
		}
	})
}

// cancel drops any scheduled advance.
func (s *Session) cancel() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Events delivers handled key events. Events are dropped when nobody reads.
// The channel is closed by Close.
func (s *Session) Events() <-chan Event {
	return s.events
}

// NoteOn handles a key-down from the keyboard.
func (s *Session) NoteOn(channel, key, velocity uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	out := s.tracker.KeyPressed(int(key), int(velocity))
	s.log.WithFields(logrus.Fields{"key": key, "velocity": velocity, "outcome": out}).Debug("key pressed")

	switch out.Kind {
	case tutor.Satisfied:
		if s.feedback != nil {
			s.feedback.Satisfied(key, velocity)
		}
		s.settle()
	case tutor.FuturePreview:
		if s.feedback != nil {
			s.feedback.Satisfied(key, velocity)
		}
		s.cancel()
		s.player.Skip(out.Offset)
		s.settle()
	default:
		if s.feedback != nil {
			s.feedback.Miss()
		}
	}

	s.emit(Event{Channel: channel, Key: key, Velocity: velocity, Outcome: out})
}

// NoteOff handles a key-up.
func (s *Session) NoteOff(channel, key uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tracker.KeyReleased(int(key)) {
		s.emit(Event{Channel: channel, Key: key, Released: true})
	}
}

func (s *Session) emit(ev Event) {
	if s.closed {
		return
	}
	ev.At = time.Now()
	ev.Step = s.player.Position()
	ev.Done = s.player.Done()
	select {
	case s.events <- ev:
	default:
	}
}

// Frame is the current light frame.
func (s *Session) Frame() lights.Frame {
	return lights.Build(s.tracker.Snapshot(), s.tracker.Coefficient())
}

// Pending is the number of due keys not yet played.
func (s *Session) Pending() int {
	return s.tracker.Size()
}

// Position returns the current step index and the number of steps.
func (s *Session) Position() (int, int) {
	return s.player.Position(), s.player.Len()
}

// Current is the step being played, or false once the score is finished.
func (s *Session) Current() (score.Step, bool) {
	return s.player.Current()
}

// Done reports whether the score is finished.
func (s *Session) Done() bool {
	return s.player.Done()
}

// Restart goes back to the first step.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	s.player.Seek(0)
	s.settle()
}

// Stop retracts every light and drops any scheduled advance.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	s.player.Stop()
}

// Close stops the session and closes the event channel. Key events that
// arrive afterwards are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.cancel()
	s.player.Stop()
	s.closed = true
	close(s.events)
}

// ToggleLitUntilRelease flips the mode and returns the new value.
func (s *Session) ToggleLitUntilRelease() bool {
	on := !s.tracker.LitUntilRelease()
	s.tracker.SetLitUntilRelease(on)
	return on
}

// ToggleMute flips channel's mute and returns whether it is now muted.
func (s *Session) ToggleMute(channel uint8) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player.Muted(channel) {
		s.player.Unmute(channel)
		if s.tracker.Size() > 0 {
			s.cancel()
		}
		return false
	}
	s.player.Mute(channel)
	// Muting may have retracted the last due key.
	s.settle()
	return true
}

// Tracker exposes the underlying tracker.
func (s *Session) Tracker() *tutor.Tracker {
	return s.tracker
}
