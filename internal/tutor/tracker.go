// Package tutor tracks which keys a player is expected to press and decides,
// for every key-down, whether it satisfies a due note, hits a previewed one
// or is unexpected.
package tutor

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// Capacity is the number of key slots. Key ids are folded into range.
	Capacity = 256

	// AllChannels selects every slot in ClearKeys.
	AllChannels = -1

	// DebounceWindow is how soon after a preview was marked a due
	// re-registration of the same key is swallowed.
	DebounceWindow = 100 * time.Millisecond
)

type slot struct {
	state    State
	markedAt time.Time // zero when unmarked
}

// Tracker is a fixed table of key slots guarded by a single mutex. It is
// safe for concurrent use by an input thread and a render thread.
type Tracker struct {
	mu              sync.Mutex
	slots           [Capacity]slot
	pending         int // slots in Expected with Offset 0
	litUntilRelease bool
	coefficient     float64

	now func() time.Time
	log logrus.FieldLogger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now. The clock must not go backwards.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLogger sets the logger used for transition traces.
func WithLogger(log logrus.FieldLogger) Option {
	return func(t *Tracker) { t.log = log }
}

// WithLitUntilRelease sets the initial lit-until-release mode.
func WithLitUntilRelease(on bool) Option {
	return func(t *Tracker) { t.litUntilRelease = on }
}

// WithCoefficient sets the initial brightness coefficient.
func WithCoefficient(c float64) Option {
	return func(t *Tracker) { t.coefficient = c }
}

// New returns a Tracker with every slot unused.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		coefficient: 1,
		now:         time.Now,
		log:         logrus.StandardLogger(),
	}
	for i := range t.slots {
		t.slots[i].state = Unused{}
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func index(id int) int {
	return id & (Capacity - 1)
}

// RegisterKey records that id is expected now (offset 0) or previewed offset
// steps ahead. A zero velocity clears the key instead.
//
// A due registration always replaces a preview. Otherwise a registration
// only replaces a less imminent one, or an equally imminent strictly
// quieter one. Requests that lose on priority are ignored.
func (t *Tracker) RegisterKey(id, velocity, channel, offset int) {
	if velocity == 0 {
		t.ClearKey(id, false)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	i := index(id)
	s := &t.slots[i]
	want := Expected{Velocity: velocity, Channel: channel, Offset: offset}

	var marked time.Time
	switch cur := s.state.(type) {
	case Expected:
		if cur == want {
			return
		}
		switch {
		case offset == 0 && cur.Offset > 0:
			t.pending++
			marked = s.markedAt
		case offset > cur.Offset || (offset == cur.Offset && velocity <= cur.Velocity):
			return
		}
	default:
		if offset == 0 {
			t.pending++
		}
	}

	t.log.WithFields(logrus.Fields{
		"key": i, "velocity": velocity, "channel": channel, "offset": offset,
	}).Debug("register key")

	s.state = want
	s.markedAt = time.Time{}

	// A preview hit moments ago is now due: drop it rather than flash the
	// light on and off faster than anyone can see.
	if !marked.IsZero() && t.now().Sub(marked) < DebounceWindow {
		s.state = Unused{}
		t.pending--
		t.log.WithField("key", i).Debug("debounced due key after preview hit")
	}
}

// ClearKey removes the expectation for id. With mark set, a previewed key
// is not cleared but stamped so that a quick due re-registration is
// debounced.
func (t *Tracker) ClearKey(id int, mark bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearLocked(index(id), mark)
}

// clearLocked must only be called with t.mu held.
func (t *Tracker) clearLocked(i int, mark bool) {
	s := &t.slots[i]
	switch cur := s.state.(type) {
	case WaitingForRelease:
		// pending was already decremented when the key was satisfied.
		s.state = Unused{}
	case Expected:
		if cur.Offset == 0 {
			t.pending--
			s.state = Unused{}
		} else if mark {
			s.markedAt = t.now()
		}
	}
	t.log.WithFields(logrus.Fields{"key": i, "mark": mark}).Debug("clear key")
}

// ClearKeys resets every slot when channel is AllChannels, otherwise only the
// slots on channel. The pending count follows the slots that were due.
func (t *Tracker) ClearKeys(channel int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if channel == AllChannels {
		for i := range t.slots {
			t.slots[i] = slot{state: Unused{}}
		}
		t.pending = 0
		return
	}

	for i := range t.slots {
		s := &t.slots[i]
		switch cur := s.state.(type) {
		case Expected:
			if cur.Channel != channel {
				continue
			}
			if cur.Due() {
				t.pending--
			}
		case WaitingForRelease:
			if cur.Channel != channel {
				continue
			}
		default:
			continue
		}
		*s = slot{state: Unused{}}
	}
}

// KeyPressed handles a physical key-down. A zero velocity is a release and
// is always Unexpected.
func (t *Tracker) KeyPressed(id, velocity int) Outcome {
	if velocity == 0 {
		return Outcome{Kind: Unexpected}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	i := index(id)
	s := &t.slots[i]
	cur, ok := s.state.(Expected)
	if !ok {
		return Outcome{Kind: Unexpected}
	}

	if cur.Due() {
		if t.litUntilRelease {
			t.log.WithField("key", i).Debug("key satisfied, lit until release")
			s.state = WaitingForRelease{Channel: cur.Channel}
		} else {
			t.log.WithField("key", i).Debug("key satisfied")
			s.state = Unused{}
		}
		s.markedAt = time.Time{}
		t.pending--
		return Outcome{Kind: Satisfied}
	}

	if t.pending == 0 {
		t.log.WithFields(logrus.Fields{"key": i, "offset": cur.Offset}).Debug("preview hit, skipping ahead")
		t.clearLocked(i, true)
		return Outcome{Kind: FuturePreview, Offset: cur.Offset}
	}
	return Outcome{Kind: Unexpected}
}

// KeyReleased handles a physical key-up. Only a key waiting for release is
// cleared; it reports whether that happened.
func (t *Tracker) KeyReleased(id int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := index(id)
	if _, ok := t.slots[i].state.(WaitingForRelease); !ok {
		return false
	}
	t.clearLocked(i, false)
	return true
}

// Size returns how many due notes are still unsatisfied.
func (t *Tracker) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

// Slot returns the state of key id.
func (t *Tracker) Slot(id int) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.slots[index(id)].state
}

// Snapshot copies every slot state in one critical section.
func (t *Tracker) Snapshot() [Capacity]State {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out [Capacity]State
	for i := range t.slots {
		out[i] = t.slots[i].state
	}
	return out
}

// LitUntilRelease reports whether satisfied keys stay lit until released.
func (t *Tracker) LitUntilRelease() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.litUntilRelease
}

// SetLitUntilRelease switches the mode for presses from now on. Keys already
// waiting for release keep waiting.
func (t *Tracker) SetLitUntilRelease(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.litUntilRelease = on
}

// Coefficient is the brightness coefficient handed to the light model.
func (t *Tracker) Coefficient() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.coefficient
}

// SetCoefficient replaces the brightness coefficient.
func (t *Tracker) SetCoefficient(c float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.coefficient = c
}
