package score

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultLookahead is how many steps past the current one are previewed.
const DefaultLookahead = 2

// allChannels mirrors tutor.AllChannels without importing the tracker.
const allChannels = -1

// Tracker is the part of the key-state tracker the player drives.
type Tracker interface {
	RegisterKey(id, velocity, channel, offset int)
	ClearKey(id int, mark bool)
	ClearKeys(channel int)
	Size() int
}

// Player walks a score, announcing the current step as due and the next
// lookahead steps as previews.
type Player struct {
	mu        sync.Mutex
	score     *Score
	tracker   Tracker
	pos       int
	lookahead int
	muted     [16]bool
	log       logrus.FieldLogger
}

// NewPlayer returns a player positioned before the first step. Call Seek(0)
// to start.
func NewPlayer(sc *Score, tr Tracker, lookahead int, log logrus.FieldLogger) *Player {
	if lookahead < 0 {
		lookahead = 0
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Player{score: sc, tracker: tr, lookahead: lookahead, log: log}
}

// announceLocked registers the current step and its previews with the
// tracker, limited to one channel unless channel is allChannels.
func (p *Player) announceLocked(channel int) {
	for k := 0; k <= p.lookahead; k++ {
		i := p.pos + k
		if i >= len(p.score.Steps) {
			break
		}
		for _, n := range p.score.Steps[i].Notes {
			if p.muted[n.Channel&0x0F] || (channel != allChannels && int(n.Channel) != channel) {
				continue
			}
			p.tracker.RegisterKey(int(n.Key), int(n.Velocity), int(n.Channel), k)
		}
	}
}

// Advance moves to the next step once nothing is due. It reports whether
// the position changed.
func (p *Player) Advance() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pos >= len(p.score.Steps) || p.tracker.Size() > 0 {
		return false
	}
	p.pos++
	p.log.WithField("step", p.pos).Debug("advance")
	p.announceLocked(allChannels)
	return true
}

// Skip jumps n steps ahead, typically after the student played a previewed
// note early.
func (p *Player) Skip(n int) {
	if n <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	from := p.pos
	p.pos += n
	if p.pos > len(p.score.Steps) {
		p.pos = len(p.score.Steps)
	}
	p.retractLocked(from, p.pos)
	p.log.WithFields(logrus.Fields{"step": p.pos, "skipped": n}).Debug("skip")
	p.announceLocked(allChannels)
}

// retractLocked withdraws the previews left behind by the steps skipped
// between from and to. Step from was already played and its keys may still
// be held, so it is not touched. Keys of the new current step are left alone
// so a preview that was just hit keeps its mark.
func (p *Player) retractLocked(from, to int) {
	keep := map[uint8]bool{}
	if to < len(p.score.Steps) {
		for _, n := range p.score.Steps[to].Notes {
			keep[n.Key] = true
		}
	}
	for i := from + 1; i < to; i++ {
		for _, n := range p.score.Steps[i].Notes {
			if keep[n.Key] || p.muted[n.Channel&0x0F] {
				continue
			}
			// Previews cannot be cleared directly: promote, then clear.
			p.tracker.RegisterKey(int(n.Key), int(n.Velocity), int(n.Channel), 0)
			p.tracker.ClearKey(int(n.Key), false)
		}
	}
}

// Seek clears every key and restarts at step i.
func (p *Player) Seek(i int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i < 0 {
		i = 0
	}
	if i > len(p.score.Steps) {
		i = len(p.score.Steps)
	}
	p.tracker.ClearKeys(allChannels)
	p.pos = i
	p.announceLocked(allChannels)
}

// Stop retracts every expectation. The position is kept.
func (p *Player) Stop() {
	p.tracker.ClearKeys(allChannels)
}

// Mute stops announcing channel and retracts its keys.
func (p *Player) Mute(channel uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.muted[channel&0x0F] = true
	p.tracker.ClearKeys(int(channel & 0x0F))
}

// Unmute resumes channel and announces its keys in the current step and
// previews. Keys on other channels are not touched, so notes already played
// stay played.
func (p *Player) Unmute(channel uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.muted[channel&0x0F] = false
	p.announceLocked(int(channel & 0x0F))
}

// Muted reports whether channel is left out.
func (p *Player) Muted(channel uint8) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted[channel&0x0F]
}

// Position is the index of the current step.
func (p *Player) Position() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos
}

func (p *Player) Len() int {
	return len(p.score.Steps)
}

// Done reports whether every step has been played.
func (p *Player) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos >= len(p.score.Steps)
}

// Gap is the time between the current step and the next one at the
// score's tempo. It is zero at the last step or when the score carries no
// timing.
func (p *Player) Gap() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	sc := p.score
	if sc.TicksPerQuarter == 0 || sc.BPM <= 0 || p.pos+1 >= len(sc.Steps) {
		return 0
	}
	ticks := float64(sc.Steps[p.pos+1].Tick - sc.Steps[p.pos].Tick)
	beats := ticks / float64(sc.TicksPerQuarter)
	return time.Duration(beats * 60 / sc.BPM * float64(time.Second))
}

// Current returns the step the student is on, or false at the end.
func (p *Player) Current() (Step, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pos >= len(p.score.Steps) {
		return Step{}, false
	}
	return p.score.Steps[p.pos], true
}
