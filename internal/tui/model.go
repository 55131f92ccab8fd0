// Package tui is the terminal front end: a score browser and the practice
// screen with an on-screen keyboard mirroring the key lights.
package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/icco/keytutor/internal/lights"
	"github.com/icco/keytutor/internal/score"
	"github.com/icco/keytutor/internal/session"
	"github.com/icco/keytutor/internal/tutor"
)

type viewMode int

const (
	browserMode viewMode = iota
	practiceMode
)

const maxHistory = 8

const (
	animateRate = time.Second / 60
	idleRate    = 100 * time.Millisecond
)

// Starter opens a practice session for the score at path.
type Starter func(path string) (*session.Session, error)

// frameMsg drives the keyboard animation for one session.
type frameMsg struct {
	sess *session.Session
}

type eventMsg struct {
	sess *session.Session
	ev   session.Event
	ok   bool
}

// Model is the bubbletea model for the whole program.
type Model struct {
	mode    viewMode
	browser browserModel
	canPick bool // false when started on a fixed score
	start   Starter

	sess    *session.Session
	path    string
	frame   lights.Frame
	glow    *glow
	hits    int
	misses  int
	history []string
	message string

	keys   keyMap
	help   help.Model
	width  int
	height int
}

// NewBrowser starts in the score browser at dir.
func NewBrowser(dir string, start Starter) Model {
	return Model{
		mode:    browserMode,
		browser: newBrowser(dir),
		canPick: true,
		start:   start,
		glow:    newGlow(),
		keys:    newKeyMap(),
		help:    help.New(),
	}
}

// NewPractice starts directly on a session.
func NewPractice(path string, s *session.Session) Model {
	m := Model{
		mode: practiceMode,
		glow: newGlow(),
		keys: newKeyMap(),
		help: help.New(),
	}
	m.attach(path, s)
	return m
}

func (m *Model) attach(path string, s *session.Session) {
	m.sess = s
	m.path = path
	m.mode = practiceMode
	m.hits, m.misses = 0, 0
	m.history = nil
	m.message = ""
	m.frame = s.Frame()
}

// Close ends the current session, if any.
func (m Model) Close() {
	if m.sess != nil {
		m.sess.Close()
	}
}

func (m Model) Init() tea.Cmd {
	if m.mode == practiceMode {
		return tea.Batch(waitForEvent(m.sess), frameTick(m.sess, animateRate))
	}
	return nil
}

func waitForEvent(s *session.Session) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-s.Events()
		return eventMsg{sess: s, ev: ev, ok: ok}
	}
}

func frameTick(s *session.Session, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return frameMsg{sess: s}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case frameMsg:
		// A tick from a session that was closed ends its loop.
		if m.mode != practiceMode || msg.sess != m.sess {
			return m, nil
		}
		m.frame = m.sess.Frame()
		m.glow.step(m.frame)
		if m.glow.settled(m.frame) {
			return m, frameTick(m.sess, idleRate)
		}
		return m, frameTick(m.sess, animateRate)

	case eventMsg:
		if msg.sess != m.sess || !msg.ok {
			return m, nil
		}
		m.record(msg.ev)
		return m, waitForEvent(m.sess)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		if key.Matches(msg, m.keys.Help) {
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
		switch m.mode {
		case browserMode:
			return m.updateBrowser(msg)
		case practiceMode:
			return m.updatePractice(msg)
		}
	}

	return m, nil
}

func (m Model) updateBrowser(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.browser.up()
	case key.Matches(msg, m.keys.Down):
		m.browser.down(m.height)
	case key.Matches(msg, m.keys.Open):
		path, ok := m.browser.enter()
		if !ok {
			return m, nil
		}
		s, err := m.start(path)
		if err != nil {
			m.browser.message = fmt.Sprintf("Error loading score: %v", err)
			return m, nil
		}
		m.attach(path, s)
		return m, tea.Batch(waitForEvent(s), frameTick(s, animateRate))
	}
	return m, nil
}

func (m Model) updatePractice(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		if !m.canPick {
			return m, tea.Quit
		}
		m.sess.Close()
		m.sess = nil
		m.mode = browserMode
		m.browser.message = ""
	case key.Matches(msg, m.keys.Restart):
		m.sess.Restart()
		m.hits, m.misses = 0, 0
		m.message = "Restarted"
	case key.Matches(msg, m.keys.Lit):
		if m.sess.ToggleLitUntilRelease() {
			m.message = "Lit until release: on"
		} else {
			m.message = "Lit until release: off"
		}
	case key.Matches(msg, m.keys.Mute):
		ch := uint8(msg.Runes[0] - '1') //nolint:gosec // bound by the 1-9 binding
		if m.sess.ToggleMute(ch) {
			m.message = fmt.Sprintf("Channel %d muted", ch+1)
		} else {
			m.message = fmt.Sprintf("Channel %d unmuted", ch+1)
		}
	}
	return m, nil
}

func (m *Model) record(ev session.Event) {
	var line string
	name := midiNoteName(ev.Key)
	switch {
	case ev.Released:
		line = fmt.Sprintf("Release: Ch%d %-4s", ev.Channel+1, name)
	case ev.Outcome.Kind == tutor.Unexpected:
		m.misses++
		line = fmt.Sprintf("Miss:    Ch%d %-4s vel:%d", ev.Channel+1, name, ev.Velocity)
	default:
		m.hits++
		line = fmt.Sprintf("Hit:     Ch%d %-4s vel:%d %s", ev.Channel+1, name, ev.Velocity, ev.Outcome)
	}
	if ev.Done {
		m.message = "Finished! Press r to play again."
	}

	m.history = append([]string{line}, m.history...)
	if len(m.history) > maxHistory {
		m.history = m.history[:maxHistory]
	}
}

// stepNames lists a step's keys, low to high as the score stores them.
func stepNames(step score.Step) string {
	names := make([]string, 0, len(step.Notes))
	for _, n := range step.Notes {
		names = append(names, midiNoteName(n.Key))
	}
	return strings.Join(names, " ")
}

func (m Model) View() string {
	switch m.mode {
	case browserMode:
		helpLine := m.help.ShortHelpView([]key.Binding{m.keys.Up, m.keys.Down, m.keys.Open, m.keys.Back})
		return m.browser.view(m.height, helpLine)
	case practiceMode:
		return m.viewPractice()
	default:
		return "Unknown mode"
	}
}

func (m Model) viewPractice() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("keytutor") + "\n\n")
	b.WriteString(subtitleStyle.Render("Score: ") + filepath.Base(m.path) + "\n")

	pos, total := m.sess.Position()
	if m.sess.Done() {
		b.WriteString(subtitleStyle.Render("Step: ") + statusStyle.Render("done") + "\n")
	} else {
		b.WriteString(subtitleStyle.Render("Step: ") + fmt.Sprintf("%d/%d", pos+1, total))
		b.WriteString(subtitleStyle.Render("  Waiting for: ") + fmt.Sprintf("%d", m.sess.Pending()) + "\n")
		if step, ok := m.sess.Current(); ok {
			b.WriteString(subtitleStyle.Render("Play: ") + stepNames(step) + "\n")
		}
	}
	b.WriteString(subtitleStyle.Render("Hits: ") + fmt.Sprintf("%d", m.hits))
	b.WriteString(subtitleStyle.Render("  Misses: ") + fmt.Sprintf("%d", m.misses) + "\n")

	lit := "off"
	if m.sess.Tracker().LitUntilRelease() {
		lit = "on"
	}
	b.WriteString(subtitleStyle.Render("Lit until release: ") + lit + "\n\n")

	b.WriteString(renderKeyboard(m.frame, m.glow) + "\n\n")

	if m.message != "" {
		b.WriteString(statusStyle.Render(m.message) + "\n")
	}
	for i, line := range m.history {
		if i == 0 {
			b.WriteString("  " + logHighlightStyle.Render("▶ "+line) + "\n")
		} else {
			b.WriteString("  " + logStyle.Render("  "+line) + "\n")
		}
	}

	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}
