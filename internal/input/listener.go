// Package input listens to a MIDI keyboard and forwards key presses and
// releases.
package input

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// ErrPortNotFound is returned when no input port matches the requested name.
var ErrPortNotFound = errors.New("MIDI input port not found")

// Handler receives decoded key events. Calls come from the MIDI driver's
// goroutine.
type Handler interface {
	NoteOn(channel, key, velocity uint8)
	NoteOff(channel, key uint8)
}

// Dispatch decodes msg and calls h. It reports whether msg was a note event.
func Dispatch(msg midi.Message, h Handler) bool {
	var ch, key, vel uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		h.NoteOn(ch, key, vel)
	case msg.GetNoteEnd(&ch, &key):
		h.NoteOff(ch, key)
	default:
		return false
	}
	return true
}

// Listener owns an open input port.
type Listener struct {
	mu     sync.Mutex
	inPort drivers.In
	driver *rtmididrv.Driver // set for virtual ports
	name   string
	stop   func()
	log    logrus.FieldLogger
}

// Ports lists the names of the available MIDI inputs.
func Ports() []string {
	var names []string
	for _, in := range midi.GetInPorts() {
		names = append(names, in.String())
	}
	return names
}

// matchPort matches name exactly first, then case-insensitively as a
// substring. An empty name picks the first port.
func matchPort(names []string, name string) (int, error) {
	if len(names) == 0 {
		return -1, fmt.Errorf("%w: no inputs available", ErrPortNotFound)
	}
	if name == "" {
		return 0, nil
	}
	for i, n := range names {
		if n == name {
			return i, nil
		}
	}
	lower := strings.ToLower(name)
	for i, n := range names {
		if strings.Contains(strings.ToLower(n), lower) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrPortNotFound, name)
}

// Open starts listening on the port called name and forwards note events to h.
func Open(name string, h Handler, log logrus.FieldLogger) (*Listener, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	ins := midi.GetInPorts()
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	idx, err := matchPort(names, name)
	if err != nil {
		return nil, err
	}

	l := &Listener{inPort: ins[idx], name: names[idx], log: log.WithField("port", names[idx])}
	if err := l.listen(h); err != nil {
		return nil, err
	}
	l.log.Info("MIDI input connected")
	return l, nil
}

// OpenVirtual creates a virtual MIDI input called name that other programs
// can send to, and forwards its note events to h.
func OpenVirtual(name string, h Handler, log logrus.FieldLogger) (*Listener, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	driver, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MIDI driver: %w", err)
	}
	in, err := driver.OpenVirtualIn(name)
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("failed to create virtual MIDI port: %w", err)
	}

	l := &Listener{inPort: in, driver: driver, name: name, log: log.WithField("port", name)}
	if err := l.listen(h); err != nil {
		_ = in.Close()
		driver.Close()
		return nil, err
	}
	l.log.Info("virtual MIDI input created")
	return l, nil
}

func (l *Listener) listen(h Handler) error {
	stop, err := midi.ListenTo(l.inPort, func(msg midi.Message, _ int32) {
		Dispatch(msg, h)
	}, midi.HandleError(func(listenErr error) {
		l.log.WithError(listenErr).Warn("MIDI listener error, device likely disconnected")
	}))
	if err != nil {
		return fmt.Errorf("failed to listen to %s: %w", l.name, err)
	}
	l.stop = stop
	return nil
}

// Name is the port's name.
func (l *Listener) Name() string {
	return l.name
}

// Close stops listening and closes the port.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stop != nil {
		l.stop()
		l.stop = nil
	}
	var err error
	if l.inPort != nil {
		err = l.inPort.Close()
		l.inPort = nil
	}
	if l.driver != nil {
		l.driver.Close()
		l.driver = nil
	}
	return err
}
