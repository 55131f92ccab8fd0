package input

import "sync"

// Switch is a Handler that forwards to a replaceable target. It lets one
// open port feed whichever session is current.
type Switch struct {
	mu     sync.RWMutex
	target Handler
}

// Set replaces the target. A nil target drops events.
func (s *Switch) Set(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = h
}

func (s *Switch) NoteOn(channel, key, velocity uint8) {
	s.mu.RLock()
	h := s.target
	s.mu.RUnlock()
	if h != nil {
		h.NoteOn(channel, key, velocity)
	}
}

func (s *Switch) NoteOff(channel, key uint8) {
	s.mu.RLock()
	h := s.target
	s.mu.RUnlock()
	if h != nil {
		h.NoteOff(channel, key)
	}
}
