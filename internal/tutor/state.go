package tutor

import "fmt"

// State is the tagged value held by each key slot: Unused, WaitingForRelease
// or Expected.
type State interface {
	isState()
	String() string
}

// Unused means no note is expected on the key and its light is off.
type Unused struct{}

// WaitingForRelease means the key satisfied a due note while lit-until-release
// was on; the light stays on until the physical key goes up.
type WaitingForRelease struct {
	Channel int
}

// Expected means the key is due now (Offset 0) or previewed Offset steps ahead.
type Expected struct {
	Velocity int
	Channel  int
	Offset   int
}

func (Unused) isState()            {}
func (WaitingForRelease) isState() {}
func (Expected) isState()          {}

func (Unused) String() string { return "unused" }

func (w WaitingForRelease) String() string {
	return fmt.Sprintf("waiting-for-release(ch=%d)", w.Channel)
}

func (e Expected) String() string {
	return fmt.Sprintf("expected(v=%d ch=%d off=%d)", e.Velocity, e.Channel, e.Offset)
}

// Due reports whether the expectation is for the current step.
func (e Expected) Due() bool {
	return e.Offset == 0
}

// OutcomeKind classifies the result of a key press.
type OutcomeKind int

const (
	// Unexpected covers releases, unused keys and previews that cannot be
	// consumed while due notes are outstanding.
	Unexpected OutcomeKind = iota
	// Satisfied means the press fulfilled a due note.
	Satisfied
	// FuturePreview means the press hit a previewed note while nothing was due.
	FuturePreview
)

func (k OutcomeKind) String() string {
	switch k {
	case Unexpected:
		return "unexpected"
	case Satisfied:
		return "satisfied"
	case FuturePreview:
		return "future-preview"
	default:
		return "unknown"
	}
}

// Outcome is returned by KeyPressed. Offset is only set for FuturePreview.
type Outcome struct {
	Kind   OutcomeKind
	Offset int
}

func (o Outcome) String() string {
	if o.Kind == FuturePreview {
		return fmt.Sprintf("%s(%d)", o.Kind, o.Offset)
	}
	return o.Kind.String()
}
