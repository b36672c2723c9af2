package storage

// State is the lifecycle state of a [Handle].
type State int

const (
	StateUnopened State = iota
	StateOpening
	StateOpen
	StateClosing
	StateClosed
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Mode is the mode a [Handle] is opened with.
type Mode int

const (
	ModeReadWrite Mode = iota
	ModeReadOnly
)

func (m Mode) String() string {
	if m == ModeReadOnly {
		return "read-only"
	}

	return "read-write"
}
