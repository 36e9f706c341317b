package autofeed

import "strings"

// CommandPrefix starts every control line sent to the firmware
const CommandPrefix = "[control]:"

// StatusPrefix starts every feeder status line printed by the firmware
const StatusPrefix = "FEEDER"

// State is the stage of the feeding sequence that the controller is currently in
type State int

const (
	StateIdle State = iota
	StateExtendGate
	StateDoseWaitForWeight
	StateRetractGate
	StateDoseAndAerate
	StateAborting
	StateCompleted
)

var stateNames = []string{
	StateIdle:              "Idle",
	StateExtendGate:        "ExtendGate",
	StateDoseWaitForWeight: "DoseWaitForWeight",
	StateRetractGate:       "RetractGate",
	StateDoseAndAerate:     "DoseAndAerate",
	StateAborting:          "Aborting",
	StateCompleted:         "Completed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Running is true for every state between accepting a start and returning to Idle
func (s State) Running() bool {
	return s != StateIdle
}

// ParseState is the inverse of State.String
func ParseState(in string) (State, bool) {
	for i, name := range stateNames {
		if name == in {
			return State(i), true
		}
	}
	return StateIdle, false
}

// Status is the single terminal outcome of a start request
type Status int

const (
	StatusNone Status = iota
	StatusCompleted
	StatusAborted
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusAborted:
		return "aborted"
	case StatusRejected:
		return "rejected"
	default:
		return "none"
	}
}

// Kind classifies a status line
type Kind string

const (
	KindStage     Kind = "stage"
	KindInfo      Kind = "info"
	KindWarning   Kind = "warn"
	KindCompleted Kind = "completed"
	KindAborted   Kind = "aborted"
	KindRejected  Kind = "rejected"
)

// Terminal reports whether this kind ends a start request
func (k Kind) Terminal() bool {
	return k == KindCompleted || k == KindAborted || k == KindRejected
}

// StatusLine is a progress report from the feeder. The firmware prints these over serial so that
// the host can follow a running sequence: "FEEDER <state> <kind> <message>"
type StatusLine struct {
	State   State
	Kind    Kind
	Message string
}

func (l StatusLine) String() string {
	out := StatusPrefix + " " + l.State.String() + " " + string(l.Kind)
	if l.Message != "" {
		out += " " + l.Message
	}
	return out
}

// ParseStatusLine parses a line printed with StatusLine.String. Lines that are not status
// lines return false
func ParseStatusLine(line string) (StatusLine, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, StatusPrefix+" ") {
		return StatusLine{}, false
	}

	parts := strings.SplitN(strings.TrimPrefix(line, StatusPrefix+" "), " ", 3)
	if len(parts) < 2 {
		return StatusLine{}, false
	}

	state, ok := ParseState(parts[0])
	if !ok {
		return StatusLine{}, false
	}

	l := StatusLine{State: state, Kind: Kind(parts[1])}
	if len(parts) == 3 {
		l.Message = parts[2]
	}
	return l, true
}
