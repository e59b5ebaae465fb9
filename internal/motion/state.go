package motion

import "fmt"

// State is the phase of an exercise attempt.
type State int

const (
	Quiet State = iota
	GoingBack
	AtTarget
	ReturningForward
	Completed
	Errored
)

var stateNames = [...]string{
	Quiet:            "quiet",
	GoingBack:        "going_back",
	AtTarget:         "at_target",
	ReturningForward: "returning_forward",
	Completed:        "completed",
	Errored:          "errored",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown motion state %q", text)
}

// StatusKind classifies a single Update result.
type StatusKind int

const (
	InProgress StatusKind = iota
	Error
	Done
)

func (k StatusKind) String() string {
	switch k {
	case InProgress:
		return "in_progress"
	case Error:
		return "error"
	case Done:
		return "completed"
	default:
		return fmt.Sprintf("status(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k StatusKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Deviation reasons reported when a session enters Errored.
const (
	ReasonForwardOrSideways = "moved too far forward, right, or left"
	ReasonTooFarBack        = "moved too far back"
	ReasonLateralDrift      = "drifted right/left while returning"
)

// Status is the notification attached to a Result. Error and Done are
// reported only on the update that enters Errored or Completed.
type Status struct {
	Kind   StatusKind `json:"kind"`
	Reason string     `json:"reason,omitempty"`
}

// Result is the classification of one sample.
type Result struct {
	State          State   `json:"state"`
	SignedDistance float64 `json:"signed_distance"`
	Status         Status  `json:"status"`
}
