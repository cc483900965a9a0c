package app

// State is where a scheduler is in its lifecycle. A scheduler that stopped
// itself on backpressure is Crashed and may be started again.
type State int

const (
	StateStopped State = iota
	StateRunning
	StateCrashed
)

var stateNames = [...]string{
	StateStopped: "Stopped",
	StateRunning: "Running",
	StateCrashed: "Crashed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// CanStart reports whether Start is allowed from s.
func (s State) CanStart() bool {
	return s != StateRunning
}
