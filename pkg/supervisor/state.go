package supervisor

import "fmt"

// State is the lifecycle state of the companion for one launcher run
type State int32

const (
	// StateNotStarted means no spawn has been attempted or the last one failed
	StateNotStarted State = iota
	// StateStarting means a spawn is in flight
	StateStarting
	// StateRunning means a process handle is held in the slot
	StateRunning
	// StateStopped means the slot was taken and closed; it is terminal
	StateStopped
)

// String returns a human-readable state name
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}
