package lifecycle

import "time"

// State is a position in the server state machine.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

var stateNames = [...]string{
	StateStopped:  "Stopped",
	StateStarting: "Starting",
	StateRunning:  "Running",
	StateStopping: "Stopping",
	StateCrashed:  "Crashed",
}

// String returns the name reported on /healthz.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Active reports whether the component holds resources that Stop releases.
func (s State) Active() bool {
	return s == StateStarting || s == StateRunning
}

// Restartable reports whether Start may be called.
func (s State) Restartable() bool {
	return s == StateStopped || s == StateCrashed
}

// EventEmitter observes state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// Manager is the state machine driven by a component's Start and Stop.
type Manager interface {
	State() State
	CanStart() bool
	CanStop() bool

	// TransitionTo moves to newState, failing when the move is not allowed
	// from the current state.
	TransitionTo(newState State, reason string) error

	// Go runs fn in a goroutine that WaitWithTimeout waits for.
	Go(fn func())

	// WaitWithTimeout returns ErrShutdownTimeout if tracked goroutines are
	// still running after timeout.
	WaitWithTimeout(timeout time.Duration) error
}
