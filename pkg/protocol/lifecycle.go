package protocol

import "sync/atomic"

// State is a handler lifecycle state.
//
//	Created -> Starting -> Running -> Stopping -> Stopped
//	              |
//	              +-> Created (bind/connect failure)
type State int32

// State constants.
const (
	StateCreated State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Lifecycle enforces handler state transitions. The zero value is Created.
type Lifecycle struct {
	state atomic.Int32
}

// State returns the current state.
func (l *Lifecycle) State() State {
	return State(l.state.Load())
}

// Running reports whether the state is Running.
func (l *Lifecycle) Running() bool {
	return l.State() == StateRunning
}

// BeginStart moves Created to Starting. It fails with ErrAlreadyRunning when
// a start is in progress or done, and ErrStopped when the handler is spent.
func (l *Lifecycle) BeginStart() error {
	if l.state.CompareAndSwap(int32(StateCreated), int32(StateStarting)) {
		return nil
	}
	switch l.State() {
	case StateStopping, StateStopped:
		return ErrStopped
	default:
		return ErrAlreadyRunning
	}
}

// FailStart returns a Starting handler to Created.
func (l *Lifecycle) FailStart() {
	l.state.CompareAndSwap(int32(StateStarting), int32(StateCreated))
}

// Started moves Starting to Running.
func (l *Lifecycle) Started() {
	l.state.CompareAndSwap(int32(StateStarting), int32(StateRunning))
}

// BeginStop moves Running to Stopping. It returns false when the handler is
// not running, in which case Stop must be a no-op.
func (l *Lifecycle) BeginStop() bool {
	return l.state.CompareAndSwap(int32(StateRunning), int32(StateStopping))
}

// Stopped moves Stopping to Stopped.
func (l *Lifecycle) Stopped() {
	l.state.CompareAndSwap(int32(StateStopping), int32(StateStopped))
}
