// Package state tracks the lifecycle of an engine.
package state

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrInvalidState is returned if engine method cannot be executed at this moment.
	ErrInvalidState = errors.New("invalid state")
)

// State identifies one of the possible states engine can be in.
type State uint

const (
	// Ready means that engine accepts mutations and can render offline or be run.
	Ready State = iota + 1
	// Running means that render loop is active.
	Running
	// Closed means that engine was shut down.
	Closed
	// Halted means that render side hit a fatal error. Only close is allowed.
	Halted
)

// Event triggers a state transition.
type Event uint

const (
	// Run starts render loop.
	Run Event = iota + 1
	// Done is sent when render loop returns without errors.
	Done
	// Close shuts the engine down.
	Close
	// Halt is sent when render loop hits a fatal error.
	Halt
)

// Machine is a synchronous state machine. It is safe for concurrent use.
type Machine struct {
	mu    sync.Mutex
	state State
}

// New returns machine in Ready state.
func New() *Machine {
	return &Machine{state: Ready}
}

// State returns current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Handle applies event. If transition is not allowed, state is not changed
// and ErrInvalidState is returned.
func (m *Machine) Handle(e Event) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := transition(m.state, e)
	if err != nil {
		return m.state, err
	}
	m.state = next
	return next, nil
}

func transition(s State, e Event) (State, error) {
	switch s {
	case Ready:
		switch e {
		case Run:
			return Running, nil
		case Close:
			return Closed, nil
		case Halt:
			return Halted, nil
		}
	case Running:
		switch e {
		case Done:
			return Ready, nil
		case Close:
			return Closed, nil
		case Halt:
			return Halted, nil
		}
	case Halted:
		if e == Close {
			return Closed, nil
		}
	}
	return s, fmt.Errorf("%w: %v in %v", ErrInvalidState, e, s)
}

func (s State) String() string {
	switch s {
	case Ready:
		return "state.Ready"
	case Running:
		return "state.Running"
	case Closed:
		return "state.Closed"
	case Halted:
		return "state.Halted"
	default:
		return "state.Unknown"
	}
}

func (e Event) String() string {
	switch e {
	case Run:
		return "event.Run"
	case Done:
		return "event.Done"
	case Close:
		return "event.Close"
	case Halt:
		return "event.Halt"
	default:
		return "event.Unknown"
	}
}
