package security

import (
	"github.com/Lin-Jiong-HDU/slashcmd/internal/ai"
)

// State is a position in the confirmation flow.
type State int

const (
	StateAutoExecute State = iota
	StateAwaitExplanation
	StateConfirm
	StateDangerConfirm
	StateCancelled
	StateExecuted
)

func (s State) String() string {
	switch s {
	case StateAutoExecute:
		return "auto-execute"
	case StateAwaitExplanation:
		return "await-explanation"
	case StateConfirm:
		return "confirm"
	case StateDangerConfirm:
		return "danger-confirm"
	case StateCancelled:
		return "cancelled"
	case StateExecuted:
		return "executed"
	default:
		return "unknown"
	}
}

// Input is a user key that matters to the machine.
type Input int

const (
	InputEnter Input = iota
	InputCancel
)

// Action is the side effect the caller must perform after a transition.
type Action int

const (
	ActionNone Action = iota
	ActionExecute
	ActionCopy
)

// Machine tracks one command through the confirmation flow. It performs no
// I/O; callers act on the returned Action.
type Machine struct {
	state State
}

// NewMachine starts the flow for a command.
func NewMachine(safe, wantsExplanation bool) *Machine {
	if safe && !wantsExplanation {
		return &Machine{state: StateAutoExecute}
	}
	return &Machine{state: StateAwaitExplanation}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Done reports whether the machine reached Executed or Cancelled.
func (m *Machine) Done() bool {
	return m.state == StateExecuted || m.state == StateCancelled
}

// AutoExecute completes an AutoExecute start. It is a no-op in every other
// state.
func (m *Machine) AutoExecute() Action {
	if m.state != StateAutoExecute {
		return ActionNone
	}
	m.state = StateExecuted
	return ActionExecute
}

// Explained applies an arrived explanation.
func (m *Machine) Explained(tag ai.Tag) {
	if m.state != StateAwaitExplanation {
		return
	}
	if tag == ai.TagDanger {
		m.state = StateDangerConfirm
		return
	}
	m.state = StateConfirm
}

// ExplanationFailed falls back to plain confirmation.
func (m *Machine) ExplanationFailed() {
	if m.state == StateAwaitExplanation {
		m.state = StateConfirm
	}
}

// Press applies a key. Enter is ignored while the explanation is pending.
func (m *Machine) Press(in Input) Action {
	if in == InputCancel {
		switch m.state {
		case StateAwaitExplanation, StateConfirm, StateDangerConfirm:
			m.state = StateCancelled
		}
		return ActionNone
	}

	switch m.state {
	case StateConfirm:
		m.state = StateExecuted
		return ActionExecute
	case StateDangerConfirm:
		// a dangerous command is handed over, never run
		m.state = StateCancelled
		return ActionCopy
	}
	return ActionNone
}
