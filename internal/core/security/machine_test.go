package security

import (
	"testing"

	"github.com/Lin-Jiong-HDU/slashcmd/internal/ai"
)

func TestNewMachine_StartState(t *testing.T) {
	tests := []struct {
		name  string
		safe  bool
		wants bool
		want  State
	}{
		{"safe without explanation intent", true, false, StateAutoExecute},
		{"safe with explanation intent", true, true, StateAwaitExplanation},
		{"unsafe", false, false, StateAwaitExplanation},
		{"unsafe with explanation intent", false, true, StateAwaitExplanation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewMachine(tt.safe, tt.wants).State(); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestMachine_AutoExecuteNeedsNoKeys(t *testing.T) {
	m := NewMachine(true, false)

	if action := m.AutoExecute(); action != ActionExecute {
		t.Fatalf("Expected ActionExecute, got %v", action)
	}
	if m.State() != StateExecuted || !m.Done() {
		t.Errorf("Expected Executed, got %v", m.State())
	}
}

func TestMachine_AutoExecuteOnlyFromAutoState(t *testing.T) {
	m := NewMachine(false, false)

	if action := m.AutoExecute(); action != ActionNone {
		t.Errorf("Expected no action, got %v", action)
	}
	if m.State() != StateAwaitExplanation {
		t.Errorf("Expected AwaitExplanation, got %v", m.State())
	}
}

func TestMachine_EnterIgnoredWhileAwaiting(t *testing.T) {
	m := NewMachine(false, false)

	if action := m.Press(InputEnter); action != ActionNone {
		t.Errorf("Expected no action, got %v", action)
	}
	if m.State() != StateAwaitExplanation {
		t.Errorf("Expected AwaitExplanation, got %v", m.State())
	}
}

func TestMachine_ConfirmFlow(t *testing.T) {
	for _, tag := range []ai.Tag{ai.TagSafe, ai.TagCaution} {
		m := NewMachine(false, false)
		m.Explained(tag)
		if m.State() != StateConfirm {
			t.Fatalf("Expected Confirm for %v, got %v", tag, m.State())
		}
		if action := m.Press(InputEnter); action != ActionExecute {
			t.Errorf("Expected ActionExecute, got %v", action)
		}
		if m.State() != StateExecuted {
			t.Errorf("Expected Executed, got %v", m.State())
		}
	}
}

func TestMachine_DangerNeverExecutes(t *testing.T) {
	inputs := [][]Input{
		{InputEnter},
		{InputCancel},
		{InputEnter, InputEnter},
		{InputCancel, InputEnter},
	}

	for _, seq := range inputs {
		m := NewMachine(false, false)
		m.Explained(ai.TagDanger)
		if m.State() != StateDangerConfirm {
			t.Fatalf("Expected DangerConfirm, got %v", m.State())
		}

		for _, in := range seq {
			if action := m.Press(in); action == ActionExecute {
				t.Fatalf("DANGER command executed for inputs %v", seq)
			}
		}
		if m.State() != StateCancelled {
			t.Errorf("Expected Cancelled after %v, got %v", seq, m.State())
		}
	}
}

func TestMachine_DangerEnterCopies(t *testing.T) {
	m := NewMachine(true, true)
	m.Explained(ai.TagDanger)

	if action := m.Press(InputEnter); action != ActionCopy {
		t.Errorf("Expected ActionCopy, got %v", action)
	}
}

func TestMachine_ExplanationFailureFallsBackToConfirm(t *testing.T) {
	m := NewMachine(false, false)
	m.ExplanationFailed()

	if m.State() != StateConfirm {
		t.Fatalf("Expected Confirm, got %v", m.State())
	}

	// a late explanation is ignored once confirmation is showing
	m.Explained(ai.TagDanger)
	if m.State() != StateConfirm {
		t.Errorf("Expected Confirm to stick, got %v", m.State())
	}
}

func TestMachine_CancelFromEveryWaitingState(t *testing.T) {
	setups := map[string]func(*Machine){
		"await":   func(m *Machine) {},
		"confirm": func(m *Machine) { m.Explained(ai.TagSafe) },
		"danger":  func(m *Machine) { m.Explained(ai.TagDanger) },
	}

	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			m := NewMachine(false, false)
			setup(m)
			if action := m.Press(InputCancel); action != ActionNone {
				t.Errorf("Expected no action, got %v", action)
			}
			if m.State() != StateCancelled {
				t.Errorf("Expected Cancelled, got %v", m.State())
			}
		})
	}
}

func TestMachine_TerminalStatesAreFinal(t *testing.T) {
	m := NewMachine(false, false)
	m.Explained(ai.TagSafe)
	m.Press(InputCancel)

	if action := m.Press(InputEnter); action != ActionNone {
		t.Errorf("Expected no action after cancel, got %v", action)
	}
	if m.State() != StateCancelled {
		t.Errorf("Expected Cancelled, got %v", m.State())
	}
}
