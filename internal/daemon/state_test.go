package daemon

import (
	"testing"
	"time"
)

func TestState_TouchIsMonotonic(t *testing.T) {
	start := time.Unix(1000, 0)
	s := NewState(start)

	s.Touch(start.Add(10 * time.Second))
	s.Touch(start.Add(5 * time.Second))

	if got := s.LastActivity(); !got.Equal(start.Add(10 * time.Second)) {
		t.Errorf("Expected last activity to stay at +10s, got %v", got.Sub(start))
	}
}

func TestState_IdleFor(t *testing.T) {
	start := time.Unix(1000, 0)
	s := NewState(start)

	if idle := s.IdleFor(start.Add(3 * time.Second)); idle != 3*time.Second {
		t.Errorf("Expected 3s idle, got %v", idle)
	}

	s.Touch(start.Add(2 * time.Second))
	if idle := s.IdleFor(start.Add(3 * time.Second)); idle != time.Second {
		t.Errorf("Expected 1s idle, got %v", idle)
	}
}

func TestState_Shutdown(t *testing.T) {
	s := NewState(time.Now())
	if s.ShuttingDown() {
		t.Fatal("Expected fresh state not to be shutting down")
	}
	s.Shutdown()
	if !s.ShuttingDown() {
		t.Error("Expected shutdown flag to be set")
	}
}

func TestPhase_String(t *testing.T) {
	phases := map[Phase]string{
		PhaseStarting:        "starting",
		PhaseWarmingResolver: "warming-resolver",
		PhaseServing:         "serving",
		PhaseIdleTimeout:     "idle-timeout",
		PhaseShuttingDown:    "shutting-down",
		Phase(99):            "unknown",
	}
	for p, want := range phases {
		if p.String() != want {
			t.Errorf("Phase(%d).String() = %q, want %q", p, p.String(), want)
		}
	}
}
