package daemon

import (
	"sync/atomic"
	"time"
)

// State is the process-wide daemon state. It is built once when the daemon
// starts and shared with the keep-alive jobs, which only read the shutdown
// flag.
type State struct {
	started      time.Time
	lastActivity atomic.Int64 // unix nanoseconds
	shutdown     atomic.Bool
}

// NewState creates a state whose last activity is now.
func NewState(now time.Time) *State {
	s := &State{started: now}
	s.lastActivity.Store(now.UnixNano())
	return s
}

// Touch records activity at now. Older timestamps are ignored so the
// recorded value never goes backwards.
func (s *State) Touch(now time.Time) {
	ts := now.UnixNano()
	for {
		cur := s.lastActivity.Load()
		if ts <= cur {
			return
		}
		if s.lastActivity.CompareAndSwap(cur, ts) {
			return
		}
	}
}

// LastActivity returns the most recent recorded activity.
func (s *State) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// IdleFor returns how long the daemon has been idle as of now.
func (s *State) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastActivity())
}

// Uptime returns the time since the daemon started.
func (s *State) Uptime(now time.Time) time.Duration {
	return now.Sub(s.started)
}

// Shutdown marks the daemon as stopping.
func (s *State) Shutdown() {
	s.shutdown.Store(true)
}

// ShuttingDown reports whether Shutdown was called.
func (s *State) ShuttingDown() bool {
	return s.shutdown.Load()
}

// Phase is the supervisor's lifecycle position.
type Phase int32

const (
	PhaseStarting Phase = iota
	PhaseWarmingResolver
	PhaseServing
	PhaseIdleTimeout
	PhaseShuttingDown
)

func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseWarmingResolver:
		return "warming-resolver"
	case PhaseServing:
		return "serving"
	case PhaseIdleTimeout:
		return "idle-timeout"
	case PhaseShuttingDown:
		return "shutting-down"
	default:
		return "unknown"
	}
}
