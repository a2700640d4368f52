//go:build !unix

package bridge

import "errors"

// EnvDaemon marks a process started by ExecSpawner.
const EnvDaemon = "SLASHCMD_DAEMON"

// ExecSpawner is unavailable on this platform
type ExecSpawner struct {
	Executable string
	Args       []string
}

// NewExecSpawner returns a spawner whose Spawn always fails
func NewExecSpawner() (*ExecSpawner, error) {
	return &ExecSpawner{}, nil
}

// Spawn is not supported here
func (s *ExecSpawner) Spawn() error {
	return errors.New("detached daemon not supported on this platform")
}
