//go:build unix

package bridge

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// EnvDaemon marks a process started by ExecSpawner.
const EnvDaemon = "SLASHCMD_DAEMON"

// ExecSpawner re-executes a binary with the daemon flag in its own session,
// detached from the terminal.
type ExecSpawner struct {
	Executable string
	Args       []string
}

// NewExecSpawner spawns the running binary with --daemon
func NewExecSpawner() (*ExecSpawner, error) {
	executable, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate executable: %w", err)
	}
	return &ExecSpawner{Executable: executable, Args: []string{"--daemon"}}, nil
}

// Spawn starts the daemon and returns without waiting for it.
func (s *ExecSpawner) Spawn() error {
	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	cmd := exec.Command(s.Executable, s.Args...)
	cmd.Env = append(os.Environ(), EnvDaemon+"=1")
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	return cmd.Process.Release()
}
