package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// Runner hands a confirmed command to the shell and reports its exit status
type Runner interface {
	Run(ctx context.Context, command string) (int, error)
}

// Executor runs commands through sh -c with the caller's terminal attached
type Executor struct {
	shell   string
	timeout time.Duration
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

// NewExecutor creates a new executor. A zero timeout lets the command run
// for as long as it likes.
func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{
		shell:   "sh",
		timeout: timeout,
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
}

// WithIO returns a copy of e using the given streams
func (e *Executor) WithIO(stdin io.Reader, stdout, stderr io.Writer) *Executor {
	c := *e
	c.stdin, c.stdout, c.stderr = stdin, stdout, stderr
	return &c
}

// Run executes command and returns its exit code. A command that ran and
// failed is not an error; only a shell that could not be started is.
func (e *Executor) Run(ctx context.Context, command string) (int, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.shell, "-c", command)
	cmd.Stdin = e.stdin
	cmd.Stdout = e.stdout
	cmd.Stderr = e.stderr
	// children that outlive a killed shell must not hold Wait open
	cmd.WaitDelay = 2 * time.Second

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		// killed by a signal; report it the way a shell would
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal()), nil
		}
		return 128 + int(syscall.SIGKILL), nil
	}
	return 1, fmt.Errorf("failed to execute: %w", err)
}
