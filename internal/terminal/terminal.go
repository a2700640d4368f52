package terminal

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/term"
)

// ErrTerminal wraps raw-mode and size failures.
var ErrTerminal = errors.New("terminal unavailable")

// Terminal abstracts low-level terminal operations so the session can run
// against a real terminal or a recorded one in tests.
type Terminal interface {
	EnterRawMode() error
	ExitRawMode() error
	Size() (width, height int, err error)
	Write(p []byte) (n int, err error)
}

// ProcessTerminal is a real terminal backed by os.Stdin, os.Stdout and x/term.
type ProcessTerminal struct {
	mu       sync.Mutex
	oldState *term.State
}

// NewProcessTerminal returns a ProcessTerminal ready for use.
func NewProcessTerminal() *ProcessTerminal {
	return &ProcessTerminal{}
}

// EnterRawMode switches stdin to raw mode, saving the previous state.
func (t *ProcessTerminal) EnterRawMode() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("%w: entering raw mode: %v", ErrTerminal, err)
	}
	t.oldState = state
	return nil
}

// ExitRawMode restores the terminal to its previous state.
func (t *ProcessTerminal) ExitRawMode() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.oldState == nil {
		return nil
	}
	if err := term.Restore(int(os.Stdin.Fd()), t.oldState); err != nil {
		return fmt.Errorf("%w: exiting raw mode: %v", ErrTerminal, err)
	}
	t.oldState = nil
	return nil
}

// Size returns the current terminal dimensions.
func (t *ProcessTerminal) Size() (width, height int, err error) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: getting terminal size: %v", ErrTerminal, err)
	}
	return w, h, nil
}

// Write sends bytes to os.Stdout.
func (t *ProcessTerminal) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}
