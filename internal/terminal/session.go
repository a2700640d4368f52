package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/x/ansi"
	"go.uber.org/zap"

	"github.com/Lin-Jiong-HDU/slashcmd/internal/ai"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/core/security"
)

// ErrTimeout is returned when no command arrives within the resolve timeout.
var ErrTimeout = errors.New("timed out waiting for command")

// Prompt texts
const (
	msgGenerating = "Generating command..."
	msgLoading    = "Loading explanation..."
	msgConfirm    = "Press Enter to run, Ctrl+C to cancel... "
	msgDanger     = "⚠️  DANGER: Press Enter to copy to clipboard, Ctrl+C to cancel... "
	msgCopied     = "⚠️  Copied to clipboard. Paste to run."
	msgCancelled  = "Cancelled."
)

// Options are the session's layout and timing settings
type Options struct {
	// Reserved is the most explanation lines shown. The terminal height may
	// lower it; it never changes once the command is drawn.
	Reserved       int
	PollInterval   time.Duration
	ResolveTimeout time.Duration
	Style          ai.Style
}

// DefaultOptions returns the default session settings
func DefaultOptions() Options {
	return Options{
		Reserved:       15,
		PollInterval:   100 * time.Millisecond,
		ResolveTimeout: 30 * time.Second,
		Style:          ai.StyleTypeScript,
	}
}

// Job is one invocation's work. Command receives exactly one value. When the
// source streams the explanation alongside the command, Explanation is set;
// otherwise Explain starts a separate fetch once the command is known.
type Job struct {
	Query        string
	ForceExplain bool
	Command      <-chan ai.Result[ai.CommandResult]
	Explanation  <-chan ai.Result[string]
	Explain      func(command string) <-chan ai.Result[string]
}

// Outcome is how a session ended
type Outcome struct {
	State       security.State
	Command     string
	Explanation *ai.Explanation
	Verdict     security.Verdict
	Copied      bool
}

// Executed reports whether the caller should run the command.
func (o Outcome) Executed() bool {
	return o.State == security.StateExecuted
}

// Session drives one interactive invocation
type Session struct {
	term       Terminal
	opts       Options
	keys       KeySource
	clipboard  func(string) error
	input      io.Reader
	logger     *zap.Logger
	controller *security.SecurityController
}

// Option configures a Session
type Option func(*Session)

// WithKeys sets the key source used in raw mode
func WithKeys(src KeySource) Option {
	return func(s *Session) { s.keys = src }
}

// WithClipboard sets the clipboard writer used for dangerous commands
func WithClipboard(fn func(string) error) Option {
	return func(s *Session) { s.clipboard = fn }
}

// WithInput sets the line reader used when raw mode is unavailable
func WithInput(r io.Reader) Option {
	return func(s *Session) { s.input = r }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithController sets the security controller
func WithController(c *security.SecurityController) Option {
	return func(s *Session) { s.controller = c }
}

// NewSession creates a session on term
func NewSession(term Terminal, opts Options, options ...Option) *Session {
	def := DefaultOptions()
	if opts.Reserved < 0 {
		opts.Reserved = 0
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = def.ResolveTimeout
	}

	s := &Session{
		term:      term,
		opts:      opts,
		keys:      StdinKeys,
		clipboard: clipboard.WriteAll,
		input:     os.Stdin,
		logger:    zap.NewNop(),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.controller == nil {
		s.controller = security.NewSecurityController(nil)
	}
	return s
}

// Run shows the command and its explanation and waits for the user's
// decision. Raw mode is restored on every return path. When raw mode cannot
// be entered the session continues in line mode.
func (s *Session) Run(ctx context.Context, job Job) (Outcome, error) {
	if err := s.term.EnterRawMode(); err != nil {
		s.logger.Warn("raw mode unavailable, using line mode", zap.Error(err))
		return s.runLineMode(ctx, job)
	}
	defer func() {
		if err := s.term.ExitRawMode(); err != nil {
			s.logger.Warn("failed to restore terminal", zap.Error(err))
		}
	}()

	keys, stopKeys, err := s.keys()
	if err != nil {
		s.logger.Warn("key reader unavailable, using line mode", zap.Error(err))
		_ = s.term.ExitRawMode()
		return s.runLineMode(ctx, job)
	}
	defer stopKeys()

	s.write(ansi.HideCursor)
	defer s.write(ansi.ShowCursor)

	s.write("\r" + ansi.EraseEntireLine + subtleStyle.Render(msgGenerating))
	result, err := s.awaitCommand(ctx, job.Command, keys)
	if err != nil {
		s.write("\r" + ansi.EraseEntireLine)
		if errors.Is(err, context.Canceled) {
			s.write(msgCancelled + "\r\n")
			return Outcome{State: security.StateCancelled}, nil
		}
		return Outcome{}, err
	}

	machine, verdict := s.controller.Start(job.Query, result, job.ForceExplain)
	out := Outcome{Command: result.Command, Verdict: verdict}
	if verdict.Reason != "" {
		s.logger.Info("auto-execution withheld", zap.String("reason", verdict.Reason))
	}

	if machine.AutoExecute() == security.ActionExecute {
		s.write("\r" + ansi.EraseEntireLine + result.Command + "\r\n")
		out.State = machine.State()
		return out, nil
	}

	explanations := s.explanationSource(job, result.Command)

	width, height, err := s.term.Size()
	if err != nil {
		s.logger.Debug("terminal size unknown", zap.Error(err))
	}
	lay := newLayout(result.Command, width, height, s.opts.Reserved)
	scr := newScreen(s.term, lay.width)
	scr.open(s.initialRows(lay))

	if explanations == nil {
		machine.ExplanationFailed()
		scr.set(lay.promptRow, promptFor(machine.State()))
	}

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	var copyErr error
	for !machine.Done() {
		// explanation first, then keys, neither blocking
		select {
		case r := <-explanations:
			explanations = nil
			s.applyExplanation(machine, r, lay, scr, &out)
		default:
		}

		select {
		case k, ok := <-keys:
			if !ok {
				keys = nil
				machine.Press(security.InputCancel)
				break
			}
			copyErr = s.applyKey(machine, k, result.Command, &out)
		default:
		}

		if machine.Done() {
			break
		}

		select {
		case <-ctx.Done():
			machine.Press(security.InputCancel)
		case <-ticker.C:
		}
	}

	out.State = machine.State()
	s.finish(scr, lay, out, copyErr)
	return out, nil
}

// awaitCommand blocks for the command, bounded by the resolve timeout.
// Ctrl+C and Esc give up early.
func (s *Session) awaitCommand(ctx context.Context, ch <-chan ai.Result[ai.CommandResult], keys <-chan Key) (ai.CommandResult, error) {
	timer := time.NewTimer(s.opts.ResolveTimeout)
	defer timer.Stop()

	for {
		select {
		case r := <-ch:
			if r.Err != nil {
				return ai.CommandResult{}, r.Err
			}
			return r.Value, nil
		case k, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			if k == KeyCtrlC || k == KeyEsc {
				return ai.CommandResult{}, context.Canceled
			}
		case <-timer.C:
			return ai.CommandResult{}, ErrTimeout
		case <-ctx.Done():
			return ai.CommandResult{}, ctx.Err()
		}
	}
}

func (s *Session) explanationSource(job Job, command string) <-chan ai.Result[string] {
	if job.Explanation != nil {
		return job.Explanation
	}
	if job.Explain != nil {
		return job.Explain(command)
	}
	return nil
}

func (s *Session) initialRows(lay layout) []string {
	rows := make([]string, 0, lay.rows())
	for i := 0; i < lay.reserved; i++ {
		rows = append(rows, subtleStyle.Render(placeholder))
	}
	if lay.reserved > 0 {
		rows = append(rows, "")
	}
	for _, line := range lay.cmdLines {
		rows = append(rows, commandStyle.Render(line))
	}
	return append(rows, subtleStyle.Render(msgLoading))
}

func (s *Session) applyExplanation(m *security.Machine, r ai.Result[string], lay layout, scr *screen, out *Outcome) {
	if m.State() != security.StateAwaitExplanation {
		return
	}
	if r.Err != nil {
		s.logger.Warn("explanation failed", zap.Error(r.Err))
		m.ExplanationFailed()
		for i := 0; i < lay.reserved; i++ {
			scr.set(i, "")
		}
		scr.set(lay.promptRow, promptFor(m.State()))
		return
	}

	exp := ai.ParseExplanation(r.Value)
	out.Explanation = &exp
	m.Explained(exp.Tag)

	lines := FormatExplanation(exp.Raw, s.opts.Style)
	for i := 0; i < lay.reserved; i++ {
		line := ""
		if i < len(lines) {
			line = lines[i]
		}
		scr.set(i, line)
	}

	if m.State() == security.StateDangerConfirm {
		for i, line := range lay.cmdLines {
			scr.set(lay.cmdRow+i, dangerCmd.Render(line))
		}
	}
	scr.set(lay.promptRow, promptFor(m.State()))
}

func (s *Session) applyKey(m *security.Machine, k Key, command string, out *Outcome) error {
	var action security.Action
	switch k {
	case KeyEnter:
		action = m.Press(security.InputEnter)
	case KeyCtrlC, KeyEsc:
		action = m.Press(security.InputCancel)
	default:
		return nil
	}

	if action != security.ActionCopy {
		return nil
	}
	if err := s.clipboard(command); err != nil {
		s.logger.Warn("failed to copy command", zap.Error(err))
		return err
	}
	out.Copied = true
	return nil
}

func (s *Session) finish(scr *screen, lay layout, out Outcome, copyErr error) {
	switch {
	case out.State == security.StateExecuted:
		scr.set(lay.promptRow, "")
		return
	case out.Copied:
		scr.set(lay.promptRow, warningStyle.Render(msgCopied))
	case copyErr != nil:
		scr.set(lay.promptRow, fmt.Sprintf("%s Failed to copy to clipboard: %v", msgCancelled, copyErr))
	default:
		scr.set(lay.promptRow, msgCancelled)
	}
	scr.leave(lay.promptRow)
}

func promptFor(state security.State) string {
	switch state {
	case security.StateDangerConfirm:
		return dangerStyle.Render(msgDanger)
	case security.StateConfirm:
		return msgConfirm
	default:
		return subtleStyle.Render(msgLoading)
	}
}

func (s *Session) write(str string) {
	_, _ = io.WriteString(s.term, str)
}
