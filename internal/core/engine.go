package core

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/Lin-Jiong-HDU/slashcmd/internal/ai"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/storage"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/terminal"
)

// ExitCancelled is the exit status of a cancelled invocation
const ExitCancelled = 130

// Source resolves commands and explanations
type Source interface {
	Stream(ctx context.Context, query string) (<-chan ai.Result[ai.CommandResult], <-chan ai.Result[string])
	ExplainAsync(ctx context.Context, command string, style ai.Style) <-chan ai.Result[string]
	ResolveCommand(ctx context.Context, query string) (ai.CommandResult, error)
	ResolveExplanation(ctx context.Context, command string, style ai.Style) (ai.Explanation, error)
}

// Recorder keeps the invocation history
type Recorder interface {
	Save(e *storage.Entry) error
	SetExitCode(id string, code int) error
}

// Request is one user query
type Request struct {
	Query        string
	Style        ai.Style
	ForceExplain bool
}

// PlainOptions control non-interactive output
type PlainOptions struct {
	// Explain prints the explanation after the command.
	Explain bool
	// Color highlights the explanation; off when stdout is not a terminal.
	Color bool
}

// Engine orchestrates one invocation
type Engine struct {
	source         Source
	runner         Runner
	history        Recorder
	sourceName     string
	resolveTimeout time.Duration
	logger         *zap.Logger
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithHistory records every invocation in r
func WithHistory(r Recorder) EngineOption {
	return func(e *Engine) { e.history = r }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithSourceName labels history entries with where they were resolved
func WithSourceName(name string) EngineOption {
	return func(e *Engine) { e.sourceName = name }
}

// WithResolveTimeout bounds command resolution in plain mode
func WithResolveTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.resolveTimeout = d }
}

// NewEngine creates a new engine
func NewEngine(source Source, runner Runner, opts ...EngineOption) *Engine {
	e := &Engine{
		source:         source,
		runner:         runner,
		resolveTimeout: 30 * time.Second,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunInteractive resolves the query inside session and hands a confirmed
// command to the runner. It returns the process exit status.
func (e *Engine) RunInteractive(ctx context.Context, req Request, session *terminal.Session) (int, error) {
	cmdCh, expCh := e.source.Stream(ctx, req.Query)

	job := terminal.Job{
		Query:        req.Query,
		ForceExplain: req.ForceExplain,
		Command:      cmdCh,
		Explanation:  expCh,
		Explain: func(command string) <-chan ai.Result[string] {
			return e.source.ExplainAsync(ctx, command, req.Style)
		},
	}

	out, err := session.Run(ctx, job)
	if err != nil {
		return 1, fmt.Errorf("failed to resolve command: %w", err)
	}

	entry := e.newEntry(req, out.Command, out.Verdict.Safe)
	if out.Explanation != nil {
		entry.Explanation = out.Explanation.Raw
	}

	switch {
	case out.Executed():
		entry.Outcome = storage.OutcomeExecuted
		e.record(&entry)

		code, err := e.runner.Run(ctx, out.Command)
		e.logger.Info("command finished", zap.String("command", out.Command), zap.Int("exit_code", code))
		if e.history != nil && entry.ID != "" {
			if err := e.history.SetExitCode(entry.ID, code); err != nil {
				e.logger.Warn("failed to record exit code", zap.Error(err))
			}
		}
		return code, err

	case out.Copied:
		entry.Outcome = storage.OutcomeCopied
		e.record(&entry)
		return 0, nil

	default:
		if out.Command != "" {
			entry.Outcome = storage.OutcomeCancelled
			e.record(&entry)
		}
		return ExitCancelled, nil
	}
}

// RunPlain prints the command, and optionally its explanation, without
// running anything. Explanation failures go to stderr and are not errors.
func (e *Engine) RunPlain(ctx context.Context, req Request, opts PlainOptions, stdout, stderr io.Writer) error {
	resolveCtx, cancel := context.WithTimeout(ctx, e.resolveTimeout)
	result, err := e.source.ResolveCommand(resolveCtx, req.Query)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to resolve command: %w", err)
	}

	fmt.Fprintln(stdout, result.Command)

	entry := e.newEntry(req, result.Command, result.Safe)
	entry.Outcome = storage.OutcomePrinted

	if opts.Explain {
		exp, err := e.source.ResolveExplanation(ctx, result.Command, req.Style)
		if err != nil {
			e.logger.Warn("explanation failed", zap.Error(err))
			fmt.Fprintf(stderr, "\n(explanation unavailable: %v)\n", err)
		} else {
			entry.Explanation = exp.Raw
			fmt.Fprintln(stdout)
			if opts.Color {
				for _, line := range terminal.FormatExplanation(exp.Raw, req.Style) {
					fmt.Fprintln(stdout, line)
				}
			} else {
				fmt.Fprintln(stdout, exp.Raw)
			}
		}
	}

	e.record(&entry)
	return nil
}

func (e *Engine) newEntry(req Request, command string, safe bool) storage.Entry {
	return storage.Entry{
		Query:   req.Query,
		Command: command,
		Safe:    safe,
		Style:   req.Style.String(),
		Source:  e.sourceName,
	}
}

func (e *Engine) record(entry *storage.Entry) {
	if e.history == nil {
		return
	}
	if err := e.history.Save(entry); err != nil {
		e.logger.Warn("failed to save history", zap.Error(err))
	}
}
