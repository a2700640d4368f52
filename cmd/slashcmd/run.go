package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Lin-Jiong-HDU/slashcmd/internal/ai"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/core"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/core/security"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/logging"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/storage"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/terminal"
)

// mode is how one query is presented
type mode int

const (
	modeInteractive mode = iota
	modeNonInteractive
	modeQuick
	modePrintOnly
)

// selectMode picks the presentation. The prompt needs a terminal on both
// ends; anything else prints.
func selectMode(f rootFlags, tty bool) mode {
	switch {
	case f.printOnly:
		return modePrintOnly
	case f.quick:
		return modeQuick
	case f.nonInteractive || !tty:
		return modeNonInteractive
	default:
		return modeInteractive
	}
}

// parseQuery joins the arguments and picks the style: a style word at either
// end of the query wins over the flag, which wins over the configured default.
func parseQuery(args []string, flagStyle, configStyle string) (string, ai.Style, error) {
	name := configStyle
	if flagStyle != "" {
		name = flagStyle
	}
	style, err := ai.ParseStyle(name)
	if err != nil {
		return "", style, err
	}

	query := strings.TrimSpace(strings.Join(args, " "))
	if q, s, ok := ai.StyleFromQuery(query); ok {
		query, style = q, s
	}
	return query, style, nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func runRoot(cmd *cobra.Command, args []string) error {
	cfg := storage.GetConfig()

	if flags.daemon {
		return runDaemonForeground(cmd.Context(), cfg)
	}
	if len(args) == 0 {
		return cmd.Help()
	}

	query, style, err := parseQuery(args, flags.style, cfg.UI.Style)
	if err != nil {
		return err
	}
	if query == "" {
		return errors.New("empty query")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, closeLog := openLogger(cfg, logging.CLILog)
	defer closeLog()

	kind, err := sourceKind(cfg, flags.local)
	if err != nil {
		return err
	}
	src, err := newBridge(cfg, kind, style, logger)
	if err != nil {
		return err
	}

	opts := []core.EngineOption{
		core.WithLogger(logging.Named(logger, "engine")),
		core.WithSourceName(kind.String()),
		core.WithResolveTimeout(time.Duration(cfg.UI.ResolveTimeout) * time.Second),
	}
	if cfg.History.Enabled {
		if h := historyRecorder(cfg, logger); h != nil {
			opts = append(opts, core.WithHistory(h))
		}
	}
	engine := core.NewEngine(src, core.NewExecutor(0), opts...)

	req := core.Request{Query: query, Style: style, ForceExplain: flags.explain}
	tty := isTerminal(os.Stdin) && isTerminal(os.Stdout)
	logger.Debug("query", zap.String("query", query), zap.Stringer("style", style), zap.Stringer("source", kind))

	switch selectMode(flags, tty) {
	case modePrintOnly, modeQuick:
		return engine.RunPlain(ctx, req, core.PlainOptions{}, os.Stdout, os.Stderr)
	case modeNonInteractive:
		plain := core.PlainOptions{Explain: true, Color: isTerminal(os.Stdout)}
		return engine.RunPlain(ctx, req, plain, os.Stdout, os.Stderr)
	}

	policy := cfg.Security

	session := terminal.NewSession(
		terminal.NewProcessTerminal(),
		sessionOptions(cfg, style),
		terminal.WithLogger(logging.Named(logger, "terminal")),
		terminal.WithController(security.NewSecurityController(&policy)),
	)

	code, err := engine.RunInteractive(ctx, req, session)
	if err != nil {
		return err
	}
	if code != 0 {
		return &exitError{code: code}
	}
	return nil
}

// historyRecorder opens the store only around each write. A write that
// finds it locked by another invocation is logged and skipped.
func historyRecorder(cfg *storage.Config, logger *zap.Logger) *storage.HistoryFile {
	path, err := historyPath(cfg)
	if err != nil {
		logger.Warn("history disabled", zap.Error(err))
		return nil
	}
	return storage.NewHistoryFile(path, storage.HistoryOptions{Logger: logging.Named(logger, "history")})
}
