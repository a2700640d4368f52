package main

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Lin-Jiong-HDU/slashcmd/internal/ai"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/ai/edge"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/ai/gemini"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/ai/openai"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/bridge"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/daemon"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/logging"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/storage"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/terminal"
)

var errNoGroqKey = errors.New("no Groq API key configured (set GROQ_API_KEY or ai.groq_api_key)")

// openLogger opens the named log file, falling back to a no-op logger when
// the file cannot be opened.
func openLogger(cfg *storage.Config, file string) (*zap.Logger, func()) {
	dir, err := storage.GetConfigDir()
	if err != nil {
		return zap.NewNop(), func() {}
	}
	logger, closeFn, err := logging.New(logging.Options{
		Dir:     filepath.Join(dir, "logs"),
		File:    file,
		Level:   cfg.Log.Level,
		Verbose: flags.verbose,
	})
	if err != nil {
		return zap.NewNop(), func() {}
	}
	return logger, func() { _ = closeFn() }
}

func newResolver(cfg *storage.Config) (ai.Resolver, error) {
	if cfg.AI.GroqAPIKey == "" {
		return nil, errNoGroqKey
	}
	return openai.NewClient(
		cfg.AI.GroqAPIKey,
		cfg.AI.GroqModel,
		cfg.AI.GroqBaseURL,
		cfg.AI.TimeoutDuration(),
		openai.WithMaxTokens(cfg.AI.MaxTokens),
		openai.WithTemperature(cfg.AI.Temperature),
	), nil
}

// newExplainerFactory returns nil when no Gemini key is configured
func newExplainerFactory(cfg *storage.Config) daemon.ExplainerFactory {
	if cfg.AI.GeminiAPIKey == "" {
		return nil
	}
	geminiCfg := gemini.Config{
		APIKey:    cfg.AI.GeminiAPIKey,
		Model:     cfg.AI.GeminiModel,
		Timeout:   cfg.AI.TimeoutDuration(),
		MaxTokens: cfg.AI.MaxTokens,
	}
	return func(ctx context.Context) (ai.Explainer, error) {
		return gemini.NewClient(ctx, geminiCfg)
	}
}

func daemonConfig(cfg *storage.Config) daemon.Config {
	dc := daemon.Config{
		SocketPath:        cfg.Daemon.Socket,
		IdleTimeout:       time.Duration(cfg.Daemon.IdleTimeout) * time.Second,
		KeepAliveInterval: time.Duration(cfg.Daemon.KeepAliveInterval) * time.Second,
		PollQuantum:       time.Duration(cfg.Daemon.PollQuantumMs) * time.Millisecond,
		RequestTimeout:    cfg.AI.TimeoutDuration(),
	}
	if kind, err := bridge.ParseKind(cfg.Source); err == nil && kind == bridge.Proxied {
		dc.Edge = edge.NewClient(cfg.Edge.URL, cfg.Edge.Token, cfg.AI.TimeoutDuration())
	}
	return dc
}

func newDaemon(cfg *storage.Config, logger *zap.Logger) (*daemon.Daemon, error) {
	resolver, err := newResolver(cfg)
	if err != nil {
		return nil, err
	}
	return daemon.New(daemonConfig(cfg), resolver, newExplainerFactory(cfg), logging.Named(logger, "daemon")), nil
}

// sourceKind picks the backend; --local forces direct
func sourceKind(cfg *storage.Config, local bool) (bridge.Kind, error) {
	if local {
		return bridge.Direct, nil
	}
	return bridge.ParseKind(cfg.Source)
}

func newBridge(cfg *storage.Config, kind bridge.Kind, style ai.Style, logger *zap.Logger) (*bridge.Bridge, error) {
	logger = logging.Named(logger, "bridge")
	bc := bridge.Config{
		Kind:         kind,
		SocketPath:   cfg.Daemon.Socket,
		Style:        style,
		NewExplainer: newExplainerFactory(cfg),
		Logger:       logger,
	}

	switch kind {
	case bridge.Proxied:
		bc.Proxy = edge.NewClient(cfg.Edge.URL, cfg.Edge.Token, cfg.AI.TimeoutDuration())
	default:
		resolver, err := newResolver(cfg)
		if err != nil {
			return nil, err
		}
		bc.Resolver = resolver
		if cfg.Daemon.AutoSpawn {
			if spawner, err := bridge.NewExecSpawner(); err == nil {
				bc.Spawner = spawner
			} else {
				logger.Debug("daemon autospawn unavailable", zap.Error(err))
			}
		}
	}
	return bridge.New(bc)
}

func sessionOptions(cfg *storage.Config, style ai.Style) terminal.Options {
	return terminal.Options{
		Reserved:       cfg.UI.ReservedLines,
		PollInterval:   time.Duration(cfg.UI.PollIntervalMs) * time.Millisecond,
		ResolveTimeout: time.Duration(cfg.UI.ResolveTimeout) * time.Second,
		Style:          style,
	}
}

func historyPath(cfg *storage.Config) (string, error) {
	if cfg.History.Path != "" {
		return cfg.History.Path, nil
	}
	dir, err := storage.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}
