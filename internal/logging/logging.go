// Package logging builds the zap loggers used by the CLI and the daemon.
// Both write to files under the config directory: the CLI owns the terminal
// while a prompt is shown, and the daemon has no terminal at all.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log file names under <config dir>/logs
const (
	DaemonLog = "daemon.log"
	CLILog    = "slashcmd.log"
)

// Options configures New
type Options struct {
	// Dir is the log directory.
	Dir string
	// File is the file name inside Dir.
	File string
	// Level is a zap level name; unknown names fall back to info.
	Level string
	// Verbose forces the debug level.
	Verbose bool
}

// ParseLevel parses a level name, defaulting to info
func ParseLevel(name string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// New opens the log file and returns a logger writing to it. The returned
// close function syncs the logger and closes the file.
func New(opts Options) (*zap.Logger, func() error, error) {
	if err := os.MkdirAll(opts.Dir, 0700); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(opts.Dir, opts.File)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	level := ParseLevel(opts.Level)
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	logger := zap.New(newCore(zapcore.AddSync(f), level))
	closeFn := func() error {
		_ = logger.Sync()
		return f.Close()
	}
	return logger, closeFn, nil
}

func newCore(ws zapcore.WriteSyncer, level zapcore.Level) zapcore.Core {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), ws, level)
}

// Named returns a logger for the given component
func Named(logger *zap.Logger, component string) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger.Named(component)
}
