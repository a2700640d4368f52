package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Lin-Jiong-HDU/slashcmd/internal/bridge"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/daemon"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/ipc"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/logging"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/storage"
)

const statusTimeout = 500 * time.Millisecond

// getDaemonCommand returns the daemon command
func getDaemonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the background daemon",
		Long: `The daemon keeps connections to the backends warm so later queries
skip the connection setup. It exits on its own after a period of inactivity.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonForeground(cmd.Context(), storage.GetConfig())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := storage.GetConfig()
			if daemonReachable(cmd.Context(), cfg) {
				fmt.Fprintln(cmd.OutOrStdout(), "daemon already running")
				return nil
			}
			spawner, err := bridge.NewExecSpawner()
			if err != nil {
				return err
			}
			if err := spawner.Spawn(); err != nil {
				return fmt.Errorf("failed to start daemon: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "daemon started")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Report whether the daemon is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := storage.GetConfig()
			if daemonReachable(cmd.Context(), cfg) {
				fmt.Fprintf(cmd.OutOrStdout(), "running (%s)\n", cfg.Daemon.Socket)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "not running")
			return &exitError{code: 1}
		},
	})

	return cmd
}

func daemonReachable(ctx context.Context, cfg *storage.Config) bool {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()
	return ipc.Reachable(ctx, cfg.Daemon.Socket)
}

// runDaemonForeground serves until SIGINT, SIGTERM or the idle timeout. A
// daemon that finds another one already serving exits quietly.
func runDaemonForeground(ctx context.Context, cfg *storage.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, closeLog := openLogger(cfg, logging.DaemonLog)
	defer closeLog()

	d, err := newDaemon(cfg, logger)
	if err != nil {
		logger.Error("daemon not started", zap.Error(err))
		return err
	}

	logger.Info("daemon starting", zap.String("socket", cfg.Daemon.Socket), zap.Int("pid", os.Getpid()))
	err = d.Run(ctx)
	switch {
	case errors.Is(err, daemon.ErrAlreadyRunning):
		logger.Info("another daemon is serving, exiting")
		return nil
	case err != nil:
		logger.Error("daemon failed", zap.Error(err))
		return err
	}
	logger.Info("daemon stopped")
	return nil
}
