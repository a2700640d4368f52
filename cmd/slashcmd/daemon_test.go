package main

import (
	"context"
	"testing"
)

func TestDaemonCommand_Subcommands(t *testing.T) {
	cmd := getDaemonCommand()
	if cmd.Use != "daemon" {
		t.Errorf("Expected command name 'daemon', got '%s'", cmd.Use)
	}
	for _, name := range []string{"run", "start", "status"} {
		sub, _, err := cmd.Find([]string{name})
		if err != nil || sub.Name() != name {
			t.Errorf("Expected subcommand '%s'", name)
		}
		if sub.RunE == nil {
			t.Errorf("Expected RunE for '%s'", name)
		}
	}
}

func TestDaemonReachable_NoSocket(t *testing.T) {
	cfg := testConfig()
	cfg.Daemon.Socket = t.TempDir() + "/none.sock"

	if daemonReachable(context.Background(), cfg) {
		t.Error("Expected no daemon at a missing socket")
	}
}

func TestRunDaemonForeground_NeedsKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := testConfig()
	cfg.AI.GroqAPIKey = ""

	if err := runDaemonForeground(context.Background(), cfg); err == nil {
		t.Error("Expected error without a Groq key")
	}
}
