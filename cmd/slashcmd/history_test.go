package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Lin-Jiong-HDU/slashcmd/internal/storage"
)

func TestHistoryCommand_Flags(t *testing.T) {
	cmd := getHistoryCommand()
	if cmd.Use != "history" {
		t.Errorf("Expected command name 'history', got '%s'", cmd.Use)
	}
	for _, name := range []string{"limit", "plain"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("Expected flag '%s' to exist", name)
		}
	}
}

func TestPrintHistory(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	entries := []storage.Entry{
		{Time: now, Command: "make test", Outcome: storage.OutcomeExecuted, ExitCode: 2},
		{Time: now, Command: "rm -rf build", Outcome: storage.OutcomeCopied},
	}

	var buf bytes.Buffer
	if err := printHistory(&buf, entries); err != nil {
		t.Fatalf("printHistory failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header and 2 rows, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "TIME") {
		t.Errorf("Unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[1], "executed") || !strings.Contains(lines[1], " 2 ") || !strings.HasSuffix(lines[1], "make test") {
		t.Errorf("Unexpected row %q", lines[1])
	}
	if !strings.Contains(lines[2], "copied") || !strings.Contains(lines[2], "-") {
		t.Errorf("Unexpected row %q", lines[2])
	}
}

func TestPrintHistory_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := printHistory(&buf, nil); err != nil {
		t.Fatalf("printHistory failed: %v", err)
	}
	if buf.String() != "No history yet\n" {
		t.Errorf("Unexpected output %q", buf.String())
	}
}

func TestHistoryCommand_Plain(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if _, err := storage.InitConfig(); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	path, err := historyPath(storage.GetConfig())
	if err != nil {
		t.Fatalf("historyPath failed: %v", err)
	}
	h, err := storage.OpenHistory(path, storage.HistoryOptions{})
	if err != nil {
		t.Fatalf("OpenHistory failed: %v", err)
	}
	if err := h.Save(&storage.Entry{Query: "q", Command: "echo hi", Outcome: storage.OutcomePrinted}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	h.Close()

	cmd := getHistoryCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--plain"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(buf.String(), "echo hi") {
		t.Errorf("Expected entry in output, got %q", buf.String())
	}
}
