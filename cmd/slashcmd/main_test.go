package main

import (
	"testing"

	"github.com/Lin-Jiong-HDU/slashcmd/internal/ai"
)

func TestRootCommand_HasFlags(t *testing.T) {
	shorthands := map[string]string{
		"style":           "s",
		"non-interactive": "n",
		"quick":           "q",
		"explain":         "e",
		"local":           "l",
		"print-only":      "",
		"daemon":          "",
	}
	for name, short := range shorthands {
		f := rootCmd.Flags().Lookup(name)
		if f == nil {
			t.Errorf("Expected flag '%s' to exist", name)
			continue
		}
		if f.Shorthand != short {
			t.Errorf("Expected shorthand '%s' for flag '%s', got '%s'", short, name, f.Shorthand)
		}
	}

	if f := rootCmd.Flags().Lookup("daemon"); f != nil && !f.Hidden {
		t.Error("Expected --daemon to be hidden")
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	for _, name := range []string{"daemon", "history", "config"} {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("Expected subcommand '%s', got %v (%v)", name, cmd, err)
		}
	}
}

func TestSelectMode(t *testing.T) {
	tests := []struct {
		name  string
		flags rootFlags
		tty   bool
		want  mode
	}{
		{"interactive on a terminal", rootFlags{}, true, modeInteractive},
		{"piped", rootFlags{}, false, modeNonInteractive},
		{"non-interactive flag", rootFlags{nonInteractive: true}, true, modeNonInteractive},
		{"quick", rootFlags{quick: true}, true, modeQuick},
		{"print only wins", rootFlags{printOnly: true, quick: true}, true, modePrintOnly},
		{"explain stays interactive", rootFlags{explain: true}, true, modeInteractive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := selectMode(tt.flags, tt.tty); got != tt.want {
				t.Errorf("selectMode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		flagStyle   string
		configStyle string
		wantQuery   string
		wantStyle   ai.Style
	}{
		{"config default", []string{"list", "files"}, "", "typescript", "list files", ai.StyleTypeScript},
		{"flag overrides config", []string{"list files"}, "python", "typescript", "list files", ai.StylePython},
		{"trailing keyword", []string{"list", "files", "ruby"}, "python", "typescript", "list files", ai.StyleRuby},
		{"leading keyword", []string{"human", "disk", "usage"}, "", "typescript", "disk usage", ai.StyleHuman},
		{"single word is a query", []string{"python"}, "", "ruby", "python", ai.StyleRuby},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, style, err := parseQuery(tt.args, tt.flagStyle, tt.configStyle)
			if err != nil {
				t.Fatalf("parseQuery failed: %v", err)
			}
			if query != tt.wantQuery {
				t.Errorf("query = %q, want %q", query, tt.wantQuery)
			}
			if style != tt.wantStyle {
				t.Errorf("style = %v, want %v", style, tt.wantStyle)
			}
		})
	}
}

func TestParseQuery_BadStyle(t *testing.T) {
	if _, _, err := parseQuery([]string{"ls"}, "cobol", "typescript"); err == nil {
		t.Error("Expected error for unknown style")
	}
}

func TestExitError(t *testing.T) {
	err := &exitError{code: 130}
	if err.Error() != "exit status 130" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}
