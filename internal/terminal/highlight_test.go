package terminal

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"

	"github.com/Lin-Jiong-HDU/slashcmd/internal/ai"
)

func TestFormatExplanation_DropsFences(t *testing.T) {
	text := "[SAFE] Lists files.\n```\nfs.list('.')\n```\nDone."

	lines := FormatExplanation(text, ai.StyleHuman)

	var plain []string
	for _, l := range lines {
		plain = append(plain, ansi.Strip(l))
	}
	want := []string{"[SAFE] Lists files.", "  fs.list('.')", "Done."}
	if len(plain) != len(want) {
		t.Fatalf("Expected %d lines, got %d: %q", len(want), len(plain), plain)
	}
	for i := range want {
		if plain[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, plain[i], want[i])
		}
	}
}

func TestFormatExplanation_HighlightsCode(t *testing.T) {
	text := "[CAUTION] Moves files.\n```typescript\nconst x: number = 1;\n```"

	lines := FormatExplanation(text, ai.StyleTypeScript)

	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d: %q", len(lines), lines)
	}
	if lines[1] == "  const x: number = 1;" {
		t.Error("Expected code line to carry highlighting")
	}
	if got := ansi.Strip(lines[1]); got != "  const x: number = 1;" {
		t.Errorf("Expected highlighted text to match source, got %q", got)
	}
}

func TestFormatExplanation_UnterminatedFence(t *testing.T) {
	lines := FormatExplanation("[SAFE] x\n```\nprint(1)", ai.StylePython)

	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %q", lines)
	}
	if !strings.Contains(ansi.Strip(lines[1]), "print(1)") {
		t.Errorf("Expected code kept, got %q", lines[1])
	}
}

func TestFormatSafety_NormalizesBoldTags(t *testing.T) {
	got := ansi.Strip(FormatSafety("**[DANGER]** Deletes everything"))
	if got != "[DANGER] Deletes everything" {
		t.Errorf("Expected normalised tag, got %q", got)
	}
}

func TestHighlightCode_HumanIsPlain(t *testing.T) {
	lines := HighlightCode("step one\nstep two", ai.StyleHuman)

	want := []string{"  step one", "  step two"}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}
