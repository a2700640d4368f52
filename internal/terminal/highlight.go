package terminal

import (
	"bytes"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/Lin-Jiong-HDU/slashcmd/internal/ai"
)

// Styles
var (
	safeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	cautionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	dangerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	commandStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	dangerCmd    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

var lexers = map[ai.Style]string{
	ai.StyleTypeScript: "typescript",
	ai.StylePython:     "python",
	ai.StyleRuby:       "ruby",
}

const codeIndent = "  "

// FormatSafety colours the safety tags in a line.
func FormatSafety(line string) string {
	line = ai.NormalizeTags(line)
	line = strings.ReplaceAll(line, "[SAFE]", safeStyle.Render("[SAFE]"))
	line = strings.ReplaceAll(line, "[CAUTION]", cautionStyle.Render("[CAUTION]"))
	line = strings.ReplaceAll(line, "[DANGER]", dangerStyle.Render("[DANGER]"))
	return line
}

// FormatExplanation turns explanation text into display lines. Prose gets
// coloured tags; fenced code is highlighted for the style and indented. The
// fence markers themselves are dropped.
func FormatExplanation(text string, style ai.Style) []string {
	var lines []string
	var code []string
	inFence := false

	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if inFence {
				lines = append(lines, HighlightCode(strings.Join(code, "\n"), style)...)
				code = code[:0]
			}
			inFence = !inFence
			continue
		}
		if inFence {
			code = append(code, line)
			continue
		}
		lines = append(lines, FormatSafety(line))
	}

	// unterminated fence
	if inFence && len(code) > 0 {
		lines = append(lines, HighlightCode(strings.Join(code, "\n"), style)...)
	}
	return lines
}

// HighlightCode highlights pseudo-code for style. The human style, and any
// highlighter failure, yields plain indented lines.
func HighlightCode(code string, style ai.Style) []string {
	plain := func() []string {
		var out []string
		for _, l := range strings.Split(code, "\n") {
			out = append(out, codeIndent+l)
		}
		return out
	}

	lexer, ok := lexers[style]
	if !ok {
		return plain()
	}

	var buf bytes.Buffer
	if err := quick.Highlight(&buf, code, lexer, "terminal256", "monokai"); err != nil {
		return plain()
	}

	raw := strings.Split(buf.String(), "\n")
	// the formatter may leave a trailing reset sequence on its own line
	for len(raw) > 0 && strings.TrimSpace(ansi.Strip(raw[len(raw)-1])) == "" {
		raw = raw[:len(raw)-1]
	}

	out := make([]string, 0, len(raw))
	for _, l := range raw {
		out = append(out, codeIndent+l)
	}
	return out
}
