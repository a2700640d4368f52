package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/Lin-Jiong-HDU/slashcmd/internal/storage"
)

// View renders the UI
func (m model) View() string {
	if m.detail {
		return m.renderDetail()
	}
	return m.renderList()
}

func (m model) renderList() string {
	s := titleStyle.Render(" slashcmd history ") + "\n\n"

	var content string
	if len(m.entries) == 0 {
		content = subtleStyle.Render("No history yet") + "\n"
	} else {
		width := m.width
		if width <= 0 {
			width = 80
		}
		first, last := m.visibleRange()
		for i := first; i < last; i++ {
			content += m.renderEntry(i, width) + "\n"
		}
	}

	footer := m.renderFooter(m.keys.shortHelp())

	// push footer to the bottom
	if m.height > 0 {
		padding := m.height - 2 - countLines(content) - countLines(footer)
		for i := 0; i < padding; i++ {
			content += "\n"
		}
	}

	return s + content + footer
}

// visibleRange keeps the cursor on screen when the list is taller than the window
func (m model) visibleRange() (int, int) {
	rows := len(m.entries)
	if m.height > 0 {
		// header and footer take seven rows
		rows = m.height - 7
		if rows < 1 {
			rows = 1
		}
	}
	if rows >= len(m.entries) {
		return 0, len(m.entries)
	}
	first := m.cursor - rows + 1
	if first < 0 {
		first = 0
	}
	return first, first + rows
}

func (m model) renderEntry(i, width int) string {
	e := m.entries[i]

	cursor := " "
	if i == m.cursor {
		cursor = ">"
	}

	when := e.Time.Format("01-02 15:04")
	prefix := fmt.Sprintf("%s %s %s ", cursor, outcomeIndicator(e.Outcome), subtleStyle.Render(when))
	cmd := ansi.Truncate(e.Command, width-ansi.StringWidth(prefix)-1, "…")

	if i == m.cursor {
		cmd = selectedStyle.Render(cmd)
	}
	return prefix + cmd
}

func (m model) renderDetail() string {
	e, ok := m.selected()
	if !ok {
		return m.renderList()
	}

	doc := entryMarkdown(e)
	body := doc
	if m.renderer != nil {
		body = m.renderer.Render(doc)
	}

	var status string
	if m.status != "" {
		status = warningStyle.Render(m.status) + "\n"
	}
	return body + status + m.renderFooter(m.keys.detailHelp())
}

func (m model) renderFooter(bindings []key) string {
	var status string
	if m.status != "" && !m.detail {
		status = warningStyle.Render(m.status) + "\n"
	}
	return "\n" + status + statusBarStyle.Render(m.keys.Help().View(bindings)) + "\n"
}

// countLines counts the number of lines in a string
func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

func outcomeIndicator(o storage.Outcome) string {
	switch o {
	case storage.OutcomeExecuted:
		return successStyle.Render("✓")
	case storage.OutcomeCopied:
		return warningStyle.Render("⎘")
	case storage.OutcomeCancelled:
		return errorStyle.Render("✗")
	case storage.OutcomePrinted:
		return subtleStyle.Render("→")
	default:
		return subtleStyle.Render("?")
	}
}

// Styles
var (
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	subtleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("235")).
			Padding(0, 1).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("241")).
			MarginTop(1)
)
