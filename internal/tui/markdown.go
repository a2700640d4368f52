package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/Lin-Jiong-HDU/slashcmd/internal/ai"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/storage"
)

// Renderer renders history entries as markdown
type Renderer struct {
	term *glamour.TermRenderer
}

// NewRenderer creates a Renderer wrapping at width
func NewRenderer(width int) (*Renderer, error) {
	if width <= 0 {
		width = 80
	}
	term, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &Renderer{term: term}, nil
}

// Render renders markdown, falling back to the source text
func (r *Renderer) Render(markdown string) string {
	out, err := r.term.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}

// entryMarkdown builds the detail document for e
func entryMarkdown(e storage.Entry) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## %s\n\n", e.Query)
	fmt.Fprintf(&b, "```sh\n%s\n```\n\n", e.Command)
	fmt.Fprintf(&b, "- **time:** %s\n", e.Time.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "- **outcome:** %s\n", e.Outcome)
	if e.Outcome == storage.OutcomeExecuted {
		fmt.Fprintf(&b, "- **exit code:** %d\n", e.ExitCode)
	}
	if e.Source != "" {
		fmt.Fprintf(&b, "- **source:** %s\n", e.Source)
	}

	if e.Explanation != "" {
		exp := ai.ParseExplanation(e.Explanation)
		fmt.Fprintf(&b, "\n### %s\n\n%s\n", exp.Tag, strings.TrimSpace(exp.Body))
		if exp.Code != "" {
			lang := e.Style
			if lang == ai.StyleHuman.String() {
				lang = ""
			}
			fmt.Fprintf(&b, "\n```%s\n%s\n```\n", lang, exp.Code)
		}
	}
	return b.String()
}
