package tui

import (
	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Lin-Jiong-HDU/slashcmd/internal/storage"
)

// DeleteFunc removes a history entry
type DeleteFunc func(id string) error

// model is the Bubble Tea model for the history browser
type model struct {
	entries  []storage.Entry
	cursor   int
	detail   bool
	keys     keyMap
	status   string
	copy     func(string) error
	remove   DeleteFunc
	renderer *Renderer
	pendingG bool // Tracks if 'g' was pressed for 'gg' command
	width    int
	height   int
}

// Options configures the history browser
type Options struct {
	// Copy writes a command to the clipboard. Defaults to the system clipboard.
	Copy func(string) error
	// Delete removes an entry. Nil disables deletion.
	Delete DeleteFunc
}

// NewModel creates a history browser over entries, newest first
func NewModel(entries []storage.Entry) Model {
	return NewModelWithOptions(entries, Options{})
}

// NewModelWithOptions creates a history browser with custom handlers
func NewModelWithOptions(entries []storage.Entry, opts Options) Model {
	if opts.Copy == nil {
		opts.Copy = clipboard.WriteAll
	}
	return model{
		entries: entries,
		keys:    defaultKeyMap(),
		copy:    opts.Copy,
		remove:  opts.Delete,
	}
}

// Init initializes the model
func (m model) Init() tea.Cmd {
	return tea.WindowSize()
}

// Update handles messages
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if r, err := NewRenderer(m.width - 4); err == nil {
			m.renderer = r
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case CopiedMsg:
		if msg.Err != nil {
			m.status = "Failed to copy to clipboard: " + msg.Err.Error()
		} else {
			m.status = "Copied to clipboard."
		}
		return m, nil

	case DeletedMsg:
		if msg.Err != nil {
			m.status = "Failed to delete entry: " + msg.Err.Error()
			return m, nil
		}
		for i, e := range m.entries {
			if e.ID == msg.ID {
				m.entries = append(m.entries[:i:i], m.entries[i+1:]...)
				break
			}
		}
		if m.cursor >= len(m.entries) && m.cursor > 0 {
			m.cursor = len(m.entries) - 1
		}
		m.detail = false
		m.status = "Deleted."
		return m, nil
	}

	return m, nil
}

func (m model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "q" || msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	m.status = ""

	if msg.Type == tea.KeyEsc {
		if m.detail {
			m.detail = false
			return m, nil
		}
		return m, tea.Quit
	}

	if msg.Type == tea.KeyEnter {
		if len(m.entries) > 0 {
			m.detail = !m.detail
		}
		return m, nil
	}

	if !m.detail {
		m.navigate(msg.String())
	}

	switch msg.String() {
	case "c":
		if e, ok := m.selected(); ok {
			return m, m.copyCmd(e)
		}
	case "d":
		if e, ok := m.selected(); ok && m.remove != nil {
			return m, m.deleteCmd(e)
		}
	}

	return m, nil
}

// navigate moves the cursor with vim-style keys
func (m *model) navigate(k string) {
	switch k {
	case "k", "up":
		m.pendingG = false
		if m.cursor > 0 {
			m.cursor--
		}
	case "j", "down":
		m.pendingG = false
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "g":
		if m.pendingG {
			m.cursor = 0
			m.pendingG = false
		} else {
			m.pendingG = true
		}
	case "G":
		m.pendingG = false
		if len(m.entries) > 0 {
			m.cursor = len(m.entries) - 1
		}
	default:
		m.pendingG = false
	}
}

func (m model) selected() (storage.Entry, bool) {
	if m.cursor < 0 || m.cursor >= len(m.entries) {
		return storage.Entry{}, false
	}
	return m.entries[m.cursor], true
}

func (m model) copyCmd(e storage.Entry) tea.Cmd {
	copyFn := m.copy
	return func() tea.Msg {
		return CopiedMsg{ID: e.ID, Err: copyFn(e.Command)}
	}
}

func (m model) deleteCmd(e storage.Entry) tea.Cmd {
	remove := m.remove
	return func() tea.Msg {
		return DeletedMsg{ID: e.ID, Err: remove(e.ID)}
	}
}

// Run opens the history browser on the terminal
func Run(entries []storage.Entry, opts Options) error {
	p := tea.NewProgram(NewModelWithOptions(entries, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
