package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// CopiedMsg is sent when a command was copied to the clipboard
type CopiedMsg struct {
	ID  string
	Err error
}

// DeletedMsg is sent when an entry was removed from the history
type DeletedMsg struct {
	ID  string
	Err error
}

// Model is the interface for the TUI model
type Model interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (tea.Model, tea.Cmd)
	View() string
}
