package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// keyMap defines key bindings for the history browser
type keyMap struct {
	Up     key
	Down   key
	Top    key
	Bottom key
	Detail key
	Copy   key
	Delete key
	Back   key
	Quit   key
}

// key represents a key binding with help text
type key struct {
	tea.Key
	help string
}

// shortHelp returns the bindings shown in the status bar
func (k keyMap) shortHelp() []key {
	return []key{k.Detail, k.Copy, k.Delete, k.Quit}
}

// detailHelp returns the bindings shown in the detail view
func (k keyMap) detailHelp() []key {
	return []key{k.Copy, k.Back, k.Quit}
}

// fullHelp returns all key bindings
func (k keyMap) fullHelp() []key {
	return []key{
		k.Up, k.Down,
		k.Top, k.Bottom,
		k.Detail, k.Copy, k.Delete,
		k.Back, k.Quit,
	}
}

// Help generates the help view
func (k keyMap) Help() helpWrapper {
	return helpWrapper{keyMap: k}
}

type helpWrapper struct {
	keyMap keyMap
}

// String returns the help text
func (h helpWrapper) String() string {
	var s string
	for _, k := range h.keyMap.fullHelp() {
		if k.help != "" {
			s += k.help + " "
		}
	}
	return s
}

// View renders bindings as a status bar line
func (h helpWrapper) View(bindings []key) string {
	var s string
	for _, k := range bindings {
		s += "[" + k.help + "] "
	}
	return s
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key{
			Key:  tea.Key{Type: tea.KeyRunes, Runes: []rune{'k'}},
			help: "↑/k up",
		},
		Down: key{
			Key:  tea.Key{Type: tea.KeyRunes, Runes: []rune{'j'}},
			help: "↓/j down",
		},
		Top: key{
			Key:  tea.Key{Type: tea.KeyRunes, Runes: []rune{'g'}},
			help: "gg top",
		},
		Bottom: key{
			Key:  tea.Key{Type: tea.KeyRunes, Runes: []rune{'G'}},
			help: "G bottom",
		},
		Detail: key{
			Key:  tea.Key{Type: tea.KeyEnter},
			help: "enter details",
		},
		Copy: key{
			Key:  tea.Key{Type: tea.KeyRunes, Runes: []rune{'c'}},
			help: "c copy",
		},
		Delete: key{
			Key:  tea.Key{Type: tea.KeyRunes, Runes: []rune{'d'}},
			help: "d delete",
		},
		Back: key{
			Key:  tea.Key{Type: tea.KeyEsc},
			help: "esc back",
		},
		Quit: key{
			Key:  tea.Key{Type: tea.KeyRunes, Runes: []rune{'q'}},
			help: "q quit",
		},
	}
}
