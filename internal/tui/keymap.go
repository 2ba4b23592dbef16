package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the monitor view's keyboard shortcuts.
type KeyMap struct {
	Quit           key.Binding
	ToggleEvidence key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q/esc", "end call"),
		),
		ToggleEvidence: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "toggle evidence"),
		),
	}
}

// ShortHelp returns the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.ToggleEvidence}
}

// FullHelp returns every binding in one column.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
