package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the viewer.
type keyMap struct {
	// Playback
	Next     key.Binding
	Previous key.Binding
	Hold     key.Binding

	// Interactions
	Like    key.Binding
	Comment key.Binding

	// Owner actions
	Delete   key.Binding
	Download key.Binding

	// General
	Retry key.Binding
	Help  key.Binding
	Quit  key.Binding

	// Comment input
	Confirm key.Binding
	Cancel  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Next: key.NewBinding(
			key.WithKeys("right", " "),
			key.WithHelp("→/space", "Next post"),
		),
		Previous: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "Previous post"),
		),
		Hold: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "Hold/resume"),
		),

		Like: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Like"),
		),
		Comment: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Comment"),
		),

		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Delete post (owner)"),
		),
		Download: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Save media (owner)"),
		),

		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Retry"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q/esc", "Quit"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Send comment"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Cancel"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Previous, k.Hold},
		{k.Like, k.Comment},
		{k.Delete, k.Download},
		{k.Help, k.Quit},
	}
}
