package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the plan editor.
type KeyMap struct {
	// Navigation
	Up   key.Binding
	Down key.Binding
	Back key.Binding

	// Editing
	EditHours      key.Binding
	EditLabel      key.Binding
	EditStart      key.Binding
	EditEnd        key.Binding
	EditDepartment key.Binding
	Add            key.Binding
	Remove         key.Binding

	// Commit
	Commit        key.Binding
	ToggleFolder  key.Binding
	ToggleRelease key.Binding

	Help        key.Binding
	Quit        key.Binding
	ConfirmQuit key.Binding
	Submit      key.Binding
	Cancel      key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "previous row"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next row"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back to dashboard"),
		),
		EditHours: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "edit hours"),
		),
		EditLabel: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "edit label"),
		),
		EditStart: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "edit start date"),
		),
		EditEnd: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit end date"),
		),
		EditDepartment: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "change department"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add department row"),
		),
		Remove: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "remove row"),
		),
		Commit: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "create tasks in ABAS"),
		),
		ToggleFolder: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "toggle task folder"),
		),
		ToggleRelease: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "toggle release"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ConfirmQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
		),
	}
}

// ShortHelp returns key bindings to be shown in the mini help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the expanded help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Back},
		{k.EditHours, k.EditLabel, k.EditStart, k.EditEnd, k.EditDepartment},
		{k.Add, k.Remove, k.Commit, k.ToggleFolder, k.ToggleRelease},
		{k.Help, k.Quit},
	}
}
