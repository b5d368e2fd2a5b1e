package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts for the application.
// Each binding includes the actual keys and help text for display.
type KeyMap struct {
	// Navigation
	Up    key.Binding
	Down  key.Binding
	Tab   key.Binding
	Enter key.Binding
	Back  key.Binding
	Quit  key.Binding

	// Projects
	NewProject    key.Binding
	RenameProject key.Binding
	DeleteProject key.Binding
	Confirm       key.Binding

	// Board
	AddNode     key.Binding
	EditTitle   key.Binding
	EditNotes   key.Binding
	CycleStatus key.Binding
	EditColor   key.Binding
	MoveUp      key.Binding
	MoveDown    key.Binding
	MoveLeft    key.Binding
	MoveRight   key.Binding
	Link        key.Binding
	Delete      key.Binding
	Undo        key.Binding
	Redo        key.Binding
	Copy        key.Binding
	AttachImage key.Binding
	ToggleMap   key.Binding
	SaveNow     key.Binding

	// Editing
	Submit key.Binding
}

// DefaultKeyMap returns the default keybindings for Nodeflow.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/↓  j/k", "Move up/down"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↑/↓  j/k", "Move up/down"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("⇥ (Tab)", "Nodes/links"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("⏎", "Open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "Back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "Quit"),
		),

		NewProject: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "New project"),
		),
		RenameProject: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Rename"),
		),
		DeleteProject: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Delete"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "Confirm"),
		),

		AddNode: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Add step"),
		),
		EditTitle: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "Title"),
		),
		EditNotes: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "Notes"),
		),
		CycleStatus: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Status"),
		),
		EditColor: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Color"),
		),
		MoveUp: key.NewBinding(
			key.WithKeys("shift+up", "K"),
			key.WithHelp("⇧+arrows", "Move card"),
		),
		MoveDown: key.NewBinding(
			key.WithKeys("shift+down", "J"),
			key.WithHelp("⇧+arrows", "Move card"),
		),
		MoveLeft: key.NewBinding(
			key.WithKeys("shift+left", "H"),
			key.WithHelp("⇧+arrows", "Move card"),
		),
		MoveRight: key.NewBinding(
			key.WithKeys("shift+right", "L"),
			key.WithHelp("⇧+arrows", "Move card"),
		),
		Link: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Link"),
		),
		Delete: key.NewBinding(
			key.WithKeys("x", "delete"),
			key.WithHelp("x", "Delete"),
		),
		Undo: key.NewBinding(
			key.WithKeys("u", "ctrl+z"),
			key.WithHelp("u", "Undo"),
		),
		Redo: key.NewBinding(
			key.WithKeys("ctrl+r", "ctrl+y"),
			key.WithHelp("ctrl+r", "Redo"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "Copy notes"),
		),
		AttachImage: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "Attach image"),
		),
		ToggleMap: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "Map"),
		),
		SaveNow: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "Save"),
		),

		Submit: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "Save notes"),
		),
	}
}
