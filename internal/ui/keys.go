package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Escape     key.Binding
	Confirm    key.Binding

	// Navigation
	Up   key.Binding
	Down key.Binding

	// Todo actions
	Add           key.Binding
	Toggle        key.Binding
	Edit          key.Binding
	Bump          key.Binding
	Delete        key.Binding
	DeleteDone    key.Binding
	Filter        key.Binding
	HideCompleted key.Binding
	Refresh       key.Binding
	ClearAll      key.Binding
	ViewLogs      key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "Cycle theme"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Cancel"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),

		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Add todo"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "Toggle done"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "Edit title"),
		),
		Bump: key.NewBinding(
			key.WithKeys("+"),
			key.WithHelp("+", "Raise priority"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Delete"),
		),
		DeleteDone: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "Delete completed"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Filter"),
		),
		HideCompleted: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "Hide completed"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh"),
		),
		ClearAll: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Reset all stores"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Toggle logs"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Toggle, k.Delete, k.Filter, k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Confirm, k.Escape},
		{k.Add, k.Toggle, k.Edit, k.Bump},
		{k.Delete, k.DeleteDone, k.Filter, k.HideCompleted},
		{k.Refresh, k.ClearAll, k.ViewLogs},
		{k.CycleTheme, k.Help, k.Quit},
	}
}
