package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

type historyKeyMap struct {
	Up, Down, Open, Upload, Refresh, Dataset, Dismiss, Logout, Help, Quit key.Binding
}

// ShortHelp implements help.KeyMap.
func (k historyKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Open, k.Upload, k.Refresh, k.Quit, k.Help}
}

// FullHelp implements help.KeyMap.
func (k historyKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open, k.Dataset},
		{k.Upload, k.Refresh, k.Dismiss, k.Logout},
		{k.Help, k.Quit},
	}
}

type datasetKeyMap struct {
	Next, Prev, Jump, Export, Copy, Upload, Dismiss, Back key.Binding
}

// ShortHelp implements help.KeyMap.
func (k datasetKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Jump, k.Export, k.Copy, k.Upload, k.Back}
}

// FullHelp implements help.KeyMap.
func (k datasetKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Next, k.Prev, k.Jump}, {k.Export, k.Copy, k.Upload, k.Dismiss, k.Back}}
}

var historyKeys = historyKeyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Upload:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upload")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Dataset: key.NewBinding(key.WithKeys("tab", "d"), key.WithHelp("d", "current dataset")),
	Dismiss: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss alert")),
	Logout:  key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "log out")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
	Quit:    key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
}

var datasetKeys = datasetKeyMap{
	Next:    key.NewBinding(key.WithKeys("tab", "right", "l"), key.WithHelp("tab", "next view")),
	Prev:    key.NewBinding(key.WithKeys("shift+tab", "left", "h"), key.WithHelp("shift+tab", "previous view")),
	Jump:    key.NewBinding(key.WithKeys("1", "2", "3", "4"), key.WithHelp("1-4", "view")),
	Export:  key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "download report")),
	Copy:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy")),
	Upload:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upload")),
	Dismiss: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss alert")),
	Back:    key.NewBinding(key.WithKeys("esc", "q"), key.WithHelp("esc", "back")),
}
