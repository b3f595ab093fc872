package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Toggle  key.Binding
	Delete  key.Binding
	Add     key.Binding
	Edit    key.Binding
	Undo    key.Binding
	Switch  key.Binding
	Refresh key.Binding
	Filter  key.Binding
	Submit  key.Binding
	Back    key.Binding
	Dismiss key.Binding
	Quit    key.Binding
	Force   key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Toggle:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "done/undo")),
		Delete:  key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "delete")),
		Add:     key.NewBinding(key.WithKeys("a", "i"), key.WithHelp("a", "new")),
		Edit:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Undo:    key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo delete")),
		Switch:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Filter:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		Submit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add")),
		Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "to list")),
		Dismiss: key.NewBinding(key.WithKeys("enter", "esc"), key.WithHelp("enter", "dismiss")),
		Quit:    key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		Force:   key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

// listHelp is shown while a list has focus.
func (k keyMap) listHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Delete, k.Edit, k.Undo, k.Add, k.Switch, k.Filter, k.Refresh, k.Quit}
}

// formHelp is shown while the input has focus.
func (k keyMap) formHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Switch, k.Back}
}

func (k keyMap) editHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}
