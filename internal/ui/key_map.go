package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
//
// Plain letters are typed into the focused field, so every action sits on a control or navigation key.
type keyMap struct {
	next  key.Binding
	prev  key.Binding
	enter key.Binding
	login key.Binding
	scan  key.Binding
	up    key.Binding
	down  key.Binding
	help  key.Binding
	quit  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		next:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		prev:  key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev field")),
		enter: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "load image")),
		login: key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "sign in with Google")),
		scan:  key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "scan drive")),
		up:    key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "up")),
		down:  key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "down")),
		help:  key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "more")),
		quit:  key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.scan, k.login, k.next, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.next, k.prev, k.enter},
		{k.login, k.scan},
		{k.up, k.down},
		{k.help, k.quit},
	}
}
