package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up         key.Binding
	down       key.Binding
	focus      key.Binding
	enter      key.Binding
	back       key.Binding
	resume     key.Binding
	keep       key.Binding
	remove     key.Binding
	reason     key.Binding
	unsave     key.Binding
	regenerate key.Binding
	export     key.Binding
	quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		focus:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "suggestions/saved")),
		enter:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		resume:     key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "resume")),
		keep:       key.NewBinding(key.WithKeys("a", " "), key.WithHelp("a/space", "keep")),
		remove:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "remove")),
		reason:     key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9", "0"), key.WithHelp("1-0", "tag")),
		unsave:     key.NewBinding(key.WithKeys("u", "delete"), key.WithHelp("u", "unsave")),
		regenerate: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "regenerate")),
		export:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export")),
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.keep, k.remove, k.reason, k.regenerate, k.export, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.focus},
		{k.keep, k.remove, k.reason, k.unsave},
		{k.regenerate, k.export, k.back, k.quit},
	}
}
