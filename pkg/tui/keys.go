package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Compose    key.Binding
	Send       key.Binding
	Cancel     key.Binding
	ToggleFmt  key.Binding
	NextTarget key.Binding
	PrevTarget key.Binding
	HexView    key.Binding
	JSONView   key.Binding
	Clear      key.Binding
	Up         key.Binding
	Down       key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	Quit       key.Binding
	ForceQuit  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Compose:    key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "compose")),
		Send:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		ToggleFmt:  key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "text/hex")),
		NextTarget: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next target")),
		PrevTarget: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous target")),
		HexView:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "hex view")),
		JSONView:   key.NewBinding(key.WithKeys("j"), key.WithHelp("j", "json view")),
		Clear:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
		Up:         key.NewBinding(key.WithKeys("up")),
		Down:       key.NewBinding(key.WithKeys("down")),
		PageUp:     key.NewBinding(key.WithKeys("pgup")),
		PageDown:   key.NewBinding(key.WithKeys("pgdown")),
		Quit:       key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit:  key.NewBinding(key.WithKeys("ctrl+c")),
	}
}
