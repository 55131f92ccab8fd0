package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Open    key.Binding
	Back    key.Binding
	Quit    key.Binding
	Restart key.Binding
	Lit     key.Binding
	Mute    key.Binding
	Help    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Back:    key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "back")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart")),
		Lit:     key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "lit until release")),
		Mute: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "mute channel"),
		),
		Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
	}
}

// ShortHelp is shown under the keyboard.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Restart, k.Lit, k.Mute, k.Back, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Restart, k.Lit, k.Mute},
		{k.Up, k.Down, k.Open},
		{k.Back, k.Quit, k.Help},
	}
}
