package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	LineUp     key.Binding
	LineDown   key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	Top        key.Binding
	Bottom     key.Binding
	Filter     key.Binding
	Refetch    key.Binding
	Invalidate key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		LineUp: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		LineDown: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "b"),
			key.WithHelp("pgup/b", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "f", " "),
			key.WithHelp("pgdn/f", "page down"),
		),
		Top: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("g", "top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("G", "bottom"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Refetch: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refetch"),
		),
		Invalidate: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "reload"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// shiftedDigits are the keys produced by shift+1 .. shift+9 on a US layout.
const shiftedDigits = "!@#$%^&*("

// sortColumn maps 1-9 to a column index, and shift+1-9 to a multi-column
// toggle of the same index.
func sortColumn(s string) (col int, multi, ok bool) {
	if len(s) != 1 {
		return 0, false, false
	}
	c := s[0]
	if c >= '1' && c <= '9' {
		return int(c - '1'), false, true
	}
	for i := 0; i < len(shiftedDigits); i++ {
		if shiftedDigits[i] == c {
			return i, true, true
		}
	}
	return 0, false, false
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{k.LineDown, k.LineUp, k.PageDown, k.Top, k.Bottom, k.Filter, k.Refetch, k.Invalidate, k.Quit}
}
