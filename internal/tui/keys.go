package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Dashboard key.Binding
	Datasets  key.Binding
	Runs      key.Binding
	Up        key.Binding
	Down      key.Binding
	Enter     key.Binding
	New       key.Binding
	Docs      key.Binding
	ScrollUp  key.Binding
	ScrollDn  key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Dashboard: key.NewBinding(key.WithKeys("1", "d"), key.WithHelp("1/d", "dashboard")),
		Datasets:  key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "datasets")),
		Runs:      key.NewBinding(key.WithKeys("3", "r"), key.WithHelp("3/r", "runs")),
		Up:        key.NewBinding(key.WithKeys("up", "k", "ctrl+p"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j", "ctrl+n"), key.WithHelp("↓/j", "down")),
		Enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		New:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new dataset")),
		Docs:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "api docs")),
		ScrollUp:  key.NewBinding(key.WithKeys("pgup", "ctrl+b"), key.WithHelp("pgup", "scroll detail")),
		ScrollDn:  key.NewBinding(key.WithKeys("pgdown", "ctrl+f"), key.WithHelp("pgdn", "scroll detail")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Dashboard, k.Datasets, k.Runs, k.Enter, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Dashboard, k.Datasets, k.Runs},
		{k.Up, k.Down, k.Enter, k.New},
		{k.ScrollUp, k.ScrollDn, k.Docs},
		{k.Help, k.Quit},
	}
}
