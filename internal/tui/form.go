package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultDatasetName = "sample"
	defaultDatasetPath = "/data/inbound/sample_timeseries.csv"
)

type formResult int

const (
	formEditing formResult = iota
	formSubmitted
	formCanceled
)

// datasetForm collects name and source_path for a new dataset.
type datasetForm struct {
	inputs []textinput.Model
	focus  int
	err    string
}

func newDatasetForm() *datasetForm {
	name := textinput.New()
	name.Prompt = "name         "
	name.Placeholder = defaultDatasetName
	name.SetValue(defaultDatasetName)
	name.CharLimit = 128

	path := textinput.New()
	path.Prompt = "source_path  "
	path.Placeholder = defaultDatasetPath
	path.SetValue(defaultDatasetPath)
	path.CharLimit = 1024

	f := &datasetForm{inputs: []textinput.Model{name, path}}
	f.inputs[0].Focus()
	return f
}

func (f *datasetForm) values() (name, sourcePath string) {
	return strings.TrimSpace(f.inputs[0].Value()), strings.TrimSpace(f.inputs[1].Value())
}

func (f *datasetForm) setFocus(i int) {
	n := len(f.inputs)
	f.focus = ((i % n) + n) % n
	for j := range f.inputs {
		if j == f.focus {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
}

func (f *datasetForm) handleKey(msg tea.KeyMsg) (formResult, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+g":
		return formCanceled, nil
	case "tab", "down", "ctrl+n":
		f.setFocus(f.focus + 1)
		return formEditing, nil
	case "shift+tab", "up", "ctrl+p":
		f.setFocus(f.focus - 1)
		return formEditing, nil
	case "enter":
		if f.focus < len(f.inputs)-1 {
			f.setFocus(f.focus + 1)
			return formEditing, nil
		}
		name, path := f.values()
		if name == "" || path == "" {
			f.err = "name and source_path are required"
			return formEditing, nil
		}
		f.err = ""
		return formSubmitted, nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return formEditing, cmd
}

func (f *datasetForm) View(width int) string {
	boxW := minInt(80, maxInt(40, width-6))
	lines := []string{titleStyle.Render("New dataset"), ""}
	for _, in := range f.inputs {
		in.Width = maxInt(10, boxW-18)
		lines = append(lines, in.View())
	}
	lines = append(lines, "")
	if f.err != "" {
		lines = append(lines, errorStyle.Render(f.err))
	} else {
		lines = append(lines, mutedStyle.Render("enter: next/create · tab: switch field · esc: cancel"))
	}
	return cardStyle.Width(boxW).BorderForeground(consoleAccent).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
