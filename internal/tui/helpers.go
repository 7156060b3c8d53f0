package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

func cmpOrDash(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "-"
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// translateNavKeys adds emacs-style movement on top of the arrow keys.
func translateNavKeys(msg tea.KeyMsg) tea.KeyMsg {
	switch msg.String() {
	case "ctrl+n":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+p":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "ctrl+f":
		return tea.KeyMsg{Type: tea.KeyPgDown}
	case "ctrl+b":
		return tea.KeyMsg{Type: tea.KeyPgUp}
	default:
		return msg
	}
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}

// safeSetColumns changes the table schema without tripping bubbles/table,
// which panics when a row has more cells than the columns being rendered.
// Rows are cleared, columns set, then rows re-added in the new shape.
func safeSetColumns(t *table.Model, cols []table.Column) {
	n := len(cols)
	rows := t.Rows()

	t.SetRows(nil)
	t.SetColumns(cols)

	if n <= 0 || len(rows) == 0 {
		return
	}
	t.SetRows(fitRows(rows, n))
}

func fitRows(rows []table.Row, n int) []table.Row {
	fixed := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		switch {
		case len(r) > n:
			fixed = append(fixed, r[:n])
		case len(r) < n:
			p := make(table.Row, n)
			copy(p, r)
			fixed = append(fixed, p)
		default:
			fixed = append(fixed, r)
		}
	}
	return fixed
}
