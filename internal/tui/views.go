package tui

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/examai/pipeline-console/internal/api"
	"github.com/examai/pipeline-console/internal/console"
	"github.com/examai/pipeline-console/internal/format"
)

const (
	emptyRunsMessage     = "No runs yet. Pick a dataset on the datasets tab and press enter to start one."
	emptyDatasetsMessage = "No datasets registered. Press n to add one."
	noLogsMessage        = "(no logs)"
)

func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return "loading…"
	}
	var body string
	switch m.snap.Tab {
	case console.TabDatasets:
		body = m.renderDatasets()
	case console.TabRuns:
		body = m.renderRuns()
	default:
		body = renderDashboard(m.snap, m.now, m.dashCursor, m.width)
	}
	if m.form != nil {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", m.form.View(m.width))
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderFooter())
}

func (m model) renderHeader() string {
	title := titleStyle.Render("Pipeline Console")
	meta := mutedStyle.Render(fmt.Sprintf("  %s  ·  %s  ·  poll %s", cmpOrDash(m.cfg.APIURL), cmpOrDash(m.cfg.Version), m.pollInterval()))
	lines := []string{title + meta, renderTabs(m.snap.Tab)}
	if m.busy != "" {
		lines = append(lines, m.spinner.View()+" "+mutedStyle.Render(m.busy+"…"))
	} else if m.lastInfo != "" {
		lines = append(lines, mutedStyle.Render(m.lastInfo))
	}
	if m.apiError != "" {
		lines = append(lines, errorStyle.Render("Error: "+m.apiError))
	}
	lines = append(lines, faintIfDark(mutedStyle).Render(strings.Repeat("─", maxInt(0, m.width))))
	return strings.Join(lines, "\n")
}

func (m model) pollInterval() string {
	if m.cfg.PollInterval <= 0 {
		return console.DefaultPollInterval.String()
	}
	return m.cfg.PollInterval.String()
}

func renderTabs(active console.Tab) string {
	tabs := []struct {
		key string
		tab console.Tab
	}{
		{"1", console.TabDashboard},
		{"2", console.TabDatasets},
		{"3", console.TabRuns},
	}
	parts := make([]string, 0, len(tabs))
	for _, t := range tabs {
		label := fmt.Sprintf("<%s> %s", t.key, t.tab)
		if t.tab == active {
			parts = append(parts, accentStyle.Bold(true).Underline(true).Render(label))
		} else {
			parts = append(parts, mutedStyle.Render(label))
		}
	}
	return strings.Join(parts, "   ")
}

func (m model) renderFooter() string {
	m.help.Width = m.width
	return m.help.View(m.keys)
}

// renderDashboard shows the first runs of the list as cards, in server order.
func renderDashboard(s console.Snapshot, now time.Time, cursor, width int) string {
	recent := s.RecentRuns(DashboardRuns)
	header := titleStyle.Render("Recent runs") + mutedStyle.Render(fmt.Sprintf("  %d datasets · %d runs", len(s.Datasets), len(s.Runs)))
	if len(recent) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, header, "", cardStyle.Render(mutedStyle.Render(emptyRunsMessage)))
	}
	cardW := maxInt(28, minInt(40, (width-4)/3-2))
	cards := make([]string, 0, len(recent))
	for i, r := range recent {
		cards = append(cards, renderRunCard(r, s, now, cardW, i == cursor))
	}
	rows := []string{header, ""}
	for i := 0; i < len(cards); i += 3 {
		end := minInt(len(cards), i+3)
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderRunCard(r api.Run, s console.Snapshot, now time.Time, width int, focused bool) string {
	dataset := fmt.Sprintf("dataset #%d", r.DatasetID)
	if ds, ok := s.Dataset(r.DatasetID); ok {
		dataset = truncateRunes(ds.Name, width-4)
	}
	badges := []string{}
	for _, k := range []struct{ key, label string }{{"accuracy", "acc"}, {"f1", "f1"}} {
		if v := format.Percent(r.Metrics, k.key); v != format.Missing {
			badges = append(badges, accentStyle.Render(k.label+" "+v))
		}
	}
	lines := []string{
		titleStyle.Render(fmt.Sprintf("Run #%d", r.ID)) + "  " + renderBadge(r.Status),
		mutedStyle.Render(dataset + " · " + cmpOrDash(r.ModelType)),
		mutedStyle.Render("created " + format.Relative(r.CreatedAt, now)),
	}
	if len(badges) > 0 {
		lines = append(lines, strings.Join(badges, "  "))
	}
	st := cardStyle.Width(width)
	if focused {
		st = st.BorderForeground(consoleAccent)
	}
	return st.Render(strings.Join(lines, "\n"))
}

func (m model) renderDatasets() string {
	title := titleStyle.Render("Datasets") + mutedStyle.Render("  <n> new · <enter> start run")
	if len(m.snap.Datasets) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, "", mutedStyle.Render(emptyDatasetsMessage))
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, m.datasetsTable.View())
}

func (m model) renderRuns() string {
	leftW, _ := m.runsSplit()
	var left string
	if len(m.snap.Runs) == 0 {
		left = lipgloss.NewStyle().Width(leftW).Render(mutedStyle.Render(emptyRunsMessage))
	} else {
		left = lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Runs"), m.runsTable.View())
	}
	sep := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(consoleBorder).
		PaddingLeft(1).
		Render(m.detail.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, lipgloss.NewStyle().Width(leftW).Render(left), " ", sep)
}

// renderRunDetail renders the selected run. Missing optional fields show "-".
// loadErr replaces the loading placeholder when the detail fetch failed.
func renderRunDetail(s console.Snapshot, width int, loadErr string) string {
	if !s.HasSelection() {
		return mutedStyle.Render("Select a run and press enter to see its steps and logs.")
	}
	r := s.Selected
	if r == nil {
		if loadErr != "" {
			return errorStyle.Render(wrap(fmt.Sprintf("Could not load run #%d: %s", s.SelectedRunID(), loadErr), width))
		}
		return mutedStyle.Render(fmt.Sprintf("Loading run #%d…", s.SelectedRunID()))
	}
	label := func(k, v string) string {
		return mutedStyle.Render(fmt.Sprintf("%-10s", k)) + v
	}
	lines := []string{
		titleStyle.Render(fmt.Sprintf("Run #%d", r.ID)) + "  " + renderBadge(r.Status),
		label("dataset", strconv.FormatInt(r.DatasetID, 10)),
		label("model", cmpOrDash(r.ModelType)),
		label("created", format.Timestamp(r.CreatedAt)),
		label("started", format.Timestamp(r.StartedAt)),
		label("finished", format.Timestamp(r.FinishedAt)),
	}
	if strings.TrimSpace(r.Error) != "" {
		lines = append(lines, "", errorStyle.Render("Error"), errorStyle.Render(wrap(r.Error, width)))
	}

	lines = append(lines, "", titleStyle.Render("Steps"))
	if len(r.Steps) == 0 {
		lines = append(lines, mutedStyle.Render("-"))
	}
	for _, st := range r.Steps {
		line := fmt.Sprintf("%-12s %s  %s → %s", cmpOrDash(st.Name), renderBadge(st.Status), format.Timestamp(st.StartedAt), format.Timestamp(st.FinishedAt))
		lines = append(lines, line)
		if msg := strings.TrimSpace(st.Message); msg != "" {
			lines = append(lines, mutedStyle.Render("  "+wrap(msg, width-2)))
		}
	}

	lines = append(lines, "", titleStyle.Render("Metrics"), renderJSON(r.Metrics))
	if len(r.Artifacts) > 0 {
		lines = append(lines, "", titleStyle.Render("Artifacts"), renderJSON(r.Artifacts))
	}

	lines = append(lines, "", titleStyle.Render("Logs"))
	if strings.TrimSpace(s.LogTail) == "" {
		lines = append(lines, mutedStyle.Render(noLogsMessage))
	} else {
		lines = append(lines, s.LogTail)
	}
	return strings.Join(lines, "\n")
}

func renderJSON(v map[string]any) string {
	if len(v) == 0 {
		return mutedStyle.Render("-")
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return format.KV(v)
	}
	return string(b)
}

func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}

func datasetColumns(total int) []table.Column {
	// id | name | source_path | size | created
	if total < 50 {
		total = 50
	}
	idW := 6
	sizeW := 9
	createdW := 19
	nameW := maxInt(10, (total-idW-sizeW-createdW)/3)
	pathW := maxInt(10, total-idW-sizeW-createdW-nameW-10)
	return []table.Column{
		{Title: "id", Width: idW},
		{Title: "name", Width: nameW},
		{Title: "source_path", Width: pathW},
		{Title: "size", Width: sizeW},
		{Title: "created", Width: createdW},
	}
}

func runColumns(total int) []table.Column {
	// id | dataset | status | model | created
	if total < 30 {
		total = 30
	}
	cols := []table.Column{
		{Title: "id", Width: 5},
		{Title: "dataset", Width: 7},
		{Title: "status", Width: 9},
	}
	rest := total - 5 - 7 - 9 - 8
	if rest >= 36 {
		cols = append(cols,
			table.Column{Title: "model", Width: rest - 19},
			table.Column{Title: "created", Width: 19},
		)
	} else if rest >= 10 {
		cols = append(cols, table.Column{Title: "model", Width: rest})
	}
	return cols
}

func datasetRows(items []api.Dataset) []table.Row {
	rows := make([]table.Row, 0, len(items))
	for _, d := range items {
		rows = append(rows, table.Row{
			strconv.FormatInt(d.ID, 10),
			cmpOrDash(d.Name),
			cmpOrDash(d.SourcePath),
			datasetSize(d.Meta),
			format.Timestamp(d.CreatedAt),
		})
	}
	return rows
}

// datasetSize reads the size_bytes meta the inbound watcher records.
func datasetSize(meta map[string]any) string {
	switch n := meta["size_bytes"].(type) {
	case float64:
		return format.Bytes(int64(n))
	case int64:
		return format.Bytes(n)
	case int:
		return format.Bytes(int64(n))
	}
	return format.Missing
}

func runRows(items []api.Run) []table.Row {
	rows := make([]table.Row, 0, len(items))
	for _, r := range items {
		rows = append(rows, table.Row{
			strconv.FormatInt(r.ID, 10),
			strconv.FormatInt(r.DatasetID, 10),
			cmpOrDash(r.Status),
			cmpOrDash(r.ModelType),
			format.Timestamp(r.CreatedAt),
		})
	}
	return rows
}
