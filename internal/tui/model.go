// Package tui is the interactive operator console. Every view reads the
// console snapshot; the reconciliation loop runs beside the program and
// pushes changes in through a subscription.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/examai/pipeline-console/internal/api"
	"github.com/examai/pipeline-console/internal/console"
)

// DashboardRuns is how many runs the dashboard shows.
const DashboardRuns = 6

type Config struct {
	Console      *console.Console
	APIURL       string
	DocsURL      string
	PollInterval time.Duration
	Version      string
	Logger       zerolog.Logger
	// OpenURL opens a browser; nil disables the docs shortcut.
	OpenURL func(string) error
}

type snapshotMsg struct{ snap console.Snapshot }

type clockMsg time.Time

type datasetCreatedMsg struct {
	dataset *api.Dataset
	err     error
}

type runCreatedMsg struct {
	run *api.Run
	err error
}

type runSelectedMsg struct {
	id  int64
	err error
}

type docsOpenedMsg struct {
	url string
	err error
}

type model struct {
	cfg   Config
	con   *console.Console
	snaps <-chan console.Snapshot
	log   zerolog.Logger

	width  int
	height int
	now    time.Time

	snap console.Snapshot

	datasetsTable table.Model
	runsTable     table.Model
	detail        viewport.Model
	dashCursor    int

	form    *datasetForm
	help    help.Model
	keys    keyMap
	spinner spinner.Model
	busy    string

	// Only operator-initiated actions report here; polling failures are
	// logged, not shown.
	apiError string
	lastInfo string

	// Last failed detail fetch, shown in the detail pane while that run
	// stays selected without detail.
	detailErrID int64
	detailErr   string
}

// Run starts the reconciliation loop and the program, and stops both when
// the operator quits or ctx is done.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Console == nil {
		return errors.New("missing console")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	snaps, unsubscribe := cfg.Console.Subscribe()
	defer unsubscribe()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = cfg.Console.Run(ctx)
	}()

	p := tea.NewProgram(newModel(cfg, snaps), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	cancel()
	<-loopDone
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func newModel(cfg Config, snaps <-chan console.Snapshot) model {
	datasetsTable := table.New(table.WithColumns(datasetColumns(80)), table.WithRows(nil), table.WithFocused(true))
	datasetsTable.SetStyles(minimalTableStyles())
	runsTable := table.New(table.WithColumns(runColumns(60)), table.WithRows(nil), table.WithFocused(true))
	runsTable.SetStyles(minimalTableStyles())

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = accentStyle

	m := model{
		cfg:           cfg,
		con:           cfg.Console,
		snaps:         snaps,
		log:           cfg.Logger,
		now:           time.Now(),
		datasetsTable: datasetsTable,
		runsTable:     runsTable,
		detail:        viewport.New(40, 10),
		help:          help.New(),
		keys:          defaultKeys(),
		spinner:       sp,
	}
	m.applySnapshot(cfg.Console.Snapshot())
	return m
}

func waitForSnapshot(ch <-chan console.Snapshot) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg{snap: snap}
	}
}

func clockTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return clockMsg(t) })
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForSnapshot(m.snaps), clockTick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case snapshotMsg:
		m.applySnapshot(msg.snap)
		return m, waitForSnapshot(m.snaps)

	case clockMsg:
		m.now = time.Time(msg)
		return m, clockTick()

	case spinner.TickMsg:
		if m.busy == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case datasetCreatedMsg:
		m.busy = ""
		if msg.err != nil {
			m.apiError = msg.err.Error()
			m.layout()
			return m, nil
		}
		m.form = nil
		m.apiError = ""
		m.lastInfo = fmt.Sprintf("dataset #%d %s registered", msg.dataset.ID, msg.dataset.Name)
		m.applySnapshot(m.con.Snapshot())
		m.layout()
		return m, nil

	case runCreatedMsg:
		m.busy = ""
		if msg.err != nil {
			m.apiError = msg.err.Error()
			m.layout()
			return m, nil
		}
		m.apiError = ""
		m.lastInfo = fmt.Sprintf("run #%d queued", msg.run.ID)
		m.applySnapshot(m.con.Snapshot())
		m.layout()
		return m, nil

	case runSelectedMsg:
		m.detailErrID, m.detailErr = 0, ""
		if msg.err != nil {
			m.log.Debug().Err(msg.err).Int64("run_id", msg.id).Msg("select run detail fetch failed")
			m.detailErrID, m.detailErr = msg.id, msg.err.Error()
		}
		m.applySnapshot(m.con.Snapshot())
		return m, nil

	case docsOpenedMsg:
		if msg.err != nil {
			m.apiError = "could not open browser: " + msg.err.Error()
		} else {
			m.lastInfo = "opened " + msg.url
		}
		m.layout()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.form != nil {
			return m.updateForm(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy != "" {
		return m, nil
	}
	res, cmd := m.form.handleKey(msg)
	switch res {
	case formCanceled:
		m.form = nil
		return m, nil
	case formSubmitted:
		name, path := m.form.values()
		m.busy = "creating dataset"
		return m, tea.Batch(cmd, m.spinner.Tick, m.createDatasetCmd(name, path))
	}
	return m, cmd
}

func (m model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil
	case key.Matches(msg, m.keys.Dashboard):
		return m.switchTab(console.TabDashboard), nil
	case key.Matches(msg, m.keys.Datasets):
		return m.switchTab(console.TabDatasets), nil
	case key.Matches(msg, m.keys.Runs):
		return m.switchTab(console.TabRuns), nil
	case key.Matches(msg, m.keys.Docs):
		return m, m.openDocsCmd()
	}

	switch m.snap.Tab {
	case console.TabDashboard:
		return m.updateDashboard(msg)
	case console.TabDatasets:
		return m.updateDatasets(msg)
	case console.TabRuns:
		return m.updateRuns(msg)
	}
	return m, nil
}

func (m model) switchTab(tab console.Tab) model {
	m.con.SetTab(tab)
	m.applySnapshot(m.con.Snapshot())
	m.layout()
	return m
}

func (m model) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	recent := m.snap.RecentRuns(DashboardRuns)
	switch {
	case key.Matches(msg, m.keys.Up), msg.String() == "left", msg.String() == "h":
		m.dashCursor = maxInt(0, m.dashCursor-1)
	case key.Matches(msg, m.keys.Down), msg.String() == "right", msg.String() == "l":
		m.dashCursor = minInt(maxInt(0, len(recent)-1), m.dashCursor+1)
	case key.Matches(msg, m.keys.Enter):
		if m.dashCursor < len(recent) {
			return m, m.selectRunCmd(recent[m.dashCursor].ID)
		}
	}
	return m, nil
}

func (m model) updateDatasets(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.New):
		m.form = newDatasetForm()
		m.apiError = ""
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		if m.busy != "" {
			return m, nil
		}
		id, ok := selectedRowID(m.datasetsTable)
		if !ok {
			return m, nil
		}
		m.busy = fmt.Sprintf("starting run for dataset #%d", id)
		return m, tea.Batch(m.spinner.Tick, m.createRunCmd(id))
	}
	var cmd tea.Cmd
	m.datasetsTable, cmd = m.datasetsTable.Update(translateNavKeys(msg))
	return m, cmd
}

func (m model) updateRuns(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Enter):
		if id, ok := selectedRowID(m.runsTable); ok {
			return m, m.selectRunCmd(id)
		}
		return m, nil
	case key.Matches(msg, m.keys.ScrollUp):
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(tea.KeyMsg{Type: tea.KeyPgUp})
		return m, cmd
	case key.Matches(msg, m.keys.ScrollDn):
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(tea.KeyMsg{Type: tea.KeyPgDown})
		return m, cmd
	}
	var cmd tea.Cmd
	m.runsTable, cmd = m.runsTable.Update(translateNavKeys(msg))
	return m, cmd
}

func (m model) createDatasetCmd(name, path string) tea.Cmd {
	con := m.con
	return func() tea.Msg {
		ds, err := con.CreateDataset(context.Background(), name, path, nil)
		return datasetCreatedMsg{dataset: ds, err: err}
	}
}

func (m model) createRunCmd(datasetID int64) tea.Cmd {
	con := m.con
	return func() tea.Msg {
		run, err := con.CreateRun(context.Background(), datasetID)
		return runCreatedMsg{run: run, err: err}
	}
}

func (m model) selectRunCmd(id int64) tea.Cmd {
	con := m.con
	return func() tea.Msg {
		return runSelectedMsg{id: id, err: con.SelectRun(context.Background(), id)}
	}
}

func (m model) openDocsCmd() tea.Cmd {
	open := m.cfg.OpenURL
	u := strings.TrimSpace(m.cfg.DocsURL)
	if open == nil || u == "" {
		return nil
	}
	return func() tea.Msg {
		return docsOpenedMsg{url: u, err: open(u)}
	}
}

func selectedRowID(t table.Model) (int64, bool) {
	row := t.SelectedRow()
	if len(row) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(row[0]), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// applySnapshot rebuilds every derived view. Table cursors follow the row
// they were on, and the runs cursor jumps to a newly selected run.
func (m *model) applySnapshot(s console.Snapshot) {
	prevSelected := m.snap.SelectedRunID()
	m.snap = s

	dsCursorID, _ := selectedRowID(m.datasetsTable)
	m.datasetsTable.SetRows(fitRows(datasetRows(s.Datasets), len(m.datasetsTable.Columns())))
	setCursorToID(&m.datasetsTable, dsCursorID)

	runCursorID, _ := selectedRowID(m.runsTable)
	if id := s.SelectedRunID(); id != 0 && id != prevSelected {
		runCursorID = id
	}
	m.runsTable.SetRows(fitRows(runRows(s.Runs), len(m.runsTable.Columns())))
	setCursorToID(&m.runsTable, runCursorID)

	if n := len(s.RecentRuns(DashboardRuns)); m.dashCursor >= n {
		m.dashCursor = maxInt(0, n-1)
	}
	m.detail.SetContent(renderRunDetail(s, m.detail.Width, m.detailLoadError()))
}

// detailLoadError returns the failed fetch message for the selected run, if
// its detail has not arrived since.
func (m *model) detailLoadError() string {
	if m.snap.Selected != nil || m.detailErrID == 0 || m.snap.SelectedRunID() != m.detailErrID {
		return ""
	}
	return m.detailErr
}

func setCursorToID(t *table.Model, id int64) {
	rows := t.Rows()
	if id != 0 {
		want := strconv.FormatInt(id, 10)
		for i, r := range rows {
			if len(r) > 0 && r[0] == want {
				t.SetCursor(i)
				return
			}
		}
	}
	if t.Cursor() >= len(rows) {
		t.SetCursor(maxInt(0, len(rows)-1))
	}
	// An empty table leaves the cursor at -1.
	if len(rows) > 0 && t.Cursor() < 0 {
		t.SetCursor(0)
	}
}

func (m *model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	bodyH := maxInt(5, m.height-m.headerHeight()-m.footerHeight())

	tableW := maxInt(20, m.width-2)
	m.datasetsTable.SetWidth(tableW)
	m.datasetsTable.SetHeight(maxInt(3, bodyH-1))
	safeSetColumns(&m.datasetsTable, datasetColumns(tableW))

	leftW, rightW := m.runsSplit()
	m.runsTable.SetWidth(leftW)
	m.runsTable.SetHeight(maxInt(3, bodyH-1))
	safeSetColumns(&m.runsTable, runColumns(leftW))

	m.detail.Width = rightW
	m.detail.Height = maxInt(3, bodyH)
	m.detail.SetContent(renderRunDetail(m.snap, rightW, m.detailLoadError()))
}

func (m model) runsSplit() (left, right int) {
	w := maxInt(40, m.width)
	left = maxInt(30, w*2/5)
	right = maxInt(20, w-left-3)
	return left, right
}

func (m model) headerHeight() int {
	n := 3 // title, tabs, separator
	if m.apiError != "" {
		n++
	}
	if m.lastInfo != "" || m.busy != "" {
		n++
	}
	return n
}

func (m model) footerHeight() int {
	if m.help.ShowAll {
		return 5
	}
	return 1
}
