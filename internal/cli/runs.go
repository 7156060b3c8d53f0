package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/examai/pipeline-console/internal/api"
	"github.com/examai/pipeline-console/internal/console"
	"github.com/examai/pipeline-console/internal/status"

	"github.com/spf13/cobra"
)

func newRunsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "runs",
		Aliases: []string{"run"},
		Short:   "Inspect and start pipeline runs",
	}
	cmd.AddCommand(newRunsListCmd(app))
	cmd.AddCommand(newRunsShowCmd(app))
	cmd.AddCommand(newRunsLogsCmd(app))
	cmd.AddCommand(newRunsCreateCmd(app))
	cmd.AddCommand(newRunsWatchCmd(app))
	return cmd
}

func parseRunID(cmd *cobra.Command, app *App, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, writeFailure(cmd, app, "invalid_input", fmt.Errorf("invalid run id %q", raw), "Run ids are positive integers; see `pipeconsole runs list`.", nil)
	}
	return id, nil
}

func newRunsListCmd(app *App) *cobra.Command {
	var (
		limit     int
		datasetID int64
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs (most recent first)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			runs, err := client.ListRuns(cmd.Context())
			if err != nil {
				return writeAPIFailure(cmd, app, err)
			}
			total := len(runs)
			if datasetID > 0 {
				filtered := runs[:0]
				for _, r := range runs {
					if r.DatasetID == datasetID {
						filtered = append(filtered, r)
					}
				}
				runs = filtered
			}
			if limit > 0 && len(runs) > limit {
				runs = runs[:limit]
			}
			return writeData(cmd, app, map[string]any{"count": len(runs), "total": total}, runs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most N runs (0 = all)")
	cmd.Flags().Int64Var(&datasetID, "dataset", 0, "Only runs of this dataset id")
	return cmd
}

func newRunsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run with its steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRunID(cmd, app, args[0])
			if err != nil {
				return err
			}
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			run, err := client.GetRun(cmd.Context(), id)
			if err != nil {
				return writeAPIFailure(cmd, app, err)
			}
			return writeData(cmd, app, map[string]any{"badge": status.SeverityOf(run.Status).String()}, run)
		},
	}
}

func newRunsLogsCmd(app *App) *cobra.Command {
	var (
		lines int
		raw   bool
	)
	cmd := &cobra.Command{
		Use:   "logs <id>",
		Short: "Print the tail of a run's log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRunID(cmd, app, args[0])
			if err != nil {
				return err
			}
			if lines <= 0 {
				lines = app.cfg.LogLines
			}
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			tail, err := client.GetRunLogs(cmd.Context(), id, lines)
			if err != nil {
				return writeAPIFailure(cmd, app, err)
			}
			if raw {
				if tail != "" {
					fmt.Fprintln(cmd.OutOrStdout(), tail)
				}
				return nil
			}
			return writeData(cmd, app, map[string]any{"lines": lines}, api.LogTail{RunID: id, Tail: tail})
		},
	}
	cmd.Flags().IntVar(&lines, "lines", 0, fmt.Sprintf("Number of lines (%d-%d; default from config)", api.MinLogLines, api.MaxLogLines))
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the log text without the envelope")
	return cmd
}

func newRunsCreateCmd(app *App) *cobra.Command {
	var (
		datasetID int64
		modelType string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Start a run for a dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			if datasetID <= 0 {
				return writeFailure(cmd, app, "invalid_input", errors.New("missing --dataset"), "Pick an id from `pipeconsole datasets list`.", nil)
			}
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			c := app.newConsole(client, console.TabRuns)
			run, err := c.CreateRunWithModel(cmd.Context(), datasetID, modelType)
			if err != nil {
				return writeAPIFailure(cmd, app, err)
			}
			app.log.Info().Int64("run", run.ID).Int64("dataset", datasetID).Str("model", run.ModelType).Msg("run created")
			return writeData(cmd, app, map[string]any{
				"hint": fmt.Sprintf("Follow it: pipeconsole runs watch %d", run.ID),
			}, run)
		},
	}
	cmd.Flags().Int64Var(&datasetID, "dataset", 0, "Dataset id")
	cmd.Flags().StringVar(&modelType, "model-type", "", "Model type (default from config)")
	return cmd
}

func newRunsWatchCmd(app *App) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "watch <id>",
		Short: "Follow a run until it finishes",
		Long: strings.TrimSpace(`
Polls the run on the configured interval and prints one event per status
change of the run or any of its steps. Exits non-zero if the run fails.`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRunID(cmd, app, args[0])
			if err != nil {
				return err
			}
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if timeout > 0 {
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return watchRun(ctx, cmd, app, app.newConsole(client, console.TabRuns), id)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this long (0 = never)")
	return cmd
}

// watchEvent is one line of `runs watch` output.
type watchEvent struct {
	Event  string `json:"event"`
	RunID  int64  `json:"runId"`
	Step   string `json:"step,omitempty"`
	From   string `json:"from,omitempty"`
	Status string `json:"status"`
	At     string `json:"at,omitempty"`
}

func watchRun(ctx context.Context, cmd *cobra.Command, app *App, c *console.Console, id int64) error {
	snaps, unsubscribe := c.Subscribe()
	defer unsubscribe()

	loopCtx, stopLoop := context.WithCancel(ctx)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = c.Run(loopCtx)
	}()
	defer func() {
		stopLoop()
		<-loopDone
	}()

	if err := c.SelectRun(ctx, id); err != nil {
		return writeAPIFailure(cmd, app, err)
	}

	prev := map[string]string{}
	events := 0
	for {
		select {
		case <-ctx.Done():
			code := "canceled"
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				code = "timeout"
			}
			return writeFailure(cmd, app, code, fmt.Errorf("run %d: %w", id, ctx.Err()), "", map[string]any{"events": events})
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			if snap.Selected == nil || snap.Selected.ID != id {
				continue
			}
			run := *snap.Selected
			for _, ev := range transitions(prev, run) {
				events++
				if err := writeOut(cmd, app, ev); err != nil {
					return err
				}
			}
			if !status.IsTerminal(run.Status) {
				continue
			}
			meta := map[string]any{"events": events}
			if status.SeverityOf(run.Status) == status.Failure {
				msg := run.Error
				if msg == "" {
					msg = "run failed"
				}
				return writeFailure(cmd, app, "run_failed", fmt.Errorf("run %d: %s", id, msg),
					fmt.Sprintf("Inspect logs: pipeconsole runs logs %d", id), run)
			}
			return writeData(cmd, app, meta, run)
		}
	}
}

// transitions records run and step statuses in seen and returns an event
// for each one that changed.
func transitions(seen map[string]string, run api.Run) []watchEvent {
	var out []watchEvent
	if from, ok := seen[""]; !ok || from != run.Status {
		out = append(out, watchEvent{Event: "run", RunID: run.ID, From: from, Status: run.Status, At: stamp(run.StartedAt, run.FinishedAt, run.Status)})
		seen[""] = run.Status
	}
	for _, st := range run.Steps {
		key := "step:" + st.Name
		if from, ok := seen[key]; !ok || from != st.Status {
			out = append(out, watchEvent{Event: "step", RunID: run.ID, Step: st.Name, From: from, Status: st.Status, At: stamp(st.StartedAt, st.FinishedAt, st.Status)})
			seen[key] = st.Status
		}
	}
	return out
}

func stamp(started, finished api.Timestamp, s string) string {
	if status.IsTerminal(s) && !finished.IsZero() {
		return finished.Raw
	}
	return started.Raw
}
