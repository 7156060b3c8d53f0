package cli

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/examai/pipeline-console/internal/inbound"

	"github.com/spf13/cobra"
)

func newInboundCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inbound",
		Short: "Register files dropped into a directory as datasets",
	}
	cmd.AddCommand(newInboundWatchCmd(app))
	cmd.AddCommand(newInboundRegisterCmd(app))
	return cmd
}

type inboundFlags struct {
	autoRun   bool
	modelType string
}

func (f *inboundFlags) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.autoRun, "auto-run", false, "Start a run for every registered dataset")
	cmd.Flags().StringVar(&f.modelType, "model-type", "", "Model type for auto runs (default from config)")
}

func (f *inboundFlags) model(app *App) string {
	if f.modelType != "" {
		return f.modelType
	}
	return app.cfg.ModelType
}

func resultData(res inbound.Result) map[string]any {
	out := map[string]any{
		"path":    res.Path,
		"sha256":  res.SHA256,
		"dataset": res.Dataset,
	}
	if res.Run != nil {
		out["run"] = res.Run
	}
	return out
}

func newInboundWatchCmd(app *App) *cobra.Command {
	var (
		common    inboundFlags
		dir       string
		include   []string
		stable    time.Duration
		debounce  time.Duration
		useMarker bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a directory and register new files",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			w, err := inbound.New(client, inbound.Options{
				Dir:         dir,
				Include:     include,
				Debounce:    debounce,
				StableFor:   stable,
				UseDoneFile: useMarker,
				AutoRun:     common.autoRun,
				ModelType:   common.model(app),
				Logger:      app.log,
			})
			if err != nil {
				return writeFailure(cmd, app, "invalid_input", err, "Pass --dir <path>.", nil)
			}
			w.OnResult = func(res inbound.Result) {
				if err := writeData(cmd, app, map[string]any{"event": "registered"}, resultData(res)); err != nil {
					app.log.Warn().Err(err).Msg("write result")
				}
			}
			err = w.Run(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if err != nil {
				return writeFailure(cmd, app, "watch_failed", err, "", map[string]any{"dir": dir})
			}
			return nil
		},
	}
	common.bind(cmd)
	cmd.Flags().StringVar(&dir, "dir", "/data/inbound", "Directory to watch")
	cmd.Flags().StringSliceVar(&include, "include", inbound.DefaultInclude, "File extensions to register")
	cmd.Flags().DurationVar(&stable, "stable", 10*time.Second, "Size must stay unchanged this long before registering")
	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "Quiet period after the last event on a file")
	cmd.Flags().BoolVar(&useMarker, "done-file", false, "Only register <file> once <file>"+inbound.DoneSuffix+" exists")
	return cmd
}

func newInboundRegisterCmd(app *App) *cobra.Command {
	var common inboundFlags
	cmd := &cobra.Command{
		Use:   "register <file>",
		Short: "Register one file now, the same way the watcher would",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			w, err := inbound.New(client, inbound.Options{
				Dir:       filepath.Dir(path),
				AutoRun:   common.autoRun,
				ModelType: common.model(app),
				Logger:    app.log,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			if !w.IsCandidate(path) {
				return writeFailure(cmd, app, "invalid_input", errors.New("not a candidate file: "+filepath.Base(path)),
					"Supported extensions: .csv, .parquet, .json.", nil)
			}
			res, err := w.Process(cmd.Context(), path)
			if err != nil {
				if errors.Is(err, inbound.ErrNotReady) {
					return writeFailure(cmd, app, "not_ready", err, "", map[string]any{"path": path})
				}
				return writeAPIFailure(cmd, app, err)
			}
			return writeData(cmd, app, nil, resultData(res))
		},
	}
	common.bind(cmd)
	return cmd
}
