package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/examai/pipeline-console/internal/mock"

	"github.com/spf13/cobra"
)

func newDevCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Local development helpers",
	}
	cmd.AddCommand(newDevServeCmd(app))
	return cmd
}

func newDevServeCmd(app *App) *cobra.Command {
	var (
		addr       string
		prefix     string
		tick       time.Duration
		checkPaths bool
		seed       bool
		statePath  string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an in-memory fake of the pipeline API",
		Long: "Serves the pipeline API from memory. Queued runs advance one\n" +
			"step per --tick so the console has something to watch.",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := mock.New(mock.Options{Prefix: prefix, CheckPaths: checkPaths})
			if statePath != "" {
				st, err := mock.LoadState(statePath)
				if err != nil {
					return writeFailure(cmd, app, "invalid_state", err, "Delete the file to start empty.", map[string]any{"state": statePath})
				}
				srv.Restore(st)
				defer func() {
					if err := mock.SaveState(statePath, srv.State()); err != nil {
						app.log.Error().Err(err).Str("state", statePath).Msg("save fake api state")
					}
				}()
			}
			if seed && len(srv.Datasets()) == 0 {
				if ds, err := srv.AddDataset("sample", "/data/inbound/sample_timeseries.csv", map[string]any{"note": "seeded by dev serve"}); err == nil {
					_, _ = srv.AddRun(ds.ID, app.cfg.ModelType)
				}
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return writeFailure(cmd, app, "listen_failed", err, "Pick another --addr.", map[string]any{"addr": addr})
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			hs := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 5 * time.Second}
			if tick > 0 {
				go srv.Simulate(ctx, tick)
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
				defer done()
				_ = hs.Shutdown(shutdownCtx)
			}()

			base := "http://" + ln.Addr().String() + prefix
			app.log.Info().Str("addr", ln.Addr().String()).Str("api", base).Dur("tick", tick).Msg("fake api listening")
			if err := writeData(cmd, app, map[string]any{
				"hint": "Point the console at it: pipeconsole --api " + base,
			}, map[string]any{"apiUrl": base}); err != nil {
				return err
			}
			if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8000", "Listen address")
	cmd.Flags().StringVar(&prefix, "prefix", "/api", "Route prefix")
	cmd.Flags().DurationVar(&tick, "tick", 2*time.Second, "Advance simulated runs this often (0 = never)")
	cmd.Flags().BoolVar(&checkPaths, "check-paths", false, "Reject datasets whose source_path does not exist")
	cmd.Flags().BoolVar(&seed, "seed", false, "Start with one dataset and one queued run")
	cmd.Flags().StringVar(&statePath, "state", "", "Load fake API contents from this JSON file and save them on exit")
	return cmd
}
