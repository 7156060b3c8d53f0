package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/examai/pipeline-console/internal/api"
	"github.com/examai/pipeline-console/internal/browseropen"
	"github.com/examai/pipeline-console/internal/buildinfo"
	"github.com/examai/pipeline-console/internal/config"
	"github.com/examai/pipeline-console/internal/configstore"
	"github.com/examai/pipeline-console/internal/console"
	"github.com/examai/pipeline-console/internal/format"
	"github.com/examai/pipeline-console/internal/httpx"
	"github.com/examai/pipeline-console/internal/logging"
	"github.com/examai/pipeline-console/internal/tui"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// skipConfig marks commands that must work even when the config is broken.
const skipConfig = "skip-config"

type App struct {
	APIURL       string
	Format       string
	PrettyJSON   bool
	LogLevel     string
	LogFile      string
	ConfigFile   string
	PollInterval time.Duration

	cfg      *config.Config
	log      zerolog.Logger
	closeLog func() error
}

func NewRootCmd() *cobra.Command {
	app := &App{log: zerolog.Nop()}

	cmd := &cobra.Command{
		Use:          "pipeconsole",
		Short:        "Operator console for the ML pipeline API",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd, isTUI(cmd, args))
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.APIURL, "api", configstore.DefaultLocalAPIURL, "API base URL (or set "+config.EnvPrefix+"_API_URL)")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr(config.EnvPrefix+"_FORMAT", "json"), "Output format (json|edn)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print output")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&app.LogFile, "log-file", "", "Append logs to this file (the TUI always logs to a file)")
	cmd.PersistentFlags().StringVar(&app.ConfigFile, "config", "", "Config file (default: user config dir)")
	cmd.PersistentFlags().DurationVar(&app.PollInterval, "poll-interval", console.DefaultPollInterval, "Refresh interval")

	cmd.AddCommand(newDatasetsCmd(app))
	cmd.AddCommand(newRunsCmd(app))
	cmd.AddCommand(newAPICmd(app))
	cmd.AddCommand(newInboundCmd(app))
	cmd.AddCommand(newDevCmd(app))
	cmd.AddCommand(newVersionCmd(app))

	return cmd
}

func isTUI(cmd *cobra.Command, args []string) bool {
	return cmd == cmd.Root() && len(args) == 0
}

// init resolves configuration and the logger. In TUI mode logs always go to
// a file since the terminal belongs to the console.
func (app *App) init(cmd *cobra.Command, tuiMode bool) error {
	if cmd.Annotations[skipConfig] == "true" {
		return nil
	}
	cfg, err := config.Load(app.ConfigFile, cmd.Flags())
	if err != nil {
		return writeErr(cmd, err)
	}
	app.cfg = cfg
	app.APIURL = cfg.APIURL
	app.Format = cfg.Format
	app.PrettyJSON = cfg.Pretty
	app.PollInterval = cfg.PollInterval

	logFile := cfg.LogFile
	if tuiMode && logFile == "" {
		logFile = logging.DefaultFile()
	}
	log, closeFn, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		File:    logFile,
		Console: cmd.ErrOrStderr(),
	})
	if err != nil {
		return writeErr(cmd, err)
	}
	app.log = log
	app.closeLog = closeFn
	app.log.Debug().
		Str("api", cfg.APIURL).
		Str("config", cfg.ConfigFile).
		Str("version", buildinfo.DisplayVersion()).
		Msg("config resolved")
	return nil
}

func (app *App) close() error {
	if app.closeLog == nil {
		return nil
	}
	err := app.closeLog()
	app.closeLog = nil
	return err
}

func (app *App) settings() (*config.Config, error) {
	if app.cfg == nil {
		return nil, errors.New("config not loaded")
	}
	return app.cfg, nil
}

func (app *App) client() (api.Client, error) {
	cfg, err := app.settings()
	if err != nil {
		return api.Client{}, err
	}
	return api.Client{
		BaseURL: cfg.APIURL,
		HTTP: httpx.NewClient(httpx.Options{
			Timeout:  cfg.RequestTimeout,
			RetryMax: cfg.RetryMax,
			Logger:   app.log,
		}),
	}, nil
}

func (app *App) newConsole(client api.Client, tab console.Tab) *console.Console {
	return console.New(console.Options{
		Backend:      client,
		PollInterval: app.cfg.PollInterval,
		LogLines:     app.cfg.LogLines,
		ModelType:    app.cfg.ModelType,
		InitialTab:   tab,
		Logger:       app.log,
	})
}

func runTUI(cmd *cobra.Command, app *App) error {
	client, err := app.client()
	if err != nil {
		return writeErr(cmd, err)
	}
	docs, err := browseropen.DocsURL(app.cfg.APIURL)
	if err != nil {
		app.log.Warn().Err(err).Msg("docs link disabled")
	}
	var open func(string) error
	if docs != "" {
		open = browseropen.Open
	}
	app.log.Info().Str("api", app.cfg.APIURL).Msg("starting console")
	err = tui.Run(cmd.Context(), tui.Config{
		Console:      app.newConsole(client, console.TabDashboard),
		APIURL:       app.cfg.APIURL,
		DocsURL:      docs,
		PollInterval: app.cfg.PollInterval,
		Version:      buildinfo.Inline(),
		Logger:       app.log,
		OpenURL:      open,
	})
	if err != nil {
		return writeErr(cmd, fmt.Errorf("console: %w", err))
	}
	return nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
