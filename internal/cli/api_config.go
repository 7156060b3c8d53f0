package cli

import (
	"os"
	"strings"
	"time"

	"github.com/examai/pipeline-console/internal/config"
	"github.com/examai/pipeline-console/internal/configstore"

	"github.com/spf13/cobra"
)

var apiURLEnv = config.EnvPrefix + "_API_URL"

func newAPICmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Configure API base URL",
	}
	cmd.AddCommand(newAPIShowCmd(app))
	cmd.AddCommand(newAPIUseCmd(app))
	cmd.AddCommand(newAPIPingCmd(app))
	return cmd
}

func storePath(app *App) (string, error) {
	if p := strings.TrimSpace(app.ConfigFile); p != "" {
		return p, nil
	}
	return configstore.DefaultPath()
}

func newAPIShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Show current API base URL",
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := storePath(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := configstore.Load(path)
			if err != nil {
				// If config doesn't exist, report defaults.
				meta := map[string]any{
					"storePath": path,
					"stored":    false,
				}
				return writeData(cmd, app, meta, map[string]any{
					"apiUrl": configstore.DefaultLocalAPIURL,
				})
			}
			meta := map[string]any{
				"storePath": path,
				"stored":    true,
			}
			apiURL := st.EffectiveAPIURL()
			if envURL := strings.TrimRight(strings.TrimSpace(os.Getenv(apiURLEnv)), "/"); envURL != "" && envURL != apiURL {
				meta["warning"] = apiURLEnv + " is set and overrides the stored URL in your current shell."
				meta["effectiveApiUrl"] = envURL
			}
			data := map[string]any{"apiUrl": apiURL}
			if st.ModelType != "" {
				data["modelType"] = st.ModelType
			}
			if err := st.Validate(); err != nil {
				meta["invalid"] = err.Error()
			}
			return writeData(cmd, app, meta, data)
		},
	}
}

func newAPIUseCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "use <local|url>",
		Short:       "Switch API base URL",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			apiURL, err := configstore.ResolveAPIURL(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}

			path, err := storePath(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			// Keep other stored settings.
			st, err := configstore.Load(path)
			if err != nil {
				st = &configstore.Store{}
			}
			st.APIURL = apiURL
			if err := configstore.SaveAtomic(path, st); err != nil {
				return writeErr(cmd, err)
			}

			meta := map[string]any{
				"storePath": path,
				"stored":    true,
				"hint":      "You can still override per-run via --api or " + apiURLEnv + ".",
			}
			if envURL := strings.TrimSpace(os.Getenv(apiURLEnv)); envURL != "" {
				envURL = strings.TrimRight(envURL, "/")
				if envURL != apiURL {
					meta["warning"] = apiURLEnv + " is set and will override this config in your current shell."
					meta["unsetEnv"] = "unset " + apiURLEnv
				}
			}
			return writeData(cmd, app, meta, map[string]any{"apiUrl": apiURL})
		},
	}
	return cmd
}

func newAPIPingCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the API answers GET /health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			start := time.Now()
			if err := client.Health(cmd.Context()); err != nil {
				return writeAPIFailure(cmd, app, err)
			}
			return writeData(cmd, app, map[string]any{"elapsed": time.Since(start).Round(time.Millisecond).String()},
				map[string]any{"apiUrl": app.APIURL, "healthy": true})
		},
	}
}
