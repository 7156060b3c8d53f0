package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/examai/pipeline-console/internal/console"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func newDatasetsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "datasets",
		Aliases: []string{"dataset", "ds"},
		Short:   "List and register datasets",
	}
	cmd.AddCommand(newDatasetsListCmd(app))
	cmd.AddCommand(newDatasetsCreateCmd(app))
	return cmd
}

func newDatasetsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List datasets (most recent first)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			items, err := client.ListDatasets(cmd.Context())
			if err != nil {
				return writeAPIFailure(cmd, app, err)
			}
			return writeData(cmd, app, map[string]any{"count": len(items)}, items)
		},
	}
}

func newDatasetsCreateCmd(app *App) *cobra.Command {
	var (
		name       string
		sourcePath string
		metaPairs  []string
		noPrompt   bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := parseMeta(metaPairs)
			if err != nil {
				return writeFailure(cmd, app, "invalid_input", err, "Use --meta key=value (values may be JSON).", nil)
			}
			if (strings.TrimSpace(name) == "" || strings.TrimSpace(sourcePath) == "") && !noPrompt && interactive(cmd) {
				if err := promptDataset(cmd, &name, &sourcePath); err != nil {
					return writeErr(cmd, err)
				}
			}
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			c := app.newConsole(client, console.TabDatasets)
			ds, err := c.CreateDataset(cmd.Context(), name, sourcePath, meta)
			if err != nil {
				if errors.Is(err, console.ErrInvalidInput) {
					return writeFailure(cmd, app, "invalid_input", err, "Both --name and --source-path are required.", nil)
				}
				return writeAPIFailure(cmd, app, err)
			}
			app.log.Info().Int64("dataset", ds.ID).Str("name", ds.Name).Msg("dataset created")
			return writeData(cmd, app, map[string]any{
				"hint": fmt.Sprintf("Start a run: pipeconsole runs create --dataset %d", ds.ID),
			}, ds)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Dataset name")
	cmd.Flags().StringVar(&sourcePath, "source-path", "", "Path of the source file on the pipeline host")
	cmd.Flags().StringArrayVar(&metaPairs, "meta", nil, "Metadata key=value (repeatable)")
	cmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "Never prompt for missing values")
	return cmd
}

// parseMeta turns key=value pairs into a meta object. Values that parse as
// JSON keep their type; anything else is stored as a string.
func parseMeta(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid meta %q (expected key=value)", p)
		}
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err == nil {
			out[k] = decoded
			continue
		}
		out[k] = v
	}
	return out, nil
}

func interactive(cmd *cobra.Command) bool {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func promptDataset(cmd *cobra.Command, name, sourcePath *string) error {
	required := func(label string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", label)
			}
			return nil
		}
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Dataset name").
				Placeholder("sample").
				Value(name).
				Validate(required("name")),
			huh.NewInput().
				Title("Source path").
				Placeholder("/data/inbound/sample_timeseries.csv").
				Value(sourcePath).
				Validate(required("source path")),
		),
	).WithOutput(cmd.ErrOrStderr())
	return form.RunWithContext(cmd.Context())
}
