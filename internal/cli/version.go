package cli

import (
	"github.com/examai/pipeline-console/internal/buildinfo"
	"github.com/spf13/cobra"
)

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print build information",
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			info := buildinfo.Current()
			return writeData(cmd, app, nil, map[string]any{
				"version":    info.Version,
				"rawVersion": buildinfo.Version,
				"commit":     info.Commit,
				"date":       info.Date,
			})
		},
	}
}
