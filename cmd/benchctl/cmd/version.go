package cmd

import (
	"github.com/spf13/cobra"

	"github.com/benchtool/benchtool/internal/benchctl"
)

// Print version info and exit.
func versionCmd(app *benchctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Out = cmd.OutOrStdout()
			return app.Version()
		},
	}
	return cmd
}
