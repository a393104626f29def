package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/benchtool/benchtool/internal/benchctl"
	"github.com/benchtool/benchtool/internal/results"
)

func resultCmd(app *benchctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "result",
		Short: "Record, show and archive the results of benchmark runs.",
	}

	cmd.AddCommand(
		resultRecordCmd(app),
		resultShowCmd(app),
		resultArchiveCmd(app),
	)

	return cmd
}

// Recording and showing results only touches the run directories, so they don't need
// the settings to be valid.
func initResultParams(cmd *cobra.Command, app *benchctl.App) error {
	app.Out = cmd.OutOrStdout()
	return initLogging(viper.GetViper())
}

func resultRecordCmd(app *benchctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record <run dir>",
		Short: "Cache the outcome of a finished run. An existing cached outcome is kept.",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initResultParams(cmd, app)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := cmd.Flags().GetString("status")
			if err != nil {
				return err
			}
			value, err := cmd.Flags().GetString("value")
			if err != nil {
				return err
			}
			return app.RecordResult(args[0], status, value)
		},
	}

	cmd.Flags().String("status", results.StatusComplete, "run status: complete or failed")
	cmd.Flags().String("value", "", "measured result")

	return cmd
}

func resultShowCmd(app *benchctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run dir>...",
		Short: "Show the cached outcome of runs.",
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initResultParams(cmd, app)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.ShowResults(args...)
		},
	}
	return cmd
}

func resultArchiveCmd(app *benchctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive <run dir>",
		Short: "Move a run with a cached outcome into the captured or failed archive.",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, app)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			collect, err := cmd.Flags().GetString("collect")
			if err != nil {
				return err
			}
			_, err = app.ArchiveResult(args[0], collect)
			return err
		},
	}

	cmd.Flags().String("collect", "", "copy the output and provenance files of the run into this directory first")

	return cmd
}
