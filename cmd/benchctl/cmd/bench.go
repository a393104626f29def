package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/benchtool/benchtool/internal/benchctl"
)

// Generate the job scripts of a benchmark sweep and submit them.
// Prints a summary of the session on exit.
func benchCmd(app *benchctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench <label[:label...] | suite>",
		Short: "Generate and submit the sweep of one or more benchmarks.",
		Long: `Generate and submit the sweep of one or more benchmarks.

The argument is either the name of a suite from the settings file or a list of
benchmark labels separated by ':'. Each label names a <label>.cfg file found in
one of the bench_cfg_paths.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, app)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Create a context that is cancelled on SIGINT/SIGTERM.
			// Stops submission retries on ctrl-C.
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			stopSignal := make(chan os.Signal, 1)
			signal.Notify(stopSignal, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(stopSignal)
			go func() {
				select {
				case <-ctx.Done():
					return
				case <-stopSignal:
					cancel()
				}
			}()

			summary, err := app.Bench(ctx, args[0])
			if summary != nil {
				summary.Print(app.Out)
			}
			return err
		},
	}
	return cmd
}
