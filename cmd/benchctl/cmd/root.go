package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/benchtool/benchtool/internal/benchctl"
)

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "benchctl",
		Short: "benchctl generates and submits benchmark sweeps and manages their results.",
		Long: `benchctl generates and submits benchmark sweeps and manages their results.

Persistent settings can be saved in a settings file so they don't have to be specified every command.

Example structure:
system: frontera
bench_mode: sched
bench_cfg_paths: ./config/bench
template_path: ./templates
sched:
  type: slurm
  queue: normal
  account: A-12345

The location of this file can be passed in using the --config argument.
If not provided, $HOME/.benchtool.yaml is used. Every key can also be set
with a BP_ prefixed environment variable, e.g. BP_SYSTEM or BP_SCHED_QUEUE.`,
		SilenceUsage: true,
	}

	addPersistentFlags(cmd)

	cmd.AddCommand(
		benchCmd(benchctl.New()),
		resultCmd(benchctl.New()),
		versionCmd(benchctl.New()),
	)

	return cmd
}

func addPersistentFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("config", "", "settings file (default is $HOME/.benchtool.yaml)")
	flags.StringArrayP("overload", "o", nil, "override a setting or benchmark cfg key, as key=value (repeatable)")
	flags.Bool("dry-run", false, "generate scripts without submitting or running them")
	flags.String("mode", "", "where jobs run: sched or local")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-format", "", "log format: text or json")
	flags.String("metrics-textfile", "", "write Prometheus metrics to this file on exit")

	viper.BindPFlag("dry_run", flags.Lookup("dry-run"))
	viper.BindPFlag("bench_mode", flags.Lookup("mode"))
	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.BindPFlag("log_format", flags.Lookup("log-format"))
	viper.BindPFlag("metrics_textfile", flags.Lookup("metrics-textfile"))
}
