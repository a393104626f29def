package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/benchtool/benchtool/internal/benchctl"
	"github.com/benchtool/benchtool/internal/cfg"
	"github.com/benchtool/benchtool/internal/common/logging"
	"github.com/benchtool/benchtool/internal/sched"
	"github.com/benchtool/benchtool/internal/settings"
)

// initParams reads settings from the settings file, the environment and flags, and builds
// the adapters of app from them.
func initParams(cmd *cobra.Command, app *benchctl.App) error {
	v := viper.GetViper()
	settings.SetDefaults(v)
	cfgFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	if err := settings.ReadSettingsFile(v, cfgFile); err != nil {
		return err
	}
	if err := initLogging(v); err != nil {
		return err
	}

	pairs, err := cmd.Flags().GetStringArray("overload")
	if err != nil {
		return err
	}
	overloads, err := cfg.ParseOverloads(pairs)
	if err != nil {
		return err
	}
	s, err := settings.Load(v, overloads)
	if err != nil {
		return err
	}

	scheduler, err := sched.New(sched.Config{
		Type:     s.Sched.Type,
		User:     s.Sched.User,
		Attempts: s.SubmitRetries,
	}, sched.ExecRunner{})
	if err != nil {
		return err
	}

	app.Params.Settings = s
	app.Params.Overloads = overloads
	app.Params.Loader = cfg.NewCachedLoader(&cfg.FileLoader{SearchPaths: s.BenchCfgPaths, System: s.System}, s.CfgCacheExpiry)
	app.Params.Scheduler = scheduler
	app.Params.Local = &sched.LocalShell{}
	app.Out = cmd.OutOrStdout()
	return nil
}

func initLogging(v *viper.Viper) error {
	if err := logging.SetLevel(v.GetString("log_level")); err != nil {
		return err
	}
	if format := v.GetString("log_format"); format != "" && format != "text" {
		if err := logging.ConfigureLogging(os.Stdout, format); err != nil {
			return err
		}
	}
	if v.GetString("metrics_textfile") != "" {
		return logging.EnableMetrics()
	}
	return nil
}
