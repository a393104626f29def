// Package settings holds the site and user settings of a benchctl run. Settings are read
// from an optional YAML file, BP_ prefixed environment variables, an optional .env file
// and command line flags, in increasing order of precedence, followed by overloads.
package settings

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/benchtool/benchtool/internal/cfg"
	"github.com/benchtool/benchtool/internal/common/bencherrors"
	"github.com/benchtool/benchtool/internal/common/config"
)

const (
	EnvPrefix       = "BP"
	DefaultFileName = ".benchtool"

	ModeSched = "sched"
	ModeLocal = "local"
)

// SchedSettings configures the batch scheduler. Overload keys are matched against these
// without the "sched." prefix.
type SchedSettings struct {
	Type    string `mapstructure:"type"`
	User    string `mapstructure:"user"`
	Queue   string `mapstructure:"queue"`
	Account string `mapstructure:"account"`
	// Cfg is an optional scheduler cfg file copied into the provenance directory.
	Cfg string `mapstructure:"cfg"`
}

type Settings struct {
	System        string   `mapstructure:"system" validate:"required"`
	Home          string   `mapstructure:"home"`
	BenchMode     string   `mapstructure:"bench_mode" validate:"oneof=sched local"`
	DryRun        bool     `mapstructure:"dry_run"`
	CurrentPath   string   `mapstructure:"current_path"`
	BenchCfgPaths []string `mapstructure:"bench_cfg_paths" validate:"required,min=1"`
	TemplatePath  string   `mapstructure:"template_path" validate:"required"`

	SchedMPI      string `mapstructure:"sched_mpi"`
	LocalMPI      string `mapstructure:"local_mpi"`
	AllowLocalMPI bool   `mapstructure:"allow_local_mpi"`

	OutputFile      string `mapstructure:"output_file" validate:"required"`
	BenchReportFile string `mapstructure:"bench_report_file" validate:"required"`
	BuildReportFile string `mapstructure:"build_report_file"`

	BenchmarkRepo string `mapstructure:"benchmark_repo"`
	PendingPath   string `mapstructure:"pending_path"`
	CapturedPath  string `mapstructure:"captured_path"`
	FailedPath    string `mapstructure:"failed_path"`

	SubmitRetries     uint              `mapstructure:"submit_retries" validate:"gte=1"`
	Overloads         map[string]string `mapstructure:"overloads"`
	Suites            map[string]string `mapstructure:"suites"`
	RequiredOverloads []string          `mapstructure:"required_overloads"`
	CfgCacheExpiry    time.Duration     `mapstructure:"cfg_cache_expiry"`

	MetricsTextfile string `mapstructure:"metrics_textfile"`
	LogLevel        string `mapstructure:"log_level"`
	LogFormat       string `mapstructure:"log_format" validate:"oneof=text json"`
	EnvFile         string `mapstructure:"env_file"`

	Sched SchedSettings `mapstructure:"sched"`

	// values holds every scalar key as a string once overloads are applied.
	values map[string]string
}

// SetDefaults registers every settings key with v, which also makes each key visible to
// AutomaticEnv and to overloads.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("system", "")
	v.SetDefault("home", "")
	v.SetDefault("bench_mode", ModeSched)
	v.SetDefault("dry_run", false)
	v.SetDefault("current_path", "")
	v.SetDefault("bench_cfg_paths", "./config/bench")
	v.SetDefault("template_path", "./templates")
	v.SetDefault("sched_mpi", "ibrun")
	v.SetDefault("local_mpi", "mpirun")
	v.SetDefault("allow_local_mpi", false)
	v.SetDefault("output_file", "output.log")
	v.SetDefault("bench_report_file", "bench_report.txt")
	v.SetDefault("build_report_file", "build_report.txt")
	v.SetDefault("benchmark_repo", "")
	v.SetDefault("pending_path", "./results/pending")
	v.SetDefault("captured_path", "./results/captured")
	v.SetDefault("failed_path", "./results/failed")
	v.SetDefault("submit_retries", 3)
	v.SetDefault("overloads", map[string]string{})
	v.SetDefault("suites", map[string]string{})
	v.SetDefault("required_overloads", "queue, account")
	v.SetDefault("cfg_cache_expiry", "5m")
	v.SetDefault("metrics_textfile", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("env_file", ".env")
	v.SetDefault("sched.type", "slurm")
	v.SetDefault("sched.user", "")
	v.SetDefault("sched.queue", "")
	v.SetDefault("sched.account", "")
	v.SetDefault("sched.cfg", "")
}

// ReadSettingsFile merges the settings file into v. Without cfgFile, $HOME/.benchtool.yaml
// is used when it exists.
func ReadSettingsFile(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return errors.Wrap(err, "error getting user home directory")
		}
		v.AddConfigPath(home)
		v.SetConfigName(DefaultFileName)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.MergeInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Only happens for the default file, which users don't have to create.
			return nil
		}
		return errors.WithStack(&bencherrors.ErrConfiguration{
			Key:     "config",
			Value:   v.ConfigFileUsed(),
			Message: err.Error(),
		})
	}
	return nil
}

// LoadEnvFile loads variables from a .env file into the process environment. Variables
// that are already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debugf("no env file at %s", path)
			return nil
		}
		return errors.WithStack(&bencherrors.ErrConfiguration{
			Key:     "env_file",
			Value:   path,
			Message: err.Error(),
		})
	}
	return nil
}

// Load reads settings from v. Overloads from the settings file are merged into overloads,
// with the ones already present taking precedence, and are applied to settings and
// scheduler keys before decoding.
func Load(v *viper.Viper, overloads *cfg.Overloads) (*Settings, error) {
	if err := LoadEnvFile(v.GetString("env_file")); err != nil {
		return nil, err
	}
	if overloads != nil {
		overloads.Merge(v.GetStringMapString("overloads"))
		for _, target := range Targets(v) {
			overloads.Apply(target)
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s, config.CustomHooks...); err != nil {
		return nil, errors.WithStack(&bencherrors.ErrConfiguration{
			Key:     "settings",
			Message: err.Error(),
		})
	}
	s.values = flatten(v)
	if err := s.resolvePaths(); err != nil {
		return nil, err
	}
	if err := config.Validate(s); err != nil {
		return nil, errors.WithStack(&bencherrors.ErrConfiguration{
			Key:     "settings",
			Message: err.Error(),
		})
	}
	return s, nil
}

func (s *Settings) resolvePaths() error {
	if s.Home == "" {
		s.Home = os.Getenv(EnvPrefix + "_HOME")
	}
	if s.CurrentPath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return errors.WithStack(err)
		}
		s.CurrentPath = cwd
	}
	paths := []*string{
		&s.CurrentPath,
		&s.TemplatePath,
		&s.BenchmarkRepo,
		&s.PendingPath,
		&s.CapturedPath,
		&s.FailedPath,
		&s.MetricsTextfile,
		&s.EnvFile,
		&s.Sched.Cfg,
	}
	for _, p := range paths {
		resolved, err := ResolvePath(*p, s.Home)
		if err != nil {
			return err
		}
		*p = resolved
	}
	for i, p := range s.BenchCfgPaths {
		resolved, err := ResolvePath(p, s.Home)
		if err != nil {
			return err
		}
		s.BenchCfgPaths[i] = resolved
	}
	return nil
}

// ResolvePath expands environment variables in path and anchors "./" paths at home.
// A variable that does not resolve is a configuration error.
func ResolvePath(path, home string) (string, error) {
	expanded := os.ExpandEnv(path)
	if strings.Contains(expanded, "$") {
		return "", errors.WithStack(&bencherrors.ErrConfiguration{
			Key:     "path",
			Value:   path,
			Message: "unable to resolve environment variable",
		})
	}
	if home != "" && strings.HasPrefix(expanded, "./") {
		return filepath.Join(home, expanded[2:]), nil
	}
	return expanded, nil
}

// SchedTemplate is the scheduler script template for the configured scheduler type.
func (s *Settings) SchedTemplate() string {
	return s.Sched.Type + ".template"
}

// Value returns the string form of a settings key. Scheduler keys can be named with or
// without their "sched." prefix.
func (s *Settings) Value(key string) string {
	if value, ok := s.values[SchedPrefix+key]; ok && value != "" {
		return value
	}
	return s.values[key]
}

// Values returns every scalar setting, with scheduler keys under both their full and
// short names. Used to feed script templates.
func (s *Settings) Values() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	for k, v := range s.values {
		if short := strings.TrimPrefix(k, SchedPrefix); short != k {
			out[short] = v
		}
	}
	return out
}

// MissingRequired returns the required overload keys that have no value.
func (s *Settings) MissingRequired() []string {
	var missing []string
	for _, key := range s.RequiredOverloads {
		if s.Value(key) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// CheckRequired fails with a configuration error when running in scheduler mode without
// the required overloads set.
func (s *Settings) CheckRequired() error {
	if s.BenchMode != ModeSched {
		return nil
	}
	if missing := s.MissingRequired(); len(missing) > 0 {
		return errors.WithStack(&bencherrors.ErrConfiguration{
			Key:     "required_overloads",
			Value:   strings.Join(missing, ", "),
			Message: "set these with --overload key=value or in the settings file",
		})
	}
	return nil
}
