package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchtool/benchtool/internal/cfg"
	"github.com/benchtool/benchtool/internal/common/bencherrors"
)

const settingsFile = `
system: frontera
bench_mode: sched
bench_cfg_paths:
  - ./config/bench
  - /opt/site/bench
template_path: ./templates
allow_local_mpi: true
sched:
  type: slurm
  queue: development
overloads:
  threads: "8"
  queue: small
suites:
  nightly: "lammps:wrf"
`

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func load(t *testing.T, path string, pairs ...string) (*Settings, *cfg.Overloads, error) {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	v.Set("env_file", "")
	require.NoError(t, ReadSettingsFile(v, path))
	overloads, err := cfg.ParseOverloads(pairs)
	require.NoError(t, err)
	s, err := Load(v, overloads)
	return s, overloads, err
}

func TestLoad(t *testing.T) {
	t.Setenv("BP_HOME", "/site")
	s, overloads, err := load(t, writeSettings(t, settingsFile), "queue=normal", "account=A-1", "nodes=4")
	require.NoError(t, err)

	assert.Equal(t, "frontera", s.System)
	assert.Equal(t, ModeSched, s.BenchMode)
	assert.Equal(t, []string{"/site/config/bench", "/opt/site/bench"}, s.BenchCfgPaths)
	assert.Equal(t, "/site/templates", s.TemplatePath)
	assert.True(t, s.AllowLocalMPI)
	assert.Equal(t, "bench_report.txt", s.BenchReportFile)
	assert.Equal(t, uint(3), s.SubmitRetries)
	assert.Equal(t, []string{"queue", "account"}, s.RequiredOverloads)
	assert.Equal(t, "lammps:wrf", s.Suites["nightly"])
	assert.Equal(t, "slurm.template", s.SchedTemplate())

	// Command line overloads beat the settings file, including its overloads section.
	assert.Equal(t, "normal", s.Sched.Queue)
	assert.Equal(t, "A-1", s.Sched.Account)
	assert.Equal(t, "normal", s.Value("queue"))
	assert.Equal(t, "normal", s.Values()["sched.queue"])

	value, ok := overloads.Get("threads")
	assert.True(t, ok)
	assert.Equal(t, "8", value)
	assert.Equal(t, []string{"nodes", "threads"}, overloads.Unused())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("BP_SYSTEM", "stampede3")
	t.Setenv("BP_SCHED_USER", "bench")
	s, _, err := load(t, writeSettings(t, settingsFile))
	require.NoError(t, err)
	assert.Equal(t, "stampede3", s.System)
	assert.Equal(t, "bench", s.Sched.User)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]struct {
		content string
	}{
		"no system":       {"bench_mode: sched\n"},
		"bad bench mode":  {"system: frontera\nbench_mode: remote\n"},
		"bad log format":  {"system: frontera\nlog_format: xml\n"},
		"unresolved path": {"system: frontera\ntemplate_path: $BENCHTOOL_UNSET_VARIABLE/templates\n"},
		"zero retries":    {"system: frontera\nsubmit_retries: 0\n"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := load(t, writeSettings(t, tc.content))
			var configErr *bencherrors.ErrConfiguration
			assert.True(t, errors.As(err, &configErr), "expected a configuration error, got %v", err)
		})
	}
}

func TestReadSettingsFile_Malformed(t *testing.T) {
	v := viper.New()
	err := ReadSettingsFile(v, writeSettings(t, "system: [unterminated\n"))
	var configErr *bencherrors.ErrConfiguration
	assert.True(t, errors.As(err, &configErr))
}

func TestReadSettingsFile_NoDefaultFile(t *testing.T) {
	homedir.DisableCache = true
	defer func() { homedir.DisableCache = false }()
	t.Setenv("HOME", t.TempDir())

	v := viper.New()
	assert.NoError(t, ReadSettingsFile(v, ""))
}

func TestCheckRequired(t *testing.T) {
	s, _, err := load(t, writeSettings(t, settingsFile))
	require.NoError(t, err)

	err = s.CheckRequired()
	var configErr *bencherrors.ErrConfiguration
	require.True(t, errors.As(err, &configErr))
	assert.Equal(t, "account", configErr.Value)

	s.BenchMode = ModeLocal
	assert.NoError(t, s.CheckRequired())
}

func TestResolvePath(t *testing.T) {
	t.Setenv("BENCHTOOL_TEST_ROOT", "/scratch")
	tests := map[string]struct {
		path     string
		home     string
		expected string
		err      bool
	}{
		"absolute":   {path: "/opt/bench", expected: "/opt/bench"},
		"variable":   {path: "$BENCHTOOL_TEST_ROOT/runs", expected: "/scratch/runs"},
		"relative":   {path: "./results", home: "/site", expected: "/site/results"},
		"no home":    {path: "./results", expected: "./results"},
		"empty":      {path: "", expected: ""},
		"unresolved": {path: "$BENCHTOOL_UNSET_VARIABLE/x", err: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			resolved, err := ResolvePath(tc.path, tc.home)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, resolved)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	const key = "BENCHTOOL_TEST_DOTENV"
	t.Cleanup(func() { os.Unsetenv(key) })
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-dotenv\n"), 0o644))

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-dotenv", os.Getenv(key))

	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	assert.NoError(t, LoadEnvFile(""))
}
