package benchctl

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/benchtool/benchtool/internal/cfg"
	"github.com/benchtool/benchtool/internal/common/util"
	"github.com/benchtool/benchtool/internal/metrics"
	"github.com/benchtool/benchtool/internal/sched"
	"github.com/benchtool/benchtool/internal/settings"
)

const lammpsCfg = `[requirements]
code = lammps

[config]
dataset = lj.in

[runtime]
nodes            = 1, 2
threads          = 4
ranks_per_node   = 2
max_running_jobs = 10

[result]
method = expr
expr   = loop_time
unit   = s
`

const lammpsTemplate = `cd <<<working_path>>>
<<<mpi_exec>>> lmp -in <<<dataset>>>
`

const slurmTemplate = `#!/bin/bash
#SBATCH -J <<<job_label>>>
#SBATCH -p <<<queue>>>
#SBATCH -A <<<account>>>
#SBATCH -N <<<nodes>>>
#SBATCH -n <<<ranks>>>
`

const workingDir1 = "frontera_lammps_2024-03-07T09-05_001N_02R_04T"
const workingDir2 = "frontera_lammps_2024-03-07T09-05_002N_02R_04T"

type fixture struct {
	app       *App
	out       *bytes.Buffer
	runs      string
	root      string
	scheduler *sched.FakeScheduler
	local     *sched.FakeLocalRunner
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newFixture lays out a site with one benchmark and returns an app configured from it.
// keys are set on the settings before they are loaded; overloads are passed as on the
// command line.
func newFixture(t *testing.T, keys map[string]interface{}, overloads ...string) *fixture {
	t.Helper()
	root := t.TempDir()
	runs := filepath.Join(root, "runs")
	require.NoError(t, os.MkdirAll(runs, 0o755))
	writeFile(t, filepath.Join(root, "config", "bench", "lammps.cfg"), lammpsCfg)
	writeFile(t, filepath.Join(root, "templates", "bench", "lammps.template"), lammpsTemplate)
	writeFile(t, filepath.Join(root, "templates", "sched", "slurm.template"), slurmTemplate)

	v := viper.New()
	settings.SetDefaults(v)
	v.Set("system", "frontera")
	v.Set("env_file", "")
	v.Set("current_path", runs)
	v.Set("bench_cfg_paths", filepath.Join(root, "config", "bench"))
	v.Set("template_path", filepath.Join(root, "templates"))
	v.Set("captured_path", filepath.Join(root, "results", "captured"))
	v.Set("failed_path", filepath.Join(root, "results", "failed"))
	for k, value := range keys {
		v.Set(k, value)
	}
	parsed, err := cfg.ParseOverloads(overloads)
	require.NoError(t, err)
	s, err := settings.Load(v, parsed)
	require.NoError(t, err)

	out := new(bytes.Buffer)
	f := &fixture{
		out:       out,
		runs:      runs,
		root:      root,
		scheduler: sched.NewFakeScheduler(100),
		local:     &sched.FakeLocalRunner{},
	}
	f.app = &App{
		Params: &Params{
			Settings:  s,
			Overloads: parsed,
			Loader:    &cfg.FileLoader{SearchPaths: s.BenchCfgPaths, System: s.System},
			Scheduler: f.scheduler,
			Local:     f.local,
			Clock:     &util.DummyClock{T: time.Date(2024, 3, 7, 9, 5, 0, 0, time.UTC)},
			Metrics:   metrics.New(),
			Hostname:  "login1.frontera",
		},
		Out: out,
	}
	return f
}

func (f *fixture) path(elem ...string) string {
	return filepath.Join(append([]string{f.runs}, elem...)...)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}
