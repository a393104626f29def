package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchtool/benchtool/internal/common/bencherrors"
)

func TestSubstitute(t *testing.T) {
	out, missing := Substitute("#SBATCH -N <<<nodes>>>\n<<< mpi_exec >>><<<exe>>> <<<x>>> <<<x>>>", map[string]string{
		"nodes":    "4",
		"mpi_exec": "ibrun ",
		"exe":      "lmp",
	})
	assert.Equal(t, "#SBATCH -N 4\nibrun lmp <<<x>>> <<<x>>>", out)
	assert.Equal(t, []string{"x"}, missing)
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	header := filepath.Join(dir, "slurm.template")
	body := filepath.Join(dir, "lammps.template")
	require.NoError(t, os.WriteFile(header, []byte("#!/bin/bash\n#SBATCH -N <<<nodes>>>\n"), 0o644))
	require.NoError(t, os.WriteFile(body, []byte("<<<mpi_exec>>><<<exe>>> -in <<<dataset>>>\n"), 0o644))

	dest := filepath.Join(dir, "bench.sched")
	err := Render(dest, map[string]string{"nodes": "2", "mpi_exec": "ibrun ", "exe": "lmp", "dataset": "in.lj"}, header, body)
	require.NoError(t, err)

	b, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/bash\n#SBATCH -N 2\n\nibrun lmp -in in.lj\n", string(b))
	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o100)
}

func TestRender_MissingValue(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "t.template")
	require.NoError(t, os.WriteFile(tmpl, []byte("<<<exe>>> <<<dataset>>>"), 0o644))
	dest := filepath.Join(dir, "bench.job")

	err := Render(dest, map[string]string{"exe": "lmp"}, tmpl)
	var e *bencherrors.ErrEvaluation
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "dataset", e.Key)
	assert.NoFileExists(t, dest)
}

func TestRender_MissingTemplate(t *testing.T) {
	err := Render(filepath.Join(t.TempDir(), "x"), nil, "/does/not/exist.template")
	assert.Error(t, err)
}
