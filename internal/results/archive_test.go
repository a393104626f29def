package results

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchtool/benchtool/internal/common/bencherrors"
)

func makeRun(t *testing.T, dir, marker string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker"), []byte(marker), 0o644))
}

func readMarker(t *testing.T, dir string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, "marker"))
	require.NoError(t, err)
	return string(b)
}

func TestMoveToArchive(t *testing.T) {
	pending := t.TempDir()
	archive := filepath.Join(t.TempDir(), "captured")
	src := filepath.Join(pending, "run_001N")
	makeRun(t, src, "new")

	dest, err := MoveToArchive(src, archive)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(archive, "run_001N"), dest)
	assert.Equal(t, "new", readMarker(t, dest))
	assert.NoDirExists(t, src)
}

func TestMoveToArchive_Collisions(t *testing.T) {
	pending := t.TempDir()
	archive := t.TempDir()
	makeRun(t, filepath.Join(archive, "run"), "first")
	makeRun(t, filepath.Join(archive, "run.dup"), "second")
	src := filepath.Join(pending, "run")
	makeRun(t, src, "third")

	dest, err := MoveToArchive(src, archive)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(archive, "run.dup.dup"), dest)
	assert.Equal(t, "first", readMarker(t, filepath.Join(archive, "run")))
	assert.Equal(t, "second", readMarker(t, filepath.Join(archive, "run.dup")))
	assert.Equal(t, "third", readMarker(t, dest))

	entries, err := os.ReadDir(pending)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMoveToArchive_LocalDuplicateName(t *testing.T) {
	pending := t.TempDir()
	archive := t.TempDir()
	makeRun(t, filepath.Join(archive, "run"), "archived")
	makeRun(t, filepath.Join(pending, "run.dup"), "unrelated")
	src := filepath.Join(pending, "run")
	makeRun(t, src, "mine")

	dest, err := MoveToArchive(src, archive)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(archive, "run.dup.dup"), dest)
	assert.Equal(t, "mine", readMarker(t, dest))
	assert.Equal(t, "unrelated", readMarker(t, filepath.Join(pending, "run.dup")))
}

func TestMoveToArchive_TrailingSlash(t *testing.T) {
	pending := t.TempDir()
	archive := t.TempDir()
	makeRun(t, filepath.Join(archive, "run"), "archived")
	src := filepath.Join(pending, "run")
	makeRun(t, src, "mine")

	dest, err := MoveToArchive(src+string(filepath.Separator), archive)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(archive, "run.dup"), dest)
	assert.Equal(t, "mine", readMarker(t, dest))
	assert.Equal(t, "archived", readMarker(t, filepath.Join(archive, "run")))
	assert.NoDirExists(t, src)
}

func TestMoveToArchive_MissingSource(t *testing.T) {
	_, err := MoveToArchive(filepath.Join(t.TempDir(), "nope"), t.TempDir())
	assert.Equal(t, bencherrors.KindNotFound, bencherrors.KindFromError(err))
	assert.True(t, bencherrors.IsFatal(err))
}
