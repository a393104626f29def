// Package provenance copies the inputs and outputs of a run next to, or out of, its
// working directory.
package provenance

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mattn/go-zglob"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/benchtool/benchtool/internal/common/bencherrors"
	"github.com/benchtool/benchtool/internal/common/slices"
)

// Dir is the name of the directory inside a working directory that holds copies of the
// cfg and template files a run was generated from.
const Dir = "bench_files"

// HardwareReportDir holds hardware information collected by the job itself.
const HardwareReportDir = "hw_report"

const tmpPrefix = "tmp."

// CollectPatterns are the files of a finished run worth keeping outside of it.
var CollectPatterns = []string{"*.err", "*.out", "*.sched", "*.job", "*.txt", "*.log"}

// Install copies the file or directory src into destDir. The copy is named rename, or the
// base name of src without a leading "tmp." when rename is empty. The path of the copy is
// returned.
func Install(destDir, src, rename string) (string, error) {
	name := rename
	if name == "" {
		name = strings.TrimPrefix(filepath.Base(src), tmpPrefix)
	}
	dest := filepath.Join(destDir, name)
	info, err := os.Stat(src)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if info.IsDir() {
		err = copyDir(src, dest)
	} else {
		err = copyFile(src, dest, info.Mode().Perm())
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to copy %s into %s", src, destDir)
	}
	log.Debugf("copied %s into %s", src, destDir)
	return dest, nil
}

// FindExact returns the first file called name found below any of roots, searching each
// root recursively in turn.
func FindExact(name string, roots ...string) (string, error) {
	for _, root := range roots {
		direct := filepath.Join(root, name)
		if info, err := os.Stat(direct); err == nil && !info.IsDir() {
			return direct, nil
		}
		matches, err := zglob.Glob(filepath.Join(root, "**", name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return "", errors.WithStack(err)
		}
		sort.Strings(matches)
		if len(matches) > 0 {
			return matches[0], nil
		}
	}
	return "", errors.WithStack(&bencherrors.ErrNotFound{
		Type:    "file",
		Value:   name,
		Message: "searched " + strings.Join(roots, ", "),
	})
}

// Collect copies the interesting files of the run in runPath into dest, which is created
// if needed: outputFile, anything matching CollectPatterns, and the provenance and hardware
// report directories. It returns the copied paths.
func Collect(runPath, dest, outputFile string) ([]string, error) {
	var sources []string
	if outputFile != "" {
		if _, err := os.Stat(filepath.Join(runPath, outputFile)); err == nil {
			sources = append(sources, filepath.Join(runPath, outputFile))
		}
	}
	for _, pattern := range CollectPatterns {
		matches, err := zglob.Glob(filepath.Join(runPath, pattern))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.WithStack(err)
		}
		sort.Strings(matches)
		sources = append(sources, matches...)
	}
	for _, dir := range []string{Dir, HardwareReportDir} {
		if info, err := os.Stat(filepath.Join(runPath, dir)); err == nil && info.IsDir() {
			sources = append(sources, filepath.Join(runPath, dir))
		}
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, errors.WithStack(err)
	}
	var copied []string
	for _, src := range slices.Unique(sources) {
		path, err := Install(dest, src, filepath.Base(src))
		if err != nil {
			return copied, err
		}
		copied = append(copied, path)
	}
	return copied, nil
}

func copyFile(src, dest string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func copyDir(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		if d.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}
