package results

import (
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/benchtool/benchtool/internal/common/bencherrors"
)

// Registry remembers the paths created while setting up a run so they can be removed if
// the run has to be abandoned. It is not safe for concurrent use.
type Registry struct {
	paths []string
	roots []string
}

// NewRegistry returns a registry whose directory pruning never goes above roots.
func NewRegistry(roots ...string) *Registry {
	cleaned := make([]string, 0, len(roots))
	for _, r := range roots {
		cleaned = append(cleaned, filepath.Clean(r))
	}
	return &Registry{roots: cleaned}
}

func (r *Registry) Track(path string) {
	r.paths = append(r.paths, path)
}

func (r *Registry) Tracked() []string {
	return append([]string(nil), r.paths...)
}

// Reset forgets every tracked path, keeping them on disk.
func (r *Registry) Reset() {
	r.paths = nil
}

// Rollback removes the tracked paths, newest first, and forgets them. Files are deleted;
// directories are pruned. Paths that no longer exist are skipped.
func (r *Registry) Rollback() error {
	var result *multierror.Error
	for i := len(r.paths) - 1; i >= 0; i-- {
		path := r.paths[i]
		info, err := os.Lstat(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			result = multierror.Append(result, errors.WithStack(err))
			continue
		}
		if info.IsDir() {
			err = Prune(path, r.roots...)
		} else {
			err = errors.WithStack(os.Remove(path))
		}
		if err != nil {
			log.WithError(err).Warnf("failed to remove %s", path)
			result = multierror.Append(result, err)
			continue
		}
		log.Debugf("removed %s", path)
	}
	r.paths = nil
	return result.ErrorOrNil()
}

// Prune removes the directory path together with every ancestor that would be left
// empty, walking upwards until it reaches a directory that is one of roots or has other
// entries. Reaching the filesystem root without meeting either is an error and nothing is
// removed.
func Prune(path string, roots ...string) error {
	isRoot := make(map[string]bool, len(roots))
	for _, r := range roots {
		isRoot[filepath.Clean(r)] = true
	}
	path = filepath.Clean(path)
	if isRoot[path] {
		return errors.WithStack(&bencherrors.ErrInvalidArgument{
			Name:    "path",
			Value:   path,
			Message: "refusing to remove a root directory",
		})
	}

	for {
		parent := filepath.Dir(path)
		if parent == path {
			return errors.WithStack(&bencherrors.ErrInvalidArgument{
				Name:    "path",
				Value:   path,
				Message: "reached the filesystem root while pruning",
			})
		}
		if isRoot[parent] {
			break
		}
		entries, err := os.ReadDir(parent)
		if err != nil {
			return errors.WithStack(err)
		}
		if len(entries) > 1 {
			break
		}
		path = parent
	}
	return errors.WithStack(os.RemoveAll(path))
}
