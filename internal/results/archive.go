package results

import (
	"os"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/benchtool/benchtool/internal/common/bencherrors"
	"github.com/benchtool/benchtool/internal/provenance"
)

// DupSuffix is appended to a run directory whose name is already taken in the archive.
const DupSuffix = ".dup"

// MoveToArchive moves the directory src into destRoot and returns its new path. When
// destRoot already holds an entry of the same name, src is renamed with DupSuffix
// appended, as often as needed, and the move is retried; existing archive entries are
// never replaced. src not existing is an *bencherrors.ErrNotFound.
//
// The collision check and the move are separate steps, so concurrent archivers sharing a
// destination must serialize.
func MoveToArchive(src, destRoot string) (string, error) {
	src = filepath.Clean(src)
	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		return "", errors.WithStack(&bencherrors.ErrNotFound{
			Type:    "result directory",
			Value:   src,
			Message: "cannot archive a run that does not exist",
		})
	}
	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		return "", errors.WithStack(err)
	}

	for {
		target := filepath.Join(destRoot, filepath.Base(src))
		if _, err := os.Lstat(target); os.IsNotExist(err) {
			if err := move(src, target); err != nil {
				return "", err
			}
			return target, nil
		} else if err != nil {
			return "", errors.WithStack(err)
		}

		log.Warnf("%s already exists in archive, appending suffix %s", filepath.Base(src), DupSuffix)
		renamed, err := rename(src)
		if err != nil {
			return "", err
		}
		src = renamed
	}
}

// rename moves src to the first free name made by appending DupSuffix to it.
func rename(src string) (string, error) {
	dup := src + DupSuffix
	for {
		if _, err := os.Lstat(dup); os.IsNotExist(err) {
			break
		} else if err != nil {
			return "", errors.WithStack(err)
		}
		dup += DupSuffix
	}
	if err := os.Rename(src, dup); err != nil {
		return "", errors.WithStack(err)
	}
	return dup, nil
}

// move renames src to dest, copying and deleting when they are on different devices.
func move(src, dest string) error {
	err := os.Rename(src, dest)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return errors.WithStack(err)
	}
	if _, err := provenance.Install(filepath.Dir(dest), src, filepath.Base(dest)); err != nil {
		return err
	}
	return errors.WithStack(os.RemoveAll(src))
}
