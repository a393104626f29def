// Package results records the outcome of finished runs and moves their directories into
// long-term storage.
package results

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"

	"github.com/benchtool/benchtool/internal/common/bencherrors"
)

// CacheFile is the name of the marker file holding the cached outcome of a run.
const CacheFile = ".cache"

const (
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Record is the outcome of one run.
type Record struct {
	// Path is the run's working directory.
	Path     string
	Complete bool
	Status   string
	Value    string
}

// Cache writes the status and result of rec into the run directory. Nothing is written
// when the record is not complete or a marker already exists; written reports whether a
// marker was created. I/O failures are returned as *bencherrors.ErrCacheWrite.
func Cache(rec Record) (written bool, err error) {
	if !rec.Complete {
		return false, nil
	}
	path := filepath.Join(rec.Path, CacheFile)

	f := ini.Empty()
	sec := f.Section(ini.DefaultSection)
	if _, err := sec.NewKey("status", rec.Status); err != nil {
		return false, errors.WithStack(&bencherrors.ErrCacheWrite{Path: path, Cause: err})
	}
	if _, err := sec.NewKey("result", rec.Value); err != nil {
		return false, errors.WithStack(&bencherrors.ErrCacheWrite{Path: path, Cause: err})
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return false, errors.WithStack(&bencherrors.ErrCacheWrite{Path: path, Cause: err})
	}

	// O_EXCL makes the existence check and the create a single step.
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if os.IsExist(err) {
		log.Debugf("%s already cached", rec.Path)
		return false, nil
	}
	if err != nil {
		return false, errors.WithStack(&bencherrors.ErrCacheWrite{Path: path, Cause: err})
	}
	if _, err := out.Write(buf.Bytes()); err != nil {
		out.Close()
		return false, errors.WithStack(&bencherrors.ErrCacheWrite{Path: path, Cause: err})
	}
	if err := out.Close(); err != nil {
		return false, errors.WithStack(&bencherrors.ErrCacheWrite{Path: path, Cause: err})
	}
	log.Debugf("cached %q to %s", rec.Value, path)
	return true, nil
}

// DecacheResult returns the cached result of the run in path. ok is false when there is
// no marker, no result, a result that is not a number, or a result of exactly zero: a
// zero measurement is treated as no measurement at all.
func DecacheResult(path string) (value float64, ok bool) {
	raw, found := readCache(path, "result")
	if !found {
		return 0, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value == 0 || math.IsNaN(value) {
		log.Debugf("no cached result in %s", path)
		return 0, false
	}
	return value, true
}

// DecacheStatus returns the cached status of the run in path.
func DecacheStatus(path string) (string, bool) {
	return readCache(path, "status")
}

func readCache(path, key string) (string, bool) {
	f, err := ini.LoadSources(ini.LoadOptions{Loose: true, IgnoreInlineComment: true}, filepath.Join(path, CacheFile))
	if err != nil {
		log.WithError(err).Debugf("unreadable cache in %s", path)
		return "", false
	}
	sec := f.Section(ini.DefaultSection)
	if !sec.HasKey(key) {
		return "", false
	}
	return sec.Key(key).String(), true
}
