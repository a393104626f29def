package cfg

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"

	"github.com/benchtool/benchtool/internal/common/bencherrors"
)

// Extension is the file extension of benchmark cfg files.
const Extension = ".cfg"

// Loader resolves a benchmark label to its configuration record.
type Loader interface {
	Load(label string) (*Record, error)
}

// FileLoader looks up <label>.cfg in a list of search paths. When System is set, a
// subdirectory of each search path named after the system is searched first.
type FileLoader struct {
	SearchPaths []string
	System      string
}

// Find returns the path of the cfg file for label. A label that is itself a path to an
// existing file is returned unchanged.
func (l *FileLoader) Find(label string) (string, error) {
	if info, err := os.Stat(label); err == nil && !info.IsDir() {
		return label, nil
	}
	name := label
	if !strings.HasSuffix(name, Extension) {
		name += Extension
	}
	var candidates []string
	for _, dir := range l.SearchPaths {
		if l.System != "" {
			candidates = append(candidates, filepath.Join(dir, l.System, name))
		}
		candidates = append(candidates, filepath.Join(dir, name))
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", errors.WithStack(&bencherrors.ErrNotFound{
		Type:    "cfg file",
		Value:   label,
		Message: "searched " + strings.Join(l.SearchPaths, ", "),
	})
}

// Load finds and parses the cfg file for label.
func (l *FileLoader) Load(label string) (*Record, error) {
	path, err := l.Find(label)
	if err != nil {
		return nil, err
	}
	return ReadFile(path)
}

// ReadFile parses an INI style cfg file into a Record. Sections other than the known ones
// are skipped with a warning. The metadata section gains cfg_file and cfg_label.
func ReadFile(path string) (*Record, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment: true,
		AllowBooleanKeys:    true,
	}, path)
	if err != nil {
		return nil, errors.WithStack(&bencherrors.ErrConfiguration{
			Key:     "cfg_file",
			Value:   path,
			Message: err.Error(),
		})
	}

	rec := &Record{}
	for _, sec := range f.Sections() {
		if sec.Name() == ini.DefaultSection {
			if len(sec.Keys()) > 0 {
				log.WithField("cfg_file", path).Warn("ignoring keys outside of any [section]")
			}
			continue
		}
		target := rec.Section(sec.Name())
		if target == nil {
			log.WithField("cfg_file", path).Warnf("ignoring unknown section [%s]", sec.Name())
			continue
		}
		for _, key := range sec.Keys() {
			target.Set(key.Name(), strings.TrimSpace(key.Value()))
		}
	}

	rec.Metadata.Set("cfg_file", path)
	rec.Metadata.Set("cfg_label", strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	return rec, nil
}
