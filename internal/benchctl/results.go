package benchctl

import (
	"fmt"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/benchtool/benchtool/internal/common/bencherrors"
	"github.com/benchtool/benchtool/internal/metrics"
	"github.com/benchtool/benchtool/internal/provenance"
	"github.com/benchtool/benchtool/internal/report"
	"github.com/benchtool/benchtool/internal/results"
)

// Archive destinations.
const (
	DestinationCaptured = "captured"
	DestinationFailed   = "failed"
)

// RecordResult caches the outcome of the run in dir. A run that already has a cached
// outcome keeps it.
func (a *App) RecordResult(dir, status, value string) error {
	if status != results.StatusComplete && status != results.StatusFailed {
		return errors.WithStack(&bencherrors.ErrInvalidArgument{
			Name:    "status",
			Value:   status,
			Message: fmt.Sprintf("must be %s or %s", results.StatusComplete, results.StatusFailed),
		})
	}
	written, err := results.Cache(results.Record{
		Path:     dir,
		Complete: true,
		Status:   status,
		Value:    value,
	})
	switch {
	case err != nil:
		a.Params.Metrics.RecordCacheWrite(metrics.CacheFailed)
		return err
	case written:
		a.Params.Metrics.RecordCacheWrite(metrics.CacheWritten)
		fmt.Fprintf(a.Out, "Cached %s result %q in %s\n", status, value, dir)
	default:
		a.Params.Metrics.RecordCacheWrite(metrics.CacheSkipped)
		fmt.Fprintf(a.Out, "%s already has a cached result\n", dir)
	}
	return nil
}

// ShowResults prints the cached status and result of each run directory.
func (a *App) ShowResults(dirs ...string) error {
	w := tabwriter.NewWriter(a.Out, 1, 1, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "RUN\tSTATUS\tRESULT\n")
	for _, dir := range dirs {
		status, ok := results.DecacheStatus(dir)
		if !ok {
			status = "-"
		}
		result := "-"
		if value, ok := results.DecacheResult(dir); ok {
			result = strconv.FormatFloat(value, 'f', -1, 64)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", filepath.Base(dir), status, result)
	}
	return nil
}

// ArchiveResult moves the run in dir into the captured or failed archive, according to
// its cached status. With collectDir set, the files worth keeping are first copied into
// collectDir/<run name>. The archived path is returned.
func (a *App) ArchiveResult(dir, collectDir string) (string, error) {
	if a.Params.Settings == nil {
		return "", errors.WithStack(&bencherrors.ErrInvalidArgument{
			Name:    "Settings",
			Value:   a.Params.Settings,
			Message: "not provided",
		})
	}
	s := a.Params.Settings
	status, ok := results.DecacheStatus(dir)
	if !ok {
		return "", errors.WithStack(&bencherrors.ErrNotFound{
			Type:    "cached result",
			Value:   dir,
			Message: "record a result before archiving",
		})
	}
	destination, root := DestinationFailed, s.FailedPath
	if status == results.StatusComplete {
		destination, root = DestinationCaptured, s.CapturedPath
	}

	if collectDir != "" {
		outputFile := ""
		if r, err := report.Read(filepath.Join(dir, s.BenchReportFile)); err == nil {
			outputFile = r.Result.Value("output_file")
		} else {
			log.WithError(err).Debugf("no bench report in %s", dir)
		}
		copied, err := provenance.Collect(dir, filepath.Join(collectDir, filepath.Base(dir)), outputFile)
		if err != nil {
			return "", err
		}
		log.Infof("collected %d file(s) from %s", len(copied), dir)
	}

	archived, err := results.MoveToArchive(dir, root)
	if err != nil {
		return "", err
	}
	a.Params.Metrics.RecordArchive(destination)
	fmt.Fprintf(a.Out, "Moved %s to %s\n", dir, archived)
	return archived, nil
}
