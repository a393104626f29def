package benchctl

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/benchtool/benchtool/internal/common/bencherrors"
	"github.com/benchtool/benchtool/internal/sweep"
)

// Summary collects what happened to the instances of a benchmark session.
type Summary struct {
	SessionID string
	// Instances holds every instance that was submitted, started or dry run, in order.
	Instances []*sweep.Instance
	failed    int
	errs      *multierror.Error
}

func (s *Summary) succeed(instance *sweep.Instance) {
	s.Instances = append(s.Instances, instance)
}

// fail records an error that abandoned one instance and sends it to the warning log.
func (s *Summary) fail(progress, workingDir string, err error) {
	s.failed++
	s.errs = multierror.Append(s.errs, errors.WithMessage(err, progress))
	log.WithError(err).WithFields(log.Fields{
		"instance":    progress,
		"working_dir": workingDir,
		"kind":        bencherrors.KindFromError(err).String(),
	}).Warn("skipping instance")
}

// Failed is the number of abandoned instances.
func (s *Summary) Failed() int {
	return s.failed
}

// Total is the number of instances processed.
func (s *Summary) Total() int {
	return len(s.Instances) + s.failed
}

// Err returns the errors of every abandoned instance, or nil.
func (s *Summary) Err() error {
	return s.errs.ErrorOrNil()
}

// Print writes the summary in the layout of the command output.
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "\n======= SUMMARY =======\n")
	fmt.Fprintf(w, "Session: %s\n", s.SessionID)
	fmt.Fprintf(w, "Processed %d instance(s)\n", s.Total())
	fmt.Fprintf(w, "Successes: %d\n", len(s.Instances))
	fmt.Fprintf(w, "Failures: %d\n", s.failed)
	if err := s.Err(); err != nil {
		fmt.Fprintf(w, "%s\n", err)
	}
}
