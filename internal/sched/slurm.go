package sched

import (
	"bufio"
	"bytes"
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/benchtool/benchtool/internal/common/bencherrors"
)

var submittedPattern = regexp.MustCompile(`Submitted batch job (\d+)`)

// transientPattern matches sbatch failures worth another attempt: the controller was
// unreachable or busy, so the job was not accepted.
var transientPattern = regexp.MustCompile(`(?i)socket timed out|try again|temporarily unavailable|unable to contact slurm controller|connection refused|transport endpoint`)

// Slurm submits jobs with sbatch and lists them with squeue.
type Slurm struct {
	Runner CommandRunner
	// User whose jobs ActiveJobs lists. Empty means the calling user.
	User string
	// Attempts is the number of times sbatch is tried before a submission fails.
	Attempts uint
	// Delay between attempts. Defaults to one second.
	Delay time.Duration
}

// DependencyToken makes a job wait for every job in jobIDs to end, whatever their exit
// state. Empty ids are ignored.
func (s *Slurm) DependencyToken(jobIDs ...string) string {
	ids := nonEmpty(jobIDs)
	if len(ids) == 0 {
		return ""
	}
	return "--dependency=afterany:" + strings.Join(ids, ":")
}

func (s *Slurm) Submit(ctx context.Context, dependency, workingPath, scriptPath string) (string, error) {
	var args []string
	if dependency != "" {
		args = append(args, dependency)
	}
	args = append(args, scriptPath)

	var jobID string
	err := retry.Do(
		func() error {
			out, err := s.Runner.Run(ctx, workingPath, "sbatch", args...)
			if err != nil {
				return err
			}
			match := submittedPattern.FindSubmatch(out)
			if match == nil {
				return retry.Unrecoverable(errors.Errorf("unexpected sbatch output %q", strings.TrimSpace(string(out))))
			}
			jobID = string(match[1])
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(s.attempts()),
		retry.Delay(s.delay()),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.OnRetry(func(n uint, err error) {
			log.WithError(err).Warnf("sbatch attempt %d failed", n+1)
		}),
	)
	if err != nil {
		return "", errors.WithStack(&bencherrors.ErrSubmission{WorkingDir: workingPath, Cause: err})
	}
	return jobID, nil
}

// ActiveJobs lists the pending and running jobs of the user, in submission order.
func (s *Slurm) ActiveJobs(ctx context.Context, labelSuffix string) ([]string, error) {
	args := []string{"--noheader", "--sort=V", "--format=%i %j"}
	if s.User != "" {
		args = append(args, "--user="+s.User)
	} else {
		args = append(args, "--me")
	}
	out, err := s.Runner.Run(ctx, "", "squeue", args...)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var ids []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		if strings.HasSuffix(fields[1], labelSuffix) {
			ids = append(ids, fields[0])
		}
	}
	return ids, errors.WithStack(scanner.Err())
}

// isTransient reports whether err is a submission failure that may succeed when tried
// again. Rejections such as an invalid account are final, and so is any failure that
// could have followed an accepted submission.
func isTransient(err error) bool {
	return err != nil && transientPattern.MatchString(err.Error())
}

func (s *Slurm) attempts() uint {
	if s.Attempts == 0 {
		return 1
	}
	return s.Attempts
}

func (s *Slurm) delay() time.Duration {
	if s.Delay == 0 {
		return time.Second
	}
	return s.Delay
}
