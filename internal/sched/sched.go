// Package sched submits generated job scripts to a batch scheduler or starts them in a
// local shell.
package sched

import (
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/benchtool/benchtool/internal/common/bencherrors"
)

// Job label suffixes used to tell sweep families apart when looking for jobs that are
// already in flight.
const (
	BenchSuffix = "_bench"
	BuildSuffix = "_build"
)

// Scheduler is a batch scheduler adapter.
type Scheduler interface {
	// Submit submits scriptPath from workingPath and returns the job id. dependency is a
	// token produced by DependencyToken, or empty.
	Submit(ctx context.Context, dependency, workingPath, scriptPath string) (string, error)
	// ActiveJobs returns the ids of queued or running jobs whose name ends with
	// labelSuffix, oldest first.
	ActiveJobs(ctx context.Context, labelSuffix string) ([]string, error)
	// DependencyToken returns the submission argument making a job wait for the jobs in
	// jobIDs, or empty when there are none.
	DependencyToken(jobIDs ...string) string
}

// LocalRunner starts job scripts without a scheduler.
type LocalRunner interface {
	// RunDetached starts scriptName in workingPath with its output sent to outputFile
	// and returns without waiting for it.
	RunDetached(ctx context.Context, workingPath, scriptName, outputFile string) error
}

// CommandRunner runs an external command to completion and returns its combined output.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, errors.Wrapf(err, "%s %s: %s", name, strings.Join(args, " "), strings.TrimSpace(string(out)))
	}
	return out, nil
}

func nonEmpty(ids []string) []string {
	var out []string
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

// Config selects and parameterizes a scheduler adapter.
type Config struct {
	Type     string
	User     string
	Attempts uint
}

// New returns the scheduler adapter named by config.Type.
func New(config Config, runner CommandRunner) (Scheduler, error) {
	switch strings.ToLower(config.Type) {
	case "slurm", "":
		return &Slurm{
			Runner:   runner,
			User:     config.User,
			Attempts: config.Attempts,
		}, nil
	}
	return nil, errors.WithStack(&bencherrors.ErrConfiguration{
		Key:     "sched_type",
		Value:   config.Type,
		Message: "supported schedulers: slurm",
	})
}
