// Package jobdep bounds the number of jobs a sweep has in flight by chaining scheduler
// dependencies: once the window is full, every new job waits for the job submitted
// max_running_jobs positions before it.
package jobdep

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/benchtool/benchtool/internal/common/bencherrors"
)

// Job ids recorded for instances that never reach a scheduler. They count towards the
// window but are never depended upon.
const (
	DryRunJobID = "dry_run"
	LocalJobID  = "local"
)

// IsSentinel reports whether id is a placeholder rather than a scheduler job id.
func IsSentinel(id string) bool {
	return id == DryRunJobID || id == LocalJobID
}

// ParseMaxRunning parses a max_running_jobs value. Anything but a positive integer is a
// configuration error.
func ParseMaxRunning(value string) (int, error) {
	limit, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || limit < 1 {
		return 0, errors.WithStack(&bencherrors.ErrConfiguration{
			Key:     "max_running_jobs",
			Value:   value,
			Message: "must be a positive integer",
		})
	}
	return limit, nil
}

// Tracker holds the job ids submitted in one sweep, in submission order.
// It is not safe for concurrent use.
type Tracker struct {
	jobs  []string
	limit int
}

// NewTracker creates a tracker seeded with jobs that are already in flight, e.g. those
// left by an earlier invocation for the same family of jobs.
func NewTracker(seed []string, maxRunning string) (*Tracker, error) {
	limit, err := ParseMaxRunning(maxRunning)
	if err != nil {
		return nil, err
	}
	return &Tracker{
		jobs:  append([]string(nil), seed...),
		limit: limit,
	}, nil
}

func (t *Tracker) Limit() int {
	return t.limit
}

// Dependency returns the id of the job the next submission has to wait for. ok is false
// while fewer than Limit jobs are tracked, and when the job in that position is a
// sentinel.
func (t *Tracker) Dependency() (id string, ok bool) {
	if len(t.jobs) < t.limit {
		return "", false
	}
	id = t.jobs[len(t.jobs)-t.limit]
	if IsSentinel(id) {
		return "", false
	}
	return id, true
}

// Record appends the id of a job that was just submitted.
func (t *Tracker) Record(id string) {
	t.jobs = append(t.jobs, id)
}

// Jobs returns a copy of the tracked ids.
func (t *Tracker) Jobs() []string {
	return append([]string(nil), t.jobs...)
}

func (t *Tracker) Len() int {
	return len(t.jobs)
}
