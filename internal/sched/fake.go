package sched

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/benchtool/benchtool/internal/common/bencherrors"
)

// Submission is a call recorded by FakeScheduler.
type Submission struct {
	Dependency  string
	WorkingPath string
	ScriptPath  string
	JobID       string
}

// FakeScheduler is an in-memory Scheduler handing out sequential job ids.
type FakeScheduler struct {
	mu          sync.Mutex
	NextID      int
	Active      []string
	Submissions []Submission
	// FailOn lists 1-based submission attempts that are rejected.
	FailOn map[int]bool
	calls  int
	// Builds are the active jobs reported for BuildSuffix.
	Builds []string
}

func NewFakeScheduler(firstID int, active ...string) *FakeScheduler {
	return &FakeScheduler{NextID: firstID, Active: active, FailOn: map[int]bool{}}
}

func (f *FakeScheduler) Submit(_ context.Context, dependency, workingPath, scriptPath string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.FailOn[f.calls] {
		return "", errors.WithStack(&bencherrors.ErrSubmission{
			WorkingDir: workingPath,
			Cause:      errors.New("rejected by fake scheduler"),
		})
	}
	id := strconv.Itoa(f.NextID)
	f.NextID++
	f.Submissions = append(f.Submissions, Submission{
		Dependency:  dependency,
		WorkingPath: workingPath,
		ScriptPath:  scriptPath,
		JobID:       id,
	})
	return id, nil
}

func (f *FakeScheduler) ActiveJobs(_ context.Context, labelSuffix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if labelSuffix == BuildSuffix {
		return append([]string(nil), f.Builds...), nil
	}
	return append([]string(nil), f.Active...), nil
}

func (f *FakeScheduler) DependencyToken(jobIDs ...string) string {
	ids := nonEmpty(jobIDs)
	if len(ids) == 0 {
		return ""
	}
	return "after:" + strings.Join(ids, ":")
}

// FakeLocalRunner records RunDetached calls without starting anything.
type FakeLocalRunner struct {
	mu   sync.Mutex
	Runs []Submission
}

func (f *FakeLocalRunner) RunDetached(_ context.Context, workingPath, scriptName, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Runs = append(f.Runs, Submission{WorkingPath: workingPath, ScriptPath: scriptName, JobID: "local"})
	return nil
}
