package bencherrors

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindFromError(t *testing.T) {
	tests := map[string]struct {
		err  error
		want Kind
	}{
		"ErrConfiguration":              {&ErrConfiguration{}, KindConfiguration},
		"ErrEvaluation":                 {&ErrEvaluation{}, KindEvaluation},
		"ErrSubmission":                 {&ErrSubmission{}, KindSubmission},
		"ErrCacheWrite":                 {&ErrCacheWrite{}, KindCacheWrite},
		"ErrNotFound":                   {&ErrNotFound{}, KindNotFound},
		"ErrInvalidArgument":            {&ErrInvalidArgument{}, KindInvalidArgument},
		"pkg.Error => ErrConfiguration": {errors.WithMessage(&ErrConfiguration{}, "foo"), KindConfiguration},
		"pkg.Error => ErrEvaluation":    {errors.WithStack(&ErrEvaluation{}), KindEvaluation},
		"pkg.Error":                     {errors.New("foo"), KindUnknown},
		"nil":                           {nil, KindUnknown},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindFromError(tc.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := map[string]struct {
		err  error
		want bool
	}{
		"nil":           {nil, false},
		"configuration": {&ErrConfiguration{Key: "max_running_jobs"}, true},
		"evaluation":    {errors.WithStack(&ErrEvaluation{Key: "threads"}), false},
		"submission":    {&ErrSubmission{Cause: errors.New("sbatch: error")}, false},
		"cache write":   {&ErrCacheWrite{Cause: errors.New("disk full")}, false},
		"not found":     {&ErrNotFound{Type: "cfg file", Value: "lammps"}, true},
		"plain error":   {errors.New("boom"), true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsFatal(tc.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	err := &ErrConfiguration{Key: "max_running_jobs", Value: "ten", Message: "must be a positive integer"}
	assert.Equal(t, `configuration key "max_running_jobs" has invalid value "ten"; must be a positive integer`, err.Error())

	evalErr := &ErrEvaluation{Key: "ranks", Expression: "${nodes * foo}", Message: "unknown reference \"foo\""}
	assert.Equal(t, `failed to evaluate "ranks" = "${nodes * foo}": unknown reference "foo"`, evalErr.Error())

	submitErr := &ErrSubmission{WorkingDir: "run1", Cause: errors.New("queue closed")}
	assert.Equal(t, "failed to submit job in run1: queue closed", submitErr.Error())
	assert.Equal(t, "queue closed", errors.Unwrap(submitErr).Error())

	notFound := &ErrNotFound{Type: "cfg file", Value: "lammps"}
	assert.Equal(t, `resource "lammps" of type "cfg file" does not exist`, notFound.Error())
}
