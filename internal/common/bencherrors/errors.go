// Package bencherrors contains the error types returned by the sweep engine.
//
// Callers look for these types (using errors.As) to decide how far a failure reaches:
// configuration errors abort the whole sweep, evaluation and submission errors only
// abandon the run instance that raised them.
//
// If multiple instances fail during a sweep, the driver returns an error of type
// multierror.Error from package github.com/hashicorp/go-multierror that encapsulates
// those individual errors.
package bencherrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an error by how much of a sweep it invalidates.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindEvaluation
	KindSubmission
	KindCacheWrite
	KindNotFound
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindEvaluation:
		return "evaluation"
	case KindSubmission:
		return "submission"
	case KindCacheWrite:
		return "cache-write"
	case KindNotFound:
		return "not-found"
	case KindInvalidArgument:
		return "invalid-argument"
	default:
		return "unknown"
	}
}

// ErrConfiguration is returned when a required configuration key is missing or has an
// invalid value, e.g., a non-integer max_running_jobs. It is fatal for the whole sweep.
type ErrConfiguration struct {
	Key     string // Name of the offending key, e.g., "max_running_jobs"
	Value   string // The value that was provided, if any
	Message string // An optional message explaining why the value is invalid
}

func (err *ErrConfiguration) Error() (s string) {
	if err.Value != "" {
		s = fmt.Sprintf("configuration key %q has invalid value %q", err.Key, err.Value)
	} else {
		s = fmt.Sprintf("configuration key %q is invalid", err.Key)
	}
	if err.Message != "" {
		s = s + fmt.Sprintf("; %s", err.Message)
	}
	return
}

// ErrEvaluation is returned when an expression embedded in a configuration value cannot
// be resolved, either because it is syntactically invalid or because it references a
// key that does not exist.
type ErrEvaluation struct {
	Key        string // Key whose value holds the expression
	Expression string // The raw expression
	Message    string
}

func (err *ErrEvaluation) Error() string {
	if err.Expression == "" {
		return fmt.Sprintf("failed to evaluate %q: %s", err.Key, err.Message)
	}
	return fmt.Sprintf("failed to evaluate %q = %q: %s", err.Key, err.Expression, err.Message)
}

// ErrSubmission is returned when the scheduler rejects a job or cannot be reached.
type ErrSubmission struct {
	WorkingDir string // Working directory of the instance that failed to submit
	Cause      error
}

func (err *ErrSubmission) Error() string {
	return fmt.Sprintf("failed to submit job in %s: %s", err.WorkingDir, err.Cause)
}

func (err *ErrSubmission) Unwrap() error {
	return err.Cause
}

// ErrCacheWrite is returned when a result could not be written to a run directory's
// cache marker. An existing marker is not an error.
type ErrCacheWrite struct {
	Path  string
	Cause error
}

func (err *ErrCacheWrite) Error() string {
	return fmt.Sprintf("failed to cache result in %s: %s", err.Path, err.Cause)
}

func (err *ErrCacheWrite) Unwrap() error {
	return err.Cause
}

// ErrNotFound is a generic error to be returned whenever some resource isn't found.
// Type and Message are optional and are omitted from the error message if not provided.
type ErrNotFound struct {
	Type    string // Resource type, e.g., "cfg file" or "directory"
	Value   string // Resource name, e.g., "lammps"
	Message string // An optional message to include in the error message
}

func (err *ErrNotFound) Error() (s string) {
	if err.Type != "" {
		s = fmt.Sprintf("resource %q of type %q does not exist", err.Value, err.Type)
	} else {
		s = fmt.Sprintf("resource %q does not exist", err.Value)
	}
	if err.Message != "" {
		return s + fmt.Sprintf("; %s", err.Message)
	}
	return s
}

// ErrInvalidArgument is a generic error to be returned on invalid argument.
// Message is optional and is omitted from the error message if not provided.
type ErrInvalidArgument struct {
	Name    string      // Name of the field referred to, e.g., "status"
	Value   interface{} // The invalid value that was provided
	Message string      // An optional message to include with the error message
}

func (err *ErrInvalidArgument) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("value %q is invalid for field %q", err.Value, err.Name)
	}
	return fmt.Sprintf("value %q is invalid for field %q; %s", err.Value, err.Name, err.Message)
}

// KindFromError maps error types to a Kind.
// Uses errors.As to look through the chain of errors, as opposed to just considering the topmost error in the chain.
func KindFromError(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	{
		var e *ErrConfiguration
		if errors.As(err, &e) {
			return KindConfiguration
		}
	}
	{
		var e *ErrEvaluation
		if errors.As(err, &e) {
			return KindEvaluation
		}
	}
	{
		var e *ErrSubmission
		if errors.As(err, &e) {
			return KindSubmission
		}
	}
	{
		var e *ErrCacheWrite
		if errors.As(err, &e) {
			return KindCacheWrite
		}
	}
	{
		var e *ErrNotFound
		if errors.As(err, &e) {
			return KindNotFound
		}
	}
	{
		var e *ErrInvalidArgument
		if errors.As(err, &e) {
			return KindInvalidArgument
		}
	}
	return KindUnknown
}

// IsFatal reports whether err should terminate the whole sweep. Evaluation, submission
// and cache-write errors are scoped to a single run instance; everything else is fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	switch KindFromError(err) {
	case KindEvaluation, KindSubmission, KindCacheWrite:
		return false
	default:
		return true
	}
}
