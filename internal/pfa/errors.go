package pfa

import (
	"errors"
	"fmt"
)

// ErrBusy is returned when Run or Extend is called while another run is
// already in flight on the same Runner. Concurrent runs would corrupt the
// history and RNG stream, so the guard fails fast instead.
var ErrBusy = errors.New("pfa: run already in progress")

// ConfigError reports an invalid run configuration. It is raised before any
// evaluation occurs.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid run configuration: %s %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	_, ok := target.(*ConfigError)
	return ok
}

// ErrConfig matches any ConfigError via errors.Is.
var ErrConfig = &ConfigError{}

// EvaluationError reports that the evaluation function failed, timed out,
// or returned a non-finite fitness for one candidate. The run stops at the
// last completed generation; Completed and Requested report how far it got.
type EvaluationError struct {
	Generation int
	Candidate  []float64
	Completed  int
	Requested  int
	Err        error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation failed in generation %d (completed %d of %d requested): %v",
		e.Generation, e.Completed, e.Requested, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

func (e *EvaluationError) Is(target error) bool {
	_, ok := target.(*EvaluationError)
	return ok
}

// ErrEvaluation matches any EvaluationError via errors.Is.
var ErrEvaluation = &EvaluationError{}
