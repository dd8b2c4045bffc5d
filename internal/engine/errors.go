package engine

import (
	"errors"
	"fmt"
)

// ErrNotHalted is returned by Finish while the machine is still running.
var ErrNotHalted = errors.New("machine has not halted")

// StepError reports a failure while executing a step.
//
// The machine context is left as it was after the failed step; the window
// being paged in when the failure happened may be lost.
type StepError struct {
	// Step is the 1-based number of the step that failed.
	Step int64

	// Position is the logical head position after the step's move.
	Position int64

	Err error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %d at position %d: %v", e.Step, e.Position, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// IsStepError returns true if err wraps a StepError.
func IsStepError(err error) bool {
	var se *StepError
	return errors.As(err, &se)
}
