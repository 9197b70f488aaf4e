package build

import (
	"errors"
	"fmt"
)

var (
	ErrBuild               = errors.New("build failed")
	ErrCommandFailed       = errors.New("command failed")
	ErrCopy                = errors.New("copy failed")
	ErrFileSystemOperation = errors.New("file system operation failed")
)

// Identifies the step a build failed on.
//
// Wraps the underlying cause so callers can still test sentinels with
// errors.Is while reporting the 1-based step index and its summary.
type StepError struct {
	Index int    // 1-based step position in the recipe.
	Step  string // Summary of the failing step.
	Err   error  // Underlying cause.
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
