package pipeline

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record vanished mid-pipeline. Fatal, never
// retried.
var ErrNotFound = errors.New("content item not found")

// DependencyMissingError indicates a required external binary is absent.
// Raised once at component construction; fatal, never retried, so the
// orchestrator can fail the stage fast.
type DependencyMissingError struct {
	Commands []string
}

func (e *DependencyMissingError) Error() string {
	return fmt.Sprintf("missing required dependencies: %v; install the required tools for media processing", e.Commands)
}

// TransientError wraps an encoder/OCR/network failure that may succeed on a
// later attempt. The runner retries it with exponential backoff up to the
// stage's attempt cap.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient marks err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// ValidationError rejects unsupported formats or sizes before any stage
// runs. Fatal, never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Retryable reports whether an error should be retried by the runner.
// Only explicitly transient failures qualify; dependency, validation and
// not-found errors always fail permanently.
func Retryable(err error) bool {
	var te *TransientError
	if !errors.As(err, &te) {
		return false
	}
	var de *DependencyMissingError
	var ve *ValidationError
	return !errors.As(err, &de) && !errors.As(err, &ve) && !errors.Is(err, ErrNotFound)
}
