package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/lumeng-dev/clipinsight/internal/event"
)

// AbortError signals that a run stopped because its context ended.
// Timeout distinguishes a run-deadline expiry from user cancellation;
// the retry policy may retry a timeout but never a user cancel.
type AbortError struct {
	Timeout bool
}

func (e *AbortError) Error() string {
	if e.Timeout {
		return "run timed out"
	}
	return "run cancelled"
}

// Unwrap exposes the context sentinel behind the abort so callers in
// other packages can classify with errors.Is.
func (e *AbortError) Unwrap() error {
	if e.Timeout {
		return context.DeadlineExceeded
	}
	return context.Canceled
}

// StepError wraps a failure with the key of the step that raised it.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// abortFor maps a finished context to an AbortError, or returns nil if
// the context is still live.
func abortFor(ctx context.Context) *AbortError {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return &AbortError{Timeout: true}
	case context.Canceled:
		return &AbortError{}
	default:
		return nil
	}
}

// classify converts a run failure into the terminal error event. A step
// whose cause is the context ending counts as aborted, not as a step
// failure. Anything unrecognized is attributed to the first step.
func classify(err error, steps Steps) event.Error {
	var abort *AbortError
	if errors.As(err, &abort) {
		return event.NewError(event.KindAborted, abort.Error(), "")
	}
	if errors.Is(err, context.Canceled) {
		return event.NewError(event.KindAborted, (&AbortError{}).Error(), "")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return event.NewError(event.KindAborted, (&AbortError{Timeout: true}).Error(), "")
	}

	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return event.NewError(event.KindStep, stepErr.Error(), stepErr.Step)
	}

	return event.NewError(event.KindInternal, err.Error(), steps.First())
}
