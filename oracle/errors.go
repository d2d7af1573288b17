package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExecutable is returned when the oracle executable cannot be started.
var ErrExecutable = errors.New("oracle: executable unavailable")

// SimulationError reports an application-level failure announced by the
// oracle on the first line of its output file.
type SimulationError struct {
	Line string
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("oracle: simulation failed: %s", e.Line)
}

// TimeoutError reports an invocation that exceeded its wall-clock budget.
type TimeoutError struct {
	Timeout time.Duration
	cause   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("oracle: invocation exceeded %s", e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.cause }

// OutputError reports a missing or malformed output file.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type OutputError struct {
	Path  string
	Line  int // 1-indexed, 0 when the whole file is affected
	cause error
}

func (e *OutputError) Error() string {
	path := e.Path
	if path == "" {
		path = "report"
	}
	if e.Line > 0 {
		return fmt.Sprintf("oracle: malformed output %s line %d: %v", path, e.Line, e.cause)
	}
	return fmt.Sprintf("oracle: output %s: %v", path, e.cause)
}

func (e *OutputError) Unwrap() error { return e.cause }

// IsRecoverable reports whether err only invalidates the current sample.
//
// Oracle-reported errors and timeouts are recoverable; anything else (a
// missing executable, a missing or garbled output file, I/O failures or a
// cancelled context) must abort the run.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	var se *SimulationError
	if errors.As(err, &se) {
		return true
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		// Parent cancellation is not a per-sample timeout.
		return !errors.Is(err, context.Canceled)
	}
	return false
}
