package nbrun

import (
	"errors"
	"fmt"
)

// KernelStartupError indicates the kernel process failed to become ready
// within the startup timeout. Fatal: no cells execute.
//
// Wraps the underlying cause so callers can errors.As to OS-level detail.
type KernelStartupError struct {
	Err error
}

func (e *KernelStartupError) Error() string {
	if e.Err != nil {
		return "nbrun: kernel startup: " + e.Err.Error()
	}
	return "nbrun: kernel failed to start"
}

func (e *KernelStartupError) Unwrap() error { return e.Err }

// NotebookError indicates a run aborted at a cell: a kernel-reported
// error or abort with the abort policy in effect, or an event timeout or
// kernel death regardless of policy.
//
// CellIndex is the 0-based document position of the failing cell. Outputs
// recorded up to and including that cell remain in the document for
// inspection and serialization by the caller.
type NotebookError struct {
	CellIndex int
	Err       error
}

func (e *NotebookError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("nbrun: cell %d: %v", e.CellIndex, e.Err)
	}
	return fmt.Sprintf("nbrun: cell %d failed", e.CellIndex)
}

func (e *NotebookError) Unwrap() error { return e.Err }

// FailedCell extracts the failing cell index from an error chain
// containing *NotebookError. Returns (0, false) otherwise.
// Convenience wrapper around errors.As.
func FailedCell(err error) (int, bool) {
	var nbErr *NotebookError
	if errors.As(err, &nbErr) {
		return nbErr.CellIndex, true
	}
	return 0, false
}
