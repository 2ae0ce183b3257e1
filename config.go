package nbrun

// FailurePolicy selects how the runner reacts to a kernel-reported cell
// error or abort.
type FailurePolicy int

const (
	// PolicyAbort stops the run at the first failing cell. Remaining
	// cells are left unexecuted; the failing cell's error output stays
	// in the document.
	PolicyAbort FailurePolicy = iota

	// PolicyContinue records the failure and proceeds to the next cell.
	PolicyContinue
)

// String returns the policy name.
func (p FailurePolicy) String() string {
	switch p {
	case PolicyAbort:
		return "abort"
	case PolicyContinue:
		return "continue"
	default:
		return "unknown"
	}
}

// RunConfig is the configuration for one notebook run.
//
// RunConfig is a value type — it carries configuration only, no runtime
// state. The zero value aborts on the first failure and launches the
// kernel in the current directory with no profile.
type RunConfig struct {
	// OnFailure selects abort-vs-continue behavior for kernel-reported
	// cell errors. Event timeouts and kernel death always abort.
	OnFailure FailurePolicy

	// WorkingDir is the kernel process working directory, so relative
	// file access from cell code resolves next to the notebook.
	// Empty means the current directory.
	WorkingDir string

	// ProfileDir is an optional profile/configuration location passed
	// to the kernel at startup.
	ProfileDir string

	// ExtraOutput requests the kernel's interactive plotting and
	// array-library preamble at startup.
	ExtraOutput bool
}
