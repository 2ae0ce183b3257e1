// Package runner orchestrates one notebook run: it drives each code cell
// through the kernel's execution channel in document order, records
// normalized outputs on the cell, and applies the abort-vs-continue
// failure policy.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nbrun/nbrun"
	"github.com/nbrun/nbrun/kernel"
	"github.com/nbrun/nbrun/metrics"
)

// defaultEventTimeout bounds each wait for the next correlated event.
const defaultEventTimeout = 5 * time.Minute

// Session is the kernel surface the runner drives. *kernel.Session
// implements it; tests substitute scripted fakes.
//
// The session and its channel are exclusively owned by one Runner for
// the duration of one run — nothing else may submit requests on it.
type Session interface {
	// Submit enqueues an execution request, returning its correlation
	// identity without blocking on the reply.
	Submit(code string) (string, error)

	// NextEvent blocks for the next event correlated to requestID, the
	// timeout, or channel closure.
	NextEvent(requestID string, timeout time.Duration) (kernel.Event, error)

	// Release drops the event queue for a finished request.
	Release(requestID string)

	// Interrupt signals the kernel to stop the executing cell.
	Interrupt() error
}

// Runner executes the code cells of a notebook against one kernel
// session. Cell execution is strictly serialized: all cells share one
// interpreter state, so later cells may depend on earlier side effects.
//
// Runner is not safe for concurrent use; one Runner drives one run.
type Runner struct {
	session Session
	config  nbrun.RunConfig
	logger  *zap.Logger
	metrics *metrics.Metrics

	eventTimeout time.Duration
	count        int // per-run execution counter, monotonic
}

// Option configures a Runner at construction time.
type Option func(*Runner)

// WithLogger sets the runner logger. Nil is ignored.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics attaches run metrics. Nil disables collection.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithEventTimeout bounds each wait for the next correlated event.
// Values <= 0 are ignored.
func WithEventTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.eventTimeout = d
		}
	}
}

// New creates a Runner bound to a session and run configuration.
func New(session Session, config nbrun.RunConfig, opts ...Option) *Runner {
	r := &Runner{
		session:      session,
		config:       config,
		logger:       zap.NewNop(),
		eventTimeout: defaultEventTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Run executes the notebook's code cells in document order, mutating the
// document in place. Markdown and raw cells are skipped untouched.
//
// Returns nil when every cell completed (failures included, under
// PolicyContinue), or a *nbrun.NotebookError naming the cell that
// aborted the run. Outputs recorded up to and including the failing cell
// remain in the document.
func (r *Runner) Run(ctx context.Context, nb *nbrun.Notebook) error {
	for i, cell := range nb.Cells {
		if !cell.IsCode() {
			continue
		}
		if err := r.runCell(ctx, i, cell); err != nil {
			if r.metrics != nil {
				r.metrics.RunAborted()
			}
			return err
		}
	}
	return nil
}

// runCell executes one code cell: clear prior outputs, submit, drain the
// correlated event stream until the terminal reply, apply policy.
func (r *Runner) runCell(ctx context.Context, index int, cell *nbrun.Cell) error {
	cell.ClearOutputs()

	requestID, err := r.session.Submit(cell.Source)
	if err != nil {
		return &nbrun.NotebookError{CellIndex: index, Err: err}
	}
	defer r.session.Release(requestID)

	r.logger.Info("executing cell",
		zap.Int("cell", index),
		zap.String("request_id", requestID))

	start := time.Now()
	interrupted := false
	sawError := false

	for {
		// External cancellation maps to a kernel interrupt; the drain
		// then observes an aborted reply or eventually times out.
		if ctx.Err() != nil && !interrupted {
			interrupted = true
			if err := r.session.Interrupt(); err != nil {
				r.logger.Warn("interrupt failed", zap.Error(err))
			}
		}

		ev, err := r.session.NextEvent(requestID, r.eventTimeout)
		switch {
		case errors.Is(err, kernel.ErrEventTimeout):
			// A wedged kernel cannot safely continue, regardless of
			// policy. The session stays alive for the caller's shutdown.
			return &nbrun.NotebookError{CellIndex: index, Err: err}
		case errors.Is(err, kernel.ErrChannelClosed):
			return &nbrun.NotebookError{CellIndex: index, Err: err}
		case err != nil:
			return &nbrun.NotebookError{CellIndex: index, Err: err}
		}

		if !ev.Terminal() {
			if out := kernel.Normalize(ev); out != nil {
				if out.IsError() {
					sawError = true
				}
				cell.AppendOutput(*out)
			}
			continue
		}

		return r.finishCell(index, cell, ev, sawError, time.Since(start))
	}
}

// finishCell handles the terminal reply: assign the execution count,
// record any trailing output, and apply the failure policy.
func (r *Runner) finishCell(index int, cell *nbrun.Cell, reply kernel.Event, sawError bool, elapsed time.Duration) error {
	count := r.next()
	cell.ExecutionCount = &count

	switch reply.Status {
	case kernel.StatusOK:
		if out := kernel.Normalize(reply); out != nil {
			out.ExecutionCount = count
			cell.AppendOutput(*out)
		}
		if r.metrics != nil {
			r.metrics.ObserveCell(kernel.StatusOK, elapsed)
		}
		r.logger.Info("cell completed",
			zap.Int("cell", index),
			zap.Int("execution_count", count),
			zap.Duration("elapsed", elapsed))
		return nil

	default: // error or aborted — identical for policy purposes
		errOut := r.errorOutput(reply, cell, sawError)
		if r.metrics != nil {
			r.metrics.ObserveCell(kernel.StatusError, elapsed)
		}
		if r.config.OnFailure == nbrun.PolicyContinue {
			r.logger.Warn("cell failed, continuing",
				zap.Int("cell", index),
				zap.String("ename", errOut.Ename),
				zap.String("evalue", errOut.Evalue))
			return nil
		}
		return &nbrun.NotebookError{
			CellIndex: index,
			Err:       fmt.Errorf("execution failed: %s: %s", errOut.Ename, errOut.Evalue),
		}
	}
}

// errorOutput ensures exactly one error output is recorded for a failed
// cell: the reply is used only when no error event already arrived on
// the stream. Returns the output describing the failure either way.
func (r *Runner) errorOutput(reply kernel.Event, cell *nbrun.Cell, sawError bool) nbrun.Output {
	if sawError {
		for i := len(cell.Outputs) - 1; i >= 0; i-- {
			if cell.Outputs[i].IsError() {
				return cell.Outputs[i]
			}
		}
	}
	out := kernel.Normalize(reply)
	if out == nil {
		// Aborted reply with no exception detail (e.g. interrupt).
		o := nbrun.NewError("ExecutionAborted", "execution aborted", nil)
		out = &o
	}
	cell.AppendOutput(*out)
	return *out
}

// next advances the per-run execution counter. Incremented once per
// executed code cell, success or failure.
func (r *Runner) next() int {
	r.count++
	return r.count
}
