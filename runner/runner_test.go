package runner_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbrun/nbrun"
	"github.com/nbrun/nbrun/kernel"
	"github.com/nbrun/nbrun/kernel/kerneltest"
	"github.com/nbrun/nbrun/runner"
)

func codeCell(source string) *nbrun.Cell {
	return &nbrun.Cell{Type: nbrun.CellCode, Source: source}
}

func notebook(cells ...*nbrun.Cell) *nbrun.Notebook {
	return &nbrun.Notebook{Cells: cells}
}

func TestRunner_SkipsNonCodeCells(t *testing.T) {
	sess := kerneltest.NewSession()
	nb := notebook(
		&nbrun.Cell{Type: nbrun.CellMarkdown, Source: "# Title"},
		&nbrun.Cell{Type: nbrun.CellRaw, Source: "raw"},
	)

	r := runner.New(sess, nbrun.RunConfig{})
	require.NoError(t, r.Run(context.Background(), nb))

	assert.Empty(t, sess.Submissions)
	assert.Nil(t, nb.Cells[0].ExecutionCount)
	assert.Nil(t, nb.Cells[1].ExecutionCount)
}

func TestRunner_StdoutCell(t *testing.T) {
	sess := kerneltest.NewSession(
		kerneltest.OK(kerneltest.Stream(nbrun.StreamStdout, "hello\n")),
	)
	nb := notebook(codeCell("print('hello')"))

	r := runner.New(sess, nbrun.RunConfig{})
	require.NoError(t, r.Run(context.Background(), nb))

	cell := nb.Cells[0]
	require.Len(t, cell.Outputs, 1)
	assert.Equal(t, nbrun.OutputStream, cell.Outputs[0].Type)
	assert.Equal(t, nbrun.StreamStdout, cell.Outputs[0].Name)
	assert.Equal(t, "hello\n", cell.Outputs[0].Text)
	require.NotNil(t, cell.ExecutionCount)
	assert.Equal(t, 1, *cell.ExecutionCount)
	assert.Equal(t, []string{"print('hello')"}, sess.Submissions)
}

func TestRunner_ResultCarriesRunnerCount(t *testing.T) {
	sess := kerneltest.NewSession(
		kerneltest.OK(),
		kerneltest.OKWithResult(map[string]any{"text/plain": "2"}),
	)
	nb := notebook(codeCell("x = 2"), codeCell("x"))

	r := runner.New(sess, nbrun.RunConfig{})
	require.NoError(t, r.Run(context.Background(), nb))

	assert.Empty(t, nb.Cells[0].Outputs)
	require.Len(t, nb.Cells[1].Outputs, 1)
	out := nb.Cells[1].Outputs[0]
	assert.Equal(t, nbrun.OutputExecuteResult, out.Type)
	assert.Equal(t, 2, out.ExecutionCount)
	require.NotNil(t, nb.Cells[1].ExecutionCount)
	assert.Equal(t, 2, *nb.Cells[1].ExecutionCount)
}

func TestRunner_AbortPolicy(t *testing.T) {
	sess := kerneltest.NewSession(
		kerneltest.OK(),
		kerneltest.OK(kerneltest.Stream(nbrun.StreamStdout, "1\n")),
		kerneltest.Failure("ZeroDivisionError", "division by zero",
			[]string{"Traceback (most recent call last):", "ZeroDivisionError: division by zero"}),
	)
	nb := notebook(
		codeCell("x = 1"),
		codeCell("print(x)"),
		codeCell("1/0"),
		codeCell("print('after')"),
	)

	r := runner.New(sess, nbrun.RunConfig{OnFailure: nbrun.PolicyAbort})
	err := r.Run(context.Background(), nb)

	var nberr *nbrun.NotebookError
	require.ErrorAs(t, err, &nberr)
	assert.Equal(t, 2, nberr.CellIndex)

	// Cells before and including the failure keep their outputs.
	assert.Equal(t, "1\n", nb.Cells[1].Outputs[0].Text)
	require.Len(t, nb.Cells[2].Outputs, 1)
	assert.Equal(t, "ZeroDivisionError", nb.Cells[2].Outputs[0].Ename)
	require.NotNil(t, nb.Cells[2].ExecutionCount)
	assert.Equal(t, 3, *nb.Cells[2].ExecutionCount)

	// The cell after the failure was never submitted.
	assert.Nil(t, nb.Cells[3].ExecutionCount)
	assert.Len(t, sess.Submissions, 3)
}

func TestRunner_ContinuePolicy(t *testing.T) {
	sess := kerneltest.NewSession(
		kerneltest.Failure("ZeroDivisionError", "division by zero", nil),
		kerneltest.OK(kerneltest.Stream(nbrun.StreamStdout, "after\n")),
	)
	nb := notebook(codeCell("1/0"), codeCell("print('after')"))

	r := runner.New(sess, nbrun.RunConfig{OnFailure: nbrun.PolicyContinue})
	require.NoError(t, r.Run(context.Background(), nb))

	require.Len(t, nb.Cells[0].Outputs, 1)
	assert.True(t, nb.Cells[0].Outputs[0].IsError())
	assert.Equal(t, "after\n", nb.Cells[1].Outputs[0].Text)

	// The counter keeps advancing past the failed cell.
	assert.Equal(t, 1, *nb.Cells[0].ExecutionCount)
	assert.Equal(t, 2, *nb.Cells[1].ExecutionCount)
}

func TestRunner_SingleErrorOutput(t *testing.T) {
	// The error arrives both as a stream event and in the reply; the
	// document must record it once.
	sess := kerneltest.NewSession(
		kerneltest.Failure("NameError", "name 'y' is not defined", nil),
	)
	nb := notebook(codeCell("y"))

	r := runner.New(sess, nbrun.RunConfig{OnFailure: nbrun.PolicyContinue})
	require.NoError(t, r.Run(context.Background(), nb))

	require.Len(t, nb.Cells[0].Outputs, 1)
	assert.Equal(t, "NameError", nb.Cells[0].Outputs[0].Ename)
}

func TestRunner_ReplyOnlyFailure(t *testing.T) {
	sess := kerneltest.NewSession(
		kerneltest.ReplyOnlyFailure("SystemExit", "1"),
	)
	nb := notebook(codeCell("raise SystemExit(1)"))

	r := runner.New(sess, nbrun.RunConfig{OnFailure: nbrun.PolicyContinue})
	require.NoError(t, r.Run(context.Background(), nb))

	require.Len(t, nb.Cells[0].Outputs, 1)
	assert.Equal(t, "SystemExit", nb.Cells[0].Outputs[0].Ename)
}

func TestRunner_AbortedReplySynthesizesError(t *testing.T) {
	sess := kerneltest.NewSession(kerneltest.Aborted())
	nb := notebook(codeCell("while True: pass"))

	r := runner.New(sess, nbrun.RunConfig{OnFailure: nbrun.PolicyContinue})
	require.NoError(t, r.Run(context.Background(), nb))

	require.Len(t, nb.Cells[0].Outputs, 1)
	assert.Equal(t, "ExecutionAborted", nb.Cells[0].Outputs[0].Ename)
}

func TestRunner_StreamEventsNotMerged(t *testing.T) {
	sess := kerneltest.NewSession(
		kerneltest.OK(
			kerneltest.Stream(nbrun.StreamStdout, "a"),
			kerneltest.Stream(nbrun.StreamStdout, "b"),
		),
	)
	nb := notebook(codeCell("print('a', end=''); print('b', end='')"))

	r := runner.New(sess, nbrun.RunConfig{})
	require.NoError(t, r.Run(context.Background(), nb))

	require.Len(t, nb.Cells[0].Outputs, 2)
	assert.Equal(t, "a", nb.Cells[0].Outputs[0].Text)
	assert.Equal(t, "b", nb.Cells[0].Outputs[1].Text)
}

func TestRunner_RerunClearsOutputs(t *testing.T) {
	nb := notebook(codeCell("print('x')"))
	nb.Cells[0].Outputs = []nbrun.Output{nbrun.NewStream(nbrun.StreamStdout, "stale\n")}

	sess := kerneltest.NewSession(
		kerneltest.OK(kerneltest.Stream(nbrun.StreamStdout, "x\n")),
	)
	r := runner.New(sess, nbrun.RunConfig{})
	require.NoError(t, r.Run(context.Background(), nb))

	require.Len(t, nb.Cells[0].Outputs, 1)
	assert.Equal(t, "x\n", nb.Cells[0].Outputs[0].Text)
}

func TestRunner_EventTimeoutAbortsRegardlessOfPolicy(t *testing.T) {
	sess := kerneltest.NewSession(kerneltest.Wedged())
	nb := notebook(codeCell("time.sleep(1e9)"))

	r := runner.New(sess,
		nbrun.RunConfig{OnFailure: nbrun.PolicyContinue},
		runner.WithEventTimeout(10*time.Millisecond))
	err := r.Run(context.Background(), nb)

	var nberr *nbrun.NotebookError
	require.ErrorAs(t, err, &nberr)
	assert.Equal(t, 0, nberr.CellIndex)
	assert.ErrorIs(t, err, kernel.ErrEventTimeout)
}

func TestRunner_ChannelClosedAbortsRegardlessOfPolicy(t *testing.T) {
	sess := kerneltest.NewSession(kerneltest.Dead())
	nb := notebook(codeCell("os._exit(1)"))

	r := runner.New(sess, nbrun.RunConfig{OnFailure: nbrun.PolicyContinue})
	err := r.Run(context.Background(), nb)

	require.ErrorIs(t, err, kernel.ErrChannelClosed)
	var nberr *nbrun.NotebookError
	require.ErrorAs(t, err, &nberr)
	assert.Equal(t, 0, nberr.CellIndex)
}

func TestRunner_SubmitFailure(t *testing.T) {
	sess := kerneltest.NewSession(
		kerneltest.Response{SubmitErr: errors.New("broken pipe")},
	)
	nb := notebook(codeCell("x = 1"))

	r := runner.New(sess, nbrun.RunConfig{})
	err := r.Run(context.Background(), nb)

	var nberr *nbrun.NotebookError
	require.ErrorAs(t, err, &nberr)
	assert.Equal(t, 0, nberr.CellIndex)
}

func TestRunner_CancelInterruptsOnce(t *testing.T) {
	// A canceled context triggers exactly one interrupt; the drain then
	// resolves through the aborted reply.
	sess := kerneltest.NewSession(kerneltest.Aborted())
	nb := notebook(codeCell("while True: pass"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := runner.New(sess, nbrun.RunConfig{OnFailure: nbrun.PolicyContinue})
	require.NoError(t, r.Run(ctx, nb))

	assert.Equal(t, 1, sess.Interrupts)
}

func TestRunner_ReleasesEveryRequest(t *testing.T) {
	sess := kerneltest.NewSession(
		kerneltest.OK(),
		kerneltest.Failure("ValueError", "bad", nil),
	)
	nb := notebook(codeCell("a"), codeCell("b"))

	r := runner.New(sess, nbrun.RunConfig{OnFailure: nbrun.PolicyAbort})
	_ = r.Run(context.Background(), nb)

	assert.Equal(t, []string{"req-1", "req-2"}, sess.Released)
}
