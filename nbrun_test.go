package nbrun_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbrun/nbrun"
)

func TestCell_IsCode(t *testing.T) {
	assert.True(t, (&nbrun.Cell{Type: nbrun.CellCode}).IsCode())
	assert.False(t, (&nbrun.Cell{Type: nbrun.CellMarkdown}).IsCode())
	assert.False(t, (&nbrun.Cell{Type: nbrun.CellRaw}).IsCode())
}

func TestCell_ClearOutputs(t *testing.T) {
	count := 2
	cell := &nbrun.Cell{
		Type:           nbrun.CellCode,
		ExecutionCount: &count,
		Outputs:        []nbrun.Output{nbrun.NewStream(nbrun.StreamStdout, "x\n")},
	}

	cell.ClearOutputs()

	assert.Empty(t, cell.Outputs)
	// The counter survives a clear; only a completed run reassigns it.
	require.NotNil(t, cell.ExecutionCount)
	assert.Equal(t, 2, *cell.ExecutionCount)
}

func TestCell_AppendOutputPreservesOrder(t *testing.T) {
	cell := &nbrun.Cell{Type: nbrun.CellCode}
	cell.AppendOutput(nbrun.NewStream(nbrun.StreamStdout, "a"))
	cell.AppendOutput(nbrun.NewStream(nbrun.StreamStderr, "b"))
	cell.AppendOutput(nbrun.NewError("E", "v", nil))

	require.Len(t, cell.Outputs, 3)
	assert.Equal(t, "a", cell.Outputs[0].Text)
	assert.Equal(t, nbrun.StreamStderr, cell.Outputs[1].Name)
	assert.True(t, cell.Outputs[2].IsError())
}

func TestNotebook_CodeCells(t *testing.T) {
	nb := &nbrun.Notebook{Cells: []*nbrun.Cell{
		{Type: nbrun.CellMarkdown},
		{Type: nbrun.CellCode},
		{Type: nbrun.CellRaw},
		{Type: nbrun.CellCode},
	}}
	assert.Equal(t, 2, nb.CodeCells())
	assert.Equal(t, 0, (&nbrun.Notebook{}).CodeCells())
}

func TestOutputConstructors(t *testing.T) {
	stream := nbrun.NewStream(nbrun.StreamStderr, "warn\n")
	assert.Equal(t, nbrun.OutputStream, stream.Type)
	assert.False(t, stream.IsError())

	display := nbrun.NewDisplayData(map[string]any{"image/png": "aGk="})
	assert.Equal(t, nbrun.OutputDisplayData, display.Type)

	result := nbrun.NewExecuteResult(map[string]any{"text/plain": "3"}, 7)
	assert.Equal(t, nbrun.OutputExecuteResult, result.Type)
	assert.Equal(t, 7, result.ExecutionCount)

	fail := nbrun.NewError("TypeError", "bad operand", []string{"tb"})
	assert.True(t, fail.IsError())
	assert.Equal(t, "TypeError", fail.Ename)
}

func TestNotebookError(t *testing.T) {
	cause := errors.New("execution failed: ZeroDivisionError: division by zero")
	err := &nbrun.NotebookError{CellIndex: 3, Err: cause}

	assert.Contains(t, err.Error(), "cell 3")
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("run: %w", err)
	index, ok := nbrun.FailedCell(wrapped)
	require.True(t, ok)
	assert.Equal(t, 3, index)

	_, ok = nbrun.FailedCell(errors.New("unrelated"))
	assert.False(t, ok)
	_, ok = nbrun.FailedCell(nil)
	assert.False(t, ok)
}

func TestKernelStartupError(t *testing.T) {
	cause := errors.New("exec: \"python3\": executable file not found in $PATH")
	err := &nbrun.KernelStartupError{Err: cause}

	assert.Contains(t, err.Error(), "kernel startup")
	assert.ErrorIs(t, err, cause)

	var startup *nbrun.KernelStartupError
	assert.ErrorAs(t, fmt.Errorf("start: %w", err), &startup)
}

func TestFailurePolicy_String(t *testing.T) {
	assert.Equal(t, "abort", nbrun.PolicyAbort.String())
	assert.Equal(t, "continue", nbrun.PolicyContinue.String())
	assert.Equal(t, "unknown", nbrun.FailurePolicy(42).String())
}

func TestRunConfig_ZeroValue(t *testing.T) {
	var cfg nbrun.RunConfig
	assert.Equal(t, nbrun.PolicyAbort, cfg.OnFailure)
	assert.Empty(t, cfg.WorkingDir)
	assert.False(t, cfg.ExtraOutput)
}
