package nbrun

// CellType identifies the kind of notebook cell.
type CellType string

const (
	// CellCode is an executable code cell.
	CellCode CellType = "code"

	// CellMarkdown is a prose cell. Never sent to the kernel.
	CellMarkdown CellType = "markdown"

	// CellRaw is an unrendered passthrough cell. Never sent to the kernel.
	CellRaw CellType = "raw"
)

// Cell is one unit of a notebook document.
//
// Code cells carry source text, an execution counter (nil until the cell
// first runs), and an ordered sequence of outputs. The runner clears
// Outputs and reassigns ExecutionCount on every re-run.
type Cell struct {
	// Type identifies the kind of cell.
	Type CellType `json:"cell_type"`

	// Source is the cell's source text.
	Source string `json:"source"`

	// ExecutionCount is the per-run counter stamped when the cell
	// executes. Nil until the first run.
	ExecutionCount *int `json:"execution_count,omitempty"`

	// Outputs are the recorded outputs, in kernel emission order.
	Outputs []Output `json:"outputs,omitempty"`

	// Metadata holds cell metadata preserved across a run untouched.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// IsCode reports whether the cell is executable.
func (c *Cell) IsCode() bool { return c.Type == CellCode }

// ClearOutputs drops all recorded outputs. The execution counter is left
// in place — it is reassigned only when a new run of the cell completes.
func (c *Cell) ClearOutputs() {
	c.Outputs = nil
}

// AppendOutput records an output at the end of the cell's output list.
func (c *Cell) AppendOutput(out Output) {
	c.Outputs = append(c.Outputs, out)
}

// Notebook is an ordered sequence of cells plus document metadata.
//
// Cell order is execution order; the engine never reorders cells. The
// document is created by an external reader (see nbformat), mutated in
// place by the runner, and handed back to the writer afterward.
type Notebook struct {
	// Cells in document order.
	Cells []*Cell `json:"cells"`

	// Metadata holds notebook-level metadata preserved for roundtrip.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CodeCells counts the executable cells in the document.
func (nb *Notebook) CodeCells() int {
	n := 0
	for _, c := range nb.Cells {
		if c.IsCode() {
			n++
		}
	}
	return n
}
