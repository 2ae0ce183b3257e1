// Package nbformat reads and writes notebook documents in the nbformat 4
// JSON interchange format, producing and consuming the in-memory model
// from the root package.
//
// Reading is tolerant where the format allows variation: cell and output
// text may be a single string or an array of lines, and execution counts
// may be null. Writing always emits version 4 with line-array sources.
package nbformat

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/nbrun/nbrun"
)

// Written format version.
const (
	Version      = 4
	VersionMinor = 5
)

// Read parses a notebook document from r.
func Read(r io.Reader) (*nbrun.Notebook, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("nbformat: read: %w", err)
	}
	return Parse(data)
}

// Parse parses a notebook document from JSON bytes.
func Parse(data []byte) (*nbrun.Notebook, error) {
	var raw rawNotebook
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("nbformat: parse: %w", err)
	}
	if raw.NBFormat != Version {
		return nil, fmt.Errorf("nbformat: unsupported nbformat version %d (want %d)", raw.NBFormat, Version)
	}

	nb := &nbrun.Notebook{Metadata: raw.Metadata}
	for i, rawMsg := range raw.Cells {
		var rc rawCell
		if err := json.Unmarshal(rawMsg, &rc); err != nil {
			return nil, fmt.Errorf("nbformat: cell %d: %w", i, err)
		}
		cell, err := rc.toCell()
		if err != nil {
			return nil, fmt.Errorf("nbformat: cell %d: %w", i, err)
		}
		nb.Cells = append(nb.Cells, cell)
	}
	return nb, nil
}

// Write serializes the notebook to w as nbformat 4 JSON.
func Write(w io.Writer, nb *nbrun.Notebook) error {
	data, err := Marshal(nb)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("nbformat: write: %w", err)
	}
	_, err = io.WriteString(w, "\n")
	return err
}

// Marshal serializes the notebook to nbformat 4 JSON bytes.
func Marshal(nb *nbrun.Notebook) ([]byte, error) {
	raw := rawNotebook{
		Cells:         []json.RawMessage{},
		Metadata:      nb.Metadata,
		NBFormat:      Version,
		NBFormatMinor: VersionMinor,
	}
	if raw.Metadata == nil {
		raw.Metadata = map[string]any{}
	}
	for i, cell := range nb.Cells {
		enc, err := marshalCell(cell)
		if err != nil {
			return nil, fmt.Errorf("nbformat: cell %d: %w", i, err)
		}
		raw.Cells = append(raw.Cells, enc)
	}
	data, err := json.MarshalIndent(raw, "", " ")
	if err != nil {
		return nil, fmt.Errorf("nbformat: marshal: %w", err)
	}
	return data, nil
}

// --- Wire types ---

type rawNotebook struct {
	Cells         []json.RawMessage `json:"cells"`
	Metadata      map[string]any    `json:"metadata"`
	NBFormat      int               `json:"nbformat"`
	NBFormatMinor int               `json:"nbformat_minor"`
}

// rawCell is the read-side cell shape, covering all cell types.
type rawCell struct {
	CellType       string         `json:"cell_type"`
	Source         multiline      `json:"source"`
	ExecutionCount *int           `json:"execution_count"`
	Outputs        []rawOutput    `json:"outputs"`
	Metadata       map[string]any `json:"metadata"`
}

func (rc rawCell) toCell() (*nbrun.Cell, error) {
	cell := &nbrun.Cell{
		Source:   string(rc.Source),
		Metadata: rc.Metadata,
	}
	switch rc.CellType {
	case "code":
		cell.Type = nbrun.CellCode
		cell.ExecutionCount = rc.ExecutionCount
		for _, ro := range rc.Outputs {
			if out, ok := ro.toOutput(); ok {
				cell.AppendOutput(out)
			}
		}
	case "markdown":
		cell.Type = nbrun.CellMarkdown
	case "raw":
		cell.Type = nbrun.CellRaw
	default:
		return nil, fmt.Errorf("unknown cell type %q", rc.CellType)
	}
	return cell, nil
}

// rawCodeCell is the write-side shape for code cells. execution_count is
// always present, null until the cell has run.
type rawCodeCell struct {
	CellType       string         `json:"cell_type"`
	Source         multiline      `json:"source"`
	ExecutionCount *int           `json:"execution_count"`
	Outputs        []rawOutput    `json:"outputs"`
	Metadata       map[string]any `json:"metadata"`
}

// rawTextCell is the write-side shape for markdown and raw cells.
type rawTextCell struct {
	CellType string         `json:"cell_type"`
	Source   multiline      `json:"source"`
	Metadata map[string]any `json:"metadata"`
}

func marshalCell(cell *nbrun.Cell) (json.RawMessage, error) {
	meta := cell.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	if cell.IsCode() {
		rc := rawCodeCell{
			CellType:       "code",
			Source:         multiline(cell.Source),
			ExecutionCount: cell.ExecutionCount,
			Outputs:        []rawOutput{},
			Metadata:       meta,
		}
		for _, out := range cell.Outputs {
			rc.Outputs = append(rc.Outputs, outputToRaw(out))
		}
		return json.Marshal(rc)
	}
	return json.Marshal(rawTextCell{
		CellType: string(cell.Type),
		Source:   multiline(cell.Source),
		Metadata: meta,
	})
}

type rawOutput struct {
	OutputType     string         `json:"output_type"`
	Name           string         `json:"name,omitempty"`
	Text           multiline      `json:"text,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
	ExecutionCount *int           `json:"execution_count,omitempty"`
	Ename          string         `json:"ename,omitempty"`
	Evalue         string         `json:"evalue,omitempty"`
	Traceback      []string       `json:"traceback,omitempty"`
}

// toOutput maps a stored output to the document model. Unrecognized
// output types are dropped, mirroring the engine's normalization policy.
func (ro rawOutput) toOutput() (nbrun.Output, bool) {
	switch nbrun.OutputType(ro.OutputType) {
	case nbrun.OutputStream:
		return nbrun.NewStream(ro.Name, string(ro.Text)), true
	case nbrun.OutputDisplayData:
		return nbrun.NewDisplayData(ro.Data), true
	case nbrun.OutputExecuteResult:
		count := 0
		if ro.ExecutionCount != nil {
			count = *ro.ExecutionCount
		}
		return nbrun.NewExecuteResult(ro.Data, count), true
	case nbrun.OutputError:
		return nbrun.NewError(ro.Ename, ro.Evalue, ro.Traceback), true
	default:
		return nbrun.Output{}, false
	}
}

func outputToRaw(out nbrun.Output) rawOutput {
	ro := rawOutput{
		OutputType: string(out.Type),
		Name:       out.Name,
		Text:       multiline(out.Text),
		Data:       out.Data,
		Ename:      out.Ename,
		Evalue:     out.Evalue,
		Traceback:  out.Traceback,
	}
	if out.Type == nbrun.OutputExecuteResult {
		count := out.ExecutionCount
		ro.ExecutionCount = &count
	}
	return ro
}

// multiline is text stored either as one string or as an array of lines
// with trailing newlines. It always marshals as the line-array form.
type multiline string

func (m *multiline) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = multiline(s)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return err
	}
	*m = multiline(strings.Join(lines, ""))
	return nil
}

func (m multiline) MarshalJSON() ([]byte, error) {
	return json.Marshal(splitLines(string(m)))
}

// splitLines splits text into lines keeping trailing newlines, the form
// notebook tooling diffs best.
func splitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
