package nbrun

// OutputType identifies the kind of recorded cell output.
type OutputType string

const (
	// OutputStream is text written to stdout or stderr.
	OutputStream OutputType = "stream"

	// OutputDisplayData is a rich-representation display event
	// (mime-type → payload bundle).
	OutputDisplayData OutputType = "display_data"

	// OutputExecuteResult is the value of the cell's last expression,
	// stamped with the cell's execution count.
	OutputExecuteResult OutputType = "execute_result"

	// OutputError is a kernel-reported exception.
	OutputError OutputType = "error"
)

// Stream names for OutputStream outputs.
const (
	StreamStdout = "stdout"
	StreamStderr = "stderr"
)

// Output is a tagged variant recorded on a code cell.
//
// Exactly the fields belonging to the variant named by Type are set;
// use the constructors to build well-formed values. Consecutive stream
// outputs of the same name are never merged — each kernel event yields
// its own entry, preserving arrival order exactly.
type Output struct {
	// Type discriminates the variant.
	Type OutputType `json:"output_type"`

	// Name is the stream name (stdout or stderr). Stream only.
	Name string `json:"name,omitempty"`

	// Text is the stream text. Stream only.
	Text string `json:"text,omitempty"`

	// Data maps mime types to payloads. DisplayData and ExecuteResult.
	Data map[string]any `json:"data,omitempty"`

	// ExecutionCount mirrors the cell's counter. ExecuteResult only.
	ExecutionCount int `json:"execution_count,omitempty"`

	// Ename is the exception type name. Error only.
	Ename string `json:"ename,omitempty"`

	// Evalue is the exception value. Error only.
	Evalue string `json:"evalue,omitempty"`

	// Traceback is the full traceback line sequence. Error only.
	Traceback []string `json:"traceback,omitempty"`
}

// NewStream builds a stream output.
func NewStream(name, text string) Output {
	return Output{Type: OutputStream, Name: name, Text: text}
}

// NewDisplayData builds a display-data output from a mime bundle.
func NewDisplayData(data map[string]any) Output {
	return Output{Type: OutputDisplayData, Data: data}
}

// NewExecuteResult builds an execute-result output from a mime bundle
// and the just-assigned execution count.
func NewExecuteResult(data map[string]any, count int) Output {
	return Output{Type: OutputExecuteResult, Data: data, ExecutionCount: count}
}

// NewError builds an error output.
func NewError(ename, evalue string, traceback []string) Output {
	return Output{Type: OutputError, Ename: ename, Evalue: evalue, Traceback: traceback}
}

// IsError reports whether the output records a kernel exception.
func (o Output) IsError() bool { return o.Type == OutputError }
