package kernel

import "encoding/json"

// Event type discriminators emitted by the kernel. The set is fixed and
// versioned by the protocol; unrecognized types are dropped during
// normalization rather than rejected, to stay forward-compatible.
const (
	// EventStatus reports kernel execution state (busy, idle). The first
	// status event observed after launch marks the kernel ready.
	EventStatus = "status"

	// EventStream is text written to stdout or stderr by cell code.
	EventStream = "stream"

	// EventDisplayData is a rich-representation display event.
	EventDisplayData = "display_data"

	// EventExecuteResult is the value of a cell's last expression.
	EventExecuteResult = "execute_result"

	// EventError reports an exception raised by cell code.
	EventError = "error"

	// EventExecuteReply is the terminal reply to an execute request.
	EventExecuteReply = "execute_reply"
)

// Terminal reply statuses carried by EventExecuteReply.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusAborted = "aborted"
)

// Kernel states carried by EventStatus.
const (
	StateBusy = "busy"
	StateIdle = "idle"
)

// Event is one inbound protocol event from the kernel's broadcast stream.
//
// Exactly the fields belonging to the variant named by Type are set.
// ParentID echoes the identity of the originating execute request.
type Event struct {
	// Type discriminates the event variant.
	Type string `json:"type"`

	// ParentID is the correlation identity of the originating request.
	ParentID string `json:"parent_id,omitempty"`

	// State is the kernel state (EventStatus).
	State string `json:"state,omitempty"`

	// Name is the stream name, stdout or stderr (EventStream).
	Name string `json:"name,omitempty"`

	// Text is the stream text (EventStream).
	Text string `json:"text,omitempty"`

	// Data maps mime types to payloads (EventDisplayData,
	// EventExecuteResult, and ok replies carrying a result).
	Data map[string]any `json:"data,omitempty"`

	// ExecutionCount is the kernel-side counter (EventExecuteResult).
	ExecutionCount int `json:"execution_count,omitempty"`

	// Ename is the exception type name (EventError, error replies).
	Ename string `json:"ename,omitempty"`

	// Evalue is the exception value (EventError, error replies).
	Evalue string `json:"evalue,omitempty"`

	// Traceback is the full traceback line sequence (EventError,
	// error replies).
	Traceback []string `json:"traceback,omitempty"`

	// Status is the terminal reply status: ok, error, or aborted
	// (EventExecuteReply).
	Status string `json:"status,omitempty"`
}

// Terminal reports whether the event is the terminal reply ending the
// event stream for its request.
func (e Event) Terminal() bool { return e.Type == EventExecuteReply }

// Request message types sent to the kernel.
const (
	requestExecute  = "execute_request"
	requestShutdown = "shutdown_request"
)

// request is an outbound message on the kernel's stdin.
type request struct {
	// ID is the unique correlation identity for this request.
	ID string `json:"id"`

	// Type is the request kind.
	Type string `json:"type"`

	// Code is the cell source to execute (execute_request only).
	Code string `json:"code,omitempty"`
}

// parseEvent decodes one inbound line. Callers skip blank and non-JSON
// lines before calling.
func parseEvent(line []byte) (Event, error) {
	var ev Event
	err := json.Unmarshal(line, &ev)
	return ev, err
}
