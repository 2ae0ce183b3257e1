package kernel

import "github.com/nbrun/nbrun"

// Normalize maps a raw protocol event to a document output. Returns nil
// for events that carry no recordable output: status changes, bare ok
// replies, and unrecognized event types (dropped for forward
// compatibility with protocol extensions). Never fails.
//
// Stream events are never coalesced — each event yields its own output
// entry in arrival order.
func Normalize(ev Event) *nbrun.Output {
	switch ev.Type {
	case EventStream:
		out := nbrun.NewStream(ev.Name, ev.Text)
		return &out

	case EventDisplayData:
		out := nbrun.NewDisplayData(ev.Data)
		return &out

	case EventExecuteResult:
		out := nbrun.NewExecuteResult(ev.Data, ev.ExecutionCount)
		return &out

	case EventError:
		out := nbrun.NewError(ev.Ename, ev.Evalue, ev.Traceback)
		return &out

	case EventExecuteReply:
		return normalizeReply(ev)

	default:
		return nil
	}
}

// normalizeReply handles the terminal reply: a success reply carrying a
// result payload becomes an execute result (the runner overwrites the
// execution count with the just-assigned one); an error or aborted reply
// carrying exception detail becomes an error output.
func normalizeReply(ev Event) *nbrun.Output {
	switch ev.Status {
	case StatusOK:
		if len(ev.Data) == 0 {
			return nil
		}
		out := nbrun.NewExecuteResult(ev.Data, ev.ExecutionCount)
		return &out
	case StatusError, StatusAborted:
		if ev.Ename == "" && ev.Evalue == "" && len(ev.Traceback) == 0 {
			return nil
		}
		out := nbrun.NewError(ev.Ename, ev.Evalue, ev.Traceback)
		return &out
	default:
		return nil
	}
}
