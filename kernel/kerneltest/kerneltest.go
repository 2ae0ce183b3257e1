// Package kerneltest provides a scripted, in-memory stand-in for a
// kernel session, for testing code that drives cell execution without
// spawning a real kernel process.
package kerneltest

import (
	"fmt"
	"sync"
	"time"

	"github.com/nbrun/nbrun/kernel"
)

// Response scripts the channel's behavior for one submission, consumed
// in submission order.
type Response struct {
	// SubmitErr, when set, fails the submission itself.
	SubmitErr error

	// Events are delivered one per NextEvent call, in order, with the
	// ParentID stamped to the submission's identity.
	Events []kernel.Event

	// Err is returned once Events are exhausted. Defaults to
	// kernel.ErrEventTimeout, so scripts that never send a terminal
	// reply behave like a wedged kernel.
	Err error
}

// Session is a scripted kernel session. It records every submission,
// release, and interrupt for assertions.
type Session struct {
	mu        sync.Mutex
	responses []Response
	queues    map[string][]kernel.Event
	errs      map[string]error

	// Submissions holds the submitted source strings, in order.
	Submissions []string

	// Released holds the released request identities, in order.
	Released []string

	// Interrupts counts Interrupt calls.
	Interrupts int
}

// NewSession creates a scripted session that serves the given responses
// to successive submissions.
func NewSession(responses ...Response) *Session {
	return &Session{
		responses: responses,
		queues:    make(map[string][]kernel.Event),
		errs:      make(map[string]error),
	}
}

// Submit consumes the next scripted response and returns a fresh
// request identity. Submissions beyond the script fail like a dead
// channel.
func (s *Session) Submit(code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.responses) == 0 {
		return "", kernel.ErrChannelClosed
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	if resp.SubmitErr != nil {
		return "", resp.SubmitErr
	}

	s.Submissions = append(s.Submissions, code)
	id := fmt.Sprintf("req-%d", len(s.Submissions))

	events := make([]kernel.Event, len(resp.Events))
	for i, ev := range resp.Events {
		ev.ParentID = id
		events[i] = ev
	}
	s.queues[id] = events

	s.errs[id] = resp.Err
	if resp.Err == nil {
		s.errs[id] = kernel.ErrEventTimeout
	}
	return id, nil
}

// NextEvent pops the next scripted event for the request, or the
// scripted terminal error once events are exhausted.
func (s *Session) NextEvent(requestID string, timeout time.Duration) (kernel.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue, ok := s.queues[requestID]
	if !ok {
		return kernel.Event{}, kernel.ErrChannelClosed
	}
	if len(queue) == 0 {
		return kernel.Event{}, s.errs[requestID]
	}
	ev := queue[0]
	s.queues[requestID] = queue[1:]
	return ev, nil
}

// Release records the release and drops the request's queue.
func (s *Session) Release(requestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.queues, requestID)
	delete(s.errs, requestID)
	s.Released = append(s.Released, requestID)
}

// Interrupt records the call.
func (s *Session) Interrupt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Interrupts++
	return nil
}

// --- Script builders ---

// OK scripts a successful execution: busy, the given mid-stream events,
// then an ok reply.
func OK(events ...kernel.Event) Response {
	script := append([]kernel.Event{{Type: kernel.EventStatus, State: kernel.StateBusy}}, events...)
	script = append(script, kernel.Event{Type: kernel.EventExecuteReply, Status: kernel.StatusOK})
	return Response{Events: script}
}

// OKWithResult scripts a successful execution whose reply carries a
// result payload.
func OKWithResult(data map[string]any, events ...kernel.Event) Response {
	script := append([]kernel.Event{{Type: kernel.EventStatus, State: kernel.StateBusy}}, events...)
	script = append(script, kernel.Event{Type: kernel.EventExecuteReply, Status: kernel.StatusOK, Data: data})
	return Response{Events: script}
}

// Failure scripts a failed execution: busy, an error event, then an
// error reply carrying the same exception detail.
func Failure(ename, evalue string, traceback []string) Response {
	return Response{Events: []kernel.Event{
		{Type: kernel.EventStatus, State: kernel.StateBusy},
		{Type: kernel.EventError, Ename: ename, Evalue: evalue, Traceback: traceback},
		{Type: kernel.EventExecuteReply, Status: kernel.StatusError, Ename: ename, Evalue: evalue, Traceback: traceback},
	}}
}

// ReplyOnlyFailure scripts a failure reported only by the terminal
// reply, with no error event on the stream.
func ReplyOnlyFailure(ename, evalue string) Response {
	return Response{Events: []kernel.Event{
		{Type: kernel.EventStatus, State: kernel.StateBusy},
		{Type: kernel.EventExecuteReply, Status: kernel.StatusError, Ename: ename, Evalue: evalue},
	}}
}

// Aborted scripts an aborted execution with no exception detail.
func Aborted() Response {
	return Response{Events: []kernel.Event{
		{Type: kernel.EventStatus, State: kernel.StateBusy},
		{Type: kernel.EventExecuteReply, Status: kernel.StatusAborted},
	}}
}

// Stream builds a mid-stream stdout/stderr event for use with OK.
func Stream(name, text string) kernel.Event {
	return kernel.Event{Type: kernel.EventStream, Name: name, Text: text}
}

// Display builds a mid-stream display-data event for use with OK.
func Display(data map[string]any) kernel.Event {
	return kernel.Event{Type: kernel.EventDisplayData, Data: data}
}

// Wedged scripts a kernel that accepts the request and then goes silent.
func Wedged() Response {
	return Response{Events: []kernel.Event{{Type: kernel.EventStatus, State: kernel.StateBusy}}}
}

// Dead scripts a kernel whose channel closes mid-execution.
func Dead() Response {
	return Response{
		Events: []kernel.Event{{Type: kernel.EventStatus, State: kernel.StateBusy}},
		Err:    kernel.ErrChannelClosed,
	}
}
