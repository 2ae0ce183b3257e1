// Package kernel manages the kernel subprocess and the message channel
// used to execute code on it.
//
// A [Session] owns exactly one kernel process for the duration of one
// notebook run: it launches the process, waits for readiness, and
// guarantees termination on every exit path via [Session.Shutdown].
// The [Channel] is the request/reply-plus-event-stream transport:
// [Channel.Submit] enqueues an execution request and returns its
// correlation identity; [Channel.NextEvent] blocks for the next event
// correlated to that request.
//
// The wire format is newline-delimited JSON over the kernel's stdin and
// stdout pipes. Only the correlation contract is load-bearing: every
// reply and event belonging to a request carries that request's identity,
// and events for requests the channel is not tracking are dropped.
package kernel
