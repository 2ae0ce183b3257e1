package kernel

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sentinel errors for channel operations.
var (
	// ErrEventTimeout indicates no correlated event arrived within the
	// wait deadline. The kernel may be wedged; the run cannot safely
	// continue, but the session stays alive for shutdown.
	ErrEventTimeout = errors.New("kernel: event wait timed out")

	// ErrChannelClosed indicates the channel shut down, normally because
	// the kernel process exited or its stdout closed.
	ErrChannelClosed = errors.New("kernel: channel closed")

	// ErrNotStarted indicates an operation on a session whose kernel
	// was never launched.
	ErrNotStarted = errors.New("kernel: session not started")
)

// Channel is the execution transport: one outbound request path on the
// kernel's stdin and one inbound event stream on its stdout, correlated
// by request identity.
//
// The kernel multiplexes a single event broadcast across all requests;
// the channel demultiplexes it into per-request FIFO queues so a caller
// draining one request never observes leftover events from a previous or
// abandoned one. Outbound writes are serialized by a mutex-protected
// encoder. The synchronization model is sync.Mutex + map[string]chan:
// on read-loop exit every pending queue is closed, so blocked waiters
// observe ErrChannelClosed instead of leaking.
type Channel struct {
	mu      sync.Mutex
	enc     *json.Encoder
	pending map[string]chan Event

	scanner *bufio.Scanner
	logger  *zap.Logger
	buffer  int

	ready     chan struct{}
	readyOnce sync.Once

	done    chan struct{}
	readErr error // set before done closes, read after
}

// newChannel creates a channel reading events from r and writing requests
// to w. Call ReadLoop in a goroutine to start dispatching.
func newChannel(r io.Reader, w io.Writer, buffer int, logger *zap.Logger) *Channel {
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	c := &Channel{
		enc:     json.NewEncoder(w),
		pending: make(map[string]chan Event),
		logger:  logger,
		buffer:  buffer,
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}
	c.scanner = newScanner(r, defaultMaxEventSize)
	return c
}

func newScanner(r io.Reader, maxSize int) *bufio.Scanner {
	s := bufio.NewScanner(r)
	initCap := min(4096, maxSize)
	s.Buffer(make([]byte, 0, initCap), maxSize)
	return s
}

// Submit enqueues an execution request for the given source and returns
// its correlation identity. Non-blocking: it does not wait for any reply.
func (c *Channel) Submit(code string) (string, error) {
	id := uuid.NewString()

	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return "", ErrChannelClosed
	default:
	}
	c.pending[id] = make(chan Event, c.buffer)
	c.mu.Unlock()

	req := request{ID: id, Type: requestExecute, Code: code}
	if err := c.send(req); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return "", fmt.Errorf("kernel: submit: %w", err)
	}
	return id, nil
}

// send serializes and writes an outbound request. Thread-safe.
func (c *Channel) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enc.Encode(v)
}

// NextEvent blocks until the next event correlated to requestID arrives,
// the timeout elapses (ErrEventTimeout), or the channel closes because
// the kernel died (ErrChannelClosed).
//
// Events for one request are delivered in kernel emission order.
func (c *Channel) NextEvent(requestID string, timeout time.Duration) (Event, error) {
	c.mu.Lock()
	q, ok := c.pending[requestID]
	c.mu.Unlock()
	if !ok {
		return Event{}, ErrChannelClosed
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev, ok := <-q:
		if !ok {
			return Event{}, ErrChannelClosed
		}
		return ev, nil
	case <-timer.C:
		return Event{}, ErrEventTimeout
	}
}

// Release drops the queue for a completed or abandoned request. Any
// event still arriving with that correlation identity is discarded by
// the read loop, so it can never leak into a later cell's drain.
func (c *Channel) Release(requestID string) {
	c.mu.Lock()
	delete(c.pending, requestID)
	c.mu.Unlock()
}

// Ready returns a channel closed when the first status event is observed,
// i.e. when the kernel reports ready.
func (c *Channel) Ready() <-chan struct{} { return c.ready }

// Done returns a channel closed when the read loop exits.
func (c *Channel) Done() <-chan struct{} { return c.done }

// Err returns the read-loop error after Done closes. Nil means the
// stream ended cleanly (kernel closed stdout with no scanner error).
func (c *Channel) Err() error {
	select {
	case <-c.done:
		return c.readErr
	default:
		return nil
	}
}

// shutdownRequest sends a best-effort graceful termination request.
func (c *Channel) shutdownRequest() error {
	return c.send(request{ID: uuid.NewString(), Type: requestShutdown})
}

// ReadLoop reads and dispatches inbound events until the kernel's stdout
// closes or an unrecoverable scanner error occurs. On exit, all pending
// queues are closed. Must be called exactly once.
func (c *Channel) ReadLoop() {
	defer close(c.done)
	defer c.drainPending()

	for c.scanner.Scan() {
		line := c.scanner.Bytes()
		if len(line) == 0 || line[0] != '{' {
			continue // skip blank lines and kernel startup banners
		}

		ev, err := parseEvent(line)
		if err != nil {
			c.logger.Debug("kernel: dropping malformed event line", zap.Error(err))
			continue
		}

		if ev.Type == EventStatus {
			c.readyOnce.Do(func() { close(c.ready) })
		}

		c.dispatch(ev)
	}

	if err := c.scanner.Err(); err != nil {
		c.logger.Warn("kernel: event stream read failed", zap.Error(err))
		c.readErr = err
	}
}

// dispatch routes an event to its request's queue. Events whose parent
// identity does not match a tracked request are dropped — stray or
// delayed events from a previous request must not surface.
func (c *Channel) dispatch(ev Event) {
	c.mu.Lock()
	q, ok := c.pending[ev.ParentID]
	c.mu.Unlock()
	if !ok {
		if ev.Type != EventStatus {
			c.logger.Debug("kernel: dropping uncorrelated event",
				zap.String("type", ev.Type),
				zap.String("parent_id", ev.ParentID))
		}
		return
	}

	select {
	case q <- ev:
	default:
		// Queue full: the waiter stopped draining. Dropping here keeps
		// the read loop from deadlocking against an abandoned request.
		c.logger.Warn("kernel: event queue full, dropping event",
			zap.String("type", ev.Type),
			zap.String("parent_id", ev.ParentID))
	}
}

// drainPending closes all per-request queues so blocked waiters unblock.
func (c *Channel) drainPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, q := range c.pending {
		close(q)
		delete(c.pending, id)
	}
}
