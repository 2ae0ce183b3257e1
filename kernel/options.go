package kernel

import (
	"io"
	"time"

	"go.uber.org/zap"
)

// Default session configuration values.
const (
	defaultEventBuffer    = 256
	defaultMaxEventSize   = 1 << 20 // 1 MB
	defaultStartupTimeout = 60 * time.Second
	defaultGracePeriod    = 5 * time.Second
)

// SessionOptions holds resolved construction-time configuration for a
// Session. Use Start with SessionOption functions to customize.
type SessionOptions struct {
	// StartupTimeout bounds the wait for the kernel's first status
	// event. Exceeding it is a fatal KernelStartupError.
	StartupTimeout time.Duration

	// GracePeriod is the wait after a graceful shutdown request before
	// escalating to SIGTERM, and again before SIGKILL.
	GracePeriod time.Duration

	// EventBuffer is the per-request event queue capacity.
	EventBuffer int

	// Logger receives session and channel diagnostics.
	Logger *zap.Logger

	// Stderr receives the kernel process's stderr. Nil discards it.
	Stderr io.Writer
}

// SessionOption configures a Session at start time.
type SessionOption func(*SessionOptions)

// WithStartupTimeout bounds the kernel readiness wait.
// Values <= 0 are ignored.
func WithStartupTimeout(d time.Duration) SessionOption {
	return func(o *SessionOptions) {
		if d > 0 {
			o.StartupTimeout = d
		}
	}
}

// WithGracePeriod sets the shutdown escalation interval.
// Values <= 0 are ignored.
func WithGracePeriod(d time.Duration) SessionOption {
	return func(o *SessionOptions) {
		if d > 0 {
			o.GracePeriod = d
		}
	}
}

// WithEventBuffer sets the per-request event queue capacity.
// Values <= 0 are ignored.
func WithEventBuffer(size int) SessionOption {
	return func(o *SessionOptions) {
		if size > 0 {
			o.EventBuffer = size
		}
	}
}

// WithLogger sets the session logger. Nil is ignored.
func WithLogger(logger *zap.Logger) SessionOption {
	return func(o *SessionOptions) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithStderr routes the kernel's stderr to w.
func WithStderr(w io.Writer) SessionOption {
	return func(o *SessionOptions) {
		o.Stderr = w
	}
}

func resolveSessionOptions(opts ...SessionOption) SessionOptions {
	o := SessionOptions{
		StartupTimeout: defaultStartupTimeout,
		GracePeriod:    defaultGracePeriod,
		EventBuffer:    defaultEventBuffer,
		Logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
