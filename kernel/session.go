//go:build !windows

package kernel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nbrun/nbrun"
)

// Session owns one kernel process and its execution channel for the
// duration of one notebook run. Sessions are not shared across runs or
// goroutines: exactly one runner drains the channel at a time.
type Session struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	channel *Channel
	opts    SessionOptions
	logger  *zap.Logger

	procDone chan struct{} // closed once the process is reaped
	waitErr  error         // set before procDone closes

	shutdownOnce sync.Once
}

// Start launches the kernel with the given argv and working directory and
// blocks until the kernel reports ready (first status event observed) or
// the startup timeout elapses. On any failure the process is terminated
// before returning, and the error is a *nbrun.KernelStartupError.
func Start(ctx context.Context, argv []string, dir string, opts ...SessionOption) (*Session, error) {
	o := resolveSessionOptions(opts...)

	if len(argv) == 0 {
		return nil, &nbrun.KernelStartupError{Err: errors.New("empty kernel command")}
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stderr = o.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &nbrun.KernelStartupError{Err: fmt.Errorf("stdin pipe: %w", err)}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &nbrun.KernelStartupError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		return nil, &nbrun.KernelStartupError{Err: err}
	}

	s := &Session{
		cmd:      cmd,
		stdin:    stdin,
		channel:  newChannel(stdout, stdin, o.EventBuffer, o.Logger),
		opts:     o,
		logger:   o.Logger,
		procDone: make(chan struct{}),
	}

	go s.channel.ReadLoop()

	// Reap the process only after the read loop has drained stdout —
	// Wait closes the pipes, so it must not race the scanner.
	go func() {
		<-s.channel.Done()
		s.waitErr = cmd.Wait()
		close(s.procDone)
	}()

	s.logger.Info("kernel launched",
		zap.String("binary", argv[0]),
		zap.Int("pid", cmd.Process.Pid),
		zap.String("dir", dir))

	if err := s.awaitReady(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// awaitReady blocks until the kernel's first status event, the startup
// timeout, kernel death, or context cancellation — whichever first.
func (s *Session) awaitReady(ctx context.Context) error {
	timer := time.NewTimer(s.opts.StartupTimeout)
	defer timer.Stop()

	select {
	case <-s.channel.Ready():
		s.logger.Info("kernel ready")
		return nil
	case <-s.channel.Done():
		s.terminateNow()
		err := s.channel.Err()
		if err == nil {
			err = s.waitErr
		}
		if err == nil {
			err = errors.New("kernel exited before becoming ready")
		}
		return &nbrun.KernelStartupError{Err: err}
	case <-timer.C:
		s.terminateNow()
		return &nbrun.KernelStartupError{
			Err: fmt.Errorf("no status event within %s", s.opts.StartupTimeout),
		}
	case <-ctx.Done():
		s.terminateNow()
		return &nbrun.KernelStartupError{Err: ctx.Err()}
	}
}

// Submit enqueues an execution request for the given source and returns
// its correlation identity.
func (s *Session) Submit(code string) (string, error) {
	return s.channel.Submit(code)
}

// NextEvent blocks for the next event correlated to requestID.
// See Channel.NextEvent.
func (s *Session) NextEvent(requestID string, timeout time.Duration) (Event, error) {
	return s.channel.NextEvent(requestID, timeout)
}

// Release drops the event queue for a completed or abandoned request.
func (s *Session) Release(requestID string) {
	s.channel.Release(requestID)
}

// Alive reports whether the kernel process is still producing events.
func (s *Session) Alive() bool {
	if s == nil || s.cmd == nil {
		return false
	}
	select {
	case <-s.channel.Done():
		return false
	default:
		return true
	}
}

// Interrupt sends a best-effort interrupt signal to stop the currently
// executing cell. It does not guarantee the cell stops, or when: the
// caller's event drain observes either an aborted terminal reply or,
// eventually, a timeout.
func (s *Session) Interrupt() error {
	if s == nil || s.cmd == nil || s.cmd.Process == nil {
		return ErrNotStarted
	}
	return signalProcess(s.cmd.Process, os.Interrupt)
}

// Shutdown requests graceful kernel termination, escalating to SIGTERM
// and then SIGKILL if the process does not exit within the grace period.
//
// Idempotent and nil-safe: calling it twice, or on a session that never
// started, is a no-op. Failures are logged, never returned — shutdown is
// best-effort and must be safe on every exit path of a run.
func (s *Session) Shutdown() {
	if s == nil || s.cmd == nil {
		return
	}
	s.shutdownOnce.Do(func() {
		if err := s.channel.shutdownRequest(); err != nil {
			s.logger.Debug("kernel: shutdown request not delivered", zap.Error(err))
		}
		_ = s.stdin.Close() // signal EOF; pipe may already be closed

		select {
		case <-s.procDone:
		case <-time.After(s.opts.GracePeriod):
			s.logger.Warn("kernel ignored shutdown request, sending SIGTERM")
			_ = signalProcess(s.cmd.Process, syscall.SIGTERM)
			select {
			case <-s.procDone:
			case <-time.After(s.opts.GracePeriod):
				s.logger.Warn("kernel ignored SIGTERM, killing")
				_ = signalProcess(s.cmd.Process, os.Kill)
				<-s.procDone
			}
		}

		if s.waitErr != nil {
			s.logger.Debug("kernel exit", zap.Error(s.waitErr))
		} else {
			s.logger.Info("kernel stopped")
		}
	})
}

// terminateNow kills the kernel and reaps it. Used on startup failure so
// a half-started session never leaks a process.
func (s *Session) terminateNow() {
	_ = signalProcess(s.cmd.Process, os.Kill)
	<-s.procDone
}

// signalProcess sends sig to a process, returning nil if the process
// has already exited.
func signalProcess(proc *os.Process, sig os.Signal) error {
	err := proc.Signal(sig)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
