// Package session implements one client connection to wrtctld: the outbound
// command queue and the correlation of responses with bounded waits.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/net2share/wrtctl/internal/wire"
)

// State is the lifecycle state of a session.
type State int

const (
	Unconnected State = iota
	Connecting
	Connected
	Closed
	Errored
)

func (s State) String() string {
	switch s {
	case Unconnected:
		return "unconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session closed")

	// ErrNoResponse is returned by TakeResponse when no response is ready.
	ErrNoResponse = errors.New("no response ready")
)

// Dialer opens the underlying stream. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Session owns one transport. Commands and waits are serialized; only Close
// may run concurrently with a blocked Wait.
type Session struct {
	mu        sync.Mutex
	transport Transport
	remote    string
	state     State
	queue     Queue
	ready     *wire.Response
	logger    *slog.Logger
	closeOnce sync.Once
}

// New wraps an established transport.
func New(t Transport, remote string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		transport: t,
		remote:    remote,
		state:     Connected,
		logger:    logger,
	}
}

// Dial connects to address over TCP. Name service failures are reported as
// wire.ErrNS, every other connect failure as the generic wire.Err.
func Dial(ctx context.Context, d Dialer, address string, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if d == nil {
		d = &net.Dialer{}
	}

	logger.Debug("connecting", "remote", address, "state", Connecting)
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		code := wire.Err
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			code = wire.ErrNS
		}
		return nil, wire.NewError("connect "+address, code, err)
	}

	s := New(NewConnTransport(conn), address, logger)
	logger.Debug("connected", "remote", address)
	return s, nil
}

// Remote returns the address the session was opened to.
func (s *Session) Remote() string {
	return s.remote
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pending returns the number of queued, unsent commands.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// Enqueue encodes c and appends it to the send queue. Nothing is sent until
// the next flush.
func (s *Session) Enqueue(c wire.Command) error {
	b, err := wire.EncodeCommand(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return ErrClosed
	}
	s.queue.Push(b)
	return nil
}

// Unsent removes and returns the encoded commands still queued, so they can
// be handed to a replacement session with Requeue.
func (s *Session) Unsent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Take()
}

// Requeue puts frames taken from another session ahead of anything already
// queued.
func (s *Session) Requeue(frames [][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return ErrClosed
	}
	s.queue.Prepend(frames)
	return nil
}

// Flush sends every queued command in order.
func (s *Session) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Session) flushLocked() error {
	if s.state == Closed {
		return ErrClosed
	}
	n := s.queue.Len()
	if err := s.queue.Flush(s.transport.Send); err != nil {
		s.state = Errored
		s.logger.Warn("flush failed", "remote", s.remote, "sent", n-s.queue.Len(), "pending", s.queue.Len(), "error", err)
		return err
	}
	if n > 0 {
		s.logger.Debug("flushed commands", "remote", s.remote, "count", n)
	}
	return nil
}

// Wait optionally flushes the queue, then blocks until the next response
// arrives. A timeout of zero waits until a response, a transport error or
// the end of ctx. A response that is already ready satisfies the wait
// without reading.
func (s *Session) Wait(ctx context.Context, timeout time.Duration, flush bool) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if flush {
		if err := s.flushLocked(); err != nil {
			return errorResult(err)
		}
	} else if s.state == Closed {
		return errorResult(ErrClosed)
	}

	if s.ready != nil {
		return okResult()
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	f, err := s.transport.Receive(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Debug("timed out waiting for response", "remote", s.remote, "timeout", timeout)
			return timeoutResult()
		}
		if errors.Is(err, context.Canceled) {
			return Result{Outcome: OutcomeError, Code: wire.Err, Err: err}
		}
		s.state = Errored
		s.logger.Warn("receive failed", "remote", s.remote, "error", err)
		return errorResult(err)
	}

	resp, err := wire.DecodeCommand(f)
	if err != nil {
		s.logger.Warn("malformed response", "remote", s.remote, "error", err)
		return errorResult(err)
	}
	s.ready = &resp
	return okResult()
}

// TakeResponse returns the ready response and clears it.
func (s *Session) TakeResponse() (wire.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready == nil {
		return wire.Response{}, ErrNoResponse
	}
	resp := *s.ready
	s.ready = nil
	return resp, nil
}

// Close releases the transport. Unsent commands are dropped. Close may be
// called while a Wait is blocked, which then fails; calling it again is a
// no-op.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		// Closing the transport first unblocks a pending Wait.
		err = s.transport.Close()

		s.mu.Lock()
		defer s.mu.Unlock()
		s.state = Closed
		s.ready = nil
		if n := s.queue.Len(); n > 0 {
			s.logger.Debug("dropping unsent commands", "remote", s.remote, "count", n)
		}
		s.queue.Reset()
	})
	return err
}
