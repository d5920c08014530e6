package session

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/net2share/wrtctl/internal/wire"
)

// Transport moves whole frames over one connection.
type Transport interface {
	// Send writes one encoded frame.
	Send(b []byte) error
	// Receive blocks until a frame arrives, the transport fails or ctx ends.
	Receive(ctx context.Context) (wire.Frame, error)
	Close() error
}

// errTornWrite marks a stream that carries part of a frame.
var errTornWrite = errors.New("stream holds a partially written frame")

// ConnTransport is a Transport over a net.Conn. A background reader splits
// the stream into frames, so abandoning a Receive never leaves a frame half
// read. Frames read before a disconnect are still delivered, then the
// disconnect error is reported. After a write fails part way through a
// frame every later Send fails without writing; the frame has to go out on
// a new connection.
type ConnTransport struct {
	conn   net.Conn
	frames chan wire.Frame
	done   chan struct{} // closed when the reader exits
	closed chan struct{}
	torn   atomic.Bool

	err       error // reader exit cause, valid after done is closed
	closeOnce sync.Once
}

var _ Transport = (*ConnTransport)(nil)

// NewConnTransport takes ownership of conn and starts its reader.
func NewConnTransport(conn net.Conn) *ConnTransport {
	t := &ConnTransport{
		conn:   conn,
		frames: make(chan wire.Frame, 16),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	go t.readLoop()
	return t
}

func (t *ConnTransport) readLoop() {
	defer close(t.done)

	r := bufio.NewReader(t.conn)
	for {
		f, err := wire.ReadFrame(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = wire.NewError("receive", wire.ErrConnReset, err)
			}
			t.err = err
			return
		}
		select {
		case t.frames <- f:
		case <-t.closed:
			t.err = wire.NewError("receive", wire.ErrConnReset, net.ErrClosed)
			return
		}
	}
}

// Send writes b in full.
func (t *ConnTransport) Send(b []byte) error {
	select {
	case <-t.closed:
		return wire.NewError("send", wire.ErrConnReset, net.ErrClosed)
	default:
	}
	if t.torn.Load() {
		return wire.NewError("send", wire.ErrConnReset, errTornWrite)
	}

	n, err := t.conn.Write(b)
	if err != nil {
		if n > 0 {
			t.torn.Store(true)
		}
		code := wire.Err
		if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) || errors.Is(err, net.ErrClosed) {
			code = wire.ErrConnReset
		}
		return wire.NewError("send", code, err)
	}
	return nil
}

// Receive returns the next frame. Queued frames take priority over a reader
// error.
func (t *ConnTransport) Receive(ctx context.Context) (wire.Frame, error) {
	select {
	case f := <-t.frames:
		return f, nil
	default:
	}

	select {
	case f := <-t.frames:
		return f, nil
	case <-t.done:
		select {
		case f := <-t.frames:
			return f, nil
		default:
		}
		return wire.Frame{}, t.err
	case <-ctx.Done():
		return wire.Frame{}, ctx.Err()
	}
}

// Close shuts the connection down. It is safe to call more than once.
func (t *ConnTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.closed)
		err = t.conn.Close()
	})
	return err
}

// RemoteAddr returns the peer address.
func (t *ConnTransport) RemoteAddr() net.Addr {
	return t.conn.RemoteAddr()
}
