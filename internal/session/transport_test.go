package session

import (
	"bufio"
	"context"
	"net"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/net2share/wrtctl/internal/wire"
)

func encode(t *testing.T, c wire.Command) []byte {
	t.Helper()
	b, err := wire.EncodeCommand(c)
	require.NoError(t, err)
	return b
}

func TestConnTransport_RoundTrip(t *testing.T) {
	clientConn, daemonConn := net.Pipe()
	defer daemonConn.Close()

	// Fake daemon: acknowledge one command.
	daemonErr := make(chan error, 1)
	go func() {
		f, err := wire.ReadFrame(bufio.NewReader(daemonConn))
		if err != nil {
			daemonErr <- err
			return
		}
		cmd, err := wire.DecodeCommand(f)
		if err != nil {
			daemonErr <- err
			return
		}
		reply, _ := wire.EncodeCommand(wire.Command{ID: cmd.ID, Subsystem: cmd.Subsystem, Value: "ack"})
		_, err = daemonConn.Write(reply)
		daemonErr <- err
	}()

	s := New(NewConnTransport(clientConn), "pipe", discardLogger())
	defer s.Close()

	require.NoError(t, s.Enqueue(wire.Command{ID: 1, Subsystem: "power", Value: "on"}))
	res := s.Wait(context.Background(), 2*time.Second, true)
	require.True(t, res.OK(), "got %s", res)
	require.NoError(t, <-daemonErr)

	resp, err := s.TakeResponse()
	require.NoError(t, err)
	assert.Equal(t, wire.Response{ID: 1, Subsystem: "power", Value: "ack"}, resp)
}

func TestConnTransport_TimeoutKeepsPartialFrame(t *testing.T) {
	clientConn, daemonConn := net.Pipe()
	defer daemonConn.Close()

	s := New(NewConnTransport(clientConn), "pipe", discardLogger())
	defer s.Close()

	frame := encode(t, wire.Command{ID: 0, Subsystem: "sys", Value: "1.0"})
	half := len(frame) / 2

	_, err := daemonConn.Write(frame[:half])
	require.NoError(t, err)

	res := s.Wait(context.Background(), 100*time.Millisecond, false)
	require.True(t, res.TimedOut(), "got %s", res)

	_, err = daemonConn.Write(frame[half:])
	require.NoError(t, err)

	res = s.Wait(context.Background(), 2*time.Second, false)
	require.True(t, res.OK(), "got %s", res)
	resp, err := s.TakeResponse()
	require.NoError(t, err)
	assert.Equal(t, "1.0", resp.Value)
}

func TestConnTransport_FrameBeforeDisconnect(t *testing.T) {
	clientConn, daemonConn := net.Pipe()
	tr := NewConnTransport(clientConn)
	defer tr.Close()

	go func() {
		daemonConn.Write(encode(t, wire.Command{ID: 0, Subsystem: "daemon", Value: "bye"}))
		daemonConn.Close()
	}()

	// Let the reader observe the close before the frame is consumed.
	select {
	case <-tr.done:
	case <-time.After(2 * time.Second):
		t.Fatal("reader did not exit")
	}

	f, err := tr.Receive(context.Background())
	require.NoError(t, err)
	cmd, err := wire.DecodeCommand(f)
	require.NoError(t, err)
	assert.Equal(t, "bye", cmd.Value)

	_, err = tr.Receive(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, wire.ErrConnectionReset)
}

func TestConnTransport_OversizeFrame(t *testing.T) {
	clientConn, daemonConn := net.Pipe()
	defer daemonConn.Close()
	tr := NewConnTransport(clientConn)
	defer tr.Close()

	go daemonConn.Write([]byte{0x7f, 0xff, 0xff, 0xff})

	_, err := tr.Receive(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, wire.ErrPacketSize)
}

func TestConnTransport_SendAfterClose(t *testing.T) {
	clientConn, daemonConn := net.Pipe()
	defer daemonConn.Close()
	tr := NewConnTransport(clientConn)

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	err := tr.Send([]byte("x"))
	assert.ErrorIs(t, err, wire.ErrConnectionReset)
}

// tornConn writes half of the first frame, then fails like a reset peer.
type tornConn struct {
	net.Conn
	mu     sync.Mutex
	writes int
}

func (c *tornConn) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	return len(b) / 2, syscall.EPIPE
}

func TestConnTransport_PartialWriteStopsSending(t *testing.T) {
	clientConn, daemonConn := net.Pipe()
	defer daemonConn.Close()
	conn := &tornConn{Conn: clientConn}

	tr := NewConnTransport(conn)
	defer tr.Close()

	frame := encode(t, wire.Command{ID: 1, Subsystem: "UCI", Value: "network"})
	err := tr.Send(frame)
	assert.ErrorIs(t, err, wire.ErrConnectionReset)

	err = tr.Send(frame)
	assert.ErrorIs(t, err, wire.ErrConnectionReset)
	assert.ErrorIs(t, err, errTornWrite)

	conn.mu.Lock()
	defer conn.mu.Unlock()
	assert.Equal(t, 1, conn.writes)
}

func TestSession_PartialWriteKeepsFrameForNewSession(t *testing.T) {
	clientConn, daemonConn := net.Pipe()
	defer daemonConn.Close()

	old := New(NewConnTransport(&tornConn{Conn: clientConn}), "pipe", discardLogger())
	cmd := wire.Command{ID: 2, Subsystem: "UCI", Value: "network.lan.ipaddr"}
	require.NoError(t, old.Enqueue(cmd))

	require.Error(t, old.Flush())
	require.Error(t, old.Flush())
	assert.Equal(t, 1, old.Pending())

	frames := old.Unsent()
	require.NoError(t, old.Close())
	require.Len(t, frames, 1)

	mt := newMockTransport()
	fresh := New(mt, "test", discardLogger())
	require.NoError(t, fresh.Requeue(frames))
	require.NoError(t, fresh.Flush())
	assert.Equal(t, []wire.Command{cmd}, mt.sentCommands(t))
}
