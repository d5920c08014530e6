package wire

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeCommand_Layout(t *testing.T) {
	data, err := EncodeCommand(Command{ID: 1, Subsystem: "power", Value: "on"})
	require.NoError(t, err)

	// 8 header + 2 id + 4+5 subsystem + 4+2 value
	require.Len(t, data, 25)
	assert.Equal(t, uint32(25), binary.BigEndian.Uint32(data))
	assert.Equal(t, []byte("NET\x00"), data[4:8])
	assert.Equal(t, uint16(1), binary.BigEndian.Uint16(data[8:]))
}

func TestReadFrame_DecodesCommand(t *testing.T) {
	var buf bytes.Buffer
	for _, c := range []Command{
		{ID: 1, Subsystem: "power", Value: "ack"},
		{ID: 0, Subsystem: SubsystemUCI},
	} {
		data, err := EncodeCommand(c)
		require.NoError(t, err)
		buf.Write(data)
	}

	r := bufio.NewReader(&buf)

	f, err := ReadFrame(r)
	require.NoError(t, err)
	got, err := DecodeCommand(f)
	require.NoError(t, err)
	assert.Equal(t, Command{ID: 1, Subsystem: "power", Value: "ack"}, got)

	f, err = ReadFrame(r)
	require.NoError(t, err)
	got, err = DecodeCommand(f)
	require.NoError(t, err)
	assert.Equal(t, Command{Subsystem: SubsystemUCI}, got)

	_, err = ReadFrame(r)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFrame_Oversize(t *testing.T) {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], MaxPacketSize+1)

	_, err := ReadFrame(bufio.NewReader(bytes.NewReader(hdr[:])))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPacketSize)
	assert.Equal(t, ErrPktSize, CodeOf(err))
}

func TestReadFrame_TruncatedIsConnReset(t *testing.T) {
	data, err := EncodeCommand(Command{ID: 2, Subsystem: "UCI", Value: "network.lan.ipaddr"})
	require.NoError(t, err)

	_, err = ReadFrame(bufio.NewReader(bytes.NewReader(data[:len(data)-3])))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionReset)
}

func TestMarshal_RejectsOversizedPayload(t *testing.T) {
	_, err := Frame{Type: TypeNetCmd, Payload: make([]byte, MaxPacketSize)}.Marshal()
	assert.ErrorIs(t, err, ErrPacketSize)
}

func TestMarshal_RejectsBadType(t *testing.T) {
	_, err := Frame{Type: "NETX"}.Marshal()
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestDecodeCommand_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		code  Code
	}{
		{"wrong type", Frame{Type: "UCI", Payload: []byte{0, 1}}, ErrInval},
		{"no id", Frame{Type: TypeNetCmd, Payload: []byte{0}}, ErrCodec},
		{"short string", Frame{Type: TypeNetCmd, Payload: []byte{0, 1, 0, 0, 0, 9, 'a'}}, ErrCodec},
		{"trailing bytes", Frame{Type: TypeNetCmd, Payload: []byte{0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0xff}}, ErrCodec},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCommand(tt.frame)
			require.Error(t, err)
			assert.Equal(t, tt.code, CodeOf(err))
		})
	}
}

func TestCode_String(t *testing.T) {
	assert.Equal(t, "Success", OK.String())
	assert.Equal(t, "Timeout", ErrTimeout.String())
	assert.Equal(t, "Generic network stack error", Code(42).String())
	assert.Equal(t, "Generic network stack error", Code(-1).String())
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, OK, CodeOf(nil))
	assert.Equal(t, Err, CodeOf(errors.New("plain")))
	wrapped := errors.Join(errors.New("ctx"), NewError("send", ErrConnReset, io.ErrClosedPipe))
	assert.Equal(t, ErrConnReset, CodeOf(wrapped))
}

func TestNetError_Message(t *testing.T) {
	err := NewError("dial 10.0.0.1:2450", ErrConnReset, errors.New("connection refused"))
	assert.Equal(t, "dial 10.0.0.1:2450: Connection closed (4): connection refused", err.Error())
	assert.ErrorIs(t, err, ErrConnectionReset)
	assert.NotErrorIs(t, err, ErrNameService)
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"uci get network.lan.ipaddr", Command{ID: UCICmdGet, Subsystem: SubsystemUCI, Value: "network.lan.ipaddr"}},
		{"UCI commit", Command{ID: UCICmdCommit, Subsystem: SubsystemUCI}},
		{"sys initd network restart", Command{ID: SysCmdInitd, Subsystem: SubsystemSys, Value: "network restart"}},
		{"daemon ping", Command{ID: DaemonCmdPing, Subsystem: SubsystemDaemon}},
		{"power 1 on", Command{ID: 1, Subsystem: "power", Value: "on"}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLine_Errors(t *testing.T) {
	for _, line := range []string{"", "uci", "uci frobnicate", "power on", "power 70000"} {
		_, err := ParseLine(line)
		assert.Error(t, err, line)
	}
}
