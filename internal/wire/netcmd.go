package wire

import (
	"encoding/binary"
	"fmt"
)

// Command is a request for a daemon subsystem. In responses the ID carries
// the daemon's return code, zero meaning success.
type Command struct {
	ID        uint16
	Subsystem string
	Value     string
}

// Response is the daemon's answer to a Command.
type Response = Command

// EncodeCommand packs c into a NET frame.
func EncodeCommand(c Command) ([]byte, error) {
	payload := make([]byte, 0, 2+4+len(c.Subsystem)+4+len(c.Value))
	payload = binary.BigEndian.AppendUint16(payload, c.ID)
	payload = appendString(payload, c.Subsystem)
	payload = appendString(payload, c.Value)

	return Frame{Type: TypeNetCmd, Payload: payload}.Marshal()
}

// DecodeCommand unpacks a NET frame.
func DecodeCommand(f Frame) (Command, error) {
	if f.Type != TypeNetCmd {
		return Command{}, NewError("decode command", ErrInval, fmt.Errorf("unexpected packet type %q", f.Type))
	}

	p := f.Payload
	if len(p) < 2 {
		return Command{}, NewError("decode command", ErrCodec, fmt.Errorf("payload of %d bytes has no id", len(p)))
	}
	c := Command{ID: binary.BigEndian.Uint16(p)}
	p = p[2:]

	var err error
	if c.Subsystem, p, err = readString(p); err != nil {
		return Command{}, NewError("decode command subsystem", ErrCodec, err)
	}
	if c.Value, p, err = readString(p); err != nil {
		return Command{}, NewError("decode command value", ErrCodec, err)
	}
	if len(p) != 0 {
		return Command{}, NewError("decode command", ErrCodec, fmt.Errorf("%d trailing bytes", len(p)))
	}
	return c, nil
}

func appendString(b []byte, s string) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(len(s)))
	return append(b, s...)
}

func readString(p []byte) (string, []byte, error) {
	if len(p) < 4 {
		return "", nil, fmt.Errorf("truncated string length")
	}
	n := binary.BigEndian.Uint32(p)
	p = p[4:]
	if uint64(n) > uint64(len(p)) {
		return "", nil, fmt.Errorf("string length %d exceeds remaining %d bytes", n, len(p))
	}
	return string(p[:n]), p[n:], nil
}
