// Package wire implements the wrtctl packet framing and the NET command
// payload exchanged between the client and wrtctld.
package wire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// HeaderSize is the length prefix plus the packet type.
	HeaderSize = 4 + TypeLen

	// TypeLen is the size of the packet type field, a NUL-terminated
	// three-letter magic.
	TypeLen = 4

	// MaxPacketSize bounds a whole frame, header included.
	MaxPacketSize = 1024 * 1024
)

// TypeNetCmd marks a frame carrying a Command or Response payload.
const TypeNetCmd = "NET"

// Frame is one length-delimited packet.
type Frame struct {
	Type    string
	Payload []byte
}

// Marshal encodes f as [u32 total length][type][payload].
func (f Frame) Marshal() ([]byte, error) {
	if len(f.Type) != TypeLen-1 {
		return nil, NewError("marshal frame", ErrInval, fmt.Errorf("packet type %q must be %d bytes", f.Type, TypeLen-1))
	}
	total := HeaderSize + len(f.Payload)
	if total > MaxPacketSize {
		return nil, NewError("marshal frame", ErrPktSize, fmt.Errorf("frame of %d bytes exceeds %d", total, MaxPacketSize))
	}

	buf := make([]byte, total)
	binary.BigEndian.PutUint32(buf, uint32(total))
	copy(buf[4:], f.Type)
	copy(buf[HeaderSize:], f.Payload)
	return buf, nil
}

// ReadFrame reads exactly one frame from r. A clean EOF before any header
// byte is reported as io.EOF; EOF inside a frame is a connection reset.
func ReadFrame(r *bufio.Reader) (Frame, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:4]); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		return Frame{}, NewError("read frame length", ErrConnReset, err)
	}

	total := binary.BigEndian.Uint32(hdr[:4])
	if total > MaxPacketSize {
		return Frame{}, NewError("read frame", ErrPktSize, fmt.Errorf("frame length %d exceeds %d", total, MaxPacketSize))
	}
	if total < HeaderSize {
		return Frame{}, NewError("read frame", ErrPktSize, fmt.Errorf("frame length %d shorter than header", total))
	}

	if _, err := io.ReadFull(r, hdr[4:]); err != nil {
		return Frame{}, NewError("read frame type", ErrConnReset, err)
	}

	payload := make([]byte, total-HeaderSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, NewError("read frame payload", ErrConnReset, fmt.Errorf("short frame of length %d: %w", total, err))
	}

	// The type is NUL-terminated on the wire.
	return Frame{Type: string(hdr[4 : HeaderSize-1]), Payload: payload}, nil
}
