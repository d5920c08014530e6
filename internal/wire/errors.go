package wire

import (
	"errors"
	"fmt"
)

// Code is a wrtctl network status code. The numeric values are shared with
// the daemon and must not be renumbered.
type Code int

const (
	OK Code = iota
	ErrMem
	ErrFD
	ErrInval
	ErrConnReset
	ErrPktSize
	ErrNS
	ErrTimeout
	ErrCodec
	Err
)

var codeStrings = [...]string{
	OK:           "Success",
	ErrMem:       "Insufficient memory",
	ErrFD:        "Socket/file descriptor error",
	ErrInval:     "Invalid argument",
	ErrConnReset: "Connection closed",
	ErrPktSize:   "Invalid packet (length)",
	ErrNS:        "Nameservice failure",
	ErrTimeout:   "Timeout",
	ErrCodec:     "Payload pack/unpack failure",
	Err:          "Generic network stack error",
}

// String returns the human-readable message for c. Codes outside the known
// range report the generic error message.
func (c Code) String() string {
	if c < OK || c >= Code(len(codeStrings)) {
		return codeStrings[Err]
	}
	return codeStrings[c]
}

// NetError is a transport or protocol failure carrying a status code.
type NetError struct {
	Op   string
	Code Code
	Err  error
}

func (e *NetError) Error() string {
	msg := fmt.Sprintf("%s: %s (%d)", e.Op, e.Code, int(e.Code))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NetError) Unwrap() error {
	return e.Err
}

// Is matches the code-only sentinels declared below.
func (e *NetError) Is(target error) bool {
	t, ok := target.(*NetError)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Code == e.Code
}

// NewError builds a *NetError for op.
func NewError(op string, code Code, err error) *NetError {
	return &NetError{Op: op, Code: code, Err: err}
}

// Sentinels usable with errors.Is.
var (
	ErrConnectionReset = &NetError{Code: ErrConnReset}
	ErrPacketSize      = &NetError{Code: ErrPktSize}
	ErrInvalid         = &NetError{Code: ErrInval}
	ErrNameService     = &NetError{Code: ErrNS}
	ErrDecode          = &NetError{Code: ErrCodec}
)

// CodeOf extracts the status code from err. A nil error is OK; errors that
// carry no code map to the generic Err.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var ne *NetError
	if errors.As(err, &ne) {
		return ne.Code
	}
	return Err
}
