package session

import (
	"fmt"

	"github.com/net2share/wrtctl/internal/wire"
)

// Outcome classifies how a wait ended.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeTimeout
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeError:
		return "error"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the outcome of a wait. Code and Err are only set for
// OutcomeError.
type Result struct {
	Outcome Outcome
	Code    wire.Code
	Err     error
}

// OK reports a response is ready.
func (r Result) OK() bool { return r.Outcome == OutcomeOK }

// TimedOut reports the wait deadline passed with no response.
func (r Result) TimedOut() bool { return r.Outcome == OutcomeTimeout }

// Failed reports a transport or protocol error.
func (r Result) Failed() bool { return r.Outcome == OutcomeError }

func (r Result) String() string {
	if r.Outcome != OutcomeError {
		return r.Outcome.String()
	}
	if r.Err != nil {
		return fmt.Sprintf("error %d: %v", int(r.Code), r.Err)
	}
	return fmt.Sprintf("error %d: %s", int(r.Code), r.Code)
}

// Raw flattens r into the single integer channel used by the daemon tools,
// with okCode and timeoutCode as the two reserved values.
func (r Result) Raw(okCode, timeoutCode int) int {
	switch r.Outcome {
	case OutcomeOK:
		return okCode
	case OutcomeTimeout:
		return timeoutCode
	default:
		return int(r.Code)
	}
}

// Classify maps a raw status code to a Result. Anything other than the two
// reserved codes is an error whose magnitude is kept.
func Classify(code, okCode, timeoutCode int) Result {
	switch code {
	case okCode:
		return Result{Outcome: OutcomeOK}
	case timeoutCode:
		return Result{Outcome: OutcomeTimeout}
	default:
		return Result{Outcome: OutcomeError, Code: wire.Code(code)}
	}
}

func okResult() Result { return Result{Outcome: OutcomeOK} }

func timeoutResult() Result { return Result{Outcome: OutcomeTimeout} }

func errorResult(err error) Result {
	return Result{Outcome: OutcomeError, Code: wire.CodeOf(err), Err: err}
}
