package rist

import (
	"errors"
	"fmt"
)

// ErrorKind names the failure point of a bridge operation. Each native call
// site maps its failure to exactly one kind.
type ErrorKind int

const (
	KindContextCreation ErrorKind = iota + 1
	KindPeerCreation
	KindAddressParse
	KindStart
	KindSend
	KindRead
	KindInvalidString
	KindAlreadyStarted
	KindNotStarted
	KindTimeoutOverflow
	KindLoggingSetup
	KindTaskFailed
	// KindClosed reports use of a session after Close.
	KindClosed
)

var kindNames = map[ErrorKind]string{
	KindContextCreation: "context creation failed",
	KindPeerCreation:    "peer creation failed",
	KindAddressParse:    "address parse failed",
	KindStart:           "start failed",
	KindSend:            "send failed",
	KindRead:            "read failed",
	KindInvalidString:   "string contains a NUL byte",
	KindAlreadyStarted:  "already started",
	KindNotStarted:      "not started",
	KindTimeoutOverflow: "timeout exceeds representable range",
	KindLoggingSetup:    "logging setup failed",
	KindTaskFailed:      "background task failed",
	KindClosed:          "session closed",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Sentinels for errors.Is. An *Error matches the sentinel of its kind.
var (
	ErrContextCreation = &Error{Kind: KindContextCreation}
	ErrPeerCreation    = &Error{Kind: KindPeerCreation}
	ErrAddressParse    = &Error{Kind: KindAddressParse}
	ErrStart           = &Error{Kind: KindStart}
	ErrSend            = &Error{Kind: KindSend}
	ErrRead            = &Error{Kind: KindRead}
	ErrInvalidString   = &Error{Kind: KindInvalidString}
	ErrAlreadyStarted  = &Error{Kind: KindAlreadyStarted}
	ErrNotStarted      = &Error{Kind: KindNotStarted}
	ErrTimeoutOverflow = &Error{Kind: KindTimeoutOverflow}
	ErrLoggingSetup    = &Error{Kind: KindLoggingSetup}
	ErrTaskFailed      = &Error{Kind: KindTaskFailed}
	ErrClosed          = &Error{Kind: KindClosed}
)

// Error is the error type returned by every bridge operation.
type Error struct {
	Kind ErrorKind
	Addr string // peer address if relevant
	Code int    // native return code, 0 if none
	Err  error  // underlying error
}

func (e *Error) Error() string {
	msg := "rist: " + e.Kind.String()
	if e.Addr != "" {
		msg += fmt.Sprintf(" for %q", e.Addr)
	}
	if e.Code != 0 {
		msg += fmt.Sprintf(" (code %d)", e.Code)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newError(kind ErrorKind, code int) *Error {
	return &Error{Kind: kind, Code: code}
}

func newAddrError(kind ErrorKind, addr string, code int) *Error {
	return &Error{Kind: kind, Addr: addr, Code: code}
}

func taskFailed(err error) *Error {
	return &Error{Kind: KindTaskFailed, Err: err}
}
