package comm

import (
	"errors"
	"fmt"
	"time"
)

// InvalidAddressError indicates a malformed address string. Fatal to the
// call, never retried.
type InvalidAddressError struct {
	Addr   string
	Reason string
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid address %q: %s", e.Addr, e.Reason)
}

// UnknownSchemeError indicates an address whose scheme has no registered
// transport backend.
type UnknownSchemeError struct {
	Scheme string
	Addr   string
}

func (e *UnknownSchemeError) Error() string {
	return fmt.Sprintf("unknown scheme %q in address %q", e.Scheme, e.Addr)
}

// ClosedError indicates that a comm's transport is closed: locally, by
// the peer, or because received data was truncated and the stream had to
// be abandoned. Callers decide whether to reconnect.
type ClosedError struct {
	Reason string
	Err    error
}

func (e *ClosedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("comm closed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("comm closed: %s", e.Reason)
}

func (e *ClosedError) Unwrap() error { return e.Err }

// IsClosed reports whether err is a ClosedError anywhere in its chain.
func IsClosed(err error) bool {
	var ce *ClosedError
	return errors.As(err, &ce)
}

// ConnectTimeoutError indicates that a connect deadline elapsed before
// any attempt succeeded. The wrapped error is the last attempt's
// failure.
type ConnectTimeoutError struct {
	Addr    string
	Timeout time.Duration
	Err     error
}

func (e *ConnectTimeoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("timed out after %v connecting to %q: %v", e.Timeout, e.Addr, e.Err)
	}
	return fmt.Sprintf("timed out after %v connecting to %q", e.Timeout, e.Addr)
}

func (e *ConnectTimeoutError) Unwrap() error { return e.Err }
