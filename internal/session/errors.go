package session

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyServerURL = errors.New("server URL is empty")
	ErrRejected       = errors.New("rejected by room service")
	ErrSessionClosed  = errors.New("session closed")
	ErrInvalidUTF8    = errors.New("payload is not valid UTF-8")
)

func format(op string, err error, details string) string {
	if details != "" {
		return fmt.Sprintf("%s: %v (%s)", op, err, details)
	}
	return fmt.Sprintf("%s: %v", op, err)
}

// ConnectionError reports a failure to establish a session: network,
// negotiation or credential rejection.
type ConnectionError struct {
	Op      string
	Err     error
	Details string
}

func (e *ConnectionError) Error() string { return format(e.Op, e.Err, e.Details) }
func (e *ConnectionError) Unwrap() error { return e.Err }

// SendError reports a publish failure on a stale or closed session.
type SendError struct {
	Op      string
	Err     error
	Details string
}

func (e *SendError) Error() string { return format(e.Op, e.Err, e.Details) }
func (e *SendError) Unwrap() error { return e.Err }

// DecodeError reports an inbound payload that could not be turned into text.
// Such payloads are logged and dropped.
type DecodeError struct {
	Op      string
	Err     error
	Details string
}

func (e *DecodeError) Error() string { return format(e.Op, e.Err, e.Details) }
func (e *DecodeError) Unwrap() error { return e.Err }

func connectionError(op string, err error) *ConnectionError {
	return &ConnectionError{Op: op, Err: err}
}

func wrapConnectionError(op string, err error, details string) *ConnectionError {
	return &ConnectionError{Op: op, Err: err, Details: details}
}

func sendError(op string, err error) *SendError {
	return &SendError{Op: op, Err: err}
}
