// Package errdefs defines the error kinds shared across the GCS core.
//
// Transport and packet-level failures (bad signature, parse error) are
// handled locally and never reach command callers; the types below cover
// everything that does propagate.
package errdefs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when an operation requires a live
	// transport and none exists.
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected is returned when connect is called while a
	// connection is already established.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrConnectionClosed settles every expectation still pending when a
	// connection is torn down.
	ErrConnectionClosed = errors.New("connection closed")
)

// ConnectionError wraps a transport open/bind failure.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// CommandDeniedError reports an explicit protocol-level rejection of a
// command. Result carries the symbolic name of the ack result code.
type CommandDeniedError struct {
	Command string
	Result  string
	Reason  string
}

func (e *CommandDeniedError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("command %s denied with result %s", e.Command, e.Result)
}

// CommandTimeoutError reports that no matching acknowledgement arrived
// within the command's deadline.
type CommandTimeoutError struct {
	Message string
}

func (e *CommandTimeoutError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "command timed out waiting for acknowledgement"
}

// InvalidArgumentError reports a pre-send validation failure, e.g. bad
// coordinates. Nothing has been written to the link when it is returned.
type InvalidArgumentError struct {
	Field  string
	Detail string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}

// IsDenied reports whether err is a CommandDeniedError.
func IsDenied(err error) bool {
	var de *CommandDeniedError
	return errors.As(err, &de)
}

// IsTimeout reports whether err is a CommandTimeoutError.
func IsTimeout(err error) bool {
	var te *CommandTimeoutError
	return errors.As(err, &te)
}

// IsInvalidArgument reports whether err is an InvalidArgumentError.
func IsInvalidArgument(err error) bool {
	var ie *InvalidArgumentError
	return errors.As(err, &ie)
}
