package channel

import (
	"errors"
	"fmt"
)

var (
	// ErrClientClosed is returned when an operation needs a live client.
	ErrClientClosed = errors.New("channel: client is closed")
	// ErrNotConnected is returned by Emit before Connect has succeeded.
	ErrNotConnected = errors.New("channel: client is not connected")
	// ErrAlreadyConnected is returned by a second Connect on a live client.
	ErrAlreadyConnected = errors.New("channel: client is already connected")
	// ErrUnsupportedScheme is returned for endpoints no transport can serve.
	ErrUnsupportedScheme = errors.New("channel: unsupported endpoint scheme")
)

// ConnectionError reports a failure to reach the endpoint, a failed
// handshake, or the loss of an established connection.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// MalformedEventError reports an event whose payload lacks a required field.
type MalformedEventError struct {
	Event string
	Field string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed %q event: payload has no %q field", e.Event, e.Field)
}

// HandlerError wraps a failure raised by a subscriber while handling an
// event. Panics are recovered and reported with Panicked set.
type HandlerError struct {
	Event    string
	Panicked bool
	Err      error
}

func (e *HandlerError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("handler for %q panicked: %v", e.Event, e.Err)
	}
	return fmt.Sprintf("handler for %q failed: %v", e.Event, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }
