package channel

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Conn is an established transport connection.
type Conn interface {
	// Emit sends a named event to the source.
	Emit(event string, payload any) error
	// Close releases the connection. It is safe to call more than once.
	Close() error
}

// DialOptions carries the transport-level settings shared by all dialers.
type DialOptions struct {
	Namespace          string
	ConnectTimeout     time.Duration
	InsecureSkipVerify bool

	// Deliver receives every inbound event. It may block to apply
	// backpressure and may be called from any goroutine.
	Deliver func(Event)
	// OnDisconnect is called when an established connection is lost.
	OnDisconnect func(reason error)
	// OnReconnect is called when a transport that reconnects on its own has
	// re-established the connection.
	OnReconnect func()
}

// Dialer establishes a transport connection to an endpoint.
type Dialer interface {
	Dial(ctx context.Context, endpoint *url.URL, opts DialOptions) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, endpoint *url.URL, opts DialOptions) (Conn, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context, endpoint *url.URL, opts DialOptions) (Conn, error) {
	return f(ctx, endpoint, opts)
}

// dialerFor selects the transport for an endpoint scheme.
func dialerFor(endpoint *url.URL) (Dialer, error) {
	switch endpoint.Scheme {
	case "http", "https":
		return &socketIODialer{}, nil
	case "ws", "wss":
		return &websocketDialer{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, endpoint.Scheme)
	}
}
