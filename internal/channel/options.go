package channel

import (
	"errors"
	"log/slog"
	"time"
)

// clientConfig holds mutable state during Client construction.
type clientConfig struct {
	logger             *slog.Logger
	reporter           func(error)
	dialer             Dialer
	namespace          string
	readyEvent         string
	clientID           string
	connectTimeout     time.Duration
	insecureSkipVerify bool
	queueSize          int
}

// Option configures a Client during Connect. Options return an error if
// validation fails.
type Option func(*clientConfig) error

// WithLogger sets the logger used for connection and dispatch logs.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *clientConfig) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithErrorReporter sets the function that receives *HandlerError and
// *ConnectionError values raised after Connect returns. It is called from
// the dispatch goroutine or a transport goroutine.
func WithErrorReporter(report func(error)) Option {
	return func(cfg *clientConfig) error {
		cfg.reporter = report
		return nil
	}
}

// WithDialer overrides scheme-based transport selection.
func WithDialer(d Dialer) Option {
	return func(cfg *clientConfig) error {
		if d == nil {
			return errors.New("dialer must not be nil")
		}
		cfg.dialer = d
		return nil
	}
}

// WithNamespace sets the Socket.IO namespace. Defaults to "/".
func WithNamespace(ns string) Option {
	return func(cfg *clientConfig) error {
		cfg.namespace = ns
		return nil
	}
}

// WithReadyEvent sets the name of the acknowledgement emitted after the
// handshake. An empty name disables the acknowledgement.
func WithReadyEvent(name string) Option {
	return func(cfg *clientConfig) error {
		cfg.readyEvent = name
		return nil
	}
}

// WithClientID fixes the identifier sent with the readiness acknowledgement.
// A random UUID is used otherwise.
func WithClientID(id string) Option {
	return func(cfg *clientConfig) error {
		cfg.clientID = id
		return nil
	}
}

// WithConnectTimeout bounds the handshake.
func WithConnectTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		if d <= 0 {
			return errors.New("connect timeout must be positive")
		}
		cfg.connectTimeout = d
		return nil
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
func WithInsecureSkipVerify(skip bool) Option {
	return func(cfg *clientConfig) error {
		cfg.insecureSkipVerify = skip
		return nil
	}
}

// WithQueueSize sets how many received events may wait for dispatch before
// the transport is made to wait.
func WithQueueSize(n int) Option {
	return func(cfg *clientConfig) error {
		if n < 1 {
			return errors.New("queue size must be at least 1")
		}
		cfg.queueSize = n
		return nil
	}
}
