package channel

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type emitted struct {
	event   string
	payload any
}

// fakeConn records everything the client sends.
type fakeConn struct {
	mu      sync.Mutex
	emits   []emitted
	closed  int
	emitErr error
}

func (f *fakeConn) Emit(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.emitErr != nil {
		return f.emitErr
	}
	f.emits = append(f.emits, emitted{event: event, payload: payload})
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeConn) sent() []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]emitted(nil), f.emits...)
}

// fakeSource stands in for the remote end: it captures the dial options so
// tests can push events through the same path a transport would.
type fakeSource struct {
	conn    *fakeConn
	opts    DialOptions
	dialErr error
}

func (s *fakeSource) Dial(_ context.Context, _ *url.URL, opts DialOptions) (Conn, error) {
	if s.dialErr != nil {
		return nil, s.dialErr
	}
	s.opts = opts
	return s.conn, nil
}

func (s *fakeSource) push(name string, payload Payload) {
	s.opts.Deliver(Event{Name: name, Payload: payload})
}

// errorSink collects reported errors.
type errorSink struct {
	mu   sync.Mutex
	errs []error
}

func (s *errorSink) report(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *errorSink) all() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func connectFake(t *testing.T, opts ...Option) (*Client, *fakeSource, *errorSink) {
	t.Helper()
	src := &fakeSource{conn: &fakeConn{}}
	sink := &errorSink{}
	base := []Option{
		WithDialer(src),
		WithLogger(testLogger()),
		WithErrorReporter(sink.report),
		WithReadyEvent("client_ready"),
		WithClientID("test-client"),
	}
	c, err := Connect(context.Background(), "http://status.test:5000", append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, src, sink
}

// waitFor blocks until ch yields or the test deadline passes.
func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch")
	}
	var zero T
	return zero
}

var errBoom = errors.New("boom")
