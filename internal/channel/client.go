package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vk/statusboard/internal/ctxlog"
)

const (
	defaultConnectTimeout = 15 * time.Second
	defaultQueueSize      = 64
)

// Handler processes one event. Returned errors and panics are reported as
// *HandlerError.
type Handler func(ctx context.Context, ev Event) error

// Subscription identifies a registered handler. The zero value is inert.
type Subscription struct {
	id     uint64
	event  string
	active *atomic.Bool
}

// Event returns the event name the subscription listens to.
func (s Subscription) Event() string { return s.event }

type subscriber struct {
	id      uint64
	handler Handler
	active  *atomic.Bool
}

// Stats is a snapshot of the client's dispatch counters.
type Stats struct {
	Received      uint64 `json:"received"`
	Dispatched    uint64 `json:"dispatched"`
	Dropped       uint64 `json:"dropped"`
	HandlerErrors uint64 `json:"handler_errors"`
}

// Client owns one connection to a push-event source.
type Client struct {
	id     string
	cfg    *clientConfig
	logger *slog.Logger
	report func(error)
	ctx    context.Context

	mu       sync.Mutex
	conn     Conn
	dialing  bool
	endpoint string
	subs     map[string][]subscriber
	nextID   uint64

	queue     chan Event
	closed    chan struct{}
	closeOnce sync.Once
	done      chan struct{}

	received      atomic.Uint64
	dispatched    atomic.Uint64
	dropped       atomic.Uint64
	handlerErrors atomic.Uint64
}

// NewClient creates an unconnected client and starts its dispatch
// goroutine. Handlers may be subscribed before Connect so that state the
// source flushes on readiness is not missed.
func NewClient(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		logger:         slog.Default(),
		namespace:      "/",
		connectTimeout: defaultConnectTimeout,
		queueSize:      defaultQueueSize,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("invalid client option: %w", err)
		}
	}
	if cfg.clientID == "" {
		cfg.clientID = uuid.NewString()
	}

	logger := cfg.logger.With("client_id", cfg.clientID)
	c := &Client{
		id:     cfg.clientID,
		cfg:    cfg,
		logger: logger,
		report: cfg.reporter,
		ctx:    context.Background(),
		subs:   make(map[string][]subscriber),
		queue:  make(chan Event, cfg.queueSize),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	if c.report == nil {
		c.report = func(err error) { logger.Error("Channel error", "error", err) }
	}

	go c.dispatchLoop()
	return c, nil
}

// Connect creates a client, establishes the connection and announces
// readiness. It is NewClient followed by Client.Connect.
func Connect(ctx context.Context, endpoint string, opts ...Option) (*Client, error) {
	c, err := NewClient(opts...)
	if err != nil {
		return nil, err
	}
	if err := c.Connect(ctx, endpoint); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// Connect establishes the connection and announces readiness to the source.
// It blocks until the handshake completes, the connect timeout elapses, or
// ctx is cancelled. Every failure is returned as *ConnectionError and
// leaves the client unconnected, so Connect may be retried.
func (c *Client) Connect(ctx context.Context, endpoint string) error {
	c.mu.Lock()
	switch {
	case c.isClosed():
		c.mu.Unlock()
		return ErrClientClosed
	case c.conn != nil || c.dialing:
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.dialing = true
	c.endpoint = endpoint
	c.ctx = context.WithoutCancel(ctx)
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.dialing = false
		c.mu.Unlock()
	}()

	u, err := url.Parse(endpoint)
	if err != nil {
		return &ConnectionError{Endpoint: endpoint, Err: fmt.Errorf("failed to parse URL: %w", err)}
	}
	dialer := c.cfg.dialer
	if dialer == nil {
		if dialer, err = dialerFor(u); err != nil {
			return &ConnectionError{Endpoint: endpoint, Err: err}
		}
	}

	logger := c.logger.With("endpoint", endpoint)
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.connectTimeout)
	defer cancel()

	logger.Debug("Dialing push-event source...", "namespace", c.cfg.namespace)
	conn, err := dialer.Dial(dialCtx, u, DialOptions{
		Namespace:          c.cfg.namespace,
		ConnectTimeout:     c.cfg.connectTimeout,
		InsecureSkipVerify: c.cfg.insecureSkipVerify,
		Deliver:            c.deliver,
		OnDisconnect:       c.onDisconnect,
		OnReconnect:        c.onReconnect,
	})
	if err != nil {
		return &ConnectionError{Endpoint: endpoint, Err: err}
	}

	c.mu.Lock()
	if c.isClosed() {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrClientClosed
	}
	c.conn = conn
	c.mu.Unlock()

	if err := c.announce(conn); err != nil {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
		return &ConnectionError{Endpoint: endpoint, Err: err}
	}

	logger.Info("Connected to push-event source")
	return nil
}

// ID returns the identifier announced to the source.
func (c *Client) ID() string { return c.id }

// Endpoint returns the URI passed to the last Connect call.
func (c *Client) Endpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoint
}

// Connected reports whether a connection is held and the client is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.isClosed()
}

// Subscribe registers handler for the named event. Handlers for the same
// event run in registration order. Subscribing on a closed client returns
// an inert subscription.
func (c *Client) Subscribe(event string, handler Handler) Subscription {
	if handler == nil {
		panic("channel: nil handler")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	active := &atomic.Bool{}
	sub := Subscription{id: c.nextID, event: event, active: active}
	if c.isClosed() {
		return sub
	}
	active.Store(true)
	c.subs[event] = append(c.subs[event], subscriber{id: sub.id, handler: handler, active: active})
	c.logger.Debug("Handler subscribed.", "event", event, "subscription", sub.id)
	return sub
}

// Unsubscribe removes a handler. Removing an already-removed or zero
// subscription is a no-op.
func (c *Client) Unsubscribe(sub Subscription) {
	if sub.active == nil || !sub.active.Swap(false) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	list := c.subs[sub.event]
	for i, s := range list {
		if s.id == sub.id {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(c.subs, sub.event)
	} else {
		c.subs[sub.event] = list
	}
	c.logger.Debug("Handler unsubscribed.", "event", sub.event, "subscription", sub.id)
}

// Emit sends a named event to the source.
func (c *Client) Emit(event string, payload any) error {
	c.mu.Lock()
	conn := c.conn
	closed := c.isClosed()
	c.mu.Unlock()

	switch {
	case closed:
		return ErrClientClosed
	case conn == nil:
		return ErrNotConnected
	}
	return conn.Emit(event, payload)
}

// Close releases the connection. It returns immediately; a handler that is
// already running is allowed to finish, and every event not yet dispatched
// is dropped. Close is safe to call from a handler and more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		close(c.closed)
		for _, list := range c.subs {
			for _, s := range list {
				s.active.Store(false)
			}
		}
		clear(c.subs)
		conn := c.conn
		c.mu.Unlock()

		if conn != nil {
			err = conn.Close()
		}
		c.logger.Info("Connection closed")
	})
	return err
}

// Done is closed once the dispatch goroutine has stopped.
func (c *Client) Done() <-chan struct{} { return c.done }

// Stats returns a snapshot of the dispatch counters.
func (c *Client) Stats() Stats {
	return Stats{
		Received:      c.received.Load(),
		Dispatched:    c.dispatched.Load(),
		Dropped:       c.dropped.Load(),
		HandlerErrors: c.handlerErrors.Load(),
	}
}

func (c *Client) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// deliver queues an inbound event. It waits for queue space so a slow
// handler slows the transport down instead of losing events.
func (c *Client) deliver(ev Event) {
	c.received.Add(1)
	if c.isClosed() {
		c.dropped.Add(1)
		return
	}
	select {
	case c.queue <- ev:
	case <-c.closed:
		c.dropped.Add(1)
	}
}

func (c *Client) onDisconnect(reason error) {
	if c.isClosed() {
		return
	}
	c.report(&ConnectionError{Endpoint: c.Endpoint(), Err: fmt.Errorf("disconnected: %w", reason)})
}

// announce emits the readiness acknowledgement, if one is configured.
func (c *Client) announce(conn Conn) error {
	name := c.cfg.readyEvent
	if name == "" {
		return nil
	}
	if err := conn.Emit(name, map[string]string{"client_id": c.id}); err != nil {
		return fmt.Errorf("failed to emit %q: %w", name, err)
	}
	c.logger.Debug("Readiness acknowledged.", "event", name)
	return nil
}

// onReconnect re-announces readiness so the source flushes its state again.
func (c *Client) onReconnect() {
	c.mu.Lock()
	conn := c.conn
	closed := c.isClosed()
	c.mu.Unlock()
	if closed || conn == nil {
		return
	}

	c.logger.Info("Reconnected to push-event source")
	if err := c.announce(conn); err != nil {
		c.report(&ConnectionError{Endpoint: c.Endpoint(), Err: err})
	}
}

func (c *Client) dispatchLoop() {
	defer close(c.done)
	for {
		select {
		case <-c.closed:
			c.drainQueue()
			return
		case ev := <-c.queue:
			c.dispatch(ev)
		}
	}
}

func (c *Client) drainQueue() {
	for {
		select {
		case <-c.queue:
			c.dropped.Add(1)
		default:
			return
		}
	}
}

func (c *Client) dispatch(ev Event) {
	if c.isClosed() {
		c.dropped.Add(1)
		return
	}

	c.mu.Lock()
	handlers := append([]subscriber(nil), c.subs[ev.Name]...)
	c.mu.Unlock()

	if len(handlers) == 0 {
		c.logger.Debug("No handler for event, dropping.", "event", ev.Name)
		c.dropped.Add(1)
		return
	}

	c.dispatched.Add(1)
	for _, s := range handlers {
		// An earlier handler may have unsubscribed this one or closed the client.
		if !s.active.Load() {
			continue
		}
		if err := c.invoke(s.handler, ev); err != nil {
			c.handlerErrors.Add(1)
			c.report(err)
		}
	}
}

func (c *Client) handlerContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx
}

// invoke runs one handler and converts its failure into a *HandlerError.
func (c *Client) invoke(h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			perr, ok := r.(error)
			if !ok {
				perr = fmt.Errorf("%v", r)
			}
			err = &HandlerError{Event: ev.Name, Panicked: true, Err: perr}
		}
	}()

	ctx := ctxlog.With(c.handlerContext(), "event", ev.Name)
	if herr := h(ctx, ev); herr != nil {
		var already *HandlerError
		if errors.As(herr, &already) {
			return herr
		}
		return &HandlerError{Event: ev.Name, Err: herr}
	}
	return nil
}
