package channel

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wireMessage is the JSON frame exchanged over plain WebSocket endpoints:
//
//	{"event": "plex", "data": {"data": "<b>Movie X</b>"}}
type wireMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// websocketDialer connects to sources that speak JSON frames over a plain
// WebSocket instead of Socket.IO.
type websocketDialer struct{}

type websocketConn struct {
	ws        *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	closing   chan struct{}
}

func (d *websocketDialer) Dial(ctx context.Context, endpoint *url.URL, opts DialOptions) (Conn, error) {
	dialer := *websocket.DefaultDialer
	if opts.ConnectTimeout > 0 {
		dialer.HandshakeTimeout = opts.ConnectTimeout
	}
	if opts.InsecureSkipVerify {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	ws, resp, err := dialer.DialContext(ctx, endpoint.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("websocket handshake failed: %w", err)
	}

	c := &websocketConn{ws: ws, closing: make(chan struct{})}
	go c.readLoop(opts)
	return c, nil
}

func (c *websocketConn) readLoop(opts DialOptions) {
	for {
		var msg wireMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			select {
			case <-c.closing:
				return
			default:
			}
			if opts.OnDisconnect != nil {
				opts.OnDisconnect(err)
			}
			return
		}
		if msg.Event == "" || opts.Deliver == nil {
			continue
		}
		opts.Deliver(Event{Name: msg.Event, Payload: PayloadFrom(msg.Data)})
	}
}

func (c *websocketConn) Emit(event string, payload any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(wireMessage{Event: event, Data: payload})
}

func (c *websocketConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closing)
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.writeMu.Unlock()
		if cerr := c.ws.Close(); cerr != nil && !errors.Is(cerr, websocket.ErrCloseSent) {
			err = cerr
		}
	})
	return err
}
