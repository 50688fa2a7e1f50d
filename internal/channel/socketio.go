package channel

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// socketIODialer connects to a Socket.IO server such as Flask-SocketIO.
type socketIODialer struct{}

type socketIOConn struct {
	io *socket.Socket
}

func (d *socketIODialer) Dial(ctx context.Context, endpoint *url.URL, opts DialOptions) (Conn, error) {
	sioOpts := socket.DefaultOptions()
	if endpoint.Path != "" && endpoint.Path != "/" {
		sioOpts.SetPath(endpoint.Path)
	}
	if opts.InsecureSkipVerify {
		sioOpts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	if opts.ConnectTimeout > 0 {
		sioOpts.SetTimeout(opts.ConnectTimeout)
	}
	sioOpts.SetTransports(types.NewSet(transports.Polling, transports.WebSocket))

	namespace := opts.Namespace
	if namespace == "" {
		namespace = "/"
	}

	baseURL := fmt.Sprintf("%s://%s", endpoint.Scheme, endpoint.Host)
	manager := socket.NewManager(baseURL, sioOpts)
	io := manager.Socket(namespace, sioOpts)

	connectChan := make(chan error, 2)
	io.Once(types.EventName("connect"), func(...any) {
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		connectChan <- connectErrorFrom(errs)
	})
	// The manager reconnects by itself; every connect after the first is a
	// reconnection.
	var connects atomic.Int32
	io.On(types.EventName("connect"), func(...any) {
		if connects.Add(1) > 1 && opts.OnReconnect != nil {
			opts.OnReconnect()
		}
	})
	io.On(types.EventName("disconnect"), func(reason ...any) {
		if opts.OnDisconnect == nil {
			return
		}
		if len(reason) > 0 {
			opts.OnDisconnect(fmt.Errorf("%v", reason[0]))
			return
		}
		opts.OnDisconnect(errors.New("socket.io disconnect"))
	})
	io.OnAny(func(args ...any) {
		ev, err := frameFrom(args)
		if err != nil || opts.Deliver == nil {
			return
		}
		opts.Deliver(ev)
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &socketIOConn{io: io}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("timed out waiting for socket.io connection: %w", ctx.Err())
	}
}

func connectErrorFrom(errs []any) error {
	if len(errs) > 0 {
		if err, ok := errs[0].(error); ok {
			return err
		}
		return fmt.Errorf("%v", errs[0])
	}
	return errors.New("connect_error")
}

func (c *socketIOConn) Emit(event string, payload any) error {
	return c.io.Emit(event, payload)
}

func (c *socketIOConn) Close() error {
	c.io.Disconnect()
	return nil
}
