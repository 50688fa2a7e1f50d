package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/statusboard/internal/channel"
	"github.com/vk/statusboard/internal/ctxlog"
	"github.com/vk/statusboard/internal/render"
)

// Run connects to the push-event source, binds the configured regions and
// serves until ctx is cancelled or the client is closed.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.Print {
		render.NewPrinter(a.outW).Attach(a.store)
	}

	opts := []channel.Option{
		channel.WithLogger(a.logger),
		channel.WithErrorReporter(a.reportError),
		channel.WithNamespace(a.model.Namespace),
		channel.WithReadyEvent(a.model.ReadyEvent),
		channel.WithConnectTimeout(a.model.ConnectTimeout),
		channel.WithInsecureSkipVerify(a.model.InsecureSkipVerify),
	}
	if a.dialer != nil {
		opts = append(opts, channel.WithDialer(a.dialer))
	}

	client, err := channel.NewClient(opts...)
	if err != nil {
		return fmt.Errorf("failed to create channel client: %w", err)
	}
	a.setClient(client)
	defer client.Close()

	// Bindings subscribe before connecting so that whatever the source
	// flushes on readiness lands in its region.
	bindings, _, err := render.Bind(client, a.store, a.model.Bindings...)
	if err != nil {
		return fmt.Errorf("failed to bind regions: %w", err)
	}
	for _, b := range bindings {
		a.logger.Debug("Binding registered.", "event", b.Event, "region", b.Region, "field", b.Field)
	}
	a.logger.Info("Regions bound.", "count", len(bindings))

	a.logger.Info("🔌 Connecting to push-event source...", "endpoint", a.model.Endpoint)
	if err := client.Connect(ctx, a.model.Endpoint); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	if err := a.startServer(ctx); err != nil {
		return err
	}
	defer a.stopServer(ctx)

	select {
	case <-ctx.Done():
		a.logger.Info("🏁 Shutting down.")
	case <-client.Done():
		a.logger.Info("🏁 Client closed.")
	}

	a.logger.Debug("App.Run method finished.", "stats", client.Stats())
	return nil
}

// reportError logs errors raised after the connection is established.
func (a *App) reportError(err error) {
	var (
		malformed *channel.MalformedEventError
		handler   *channel.HandlerError
		conn      *channel.ConnectionError
	)
	switch {
	case errors.As(err, &malformed):
		a.logger.Warn("Malformed event, region left unchanged", "event", malformed.Event, "field", malformed.Field)
	case errors.As(err, &handler):
		a.logger.Error("Event handler failed", "event", handler.Event, "panicked", handler.Panicked, "error", handler.Err)
	case errors.As(err, &conn):
		a.logger.Error("Connection to push-event source lost", "endpoint", conn.Endpoint, "error", conn.Err)
	default:
		a.logger.Error("Channel error", "error", err)
	}
}
