// Package channel owns the single logical connection between the dashboard
// and its push-event source.
//
// A Client is created with NewClient and connected with Client.Connect,
// which selects a transport from the endpoint scheme (Socket.IO for
// http/https, plain WebSocket for ws/wss), waits for the handshake and then
// announces readiness to the source so any state buffered server-side can be
// flushed. Handlers registered with Subscribe before Connect see that flush.
// The package-level Connect does both steps at once. When the Socket.IO
// manager re-establishes a dropped connection by itself, readiness is
// announced again; the plain WebSocket transport does not reconnect.
//
// Events are dispatched serially from one goroutine: a handler runs to
// completion before the next event is taken from the queue. Handler failures
// are reported as *HandlerError and never tear down the connection. After
// Close, queued and newly received events are dropped.
package channel
