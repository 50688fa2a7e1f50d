package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultEndpoint matches the development address of the status page server.
	DefaultEndpoint = "http://localhost:5000"
	// DefaultField is the payload key a binding renders when none is given.
	DefaultField = "data"
	// DefaultReadyEvent is emitted once the connection is established.
	// Socket.IO reserves "connect", so the acknowledgement uses its own name.
	DefaultReadyEvent = "client_ready"
	// DefaultConnectTimeout bounds the transport handshake.
	DefaultConnectTimeout = 15 * time.Second
)

// Model is the unified, format-agnostic representation of the dashboard
// client configuration.
type Model struct {
	Endpoint           string
	Namespace          string
	ReadyEvent         string
	ConnectTimeout     time.Duration
	InsecureSkipVerify bool
	Bindings           []Binding
}

// Binding is the format-agnostic representation of a `binding` block: the
// static association between an event name and a region.
type Binding struct {
	Event  string
	Region string
	Field  string
}

// String returns the binding in event->region[field] form for logs.
func (b Binding) String() string {
	return fmt.Sprintf("%s->%s[%s]", b.Event, b.Region, b.Field)
}

// Validate reports whether the binding names an event and a region.
func (b Binding) Validate() error {
	if b.Event == "" {
		return errors.New("binding is missing an event name")
	}
	if b.Region == "" {
		return fmt.Errorf("binding for event %q is missing a region", b.Event)
	}
	return nil
}

// DefaultBindings is the registration table used when the configuration
// declares no bindings of its own.
func DefaultBindings() []Binding {
	return []Binding{
		{Event: "status", Region: "now_playing_wrapper", Field: "plex"},
		{Event: "plex", Region: "now_playing_wrapper", Field: DefaultField},
		{Event: "forecast", Region: "left_column_top", Field: DefaultField},
		{Event: "bandwidth", Region: "bandwidth", Field: DefaultField},
		{Event: "services", Region: "services", Field: DefaultField},
	}
}

// NewModel returns a model populated with defaults and no bindings.
func NewModel() *Model {
	return &Model{
		Endpoint:       DefaultEndpoint,
		Namespace:      "/",
		ReadyEvent:     DefaultReadyEvent,
		ConnectTimeout: DefaultConnectTimeout,
	}
}

// Merge overlays the non-zero settings of other onto m and appends its
// bindings. Later files therefore win for scalar settings.
func (m *Model) Merge(other *Model) {
	if other == nil {
		return
	}
	if other.Endpoint != "" {
		m.Endpoint = other.Endpoint
	}
	if other.Namespace != "" {
		m.Namespace = other.Namespace
	}
	if other.ReadyEvent != "" {
		m.ReadyEvent = other.ReadyEvent
	}
	if other.ConnectTimeout > 0 {
		m.ConnectTimeout = other.ConnectTimeout
	}
	if other.InsecureSkipVerify {
		m.InsecureSkipVerify = true
	}
	m.Bindings = append(m.Bindings, other.Bindings...)
}

// Finalize fills in defaults that depend on the whole model and validates
// every binding.
func (m *Model) Finalize() error {
	if m.Endpoint == "" {
		m.Endpoint = DefaultEndpoint
	}
	if m.Namespace == "" {
		m.Namespace = "/"
	}
	if m.ReadyEvent == "" {
		m.ReadyEvent = DefaultReadyEvent
	}
	if m.ConnectTimeout <= 0 {
		m.ConnectTimeout = DefaultConnectTimeout
	}
	if len(m.Bindings) == 0 {
		m.Bindings = DefaultBindings()
	}
	for i := range m.Bindings {
		if m.Bindings[i].Field == "" {
			m.Bindings[i].Field = DefaultField
		}
		if err := m.Bindings[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ParseDuration parses a timeout setting, treating the empty string as zero.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	return d, nil
}
