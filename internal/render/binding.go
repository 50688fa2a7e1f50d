package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/statusboard/internal/channel"
	"github.com/vk/statusboard/internal/config"
	"github.com/vk/statusboard/internal/ctxlog"
)

// ErrDuplicateBinding is returned when the same event is bound to the same
// region twice.
var ErrDuplicateBinding = errors.New("render: duplicate binding")

// Binding renders one event into one region.
type Binding struct {
	Event  string
	Region string
	Field  string

	store *RegionStore
}

// NewBinding creates a binding that writes to store. An empty field means
// channel.DataField.
func NewBinding(store *RegionStore, def config.Binding) (*Binding, error) {
	if store == nil {
		return nil, errors.New("render: nil region store")
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	field := def.Field
	if field == "" {
		field = channel.DataField
	}
	return &Binding{Event: def.Event, Region: def.Region, Field: field, store: store}, nil
}

// Apply overwrites the bound region with the event's field. A missing field
// returns *channel.MalformedEventError and leaves the region unchanged.
func (b *Binding) Apply(ev channel.Event) error {
	content, err := ev.Field(b.Field)
	if err != nil {
		return err
	}
	b.store.Set(b.Region, content)
	return nil
}

// Handle adapts the binding to a channel.Handler.
func (b *Binding) Handle(ctx context.Context, ev channel.Event) error {
	if err := b.Apply(ev); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Region rendered.", "region", b.Region, "bytes", len(ev.Payload[b.Field]))
	return nil
}

// Subscriber is the part of *channel.Client that Bind needs.
type Subscriber interface {
	Subscribe(event string, handler channel.Handler) channel.Subscription
}

// Bind validates defs, rejects duplicate (event, region) pairs and
// subscribes one handler per binding, in order. Nothing is subscribed when
// validation fails.
func Bind(sub Subscriber, store *RegionStore, defs ...config.Binding) ([]*Binding, []channel.Subscription, error) {
	type key struct{ event, region string }
	seen := make(map[key]struct{}, len(defs))

	bindings := make([]*Binding, 0, len(defs))
	for _, def := range defs {
		b, err := NewBinding(store, def)
		if err != nil {
			return nil, nil, err
		}
		k := key{b.Event, b.Region}
		if _, dup := seen[k]; dup {
			return nil, nil, fmt.Errorf("%w: event %q to region %q", ErrDuplicateBinding, b.Event, b.Region)
		}
		seen[k] = struct{}{}
		bindings = append(bindings, b)
	}

	subs := make([]channel.Subscription, 0, len(bindings))
	for _, b := range bindings {
		subs = append(subs, sub.Subscribe(b.Event, b.Handle))
	}
	return bindings, subs, nil
}
