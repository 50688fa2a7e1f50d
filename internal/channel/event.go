package channel

import "fmt"

// DataField is the payload key that carries renderable content.
const DataField = "data"

// Payload is the string mapping carried by an event.
type Payload map[string]string

// Event is a named event received from the source.
type Event struct {
	Name    string
	Payload Payload
}

// Field returns the named payload field, or a *MalformedEventError when the
// field is absent. An empty string is a valid value.
func (e Event) Field(key string) (string, error) {
	v, ok := e.Payload[key]
	if !ok {
		return "", &MalformedEventError{Event: e.Name, Field: key}
	}
	return v, nil
}

// Data returns the DataField of the payload.
func (e Event) Data() (string, error) {
	return e.Field(DataField)
}

// PayloadFrom converts a decoded wire value into a Payload. Objects keep
// their string members and drop everything else; any other shape yields an
// empty payload.
func PayloadFrom(v any) Payload {
	p := Payload{}
	switch m := v.(type) {
	case map[string]string:
		for k, s := range m {
			p[k] = s
		}
	case map[string]any:
		for k, raw := range m {
			if s, ok := raw.(string); ok {
				p[k] = s
			}
		}
	case Payload:
		for k, s := range m {
			p[k] = s
		}
	}
	return p
}

// frameFrom builds an event from the argument list the transports receive:
// the event name followed by its arguments. Only the first argument is the
// payload.
func frameFrom(args []any) (Event, error) {
	if len(args) == 0 {
		return Event{}, fmt.Errorf("empty frame")
	}
	name, ok := args[0].(string)
	if !ok {
		return Event{}, fmt.Errorf("frame name has type %T, want string", args[0])
	}
	var payload any
	if len(args) > 1 {
		payload = args[1]
	}
	return Event{Name: name, Payload: PayloadFrom(payload)}, nil
}
