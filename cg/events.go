package cg

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// EventName identifies one event type on the wire.
type EventName string

// CallbackID is the opaque handle returned when a callback is registered.
// Its only use is removing the callback again; no ordering is implied.
type CallbackID uuid.UUID

// eventListener is one registered callback. The payload it receives has
// already been decoded by the entry's decode function.
type eventListener struct {
	id   CallbackID
	once bool
	fn   func(payload any)
}

// eventEntry holds the listeners for one event name together with the
// decode function fixed at first registration. All callbacks registered
// for the same event must use the same payload type.
type eventEntry struct {
	decode    func(data json.RawMessage) (any, error)
	listeners []eventListener
}

// eventRegistry maps event names to ordered callback collections. It is
// owned by a single Client and safe for concurrent use: callbacks may be
// registered and removed while a dispatch is in flight.
type eventRegistry struct {
	mu      sync.Mutex
	entries map[EventName]*eventEntry
}

func newEventRegistry() *eventRegistry {
	return &eventRegistry{
		entries: make(map[EventName]*eventEntry),
	}
}

func (r *eventRegistry) register(event EventName, once bool, decode func(json.RawMessage) (any, error), fn func(any)) CallbackID {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[event]
	if !ok {
		entry = &eventEntry{decode: decode}
		r.entries[event] = entry
	}

	id := CallbackID(uuid.New())
	entry.listeners = append(entry.listeners, eventListener{
		id:   id,
		once: once,
		fn:   fn,
	})

	return id
}

// remove unregisters a callback; unknown event names and unknown ids are
// safe no-ops.
func (r *eventRegistry) remove(event EventName, id CallbackID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[event]
	if !ok {
		return
	}

	for i, listener := range entry.listeners {
		if listener.id == id {
			entry.listeners = append(entry.listeners[:i], entry.listeners[i+1:]...)
			// The decode function dies with the last listener, so a later
			// registration may bind the event to a different payload type.
			if len(entry.listeners) == 0 {
				delete(r.entries, event)
			}
			return
		}
	}
}

// dispatch decodes the payload once and invokes every callback currently
// registered for the event, in registration order. When no callbacks exist
// the payload is never decoded, so unknown event names are tolerated
// silently. One-shot callbacks are unregistered right after their own
// invocation without disturbing delivery to the rest of the batch.
func (r *eventRegistry) dispatch(event EventName, data json.RawMessage) error {
	r.mu.Lock()
	entry, ok := r.entries[event]
	if !ok || len(entry.listeners) == 0 {
		r.mu.Unlock()
		return nil
	}
	decode := entry.decode
	batch := make([]eventListener, len(entry.listeners))
	copy(batch, entry.listeners)
	r.mu.Unlock()

	payload, err := decode(data)
	if err != nil {
		return fmt.Errorf("failed to decode %q event payload: %w", event, err)
	}

	for _, listener := range batch {
		listener.fn(payload)
		if listener.once {
			r.remove(event, listener.id)
		}
	}

	return nil
}

// decodePayload produces the decode function bound to an event entry when a
// callback for payload type T is registered first.
func decodePayload[T any](data json.RawMessage) (any, error) {
	var payload T
	if len(data) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// On registers a callback invoked with the decoded payload every time the
// named event arrives. The returned id can be passed to
// Client.RemoveCallback. Every callback registered for one event name must
// use the same payload type; the decode shape is fixed by the first
// registration and released when the event's last callback is removed.
func On[T any](c *Client, event EventName, callback func(payload T)) CallbackID {
	return c.events.register(event, false, decodePayload[T], func(payload any) {
		callback(payload.(T))
	})
}

// Once registers a one-shot callback: it fires for the first matching event
// and is unregistered immediately after.
func Once[T any](c *Client, event EventName, callback func(payload T)) CallbackID {
	return c.events.register(event, true, decodePayload[T], func(payload any) {
		callback(payload.(T))
	})
}
