package bus

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrBusClosed is returned when publishing to a closed EventBus.
var ErrBusClosed = errors.New("event bus closed")

// EventBus carries classified inbound events from the transport channels
// to the single orchestrator loop. One consumer serializes all event
// handling, so no two events mutate relay state concurrently.
type EventBus struct {
	events chan Event
	done   chan struct{}
	closed atomic.Bool
}

func NewEventBus() *EventBus {
	return &EventBus{
		events: make(chan Event, 100),
		done:   make(chan struct{}),
	}
}

func (eb *EventBus) Publish(ctx context.Context, ev Event) error {
	if eb.closed.Load() {
		return ErrBusClosed
	}
	select {
	case eb.events <- ev:
		return nil
	case <-eb.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (eb *EventBus) Consume(ctx context.Context) (Event, bool) {
	select {
	case ev, ok := <-eb.events:
		return ev, ok
	case <-eb.done:
		return Event{}, false
	case <-ctx.Done():
		return Event{}, false
	}
}

func (eb *EventBus) Close() {
	if eb.closed.CompareAndSwap(false, true) {
		close(eb.done)
	}
}
