// Package eventtest holds an in-memory event sink for tests.
package eventtest

import (
	"context"
	"sync"

	"orderexec/internal/event"
)

// Recorder keeps every event it sees. It is both a Publisher and a Listener.
type Recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *Recorder) Publish(_ context.Context, e event.Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Handle(ctx context.Context, e event.Event) error {
	return r.Publish(ctx, e)
}

// Events returns a copy of what has been recorded so far.
func (r *Recorder) Events() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many recorded events match kind and orderID. An empty
// orderID matches any order.
func (r *Recorder) Count(kind event.Kind, orderID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind && (orderID == "" || e.OrderID == orderID) {
			n++
		}
	}
	return n
}
