package bus

import (
	"context"
	"sync"

	"orderexec/internal/event"
	"orderexec/pkg/exception"
)

var ErrQueueClosed = exception.ErrEventQueueClosed

// Queue is a bounded event queue drained by a single consumer.
type Queue struct {
	mu     sync.RWMutex
	ch     chan event.Event
	closed bool
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan event.Event, capacity)}
}

// Publish enqueues an event, waiting for room until ctx is done.
func (q *Queue) Publish(ctx context.Context, e event.Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the queue from accepting new events. Events already queued
// are still delivered by Run.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// Run consumes events until the context is done or the queue is closed and
// drained.
func (q *Queue) Run(ctx context.Context, handler func(context.Context, event.Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-q.ch:
			if !ok {
				return
			}
			handler(ctx, e)
		}
	}
}
