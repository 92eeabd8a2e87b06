package event

import (
	"context"

	"github.com/yanun0323/logs"
)

// Listener consumes published events.
type Listener interface {
	Handle(ctx context.Context, e Event) error
}

type ListenerFunc func(ctx context.Context, e Event) error

func (f ListenerFunc) Handle(ctx context.Context, e Event) error { return f(ctx, e) }

// Dispatch fans e out to every listener. A failing listener is logged and
// does not stop the others.
func Dispatch(listeners ...Listener) func(ctx context.Context, e Event) {
	return func(ctx context.Context, e Event) {
		for _, l := range listeners {
			if l == nil {
				continue
			}
			if err := l.Handle(ctx, e); err != nil {
				logs.Errorf("handle %s for order %s, err: %+v", e.Kind, e.OrderID, err)
			}
		}
	}
}

// LogListener writes one line per event.
func LogListener() Listener {
	return ListenerFunc(func(_ context.Context, e Event) error {
		logs.Infof("event %s order %s at %s", e.Kind, e.OrderID, e.OccurredAt.Format("2006-01-02T15:04:05.000Z07:00"))
		return nil
	})
}
