package event

import (
	"context"

	"orderexec/internal/store"

	"github.com/yanun0323/logs"
)

// Publisher hands events to whoever consumes them.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Notifier delivers events only once the transaction that produced them has
// committed.
type Notifier struct {
	pub Publisher
}

func NewNotifier(pub Publisher) *Notifier {
	return &Notifier{pub: pub}
}

// PublishAfterCommit publishes e right away when ctx carries no transaction.
// Otherwise e waits for the commit and is dropped on rollback.
func (n *Notifier) PublishAfterCommit(ctx context.Context, e Event) {
	if n == nil || n.pub == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if store.AfterCommit(ctx, func() { n.publish(ctx, e) }) {
		return
	}
	n.publish(ctx, e)
}

func (n *Notifier) publish(ctx context.Context, e Event) {
	if err := n.pub.Publish(ctx, e); err != nil {
		logs.Errorf("publish %s for order %s, err: %+v", e.Kind, e.OrderID, err)
	}
}
