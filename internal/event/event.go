package event

import (
	"time"

	"orderexec/internal/model/enum"
)

// Kind identifies an order lifecycle event.
type Kind uint8

const (
	_kind_beg Kind = iota
	KindOrderAccepted
	KindOrderCanceled
	KindOrderPartiallyFilled
	KindOrderFilled
	_kind_end
)

var _kindNames = [...]string{
	KindOrderAccepted:        "OrderAccepted",
	KindOrderCanceled:        "OrderCanceled",
	KindOrderPartiallyFilled: "OrderPartiallyFilled",
	KindOrderFilled:          "OrderFilled",
}

func (k Kind) IsAvailable() bool {
	return k > _kind_beg && k < _kind_end
}

func (k Kind) String() string {
	if !k.IsAvailable() {
		return ""
	}
	return _kindNames[k]
}

// Kinds lists every event kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, _kind_end-1)
	for k := _kind_beg + 1; k < _kind_end; k++ {
		out = append(out, k)
	}
	return out
}

// Event is a committed order state change. Consumers reload the order by id.
type Event struct {
	Kind       Kind
	OrderID    string
	OccurredAt time.Time
}

func Accepted(orderID string, at time.Time) Event {
	return Event{Kind: KindOrderAccepted, OrderID: orderID, OccurredAt: at}
}

func Canceled(orderID string, at time.Time) Event {
	return Event{Kind: KindOrderCanceled, OrderID: orderID, OccurredAt: at}
}

// ForFill maps a fill-driven status change to its event. It returns false
// when the status did not change.
func ForFill(before, after enum.Status, orderID string, at time.Time) (Event, bool) {
	if before == after {
		return Event{}, false
	}
	switch after {
	case enum.StatusPartiallyFilled:
		return Event{Kind: KindOrderPartiallyFilled, OrderID: orderID, OccurredAt: at}, true
	case enum.StatusFilled:
		return Event{Kind: KindOrderFilled, OrderID: orderID, OccurredAt: at}, true
	default:
		return Event{}, false
	}
}
