package model

import (
	"fmt"
	"time"

	"orderexec/internal/model/enum"
	"orderexec/pkg/exception"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits stored for quantities and prices.
const Scale = 6

// Order is a client order and its fill progress.
//
// Revision is bumped by the store on every successful update and is what
// optimistic concurrency checks against.
type Order struct {
	ID             string              `gorm:"primaryKey;type:varchar(36)"`
	Symbol         string              `gorm:"type:varchar(32);not null;index:idx_orders_symbol_created,priority:1"`
	Side           enum.Side           `gorm:"type:varchar(8);not null"`
	Type           enum.OrderType      `gorm:"column:order_type;type:varchar(8);not null"`
	Quantity       decimal.Decimal     `gorm:"type:numeric(18,6);not null"`
	Price          decimal.NullDecimal `gorm:"type:numeric(18,6)"`
	FilledQuantity decimal.Decimal     `gorm:"type:numeric(18,6);not null"`
	Status         enum.Status         `gorm:"type:varchar(20);not null;index:idx_orders_status_created,priority:1"`
	Revision       int64               `gorm:"not null"`
	CreatedAt      time.Time           `gorm:"not null;autoCreateTime:false;index:idx_orders_symbol_created,priority:2;index:idx_orders_status_created,priority:2"`
	UpdatedAt      time.Time           `gorm:"not null;autoUpdateTime:false"`
}

func (Order) TableName() string { return "orders" }

// NewOrder builds a NEW order from a validated draft.
func NewOrder(id string, d Draft, now time.Time) Order {
	return Order{
		ID:             id,
		Symbol:         d.Symbol,
		Side:           d.Side,
		Type:           d.Type,
		Quantity:       d.Quantity,
		Price:          d.Price,
		FilledQuantity: decimal.Zero,
		Status:         enum.StatusNew,
		Revision:       0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Remaining is the unfilled quantity.
func (o Order) Remaining() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// Cancel moves NEW or PARTIALLY_FILLED to CANCELED. Canceling a canceled
// order is a no-op and reports changed=false.
func (o *Order) Cancel(now time.Time) (changed bool, err error) {
	switch o.Status {
	case enum.StatusCanceled:
		return false, nil
	case enum.StatusNew, enum.StatusPartiallyFilled:
		o.Status = enum.StatusCanceled
		o.UpdatedAt = now
		return true, nil
	default:
		return false, fmt.Errorf("%w: order in status %s cannot be canceled", exception.ErrInvalidStateTransition, o.Status)
	}
}

// ApplyFill adds qty to the filled quantity and derives the next status.
func (o *Order) ApplyFill(qty decimal.Decimal, now time.Time) (before, after enum.Status) {
	before = o.Status
	o.FilledQuantity = o.FilledQuantity.Add(qty)
	if o.FilledQuantity.GreaterThanOrEqual(o.Quantity) {
		o.Status = enum.StatusFilled
	} else {
		o.Status = enum.StatusPartiallyFilled
	}
	o.UpdatedAt = now
	return before, o.Status
}

// MarkFilled forces FILLED for an order with nothing left to fill.
func (o *Order) MarkFilled(now time.Time) (before, after enum.Status) {
	before = o.Status
	if before != enum.StatusFilled {
		o.Status = enum.StatusFilled
		o.UpdatedAt = now
	}
	return before, o.Status
}

// Execution is an append-only fill fact.
type Execution struct {
	ID         string          `gorm:"primaryKey;type:varchar(36)"`
	OrderID    string          `gorm:"type:varchar(36);not null;index:idx_executions_order_executed,priority:1"`
	Symbol     string          `gorm:"type:varchar(32);not null"`
	Quantity   decimal.Decimal `gorm:"type:numeric(18,6);not null"`
	Price      decimal.Decimal `gorm:"type:numeric(18,6);not null"`
	ExecutedAt time.Time       `gorm:"not null;index:idx_executions_order_executed,priority:2"`
}

func (Execution) TableName() string { return "executions" }

// IdempotencyRecord ties a client key to the request it first carried.
type IdempotencyRecord struct {
	Key         string    `gorm:"column:idempotency_key;primaryKey;type:varchar(255)"`
	Fingerprint string    `gorm:"column:request_fingerprint;type:varchar(64);not null"`
	OrderID     string    `gorm:"type:varchar(36);not null"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime:false"`
}

func (IdempotencyRecord) TableName() string { return "idempotency_records" }
