package store

import (
	"context"
	"errors"

	"orderexec/internal/model"
	"orderexec/internal/model/enum"
)

// ErrDuplicateKey is returned when a plain insert hits an existing primary key.
var ErrDuplicateKey = errors.New("store: duplicate key")

// OrderFilter narrows ListOrders. Zero fields match everything.
type OrderFilter struct {
	Symbol string
	Status enum.Status
}

// Tx is the set of record operations available inside a transaction.
// Reads observe the transaction's own writes.
type Tx interface {
	// GetOrder returns exception.ErrNotFound for an unknown id.
	GetOrder(ctx context.Context, id string) (model.Order, error)
	InsertOrder(ctx context.Context, o *model.Order) error
	// UpdateOrder writes o if the stored revision still equals o.Revision and
	// then increments o.Revision. A mismatch returns
	// exception.ErrConcurrentModification.
	UpdateOrder(ctx context.Context, o *model.Order) error
	// ListOrders returns matching orders, newest created first.
	ListOrders(ctx context.Context, filter OrderFilter) ([]model.Order, error)
	// ListOpenOrders returns NEW and PARTIALLY_FILLED orders, oldest created first.
	ListOpenOrders(ctx context.Context) ([]model.Order, error)

	FindIdempotencyRecord(ctx context.Context, key string) (model.IdempotencyRecord, bool, error)
	// InsertIdempotencyRecordIfAbsent inserts rec unless its key exists. It
	// never overwrites and reports whether the row was inserted.
	InsertIdempotencyRecordIfAbsent(ctx context.Context, rec model.IdempotencyRecord) (bool, error)

	InsertExecution(ctx context.Context, e *model.Execution) error
	// ListExecutions returns an order's executions, oldest first.
	ListExecutions(ctx context.Context, orderID string) ([]model.Execution, error)
}

// Store runs fn inside a transaction. fn's error rolls the transaction back
// and is returned as is. Hooks registered with AfterCommit run after a
// successful commit, in commit order across all callers.
//
// A nested InTx on a context that already carries a transaction of the same
// store joins it.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
