package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"orderexec/internal/model"
	"orderexec/pkg/exception"
)

// MemoryStore keeps records in process memory. Transactions are serialized
// by a single lock and buffer their writes until commit.
type MemoryStore struct {
	mu sync.Mutex

	orders     map[string]memOrder
	records    map[string]model.IdempotencyRecord
	executions map[string][]model.Execution // order_id -> executions
	execIDs    map[string]struct{}
	seq        uint64
}

// memOrder carries the insertion sequence to break created_at ties.
type memOrder struct {
	order model.Order
	seq   uint64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:     make(map[string]memOrder),
		records:    make(map[string]model.IdempotencyRecord),
		executions: make(map[string][]model.Execution),
		execIDs:    make(map[string]struct{}),
	}
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if tx, ok := joined(ctx, s); ok {
		return fn(ctx, tx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		s:       s,
		orders:  make(map[string]memOrder),
		records: make(map[string]model.IdempotencyRecord),
	}
	txCtx, sc := begin(ctx, s, tx)
	if err := fn(txCtx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.commit()
	sc.run()
	return nil
}

type memTx struct {
	s *MemoryStore

	orders     map[string]memOrder
	records    map[string]model.IdempotencyRecord
	executions []model.Execution
}

func (t *memTx) commit() {
	for id, o := range t.orders {
		t.s.orders[id] = o
	}
	for key, rec := range t.records {
		t.s.records[key] = rec
	}
	for _, e := range t.executions {
		t.s.executions[e.OrderID] = append(t.s.executions[e.OrderID], e)
		t.s.execIDs[e.ID] = struct{}{}
	}
}

func (t *memTx) lookup(id string) (memOrder, bool) {
	if o, ok := t.orders[id]; ok {
		return o, true
	}
	o, ok := t.s.orders[id]
	return o, ok
}

func (t *memTx) GetOrder(_ context.Context, id string) (model.Order, error) {
	o, ok := t.lookup(id)
	if !ok {
		return model.Order{}, fmt.Errorf("%w: %s", exception.ErrNotFound, id)
	}
	return o.order, nil
}

func (t *memTx) InsertOrder(_ context.Context, o *model.Order) error {
	if o == nil {
		return exception.ErrNilInstance
	}
	if _, ok := t.lookup(o.ID); ok {
		return fmt.Errorf("%w: order %s", ErrDuplicateKey, o.ID)
	}
	t.s.seq++
	t.orders[o.ID] = memOrder{order: *o, seq: t.s.seq}
	return nil
}

func (t *memTx) UpdateOrder(_ context.Context, o *model.Order) error {
	if o == nil {
		return exception.ErrNilInstance
	}
	cur, ok := t.lookup(o.ID)
	if !ok {
		return fmt.Errorf("%w: %s", exception.ErrNotFound, o.ID)
	}
	if cur.order.Revision != o.Revision {
		return fmt.Errorf("%w: order %s revision %d, stored %d",
			exception.ErrConcurrentModification, o.ID, o.Revision, cur.order.Revision)
	}
	o.Revision++
	t.orders[o.ID] = memOrder{order: *o, seq: cur.seq}
	return nil
}

func (t *memTx) snapshot(match func(model.Order) bool) []memOrder {
	out := make([]memOrder, 0, len(t.s.orders)+len(t.orders))
	for id, o := range t.s.orders {
		if _, shadowed := t.orders[id]; shadowed {
			continue
		}
		if match(o.order) {
			out = append(out, o)
		}
	}
	for _, o := range t.orders {
		if match(o.order) {
			out = append(out, o)
		}
	}
	return out
}

func unwrap(in []memOrder) []model.Order {
	out := make([]model.Order, len(in))
	for i := range in {
		out[i] = in[i].order
	}
	return out
}

func (t *memTx) ListOrders(_ context.Context, filter OrderFilter) ([]model.Order, error) {
	found := t.snapshot(func(o model.Order) bool {
		if filter.Symbol != "" && o.Symbol != filter.Symbol {
			return false
		}
		if filter.Status.IsAvailable() && o.Status != filter.Status {
			return false
		}
		return true
	})
	sort.Slice(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if !a.order.CreatedAt.Equal(b.order.CreatedAt) {
			return a.order.CreatedAt.After(b.order.CreatedAt)
		}
		return a.seq > b.seq
	})
	return unwrap(found), nil
}

func (t *memTx) ListOpenOrders(_ context.Context) ([]model.Order, error) {
	found := t.snapshot(func(o model.Order) bool { return o.Status.IsOpen() })
	sort.Slice(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if !a.order.CreatedAt.Equal(b.order.CreatedAt) {
			return a.order.CreatedAt.Before(b.order.CreatedAt)
		}
		return a.seq < b.seq
	})
	return unwrap(found), nil
}

func (t *memTx) FindIdempotencyRecord(_ context.Context, key string) (model.IdempotencyRecord, bool, error) {
	if rec, ok := t.records[key]; ok {
		return rec, true, nil
	}
	rec, ok := t.s.records[key]
	return rec, ok, nil
}

func (t *memTx) InsertIdempotencyRecordIfAbsent(ctx context.Context, rec model.IdempotencyRecord) (bool, error) {
	if _, ok, _ := t.FindIdempotencyRecord(ctx, rec.Key); ok {
		return false, nil
	}
	t.records[rec.Key] = rec
	return true, nil
}

func (t *memTx) InsertExecution(_ context.Context, e *model.Execution) error {
	if e == nil {
		return exception.ErrNilInstance
	}
	if _, ok := t.s.execIDs[e.ID]; ok {
		return fmt.Errorf("%w: execution %s", ErrDuplicateKey, e.ID)
	}
	for _, pending := range t.executions {
		if pending.ID == e.ID {
			return fmt.Errorf("%w: execution %s", ErrDuplicateKey, e.ID)
		}
	}
	t.executions = append(t.executions, *e)
	return nil
}

func (t *memTx) ListExecutions(_ context.Context, orderID string) ([]model.Execution, error) {
	committed := t.s.executions[orderID]
	out := make([]model.Execution, 0, len(committed))
	out = append(out, committed...)
	for _, e := range t.executions {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}
