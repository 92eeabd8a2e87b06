package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"orderexec/internal/event"
	"orderexec/internal/model"
	"orderexec/internal/model/enum"
	"orderexec/internal/obs"
	"orderexec/internal/store"
	"orderexec/pkg/clock"
	"orderexec/pkg/exception"

	"github.com/google/uuid"
)

// Usecase creates, queries and cancels orders.
type Usecase struct {
	store    store.Store
	rules    model.Rules
	notifier *event.Notifier
	clock    clock.Clock
	metrics  *obs.Metrics
	newID    func() string
}

type Option func(*Usecase)

func WithClock(c clock.Clock) Option {
	return func(use *Usecase) { use.clock = c }
}

func WithMetrics(m *obs.Metrics) Option {
	return func(use *Usecase) { use.metrics = m }
}

// WithIDGenerator replaces the default random UUID order ids.
func WithIDGenerator(fn func() string) Option {
	return func(use *Usecase) { use.newID = fn }
}

func NewUsecase(s store.Store, rules model.Rules, notifier *event.Notifier, opts ...Option) *Usecase {
	use := &Usecase{
		store:    s,
		rules:    rules,
		notifier: notifier,
		clock:    clock.Real{},
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(use)
	}
	return use
}

// Created is the outcome of CreateOrder. Replayed is set when an earlier
// request with the same idempotency key produced the order.
type Created struct {
	Order    model.Order
	Replayed bool
}

// CreateOrder validates and persists a new order. With a non-blank key the
// call is idempotent: the first request wins, an identical retry returns
// the same order, and a different payload under the same key fails with
// exception.ErrIdempotencyConflict.
func (use *Usecase) CreateOrder(ctx context.Context, key string, req model.OrderRequest) (Created, error) {
	start := time.Now()
	var (
		out Created
		err error
	)
	if key = strings.TrimSpace(key); key == "" {
		err = use.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
			draft, err := use.rules.Validate(req)
			if err != nil {
				return err
			}
			out.Order, err = use.insert(ctx, tx, use.newID(), draft, use.clock.Now())
			return err
		})
	} else {
		fingerprint := Fingerprint(req)
		err = use.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
			var err error
			out, err = use.createOnce(ctx, tx, key, fingerprint, req)
			return err
		})
	}
	use.observeCreate(start, out, err)
	if err != nil {
		return Created{}, err
	}
	return out, nil
}

func (use *Usecase) createOnce(ctx context.Context, tx store.Tx, key, fingerprint string, req model.OrderRequest) (Created, error) {
	rec, found, err := tx.FindIdempotencyRecord(ctx, key)
	if err != nil {
		return Created{}, err
	}
	if found {
		return use.replay(ctx, tx, rec, fingerprint)
	}

	draft, err := use.rules.Validate(req)
	if err != nil {
		return Created{}, err
	}

	id := use.newID()
	now := use.clock.Now()
	inserted, err := tx.InsertIdempotencyRecordIfAbsent(ctx, model.IdempotencyRecord{
		Key:         key,
		Fingerprint: fingerprint,
		OrderID:     id,
		CreatedAt:   now,
	})
	if err != nil {
		return Created{}, err
	}
	if !inserted {
		// A concurrent request with the same key committed first.
		rec, found, err = tx.FindIdempotencyRecord(ctx, key)
		if err != nil {
			return Created{}, err
		}
		if !found {
			return Created{}, fmt.Errorf("%w: missing idempotency record for key %q", exception.ErrInternal, key)
		}
		return use.replay(ctx, tx, rec, fingerprint)
	}

	o, err := use.insert(ctx, tx, id, draft, now)
	if err != nil {
		return Created{}, err
	}
	return Created{Order: o}, nil
}

func (use *Usecase) replay(ctx context.Context, tx store.Tx, rec model.IdempotencyRecord, fingerprint string) (Created, error) {
	if rec.Fingerprint != fingerprint {
		return Created{}, fmt.Errorf("%w: key %q", exception.ErrIdempotencyConflict, rec.Key)
	}
	o, err := tx.GetOrder(ctx, rec.OrderID)
	if err != nil {
		return Created{}, err
	}
	return Created{Order: o, Replayed: true}, nil
}

func (use *Usecase) insert(ctx context.Context, tx store.Tx, id string, draft model.Draft, now time.Time) (model.Order, error) {
	o := model.NewOrder(id, draft, now)
	if err := tx.InsertOrder(ctx, &o); err != nil {
		return model.Order{}, err
	}
	use.notifier.PublishAfterCommit(ctx, event.Accepted(o.ID, now))
	return o, nil
}

func (use *Usecase) observeCreate(start time.Time, out Created, err error) {
	switch {
	case err == nil && out.Replayed:
		use.metrics.IncIdempotentReplay()
	case err == nil:
		use.metrics.IncOrderCreated()
	case errors.Is(err, exception.ErrValidation):
		use.metrics.IncValidationFailure()
	case errors.Is(err, exception.ErrIdempotencyConflict):
		use.metrics.IncIdempotencyConflict()
	}
	use.metrics.ObserveCreate(time.Since(start))
}

// GetOrder returns exception.ErrNotFound for an unknown id.
func (use *Usecase) GetOrder(ctx context.Context, id string) (model.Order, error) {
	var o model.Order
	err := use.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		o, err = tx.GetOrder(ctx, id)
		return err
	})
	return o, err
}

// ListQuery filters ListOrders. A nil Symbol means any symbol; a blank one
// is rejected.
type ListQuery struct {
	Symbol *string
	Status enum.Status
}

// ListOrders returns matching orders, newest first.
func (use *Usecase) ListOrders(ctx context.Context, q ListQuery) ([]model.Order, error) {
	var filter store.OrderFilter
	if q.Symbol != nil {
		symbol, ok := model.NormalizeSymbol(*q.Symbol)
		if !ok {
			return nil, exception.Validation(exception.ErrSymbolRequired, "")
		}
		filter.Symbol = symbol
	}
	filter.Status = q.Status

	var orders []model.Order
	err := use.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		orders, err = tx.ListOrders(ctx, filter)
		return err
	})
	return orders, err
}

// CancelOrder cancels an open order. Canceling a canceled order returns it
// unchanged and emits nothing.
func (use *Usecase) CancelOrder(ctx context.Context, id string) (model.Order, error) {
	var o model.Order
	err := use.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if o, err = tx.GetOrder(ctx, id); err != nil {
			return err
		}
		now := use.clock.Now()
		changed, err := o.Cancel(now)
		if err != nil || !changed {
			return err
		}
		if err := tx.UpdateOrder(ctx, &o); err != nil {
			return err
		}
		use.notifier.PublishAfterCommit(ctx, event.Canceled(o.ID, now))
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

// ListExecutions returns the fills recorded for an order, oldest first.
func (use *Usecase) ListExecutions(ctx context.Context, orderID string) ([]model.Execution, error) {
	var execs []model.Execution
	err := use.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetOrder(ctx, orderID); err != nil {
			return err
		}
		var err error
		execs, err = tx.ListExecutions(ctx, orderID)
		return err
	})
	return execs, err
}
