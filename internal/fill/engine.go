package fill

import (
	"context"
	"errors"
	"time"

	"orderexec/internal/event"
	"orderexec/internal/model"
	"orderexec/internal/model/enum"
	"orderexec/internal/obs"
	"orderexec/internal/store"
	"orderexec/pkg/clock"
	"orderexec/pkg/exception"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"
)

// PriceSource supplies the reference price of a symbol.
type PriceSource interface {
	Price(symbol string) decimal.Decimal
}

// Engine advances open orders with simulated fills against a reference
// price. Passes over the same symbol never overlap.
type Engine struct {
	store     store.Store
	prices    PriceSource
	fractions fractionRange
	notifier  *event.Notifier
	clock     clock.Clock
	metrics   *obs.Metrics
	newID     func() string
	locks     symbolLocks
}

type Option func(*Engine)

func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithMetrics(m *obs.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithIDGenerator replaces the default random UUID execution ids.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

func NewEngine(s store.Store, prices PriceSource, cfg Config, notifier *event.Notifier, opts ...Option) (*Engine, error) {
	if s == nil || prices == nil {
		return nil, exception.ErrNilInstance
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		store:     s,
		prices:    prices,
		fractions: newFractionRange(cfg),
		notifier:  notifier,
		clock:     clock.Real{},
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ProcessOpenOrders runs one pass over every NEW and PARTIALLY_FILLED order.
// Orders are grouped by symbol and handled oldest first under the symbol's
// lock. Orders lost to a concurrent update are left for the next pass. An
// unexpected failure stops its symbol's group; the other groups still run
// and the failures are returned joined.
func (e *Engine) ProcessOpenOrders(ctx context.Context) error {
	var open []model.Order
	err := e.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		open, err = tx.ListOpenOrders(ctx)
		return err
	})
	if err != nil {
		return err
	}

	var symbols []string
	groups := make(map[string][]string)
	for _, o := range open {
		if _, ok := groups[o.Symbol]; !ok {
			symbols = append(symbols, o.Symbol)
		}
		groups[o.Symbol] = append(groups[o.Symbol], o.ID)
	}

	var errs []error
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := e.processSymbol(ctx, symbol, groups[symbol]); err != nil {
			logs.Errorf("fill symbol %s, err: %+v", symbol, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) processSymbol(ctx context.Context, symbol string, ids []string) error {
	lock := e.locks.get(symbol)
	lock.Lock()
	defer lock.Unlock()

	ref := e.prices.Price(symbol)
	for _, id := range ids {
		err := e.ProcessOrder(ctx, id, ref)
		if errors.Is(err, exception.ErrConcurrentModification) {
			e.metrics.IncFillConflict()
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ProcessOrder applies at most one simulated fill to the order at price ref.
// Missing, terminal and non-marketable orders are left untouched.
func (e *Engine) ProcessOrder(ctx context.Context, orderID string, ref decimal.Decimal) error {
	return e.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		o, err := tx.GetOrder(ctx, orderID)
		if errors.Is(err, exception.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if o.Status.IsTerminal() {
			return nil
		}
		if !Marketable(o, ref) {
			e.metrics.IncNotMarketable()
			return nil
		}

		now := e.clock.Now()
		var before, after enum.Status
		if remaining := o.Remaining(); remaining.IsPositive() {
			if before, after, err = e.fill(ctx, tx, &o, remaining, ref, now); err != nil {
				return err
			}
		} else {
			before, after = o.MarkFilled(now)
			if before == after {
				return nil
			}
		}

		if err := tx.UpdateOrder(ctx, &o); err != nil {
			return err
		}
		if ev, ok := event.ForFill(before, after, o.ID, now); ok {
			e.notifier.PublishAfterCommit(ctx, ev)
		}
		return nil
	})
}

func (e *Engine) fill(ctx context.Context, tx store.Tx, o *model.Order, remaining, ref decimal.Decimal, now time.Time) (before, after enum.Status, err error) {
	qty := Quantity(remaining, e.fractions.pick(o.ID, o.FilledQuantity))
	exec := model.Execution{
		ID:         e.newID(),
		OrderID:    o.ID,
		Symbol:     o.Symbol,
		Quantity:   qty,
		Price:      ref,
		ExecutedAt: now,
	}
	if err := tx.InsertExecution(ctx, &exec); err != nil {
		return 0, 0, err
	}
	store.AfterCommit(ctx, e.metrics.IncFill)
	before, after = o.ApplyFill(qty, now)
	return before, after, nil
}
