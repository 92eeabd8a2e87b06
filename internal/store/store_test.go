package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"orderexec/internal/model"
	"orderexec/internal/model/enum"
	"orderexec/pkg/exception"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func testOrder(symbol string, status enum.Status, createdAt time.Time) model.Order {
	return model.Order{
		ID:             uuid.NewString(),
		Symbol:         symbol,
		Side:           enum.SideBuy,
		Type:           enum.OrderTypeLimit,
		Quantity:       decimal.RequireFromString("10"),
		Price:          decimal.NewNullDecimal(decimal.RequireFromString("100")),
		FilledQuantity: decimal.Zero,
		Status:         status,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
}

func insert(t *testing.T, s Store, orders ...model.Order) {
	t.Helper()
	err := s.InTx(t.Context(), func(ctx context.Context, tx Tx) error {
		for i := range orders {
			if err := tx.InsertOrder(ctx, &orders[i]); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func ids(orders []model.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

// runContract exercises the behavior every Store implementation must share.
func runContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("get missing order", func(t *testing.T) {
		s := newStore(t)
		err := s.InTx(t.Context(), func(ctx context.Context, tx Tx) error {
			_, err := tx.GetOrder(ctx, uuid.NewString())
			return err
		})
		assert.True(t, errors.Is(err, exception.ErrNotFound))
	})

	t.Run("rollback discards writes and hooks", func(t *testing.T) {
		s := newStore(t)
		o := testOrder("AAPL", enum.StatusNew, _t0)
		hooked := false
		boom := errors.New("boom")

		err := s.InTx(t.Context(), func(ctx context.Context, tx Tx) error {
			require.NoError(t, tx.InsertOrder(ctx, &o))
			got, err := tx.GetOrder(ctx, o.ID)
			require.NoError(t, err)
			assert.Equal(t, o.ID, got.ID)
			assert.True(t, AfterCommit(ctx, func() { hooked = true }))
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.False(t, hooked)

		err = s.InTx(t.Context(), func(ctx context.Context, tx Tx) error {
			_, err := tx.GetOrder(ctx, o.ID)
			return err
		})
		assert.True(t, errors.Is(err, exception.ErrNotFound))
	})

	t.Run("hooks run after commit in registration order", func(t *testing.T) {
		s := newStore(t)
		var seen []string
		err := s.InTx(t.Context(), func(ctx context.Context, tx Tx) error {
			AfterCommit(ctx, func() { seen = append(seen, "a") })
			AfterCommit(ctx, func() { seen = append(seen, "b") })
			assert.Empty(t, seen)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, seen)
	})

	t.Run("nested InTx joins the outer transaction", func(t *testing.T) {
		s := newStore(t)
		o := testOrder("AAPL", enum.StatusNew, _t0)
		var seen []string
		err := s.InTx(t.Context(), func(ctx context.Context, tx Tx) error {
			require.NoError(t, tx.InsertOrder(ctx, &o))
			return s.InTx(ctx, func(ctx context.Context, inner Tx) error {
				_, err := inner.GetOrder(ctx, o.ID)
				AfterCommit(ctx, func() { seen = append(seen, "inner") })
				return err
			})
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"inner"}, seen)
	})

	t.Run("update checks revision", func(t *testing.T) {
		s := newStore(t)
		o := testOrder("AAPL", enum.StatusNew, _t0)
		insert(t, s, o)

		stale := o
		err := s.InTx(t.Context(), func(ctx context.Context, tx Tx) error {
			cur, err := tx.GetOrder(ctx, o.ID)
			require.NoError(t, err)
			cur.Status = enum.StatusCanceled
			cur.UpdatedAt = _t0.Add(time.Second)
			require.NoError(t, tx.UpdateOrder(ctx, &cur))
			assert.EqualValues(t, 1, cur.Revision)
			return nil
		})
		require.NoError(t, err)

		err = s.InTx(t.Context(), func(ctx context.Context, tx Tx) error {
			stale.FilledQuantity = decimal.RequireFromString("5")
			stale.Status = enum.StatusPartiallyFilled
			return tx.UpdateOrder(ctx, &stale)
		})
		assert.True(t, errors.Is(err, exception.ErrConcurrentModification))

		err = s.InTx(t.Context(), func(ctx context.Context, tx Tx) error {
			cur, err := tx.GetOrder(ctx, o.ID)
			require.NoError(t, err)
			assert.Equal(t, enum.StatusCanceled, cur.Status)
			assert.True(t, cur.FilledQuantity.IsZero())
			assert.EqualValues(t, 1, cur.Revision)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("insert idempotency record only once", func(t *testing.T) {
		s := newStore(t)
		key := "key-" + uuid.NewString()
		first := model.IdempotencyRecord{Key: key, Fingerprint: "f1", OrderID: uuid.NewString(), CreatedAt: _t0}
		second := model.IdempotencyRecord{Key: key, Fingerprint: "f2", OrderID: uuid.NewString(), CreatedAt: _t0}

		err := s.InTx(t.Context(), func(ctx context.Context, tx Tx) error {
			_, found, err := tx.FindIdempotencyRecord(ctx, key)
			require.NoError(t, err)
			assert.False(t, found)

			ok, err := tx.InsertIdempotencyRecordIfAbsent(ctx, first)
			require.NoError(t, err)
			assert.True(t, ok)
			return nil
		})
		require.NoError(t, err)

		err = s.InTx(t.Context(), func(ctx context.Context, tx Tx) error {
			ok, err := tx.InsertIdempotencyRecordIfAbsent(ctx, second)
			require.NoError(t, err)
			assert.False(t, ok)

			rec, found, err := tx.FindIdempotencyRecord(ctx, key)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, "f1", rec.Fingerprint)
			assert.Equal(t, first.OrderID, rec.OrderID)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("list orders newest first with filters", func(t *testing.T) {
		s := newStore(t)
		sym := fmt.Sprintf("S%d", time.Now().UnixNano())
		a := testOrder(sym, enum.StatusNew, _t0)
		b := testOrder(sym, enum.StatusCanceled, _t0.Add(time.Second))
		c := testOrder(sym+"X", enum.StatusNew, _t0.Add(2*time.Second))
		insert(t, s, a, b, c)

		err := s.InTx(t.Context(), func(ctx context.Context, tx Tx) error {
			got, err := tx.ListOrders(ctx, OrderFilter{Symbol: sym})
			require.NoError(t, err)
			assert.Equal(t, []string{b.ID, a.ID}, ids(got))

			got, err = tx.ListOrders(ctx, OrderFilter{Symbol: sym, Status: enum.StatusNew})
			require.NoError(t, err)
			assert.Equal(t, []string{a.ID}, ids(got))
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("open orders oldest first", func(t *testing.T) {
		s := newStore(t)
		old := testOrder("OPN", enum.StatusPartiallyFilled, _t0.Add(-time.Hour))
		newer := testOrder("OPN", enum.StatusNew, _t0)
		done := testOrder("OPN", enum.StatusFilled, _t0.Add(-2*time.Hour))
		insert(t, s, newer, done, old)

		err := s.InTx(t.Context(), func(ctx context.Context, tx Tx) error {
			got, err := tx.ListOpenOrders(ctx)
			require.NoError(t, err)
			var mine []string
			for _, o := range got {
				if o.ID == old.ID || o.ID == newer.ID || o.ID == done.ID {
					mine = append(mine, o.ID)
				}
			}
			assert.Equal(t, []string{old.ID, newer.ID}, mine)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("executions are listed per order", func(t *testing.T) {
		s := newStore(t)
		o := testOrder("EXE", enum.StatusNew, _t0)
		insert(t, s, o)

		err := s.InTx(t.Context(), func(ctx context.Context, tx Tx) error {
			for i := 1; i <= 2; i++ {
				e := model.Execution{
					ID:         uuid.NewString(),
					OrderID:    o.ID,
					Symbol:     o.Symbol,
					Quantity:   decimal.NewFromInt(int64(i)),
					Price:      decimal.NewFromInt(100),
					ExecutedAt: _t0.Add(time.Duration(i) * time.Second),
				}
				require.NoError(t, tx.InsertExecution(ctx, &e))
			}
			return nil
		})
		require.NoError(t, err)

		err = s.InTx(t.Context(), func(ctx context.Context, tx Tx) error {
			got, err := tx.ListExecutions(ctx, o.ID)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.True(t, got[0].Quantity.Equal(decimal.NewFromInt(1)))
			assert.True(t, got[1].Quantity.Equal(decimal.NewFromInt(2)))
			return nil
		})
		require.NoError(t, err)
	})
}
