package obs

import (
	"errors"
	"testing"
	"time"

	"orderexec/internal/event"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountsEvents(t *testing.T) {
	m := NewMetrics()
	require.NoError(t, m.Handle(t.Context(), event.Accepted("a", time.Now())))
	require.NoError(t, m.Handle(t.Context(), event.Accepted("b", time.Time{})))
	require.NoError(t, m.Handle(t.Context(), event.Canceled("a", time.Now())))
	require.NoError(t, m.Handle(t.Context(), event.Event{}))

	s := m.Snapshot()
	assert.Equal(t, map[string]uint64{"OrderAccepted": 2, "OrderCanceled": 1}, s.EventCounts)
	assert.EqualValues(t, 2, s.EventLatency.Count)
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.IncOrderCreated()
	m.IncIdempotentReplay()
	m.IncIdempotencyConflict()
	m.IncValidationFailure()
	m.IncFill()
	m.IncFill()
	m.IncFillConflict()
	m.IncNotMarketable()
	m.ObserveTick(time.Millisecond, nil)
	m.ObserveTick(3*time.Millisecond, errors.New("x"))
	m.ObserveCreate(time.Microsecond)

	s := m.Snapshot()
	assert.EqualValues(t, 1, s.OrdersCreated)
	assert.EqualValues(t, 1, s.IdempotentReplays)
	assert.EqualValues(t, 1, s.IdempotencyConflicts)
	assert.EqualValues(t, 1, s.ValidationFailures)
	assert.EqualValues(t, 2, s.Fills)
	assert.EqualValues(t, 1, s.FillConflicts)
	assert.EqualValues(t, 1, s.NotMarketable)
	assert.EqualValues(t, 2, s.Ticks)
	assert.EqualValues(t, 1, s.TickErrors)
	assert.Equal(t, LatencySnapshot{Count: 2, Min: time.Millisecond, Max: 3 * time.Millisecond, Avg: 2 * time.Millisecond}, s.TickLatency)
	assert.EqualValues(t, 1, s.CreateLatency.Count)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.IncOrderCreated()
	m.IncFill()
	m.ObserveTick(time.Second, nil)
	m.ObserveCreate(time.Second)
	assert.NoError(t, m.Handle(t.Context(), event.Accepted("a", time.Now())))
	assert.Equal(t, Snapshot{}, m.Snapshot())
}
