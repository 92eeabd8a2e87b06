package obs

import (
	"context"
	"sync/atomic"
	"time"

	"orderexec/internal/event"
)

const maxEventKind = int(event.KindOrderFilled)

// Metrics collects lightweight counters and latency stats.
type Metrics struct {
	eventCounts [maxEventKind + 1]uint64

	ordersCreated        uint64
	idempotentReplays    uint64
	idempotencyConflicts uint64
	validationFailures   uint64

	ticks         uint64
	tickErrors    uint64
	fills         uint64
	fillConflicts uint64
	notMarketable uint64

	createLatency LatencyStats
	tickLatency   LatencyStats
	eventLatency  LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64        `json:"count"`
	Min   time.Duration `json:"minNs"`
	Max   time.Duration `json:"maxNs"`
	Avg   time.Duration `json:"avgNs"`
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	EventCounts          map[string]uint64 `json:"eventCounts"`
	OrdersCreated        uint64            `json:"ordersCreated"`
	IdempotentReplays    uint64            `json:"idempotentReplays"`
	IdempotencyConflicts uint64            `json:"idempotencyConflicts"`
	ValidationFailures   uint64            `json:"validationFailures"`
	Ticks                uint64            `json:"ticks"`
	TickErrors           uint64            `json:"tickErrors"`
	Fills                uint64            `json:"fills"`
	FillConflicts        uint64            `json:"fillConflicts"`
	NotMarketable        uint64            `json:"notMarketable"`
	CreateLatency        LatencySnapshot   `json:"createLatency"`
	TickLatency          LatencySnapshot   `json:"tickLatency"`
	EventLatency         LatencySnapshot   `json:"eventLatency"`
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Handle counts a delivered event and how long it took to arrive.
func (m *Metrics) Handle(_ context.Context, e event.Event) error {
	if m == nil {
		return nil
	}
	idx := int(e.Kind)
	if idx > 0 && idx < len(m.eventCounts) {
		atomic.AddUint64(&m.eventCounts[idx], 1)
	}
	if !e.OccurredAt.IsZero() {
		m.eventLatency.Observe(time.Since(e.OccurredAt))
	}
	return nil
}

func (m *Metrics) IncOrderCreated() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ordersCreated, 1)
}

func (m *Metrics) IncIdempotentReplay() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.idempotentReplays, 1)
}

func (m *Metrics) IncIdempotencyConflict() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.idempotencyConflicts, 1)
}

func (m *Metrics) IncValidationFailure() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.validationFailures, 1)
}

func (m *Metrics) IncFill() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.fills, 1)
}

// IncFillConflict records an order skipped after losing a revision race.
func (m *Metrics) IncFillConflict() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.fillConflicts, 1)
}

func (m *Metrics) IncNotMarketable() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.notMarketable, 1)
}

// ObserveCreate measures order creation latency.
func (m *Metrics) ObserveCreate(d time.Duration) {
	if m == nil {
		return
	}
	m.createLatency.Observe(d)
}

// ObserveTick records one fill engine pass.
func (m *Metrics) ObserveTick(d time.Duration, err error) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ticks, 1)
	if err != nil {
		atomic.AddUint64(&m.tickErrors, 1)
	}
	m.tickLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	eventCounts := make(map[string]uint64)
	for i := range m.eventCounts {
		if v := atomic.LoadUint64(&m.eventCounts[i]); v > 0 {
			eventCounts[event.Kind(i).String()] = v
		}
	}
	return Snapshot{
		EventCounts:          eventCounts,
		OrdersCreated:        atomic.LoadUint64(&m.ordersCreated),
		IdempotentReplays:    atomic.LoadUint64(&m.idempotentReplays),
		IdempotencyConflicts: atomic.LoadUint64(&m.idempotencyConflicts),
		ValidationFailures:   atomic.LoadUint64(&m.validationFailures),
		Ticks:                atomic.LoadUint64(&m.ticks),
		TickErrors:           atomic.LoadUint64(&m.tickErrors),
		Fills:                atomic.LoadUint64(&m.fills),
		FillConflicts:        atomic.LoadUint64(&m.fillConflicts),
		NotMarketable:        atomic.LoadUint64(&m.notMarketable),
		CreateLatency:        m.createLatency.Snapshot(),
		TickLatency:          m.tickLatency.Snapshot(),
		EventLatency:         m.eventLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		cur := atomic.LoadUint64(&l.min)
		if cur != 0 && nanos >= cur {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, cur, nanos) {
			break
		}
	}

	for {
		cur := atomic.LoadUint64(&l.max)
		if nanos <= cur {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, cur, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(atomic.LoadUint64(&l.min)),
		Max:   time.Duration(atomic.LoadUint64(&l.max)),
		Avg:   time.Duration(atomic.LoadUint64(&l.sum) / count),
	}
}
