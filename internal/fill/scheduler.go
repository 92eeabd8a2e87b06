package fill

import (
	"context"
	"time"

	"orderexec/internal/obs"
	"orderexec/pkg/clock"

	"github.com/yanun0323/logs"
)

// Processor runs one fill pass.
type Processor interface {
	ProcessOpenOrders(ctx context.Context) error
}

// Scheduler drives a Processor with a fixed delay between passes: the next
// pass is scheduled only after the previous one returns.
type Scheduler struct {
	processor Processor
	interval  time.Duration
	clock     clock.Clock
	metrics   *obs.Metrics
}

func NewScheduler(p Processor, interval time.Duration, c clock.Clock, m *obs.Metrics) *Scheduler {
	if c == nil {
		c = clock.Real{}
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{processor: p, interval: interval, clock: c, metrics: m}
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	logs.Infof("fill scheduler started, interval: %s", s.interval)
	defer logs.Info("fill scheduler stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(s.interval):
		}

		start := time.Now()
		err := s.processor.ProcessOpenOrders(ctx)
		s.metrics.ObserveTick(time.Since(start), err)
		if err != nil && ctx.Err() == nil {
			logs.Errorf("fill pass, err: %+v", err)
		}
	}
}
