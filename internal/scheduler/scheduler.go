// Package scheduler provides the per-symbol cycle ticker and the
// process-wide daily job runner. Per-symbol tickers are independent; the
// daily runner is constructed exactly once for the whole process.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"empire/internal/logger"
)

// IntervalScheduler fires a task on a fixed wall-clock interval. If a run
// overlaps the next tick, that tick is skipped rather than queued, so a slow
// cycle never builds an unbounded backlog.
type IntervalScheduler struct {
	Name           string
	Interval       time.Duration
	RunImmediately bool

	ctx     context.Context
	nowFn   func() time.Time
	running atomic.Bool
	skipped atomic.Int64
}

func NewIntervalScheduler(ctx context.Context, name string, interval time.Duration) *IntervalScheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	return &IntervalScheduler{
		Name:     name,
		Interval: interval,
		ctx:      ctx,
		nowFn:    time.Now,
	}
}

// Skipped reports how many ticks were dropped due to overrun.
func (s *IntervalScheduler) Skipped() int64 { return s.skipped.Load() }

// Start blocks until ctx is done, firing task on every non-overlapping tick.
func (s *IntervalScheduler) Start(task func()) {
	if s == nil || task == nil {
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("scheduler[%s]: invalid interval=%s, exit", s.Name, s.Interval)
		return
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}
	logger.Infof("scheduler[%s]: started interval=%s run_immediately=%v", s.Name, s.Interval, s.RunImmediately)

	if s.RunImmediately {
		s.fire(task)
	}
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			logger.Infof("scheduler[%s]: ctx done, exit", s.Name)
			return
		case <-ticker.C:
			s.fire(task)
		}
	}
}

func (s *IntervalScheduler) fire(task func()) {
	if !s.running.CompareAndSwap(false, true) {
		n := s.skipped.Add(1)
		logger.Warnf("scheduler[%s]: previous run still active, tick skipped (total skipped=%d)", s.Name, n)
		return
	}
	go func() {
		defer s.running.Store(false)
		task()
	}()
}
