package utils

import (
	"context"
	"sync/atomic"
	"time"

	"volume-screener/src/logger"
)

// RunScheduler drives serve mode: one run at start, then one per Period, plus
// runs requested through Trigger. Runs never overlap.
type RunScheduler struct {
	Period time.Duration
	Logger *logger.Logger

	trigger chan struct{}
	running atomic.Bool
	runs    atomic.Int64
}

// -----------------------------------------------------------------------------

func NewRunScheduler(period time.Duration, l *logger.Logger) *RunScheduler {
	if period <= 0 {
		period = time.Hour
	}
	return &RunScheduler{
		Period:  period,
		Logger:  l,
		trigger: make(chan struct{}, 1),
	}
}

// -----------------------------------------------------------------------------

// Trigger queues an extra run. It returns false when a run is in progress or
// one is already queued.
func (s *RunScheduler) Trigger() bool {
	if s.running.Load() {
		return false
	}
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// -----------------------------------------------------------------------------

// Running reports whether fn is currently executing.
func (s *RunScheduler) Running() bool {
	return s.running.Load()
}

// -----------------------------------------------------------------------------

// Runs is the number of completed runs.
func (s *RunScheduler) Runs() int64 {
	return s.runs.Load()
}

// -----------------------------------------------------------------------------

// Run blocks until ctx is done.
func (s *RunScheduler) Run(ctx context.Context, fn func(ctx context.Context)) {
	s.runOnce(ctx, fn)

	ticker := time.NewTicker(s.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("Scheduler stopped after %d runs", s.runs.Load())
			return
		case <-ticker.C:
			s.runOnce(ctx, fn)
		case <-s.trigger:
			s.Logger.Info("Out-of-band run requested")
			s.runOnce(ctx, fn)
			ticker.Reset(s.Period)
		}
	}
}

// -----------------------------------------------------------------------------

func (s *RunScheduler) runOnce(ctx context.Context, fn func(ctx context.Context)) {
	if ctx.Err() != nil {
		return
	}
	s.running.Store(true)
	defer s.running.Store(false)

	fn(ctx)
	s.runs.Add(1)
	s.Logger.Debug("Run %d finished, next in %s", s.runs.Load(), s.Period)
}
