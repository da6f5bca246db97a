package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrSchedulerNotRunning = errors.New("scheduler is not running")

// OverdueSweeper flags loans whose expected return date has passed
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context) (int64, error)
}

// OverdueSweepSchedulerConfig holds configuration for the sweep scheduler
type OverdueSweepSchedulerConfig struct {
	// Enabled indicates if the scheduler is enabled
	Enabled bool
	// Interval is the time between sweeps
	Interval time.Duration
	// SweepTimeout is the maximum time a single sweep may run
	SweepTimeout time.Duration
}

// DefaultOverdueSweepSchedulerConfig returns default scheduler configuration
func DefaultOverdueSweepSchedulerConfig() OverdueSweepSchedulerConfig {
	return OverdueSweepSchedulerConfig{
		Enabled:      true,
		Interval:     time.Hour,
		SweepTimeout: 5 * time.Minute,
	}
}

// OverdueSweepScheduler runs the overdue sweep on a fixed interval
type OverdueSweepScheduler struct {
	config  OverdueSweepSchedulerConfig
	sweeper OverdueSweeper
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	lastRunAt   *time.Time
	lastFlagged int64
}

// NewOverdueSweepScheduler creates a new overdue sweep scheduler
func NewOverdueSweepScheduler(config OverdueSweepSchedulerConfig, sweeper OverdueSweeper, logger *zap.Logger) *OverdueSweepScheduler {
	return &OverdueSweepScheduler{
		config:  config,
		sweeper: sweeper,
		logger:  logger,
	}
}

// Start starts the sweep loop. A disabled scheduler starts as a no-op.
func (s *OverdueSweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	if !s.config.Enabled {
		s.logger.Info("overdue sweep scheduler disabled")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.sweepLoop(ctx)

	s.logger.Info("overdue sweep scheduler started",
		zap.Duration("interval", s.config.Interval),
	)
	return nil
}

// Stop stops the scheduler, waiting for an in-flight sweep to finish
func (s *OverdueSweepScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("overdue sweep scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("overdue sweep scheduler stop timed out")
		return ctx.Err()
	}
}

// RunNow triggers a sweep outside the regular interval
func (s *OverdueSweepScheduler) RunNow(ctx context.Context) (int64, error) {
	s.mu.Lock()
	running := s.isRunning
	s.mu.Unlock()

	if !running {
		return 0, ErrSchedulerNotRunning
	}
	return s.runSweep(ctx)
}

// LastRun returns when the last sweep ran and how many loans it flagged
func (s *OverdueSweepScheduler) LastRun() (*time.Time, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunAt, s.lastFlagged
}

func (s *OverdueSweepScheduler) sweepLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Sweep once at startup so a restart never delays overdue detection
	// by a full interval.
	if _, err := s.runSweep(ctx); err != nil {
		s.logger.Error("initial overdue sweep failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.runSweep(ctx); err != nil {
				s.logger.Error("overdue sweep failed", zap.Error(err))
			}
		}
	}
}

func (s *OverdueSweepScheduler) runSweep(ctx context.Context) (int64, error) {
	sweepCtx := ctx
	if s.config.SweepTimeout > 0 {
		var cancel context.CancelFunc
		sweepCtx, cancel = context.WithTimeout(ctx, s.config.SweepTimeout)
		defer cancel()
	}

	flagged, err := s.sweeper.SweepOverdue(sweepCtx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	s.mu.Lock()
	s.lastRunAt = &now
	s.lastFlagged = flagged
	s.mu.Unlock()

	if flagged > 0 {
		s.logger.Info("overdue sweep flagged loans", zap.Int64("count", flagged))
	}
	return flagged, nil
}
