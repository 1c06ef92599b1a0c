package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/productivity-assistant/internal/logger"
	"go.uber.org/zap"
)

// sweepTimeout bounds a single sweep
const sweepTimeout = 2 * time.Minute

// depthReporter is implemented by queues that can report their backlog
type depthReporter interface {
	Depth() (ready, dead int, err error)
}

// DeadLetterSweeper periodically drops index repair jobs that exhausted their
// retries and have sat in the DLQ longer than retention. Items behind those
// jobs stay unsearchable until the next index rebuild.
type DeadLetterSweeper struct {
	purger    DLQPurger
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
}

// NewDeadLetterSweeper creates a sweeper. A nil purger makes every sweep a no-op.
func NewDeadLetterSweeper(purger DLQPurger, interval, retention time.Duration, log *zap.Logger) *DeadLetterSweeper {
	return &DeadLetterSweeper{
		purger:    purger,
		interval:  interval,
		retention: retention,
		logger:    logger.OrNop(log),
	}
}

// Run sweeps every interval until ctx is cancelled, returning ctx.Err()
func (s *DeadLetterSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Warn("dlq_sweep_failed", zap.Error(err))
			}
		}
	}
}

// Sweep purges once and returns the number of dropped jobs
func (s *DeadLetterSweeper) Sweep(ctx context.Context) (int, error) {
	if s.purger == nil {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	dropped, err := s.purger.PurgeOlderThan(ctx, s.retention)
	if err != nil {
		return 0, fmt.Errorf("purge dead-lettered jobs: %w", err)
	}
	if dropped > 0 {
		s.logger.Info("dlq_jobs_dropped", zap.Int("count", dropped), zap.Duration("retention", s.retention))
	}
	if dr, ok := s.purger.(depthReporter); ok {
		if ready, dead, err := dr.Depth(); err == nil {
			s.logger.Info("index_job_backlog", zap.Int("ready", ready), zap.Int("dead_lettered", dead))
		}
	}
	return dropped, nil
}
