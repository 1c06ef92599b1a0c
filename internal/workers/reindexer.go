// Package workers processes index repair jobs from the queue.
package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/productivity-assistant/internal/logger"
	"github.com/benvon/productivity-assistant/internal/pipeline"
	"github.com/benvon/productivity-assistant/internal/queue"
	"go.uber.org/zap"
)

// IndexRepairer is the part of the assistant the worker drives
type IndexRepairer interface {
	ReindexItem(ctx context.Context, id int64) error
	RebuildIndex(ctx context.Context) (pipeline.RebuildResult, error)
}

var _ IndexRepairer = (*pipeline.Assistant)(nil)

// errMissingItemID marks a reindex job that cannot succeed on retry
var errMissingItemID = errors.New("item_id is required for reindex job")

// Reindexer processes index repair jobs
type Reindexer struct {
	repairer IndexRepairer
	jobQueue queue.JobQueue // For re-enqueueing jobs with a backoff
	logger   *zap.Logger
	now      func() time.Time
}

// NewReindexer creates a reindexer. jobQueue may be nil, in which case failed
// jobs are requeued immediately until their retries run out.
func NewReindexer(repairer IndexRepairer, jobQueue queue.JobQueue, log *zap.Logger) *Reindexer {
	return &Reindexer{
		repairer: repairer,
		jobQueue: jobQueue,
		logger:   logger.OrNop(log),
		now:      time.Now,
	}
}

// ProcessJob runs one job and settles its message
func (r *Reindexer) ProcessJob(ctx context.Context, msg queue.Delivery) error {
	job := msg.Job()

	// Not due yet: return it to the queue
	if !job.ShouldProcess() {
		if nackErr := msg.Nack(true); nackErr != nil {
			r.logger.Warn("job_requeue_failed", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
		}
		return nil
	}

	var err error
	switch job.Type {
	case queue.JobTypeReindexItem:
		err = r.reindexItem(ctx, job)
	case queue.JobTypeRebuildIndex:
		err = r.rebuild(ctx)
	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			r.logger.Warn("job_nack_failed", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	if err != nil {
		return r.handleJobError(ctx, msg, job, err)
	}
	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job: %w", ackErr)
	}
	return nil
}

func (r *Reindexer) reindexItem(ctx context.Context, job *queue.Job) error {
	if job.ItemID == nil {
		return errMissingItemID
	}
	if err := r.repairer.ReindexItem(ctx, *job.ItemID); err != nil {
		return fmt.Errorf("failed to reindex item %d: %w", *job.ItemID, err)
	}
	r.logger.Info("item_reindexed", zap.Int64("item_id", *job.ItemID))
	return nil
}

func (r *Reindexer) rebuild(ctx context.Context) error {
	res, err := r.repairer.RebuildIndex(ctx)
	if err != nil {
		return fmt.Errorf("failed to rebuild index: %w", err)
	}
	r.logger.Info("index_rebuild_job_done", zap.Int("indexed", res.Indexed), zap.Int("failed", res.Failed))
	return nil
}

// handleJobError retries with backoff while the job has budget left, then dead-letters it
func (r *Reindexer) handleJobError(ctx context.Context, msg queue.Delivery, job *queue.Job, err error) error {
	fields := []zap.Field{
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.Int("retry_count", job.RetryCount),
		zap.Int("max_retries", job.MaxRetries),
		zap.String("error", logger.SanitizeError(err)),
	}

	if errors.Is(err, errMissingItemID) || !job.CanRetry() {
		r.logger.Warn("job_dead_lettered", fields...)
		if nackErr := msg.Nack(false); nackErr != nil {
			r.logger.Warn("job_nack_failed", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
		}
		return fmt.Errorf("job failed (max retries): %w", err)
	}

	if r.jobQueue != nil {
		next := job.NextAttempt(r.now())
		enqueueErr := r.jobQueue.Enqueue(ctx, next)
		if enqueueErr == nil {
			if ackErr := msg.Ack(); ackErr != nil {
				r.logger.Warn("job_ack_failed", zap.String("job_id", job.ID.String()), zap.Error(ackErr))
			}
			r.logger.Info("job_retry_scheduled", append(fields, zap.Timep("not_before", next.NotBefore))...)
			return fmt.Errorf("job failed (will retry): %w", err)
		}
		r.logger.Warn("job_reenqueue_failed", zap.String("job_id", job.ID.String()), zap.Error(enqueueErr))
	}

	// Fall back to an immediate requeue of the same delivery
	r.logger.Warn("job_requeued", fields...)
	if nackErr := msg.Nack(true); nackErr != nil {
		r.logger.Warn("job_nack_failed", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
	}
	return fmt.Errorf("job failed (will retry): %w", err)
}
