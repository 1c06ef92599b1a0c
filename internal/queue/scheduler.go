package queue

import (
	"context"
	"fmt"
)

// Scheduler enqueues index repair jobs
type Scheduler struct {
	queue JobQueue
}

// NewScheduler creates a scheduler publishing to q
func NewScheduler(q JobQueue) *Scheduler {
	return &Scheduler{queue: q}
}

// ScheduleReindex enqueues a reindex_item job for itemID
func (s *Scheduler) ScheduleReindex(ctx context.Context, itemID int64) error {
	if err := s.queue.Enqueue(ctx, NewReindexJob(itemID)); err != nil {
		return fmt.Errorf("failed to schedule reindex of item %d: %w", itemID, err)
	}
	return nil
}

// ScheduleRebuild enqueues a rebuild_index job
func (s *Scheduler) ScheduleRebuild(ctx context.Context) error {
	if err := s.queue.Enqueue(ctx, NewJob(JobTypeRebuildIndex, nil)); err != nil {
		return fmt.Errorf("failed to schedule index rebuild: %w", err)
	}
	return nil
}
