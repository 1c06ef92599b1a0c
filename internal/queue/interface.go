package queue

import (
	"context"
	"time"
)

// Delivery is one consumed job awaiting settlement. Exactly one of Ack or
// Nack must be called.
type Delivery interface {
	Job() *Job
	Ack() error
	// Nack with requeue puts the job back on the work queue; without it the
	// job is dead-lettered.
	Nack(requeue bool) error
}

// JobQueue carries index repair jobs between the API and the worker
type JobQueue interface {
	Enqueue(ctx context.Context, job *Job) error
	// Consume streams deliveries until ctx is cancelled. At most prefetchCount
	// deliveries are unsettled at a time. Both channels close when the stream ends.
	Consume(ctx context.Context, prefetchCount int) (<-chan Delivery, <-chan error, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

// DLQPurger drops dead-lettered jobs older than retention and reports the count
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}
