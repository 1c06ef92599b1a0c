package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeReindexItem refreshes the semantic index entry of one item
	JobTypeReindexItem JobType = "reindex_item"
	// JobTypeRebuildIndex rebuilds the whole semantic index from the store
	JobTypeRebuildIndex JobType = "rebuild_index"
)

// DefaultMaxRetries is the retry budget of a new job
const DefaultMaxRetries = 3

// baseRetryDelay is doubled on every retry
const baseRetryDelay = 5 * time.Second

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID  `json:"id"`
	Type       JobType    `json:"type"`
	ItemID     *int64     `json:"item_id,omitempty"`    // Set for reindex_item jobs
	NotBefore  *time.Time `json:"not_before,omitempty"` // Earliest time to process job (nil = immediate)
	CreatedAt  time.Time  `json:"created_at"`
	RetryCount int        `json:"retry_count"`
	MaxRetries int        `json:"max_retries"`
}

// NewJob creates a new job
func NewJob(jobType JobType, itemID *int64) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		ItemID:     itemID,
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: DefaultMaxRetries,
	}
}

// NewReindexJob creates a reindex_item job for itemID
func NewReindexJob(itemID int64) *Job {
	return NewJob(JobTypeReindexItem, &itemID)
}

// ShouldProcess checks if the job should be processed now
func (j *Job) ShouldProcess() bool {
	return j.NotBefore == nil || !time.Now().Before(*j.NotBefore)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}

// RetryDelay is the backoff before the next attempt: 5s, 10s, 20s, ...
func (j *Job) RetryDelay() time.Duration {
	shift := j.RetryCount
	if shift > 10 {
		shift = 10
	}
	return baseRetryDelay << shift
}

// NextAttempt returns a copy of the job scheduled for its next retry
func (j *Job) NextAttempt(now time.Time) *Job {
	next := *j
	notBefore := now.Add(j.RetryDelay())
	next.NotBefore = &notBefore
	next.IncrementRetry()
	return &next
}
