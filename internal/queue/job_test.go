package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestNewReindexJob(t *testing.T) {
	t.Parallel()

	job := NewReindexJob(42)

	if job.ID == uuid.Nil {
		t.Error("Expected job ID to be set")
	}
	if job.Type != JobTypeReindexItem {
		t.Errorf("Expected job type to be %s, got %s", JobTypeReindexItem, job.Type)
	}
	if job.ItemID == nil || *job.ItemID != 42 {
		t.Errorf("Expected item ID 42, got %v", job.ItemID)
	}
	if job.RetryCount != 0 || job.MaxRetries != DefaultMaxRetries {
		t.Errorf("Unexpected retry budget %d/%d", job.RetryCount, job.MaxRetries)
	}

	rebuild := NewJob(JobTypeRebuildIndex, nil)
	if rebuild.ItemID != nil {
		t.Error("Expected rebuild job without item ID")
	}
}

func TestJob_ShouldProcess(t *testing.T) {
	t.Parallel()

	now := time.Now()
	tests := []struct {
		name      string
		notBefore *time.Time
		want      bool
	}{
		{name: "no time constraint", want: true},
		{name: "not before in past", notBefore: timePtr(now.Add(-time.Hour)), want: true},
		{name: "not before in future", notBefore: timePtr(now.Add(time.Hour)), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			job := &Job{Type: JobTypeReindexItem, NotBefore: tt.notBefore}
			if got := job.ShouldProcess(); got != tt.want {
				t.Errorf("ShouldProcess() = %v, expected %v", got, tt.want)
			}
		})
	}
}

func TestJob_CanRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		retryCount int
		maxRetries int
		want       bool
	}{
		{0, 3, true},
		{2, 3, true},
		{3, 3, false},
		{0, 0, false},
	}

	for _, tt := range tests {
		job := &Job{RetryCount: tt.retryCount, MaxRetries: tt.maxRetries}
		if got := job.CanRetry(); got != tt.want {
			t.Errorf("CanRetry() with %d/%d = %v, expected %v", tt.retryCount, tt.maxRetries, got, tt.want)
		}
	}
}

func TestJob_NextAttempt(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	job := NewReindexJob(7)

	first := job.NextAttempt(now)
	if first.RetryCount != 1 || job.RetryCount != 0 {
		t.Errorf("Expected copy with incremented retry count, got %d (original %d)", first.RetryCount, job.RetryCount)
	}
	if first.ID != job.ID || *first.ItemID != 7 {
		t.Error("Expected identity and item to carry over")
	}
	if first.NotBefore == nil || !first.NotBefore.Equal(now.Add(5*time.Second)) {
		t.Errorf("Unexpected first backoff %v", first.NotBefore)
	}

	second := first.NextAttempt(now)
	if !second.NotBefore.Equal(now.Add(10 * time.Second)) {
		t.Errorf("Expected doubled backoff, got %v", second.NotBefore)
	}
}

func TestJob_JSONRoundTripKeepsItemID(t *testing.T) {
	t.Parallel()

	job := NewReindexJob(99)
	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Job
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Type != JobTypeReindexItem || decoded.ItemID == nil || *decoded.ItemID != 99 {
		t.Errorf("Unexpected decoded job %+v", decoded)
	}
}
