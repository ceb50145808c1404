package scheduler

import (
	"time"

	"github.com/google/uuid"

	"github.com/sellerdash/backend/internal/domain/sales"
)

// maxRetryDelay caps the exponential retry backoff
const maxRetryDelay = 30 * time.Minute

// SyncJobStatus represents the status of a sync job
type SyncJobStatus string

const (
	SyncJobStatusPending SyncJobStatus = "PENDING"
	SyncJobStatusRunning SyncJobStatus = "RUNNING"
	SyncJobStatusSuccess SyncJobStatus = "SUCCESS"
	SyncJobStatusPartial SyncJobStatus = "PARTIAL"
	SyncJobStatusFailed  SyncJobStatus = "FAILED"
)

// SyncJob is one queued GetData request
type SyncJob struct {
	ID          uuid.UUID         `json:"id"`
	Start       time.Time         `json:"start"`
	End         time.Time         `json:"end"`
	Force       bool              `json:"force"`
	Trigger     sales.SyncTrigger `json:"trigger"`
	Status      SyncJobStatus     `json:"status"`
	Error       string            `json:"error,omitempty"`
	SubmittedAt time.Time         `json:"submitted_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	RetryCount  int               `json:"retry_count"`
	MaxRetries  int               `json:"max_retries"`
	NextRetryAt *time.Time        `json:"next_retry_at,omitempty"`

	// Outcome of the last attempt
	RunID       *uuid.UUID `json:"run_id,omitempty"`
	SalesRows   int        `json:"sales_rows"`
	FailedShops []string   `json:"failed_shops,omitempty"`
}

// NewSyncJob creates a pending job
func NewSyncJob(start, end time.Time, force bool, trigger sales.SyncTrigger, maxRetries int) *SyncJob {
	return &SyncJob{
		ID:          uuid.New(),
		Start:       start,
		End:         end,
		Force:       force,
		Trigger:     trigger,
		Status:      SyncJobStatusPending,
		SubmittedAt: time.Now(),
		MaxRetries:  maxRetries,
	}
}

// Begin marks the job as running
func (j *SyncJob) Begin() {
	now := time.Now()
	j.Status = SyncJobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete records the run outcome on the job
func (j *SyncJob) Complete(run *sales.SyncRun) {
	now := time.Now()
	j.CompletedAt = &now
	j.NextRetryAt = nil

	if run == nil {
		j.Status = SyncJobStatusSuccess
		return
	}
	id := run.ID
	j.RunID = &id
	j.SalesRows = run.SalesRowsUpserted
	j.FailedShops = run.FailedShops

	switch run.Status {
	case sales.SyncRunStatusPartial:
		j.Status = SyncJobStatusPartial
	case sales.SyncRunStatusFailed:
		j.Status = SyncJobStatusFailed
		j.Error = run.Error
	default:
		j.Status = SyncJobStatusSuccess
	}
}

// Fail marks the job as failed
func (j *SyncJob) Fail(err string) {
	now := time.Now()
	j.Status = SyncJobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry returns true if the job failed and has retries left
func (j *SyncJob) ShouldRetry() bool {
	return j.Status == SyncJobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry puts the job back to pending and returns the backoff delay:
// baseDelay * 2^(retryCount-1), capped at 30 minutes
func (j *SyncJob) ScheduleRetry(baseDelay time.Duration) time.Duration {
	j.RetryCount++
	j.Status = SyncJobStatusPending

	delay := baseDelay * time.Duration(1<<(j.RetryCount-1))
	if delay > maxRetryDelay || delay <= 0 {
		delay = maxRetryDelay
	}
	next := time.Now().Add(delay)
	j.NextRetryAt = &next
	j.Error = ""
	return delay
}

// snapshot copies the job for history readers
func (j *SyncJob) snapshot() SyncJob {
	cp := *j
	cp.FailedShops = append([]string(nil), j.FailedShops...)
	return cp
}
