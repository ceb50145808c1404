package sales

import (
	"time"

	"github.com/google/uuid"
)

// SyncTrigger identifies what started a sync run
type SyncTrigger string

const (
	SyncTriggerManual    SyncTrigger = "MANUAL"
	SyncTriggerScheduled SyncTrigger = "SCHEDULED"
	SyncTriggerCLI       SyncTrigger = "CLI"
)

// SyncRunStatus represents the outcome of a sync run
type SyncRunStatus string

const (
	SyncRunStatusRunning SyncRunStatus = "RUNNING"
	SyncRunStatusSuccess SyncRunStatus = "SUCCESS"
	SyncRunStatusPartial SyncRunStatus = "PARTIAL"
	SyncRunStatusFailed  SyncRunStatus = "FAILED"
)

// SyncRun records one execution of the sales / exchange-rate synchronization
type SyncRun struct {
	ID                uuid.UUID
	Trigger           SyncTrigger
	RangeStart        time.Time
	RangeEnd          time.Time
	Months            []Month
	RateMonthsSynced  int
	SalesMonths       []Month
	SalesRowsUpserted int
	FailedShops       []string
	FailedMonths      []Month
	Status            SyncRunStatus
	Error             string
	StartedAt         time.Time
	CompletedAt       *time.Time
}

// NewSyncRun creates a running sync run
func NewSyncRun(trigger SyncTrigger, start, end time.Time, months []Month) *SyncRun {
	return &SyncRun{
		ID:         uuid.New(),
		Trigger:    trigger,
		RangeStart: start,
		RangeEnd:   end,
		Months:     months,
		Status:     SyncRunStatusRunning,
		StartedAt:  time.Now(),
	}
}

// Complete sets the final status from the collected failures
func (r *SyncRun) Complete() {
	now := time.Now()
	r.CompletedAt = &now

	failures := len(r.FailedShops) + len(r.FailedMonths)
	switch {
	case failures == 0:
		r.Status = SyncRunStatusSuccess
	case r.SalesRowsUpserted > 0 || r.RateMonthsSynced > 0:
		r.Status = SyncRunStatusPartial
	default:
		r.Status = SyncRunStatusFailed
	}
}

// Fail marks the run as failed
func (r *SyncRun) Fail(err error) {
	now := time.Now()
	r.CompletedAt = &now
	r.Status = SyncRunStatusFailed
	if err != nil {
		r.Error = err.Error()
	}
}

// Duration returns the run time, or zero while the run is in progress
func (r *SyncRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
