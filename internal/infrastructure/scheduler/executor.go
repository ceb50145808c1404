package scheduler

import (
	"context"
	"fmt"

	"github.com/sellerdash/backend/internal/application/salesync"
	"github.com/sellerdash/backend/internal/domain/sales"
)

// DataSyncer is the part of salesync.Service the executor drives
type DataSyncer interface {
	GetData(ctx context.Context, req salesync.GetDataRequest) (*sales.SyncRun, error)
}

// SalesSyncExecutor executes jobs through the sync service
type SalesSyncExecutor struct {
	syncer DataSyncer
}

// NewSalesSyncExecutor creates an executor
func NewSalesSyncExecutor(syncer DataSyncer) *SalesSyncExecutor {
	return &SalesSyncExecutor{syncer: syncer}
}

// Execute runs GetData for the job range. A run that ends FAILED is an error so
// the scheduler retries it; PARTIAL runs are kept as they are.
func (e *SalesSyncExecutor) Execute(ctx context.Context, job *SyncJob) (*sales.SyncRun, error) {
	run, err := e.syncer.GetData(ctx, salesync.GetDataRequest{
		Start:   job.Start,
		End:     job.End,
		Force:   job.Force,
		Trigger: job.Trigger,
	})
	if err != nil {
		return run, err
	}
	if run != nil && run.Status == sales.SyncRunStatusFailed {
		return run, fmt.Errorf("%w: %s", ErrSyncRunFailed, run.Error)
	}
	return run, nil
}

var _ SyncExecutor = (*SalesSyncExecutor)(nil)
