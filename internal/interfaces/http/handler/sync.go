package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sellerdash/backend/internal/application/salesync"
	"github.com/sellerdash/backend/internal/domain/sales"
	"github.com/sellerdash/backend/internal/infrastructure/scheduler"
	"github.com/sellerdash/backend/internal/interfaces/http/dto"
)

// SyncService is the part of the sync service the API drives
type SyncService interface {
	GetData(ctx context.Context, req salesync.GetDataRequest) (*sales.SyncRun, error)
	MissingMonths(ctx context.Context, months []sales.Month) ([]sales.Month, error)
	RecentRuns(ctx context.Context, limit int) ([]sales.SyncRun, error)
}

// JobScheduler queues background sync jobs
type JobScheduler interface {
	ScheduleSync(start, end time.Time, force bool, trigger sales.SyncTrigger) (scheduler.SyncJob, error)
	GetJobHistory(limit int) []scheduler.SyncJob
}

// SyncHandler serves the synchronization endpoints
type SyncHandler struct {
	BaseHandler
	sync      SyncService
	scheduler JobScheduler
}

// NewSyncHandler creates a SyncHandler. jobs may be nil when the scheduler is disabled.
func NewSyncHandler(sync SyncService, jobs JobScheduler) *SyncHandler {
	return &SyncHandler{sync: sync, scheduler: jobs}
}

// RunSync godoc
// @ID           runSync
// @Summary      Synchronize a date range
// @Description  Pulls exchange rates and daily sales for the range and waits for the run to finish
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        request body dto.SyncRequest true "Date range"
// @Success      200 {object} dto.Response{data=dto.SyncRunResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      429 {object} dto.Response
// @Failure      502 {object} dto.Response
// @Security     BearerAuth
// @Router       /sync [post]
func (h *SyncHandler) RunSync(c *gin.Context) {
	var req dto.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	start, end, err := dto.ParseRange(req.StartDate, req.EndDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	run, err := h.sync.GetData(c.Request.Context(), salesync.GetDataRequest{
		Start:   start,
		End:     end,
		Force:   req.Force,
		Trigger: sales.SyncTriggerManual,
	})
	if err != nil {
		if run == nil {
			h.HandleError(c, err)
			return
		}
		// the run was recorded as failed
		h.HandleError(c, fmt.Errorf("%w: %s", scheduler.ErrSyncRunFailed, run.Error))
		return
	}
	h.Success(c, dto.ToSyncRunResponse(run))
}

// EnqueueSync godoc
// @ID           enqueueSync
// @Summary      Queue a background sync
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        request body dto.SyncRequest true "Date range"
// @Success      202 {object} dto.Response{data=scheduler.SyncJob}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      429 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Security     BearerAuth
// @Router       /sync/jobs [post]
func (h *SyncHandler) EnqueueSync(c *gin.Context) {
	if h.scheduler == nil {
		h.HandleError(c, scheduler.ErrSchedulerNotRunning)
		return
	}
	var req dto.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	start, end, err := dto.ParseRange(req.StartDate, req.EndDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	job, err := h.scheduler.ScheduleSync(start, end, req.Force, sales.SyncTriggerManual)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, job)
}

// ListJobs godoc
// @ID           listSyncJobs
// @Summary      Recent background sync jobs
// @Tags         sync
// @Produce      json
// @Param        limit query int false "Max jobs" default(20)
// @Success      200 {object} dto.Response{data=[]scheduler.SyncJob}
// @Router       /sync/jobs [get]
func (h *SyncHandler) ListJobs(c *gin.Context) {
	var q dto.LimitQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}
	jobs := []scheduler.SyncJob{}
	if h.scheduler != nil {
		jobs = append(jobs, h.scheduler.GetJobHistory(q.Limit)...)
	}
	h.SuccessList(c, jobs, len(jobs), q.Limit)
}

// ListRuns godoc
// @ID           listSyncRuns
// @Summary      Recent sync runs
// @Tags         sync
// @Produce      json
// @Param        limit query int false "Max runs" default(20)
// @Success      200 {object} dto.Response{data=[]dto.SyncRunResponse}
// @Router       /sync/runs [get]
func (h *SyncHandler) ListRuns(c *gin.Context) {
	var q dto.LimitQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}
	runs, err := h.sync.RecentRuns(c.Request.Context(), q.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, dto.ToSyncRunResponses(runs), len(runs), q.Limit)
}

// MissingMonths godoc
// @ID           listMissingMonths
// @Summary      Months without exchange rates
// @Tags         sync
// @Produce      json
// @Param        start_date query string true "First day, YYYY-MM-DD"
// @Param        end_date   query string true "Last day, YYYY-MM-DD"
// @Success      200 {object} dto.Response{data=dto.MissingMonthsResponse}
// @Failure      400 {object} dto.Response
// @Router       /sync/missing-months [get]
func (h *SyncHandler) MissingMonths(c *gin.Context) {
	var q dto.RangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}
	start, end, err := dto.ParseRange(q.StartDate, q.EndDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	months, err := sales.MonthsBetween(start, end)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	missing, err := h.sync.MissingMonths(c.Request.Context(), months)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if missing == nil {
		missing = []sales.Month{}
	}
	h.Success(c, dto.MissingMonthsResponse{Months: months, Missing: missing})
}
