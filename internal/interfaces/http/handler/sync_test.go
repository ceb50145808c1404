package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sellerdash/backend/internal/application/salesync"
	"github.com/sellerdash/backend/internal/domain/sales"
	"github.com/sellerdash/backend/internal/infrastructure/scheduler"
	"github.com/sellerdash/backend/internal/interfaces/http/dto"
)

func newSyncEngine(svc SyncService, jobs JobScheduler) *gin.Engine {
	h := NewSyncHandler(svc, jobs)
	engine := gin.New()
	g := engine.Group("/sync")
	g.POST("", h.RunSync)
	g.POST("/jobs", h.EnqueueSync)
	g.GET("/jobs", h.ListJobs)
	g.GET("/runs", h.ListRuns)
	g.GET("/missing-months", h.MissingMonths)
	return engine
}

func TestSyncHandler_RunSync(t *testing.T) {
	body := map[string]any{"start_date": "2024-01-15", "end_date": "2024-02-10", "force": true}
	want := salesync.GetDataRequest{
		Start:   date("2024-01-15"),
		End:     date("2024-02-10"),
		Force:   true,
		Trigger: sales.SyncTriggerManual,
	}

	t.Run("returns the finished run", func(t *testing.T) {
		svc := new(mockSyncService)
		run := sales.NewSyncRun(sales.SyncTriggerManual, want.Start, want.End,
			[]sales.Month{sales.NewMonth(2024, 1), sales.NewMonth(2024, 2)})
		run.SalesRowsUpserted = 42
		run.Complete()
		svc.On("GetData", mock.Anything, want).Return(run, nil)

		w, resp := perform(t, newSyncEngine(svc, nil), http.MethodPost, "/sync", body)

		ensureStatus(t, http.StatusOK, w)
		var got dto.SyncRunResponse
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, "SUCCESS", got.Status)
		assert.Equal(t, 42, got.SalesRowsUpserted)
		assert.Equal(t, "2024-01-15", got.RangeStart)
		assert.Len(t, got.Months, 2)
		assert.Empty(t, got.FailedShops)
		svc.AssertExpectations(t)
	})

	t.Run("conflict while another sync runs", func(t *testing.T) {
		svc := new(mockSyncService)
		svc.On("GetData", mock.Anything, want).Return(nil, sales.ErrSyncInProgress)

		w, resp := perform(t, newSyncEngine(svc, nil), http.MethodPost, "/sync", body)

		ensureStatus(t, http.StatusConflict, w)
		assert.Equal(t, dto.ErrCodeSyncInProgress, resp.Error.Code)
	})

	t.Run("failed run maps to bad gateway", func(t *testing.T) {
		svc := new(mockSyncService)
		run := sales.NewSyncRun(sales.SyncTriggerManual, want.Start, want.End, nil)
		cause := errors.New("rates unavailable")
		run.Fail(cause)
		svc.On("GetData", mock.Anything, want).Return(run, cause)

		w, resp := perform(t, newSyncEngine(svc, nil), http.MethodPost, "/sync", body)

		ensureStatus(t, http.StatusBadGateway, w)
		assert.Equal(t, dto.ErrCodeSyncFailed, resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "rates unavailable")
	})

	t.Run("rejects a reversed range", func(t *testing.T) {
		svc := new(mockSyncService)
		w, resp := perform(t, newSyncEngine(svc, nil), http.MethodPost, "/sync",
			map[string]any{"start_date": "2024-03-01", "end_date": "2024-02-01"})

		ensureStatus(t, http.StatusBadRequest, w)
		assert.Equal(t, dto.ErrCodeInvalidRange, resp.Error.Code)
		svc.AssertNotCalled(t, "GetData", mock.Anything, mock.Anything)
	})

	t.Run("rejects a malformed date", func(t *testing.T) {
		svc := new(mockSyncService)
		w, resp := perform(t, newSyncEngine(svc, nil), http.MethodPost, "/sync",
			map[string]any{"start_date": "15/01/2024", "end_date": "2024-02-01"})

		ensureStatus(t, http.StatusBadRequest, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "start_date", resp.Error.Details[0].Field)
	})
}

func TestSyncHandler_EnqueueSync(t *testing.T) {
	body := map[string]any{"start_date": "2024-01-01", "end_date": "2024-01-31"}

	t.Run("queues a job", func(t *testing.T) {
		jobs := new(mockJobScheduler)
		job := scheduler.NewSyncJob(date("2024-01-01"), date("2024-01-31"), false, sales.SyncTriggerManual, 3)
		jobs.On("ScheduleSync", date("2024-01-01"), date("2024-01-31"), false, sales.SyncTriggerManual).
			Return(*job, nil)

		w, resp := perform(t, newSyncEngine(new(mockSyncService), jobs), http.MethodPost, "/sync/jobs", body)

		ensureStatus(t, http.StatusAccepted, w)
		var got scheduler.SyncJob
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		assert.Equal(t, job.ID, got.ID)
		assert.Equal(t, scheduler.SyncJobStatusPending, got.Status)
	})

	t.Run("full queue", func(t *testing.T) {
		jobs := new(mockJobScheduler)
		jobs.On("ScheduleSync", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(scheduler.SyncJob{}, scheduler.ErrJobQueueFull)

		w, resp := perform(t, newSyncEngine(new(mockSyncService), jobs), http.MethodPost, "/sync/jobs", body)

		ensureStatus(t, http.StatusServiceUnavailable, w)
		assert.Equal(t, dto.ErrCodeQueueFull, resp.Error.Code)
	})

	t.Run("scheduler disabled", func(t *testing.T) {
		w, resp := perform(t, newSyncEngine(new(mockSyncService), nil), http.MethodPost, "/sync/jobs", body)

		ensureStatus(t, http.StatusServiceUnavailable, w)
		assert.Equal(t, dto.ErrCodeUnavailable, resp.Error.Code)
	})
}

func TestSyncHandler_ListJobs(t *testing.T) {
	t.Run("uses the default limit", func(t *testing.T) {
		jobs := new(mockJobScheduler)
		jobs.On("GetJobHistory", 20).Return([]scheduler.SyncJob{{Status: scheduler.SyncJobStatusSuccess}})

		w, resp := perform(t, newSyncEngine(new(mockSyncService), jobs), http.MethodGet, "/sync/jobs", nil)

		ensureStatus(t, http.StatusOK, w)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, 1, resp.Meta.Total)
		assert.Equal(t, 20, resp.Meta.Limit)
		jobs.AssertExpectations(t)
	})

	t.Run("empty without a scheduler", func(t *testing.T) {
		w, resp := perform(t, newSyncEngine(new(mockSyncService), nil), http.MethodGet, "/sync/jobs?limit=5", nil)

		ensureStatus(t, http.StatusOK, w)
		assert.JSONEq(t, `[]`, string(resp.Data))
	})
}

func TestSyncHandler_ListRuns(t *testing.T) {
	t.Run("passes the limit", func(t *testing.T) {
		svc := new(mockSyncService)
		run := sales.NewSyncRun(sales.SyncTriggerScheduled, date("2024-01-01"), date("2024-01-02"), nil)
		svc.On("RecentRuns", mock.Anything, 5).Return([]sales.SyncRun{*run}, nil)

		w, resp := perform(t, newSyncEngine(svc, nil), http.MethodGet, "/sync/runs?limit=5", nil)

		ensureStatus(t, http.StatusOK, w)
		var got []dto.SyncRunResponse
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		require.Len(t, got, 1)
		assert.Equal(t, "SCHEDULED", got[0].Trigger)
		assert.Equal(t, "RUNNING", got[0].Status)
	})

	t.Run("rejects an oversized limit", func(t *testing.T) {
		svc := new(mockSyncService)
		w, resp := perform(t, newSyncEngine(svc, nil), http.MethodGet, "/sync/runs?limit=500", nil)

		ensureStatus(t, http.StatusBadRequest, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	})

	t.Run("hides repository errors", func(t *testing.T) {
		svc := new(mockSyncService)
		svc.On("RecentRuns", mock.Anything, 20).Return(nil, errors.New("connection refused"))

		w, resp := perform(t, newSyncEngine(svc, nil), http.MethodGet, "/sync/runs", nil)

		ensureStatus(t, http.StatusInternalServerError, w)
		assert.Equal(t, dto.ErrCodeInternal, resp.Error.Code)
		assert.NotContains(t, resp.Error.Message, "connection refused")
	})
}

func TestSyncHandler_MissingMonths(t *testing.T) {
	svc := new(mockSyncService)
	months := []sales.Month{sales.NewMonth(2023, 12), sales.NewMonth(2024, 1), sales.NewMonth(2024, 2)}
	svc.On("MissingMonths", mock.Anything, months).Return([]sales.Month{sales.NewMonth(2024, 2)}, nil)

	w, resp := perform(t, newSyncEngine(svc, nil), http.MethodGet,
		"/sync/missing-months?start_date=2023-12-20&end_date=2024-02-03", nil)

	ensureStatus(t, http.StatusOK, w)
	assert.JSONEq(t, `{"months":["2023-12","2024-01","2024-02"],"missing":["2024-02"]}`, string(resp.Data))
	svc.AssertExpectations(t)
}
