package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sellerdash/backend/internal/application/dashboard"
	"github.com/sellerdash/backend/internal/application/salesync"
	"github.com/sellerdash/backend/internal/domain/sales"
	"github.com/sellerdash/backend/internal/infrastructure/scheduler"
	"github.com/sellerdash/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type mockSyncService struct {
	mock.Mock
}

func (m *mockSyncService) GetData(ctx context.Context, req salesync.GetDataRequest) (*sales.SyncRun, error) {
	args := m.Called(ctx, req)
	run, _ := args.Get(0).(*sales.SyncRun)
	return run, args.Error(1)
}

func (m *mockSyncService) MissingMonths(ctx context.Context, months []sales.Month) ([]sales.Month, error) {
	args := m.Called(ctx, months)
	missing, _ := args.Get(0).([]sales.Month)
	return missing, args.Error(1)
}

func (m *mockSyncService) RecentRuns(ctx context.Context, limit int) ([]sales.SyncRun, error) {
	args := m.Called(ctx, limit)
	runs, _ := args.Get(0).([]sales.SyncRun)
	return runs, args.Error(1)
}

type mockJobScheduler struct {
	mock.Mock
}

func (m *mockJobScheduler) ScheduleSync(start, end time.Time, force bool, trigger sales.SyncTrigger) (scheduler.SyncJob, error) {
	args := m.Called(start, end, force, trigger)
	return args.Get(0).(scheduler.SyncJob), args.Error(1)
}

func (m *mockJobScheduler) GetJobHistory(limit int) []scheduler.SyncJob {
	args := m.Called(limit)
	return args.Get(0).([]scheduler.SyncJob)
}

type mockDashboard struct {
	mock.Mock
}

func (m *mockDashboard) SalesSummary(ctx context.Context, filter dashboard.Filter) (*dashboard.SalesSummary, error) {
	args := m.Called(ctx, filter)
	s, _ := args.Get(0).(*dashboard.SalesSummary)
	return s, args.Error(1)
}

func (m *mockDashboard) DailyTrend(ctx context.Context, filter dashboard.Filter) (*dashboard.SalesTrend, error) {
	args := m.Called(ctx, filter)
	s, _ := args.Get(0).(*dashboard.SalesTrend)
	return s, args.Error(1)
}

func (m *mockDashboard) ListRates(ctx context.Context, month sales.Month) ([]sales.ExchangeRate, error) {
	args := m.Called(ctx, month)
	rates, _ := args.Get(0).([]sales.ExchangeRate)
	return rates, args.Error(1)
}

func (m *mockDashboard) ListShops(ctx context.Context) ([]sales.Shop, error) {
	args := m.Called(ctx)
	shops, _ := args.Get(0).([]sales.Shop)
	return shops, args.Error(1)
}

// apiResponse mirrors dto.Response with a raw data payload
type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
	Meta *struct {
		Total int `json:"total"`
		Limit int `json:"limit"`
	} `json:"meta"`
}

func perform(t *testing.T, engine *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func ensureStatus(t *testing.T, want int, w *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, want, w.Code, w.Body.String())
}

