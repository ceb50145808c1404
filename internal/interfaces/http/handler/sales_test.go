package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sellerdash/backend/internal/application/dashboard"
	"github.com/sellerdash/backend/internal/domain/sales"
	"github.com/sellerdash/backend/internal/interfaces/http/dto"
)

func newSalesEngine(svc DashboardService) *gin.Engine {
	h := NewSalesHandler(svc)
	engine := gin.New()
	engine.GET("/sales/summary", h.Summary)
	engine.GET("/sales/trend", h.Trend)
	engine.GET("/exchange-rates", h.Rates)
	engine.GET("/shops", h.Shops)
	return engine
}

func TestSalesHandler_Summary(t *testing.T) {
	t.Run("builds the filter from the query", func(t *testing.T) {
		svc := new(mockDashboard)
		filter := dashboard.Filter{
			StartDate: date("2024-01-01"),
			EndDate:   date("2024-01-31"),
			SellerIDs: []string{"101", "102"},
		}
		svc.On("SalesSummary", mock.Anything, filter).Return(&dashboard.SalesSummary{
			BaseCurrency: "CNY",
			OrderCount:   7,
			SalesTotal:   decimal.RequireFromString("123.45"),
		}, nil)

		w, resp := perform(t, newSalesEngine(svc), http.MethodGet,
			"/sales/summary?start_date=2024-01-01&end_date=2024-01-31&seller_id=101&seller_id=102", nil)

		ensureStatus(t, http.StatusOK, w)
		var got dashboard.SalesSummary
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		assert.Equal(t, "CNY", got.BaseCurrency)
		assert.Equal(t, int64(7), got.OrderCount)
		assert.True(t, got.SalesTotal.Equal(decimal.RequireFromString("123.45")))
		svc.AssertExpectations(t)
	})

	t.Run("requires both dates", func(t *testing.T) {
		svc := new(mockDashboard)
		w, resp := perform(t, newSalesEngine(svc), http.MethodGet, "/sales/summary?start_date=2024-01-01", nil)

		ensureStatus(t, http.StatusBadRequest, w)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "end_date", resp.Error.Details[0].Field)
	})

	t.Run("rejects a reversed range", func(t *testing.T) {
		svc := new(mockDashboard)
		w, resp := perform(t, newSalesEngine(svc), http.MethodGet,
			"/sales/summary?start_date=2024-02-01&end_date=2024-01-01", nil)

		ensureStatus(t, http.StatusBadRequest, w)
		assert.Equal(t, dto.ErrCodeInvalidRange, resp.Error.Code)
	})
}

func TestSalesHandler_Trend(t *testing.T) {
	svc := new(mockDashboard)
	svc.On("DailyTrend", mock.Anything, mock.MatchedBy(func(f dashboard.Filter) bool {
		return f.StartDate.Equal(date("2024-03-01")) && len(f.SellerIDs) == 0
	})).Return(&dashboard.SalesTrend{BaseCurrency: "CNY"}, nil)

	w, resp := perform(t, newSalesEngine(svc), http.MethodGet,
		"/sales/trend?start_date=2024-03-01&end_date=2024-03-07", nil)

	ensureStatus(t, http.StatusOK, w)
	assert.Contains(t, string(resp.Data), `"base_currency":"CNY"`)
}

func TestSalesHandler_TrendRangeTooWide(t *testing.T) {
	svc := new(mockDashboard)
	svc.On("DailyTrend", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: ranges are limited to %d days", sales.ErrInvalidDateRange, dashboard.MaxRangeDays))

	w, resp := perform(t, newSalesEngine(svc), http.MethodGet,
		"/sales/trend?start_date=1000-01-01&end_date=9999-12-31", nil)

	ensureStatus(t, http.StatusBadRequest, w)
	assert.Equal(t, dto.ErrCodeInvalidRange, resp.Error.Code)
}

func TestSalesHandler_Rates(t *testing.T) {
	t.Run("lists the rates of a month", func(t *testing.T) {
		svc := new(mockDashboard)
		month := sales.NewMonth(2024, 5)
		svc.On("ListRates", mock.Anything, month).Return([]sales.ExchangeRate{
			{Month: month, Currency: "USD", Rate: decimal.RequireFromString("7.1"), FetchedAt: time.Now()},
			{Month: month, Currency: "EUR", Rate: decimal.RequireFromString("7.8"), FetchedAt: time.Now()},
		}, nil)

		w, resp := perform(t, newSalesEngine(svc), http.MethodGet, "/exchange-rates?month=2024-05", nil)

		ensureStatus(t, http.StatusOK, w)
		var got []dto.ExchangeRateResponse
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		require.Len(t, got, 2)
		assert.Equal(t, "USD", got[0].Currency)
		assert.Equal(t, 2, resp.Meta.Total)
	})

	t.Run("rejects a malformed month", func(t *testing.T) {
		w, resp := perform(t, newSalesEngine(new(mockDashboard)), http.MethodGet, "/exchange-rates?month=2024-5", nil)

		ensureStatus(t, http.StatusBadRequest, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	})
}

func TestSalesHandler_Shops(t *testing.T) {
	svc := new(mockDashboard)
	svc.On("ListShops", mock.Anything).Return([]sales.Shop{
		{SellerID: "101", Name: "US Store", Marketplace: "Amazon.com", Currency: "USD", Status: sales.ShopStatusActive},
	}, nil)

	w, resp := perform(t, newSalesEngine(svc), http.MethodGet, "/shops", nil)

	ensureStatus(t, http.StatusOK, w)
	var got []dto.ShopResponse
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "101", got[0].SellerID)
	assert.Equal(t, "USD", got[0].Currency)
}
