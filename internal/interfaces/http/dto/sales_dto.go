package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sellerdash/backend/internal/domain/sales"
)

// DateLayout is the layout of every date parameter
const DateLayout = "2006-01-02"

// SyncRequest is the body of a synchronization request
type SyncRequest struct {
	StartDate string `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" binding:"required,datetime=2006-01-02"`
	Force     bool   `json:"force"`
}

// RangeQuery selects a date range, optionally restricted to some shops
type RangeQuery struct {
	StartDate string   `form:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate   string   `form:"end_date" binding:"required,datetime=2006-01-02"`
	SellerIDs []string `form:"seller_id" binding:"omitempty,dive,max=64"`
}

// MonthQuery selects one month
type MonthQuery struct {
	Month string `form:"month" binding:"required,datetime=2006-01"`
}

// MonthURI selects one month from the path
type MonthURI struct {
	Month string `uri:"month" binding:"required,datetime=2006-01"`
}

// LimitQuery bounds list responses
type LimitQuery struct {
	Limit int `form:"limit,default=20" binding:"min=1,max=100"`
}

// ParseRange parses a start and end date pair
func ParseRange(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, startDate)
	if err != nil {
		return time.Time{}, time.Time{}, sales.ErrInvalidDateRange
	}
	end, err := time.Parse(DateLayout, endDate)
	if err != nil {
		return time.Time{}, time.Time{}, sales.ErrInvalidDateRange
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, sales.ErrInvalidDateRange
	}
	return start, end, nil
}

// SyncRunResponse describes a sync run
type SyncRunResponse struct {
	ID                uuid.UUID     `json:"id"`
	Trigger           string        `json:"trigger"`
	Status            string        `json:"status"`
	RangeStart        string        `json:"range_start"`
	RangeEnd          string        `json:"range_end"`
	Months            []sales.Month `json:"months"`
	RateMonthsSynced  int           `json:"rate_months_synced"`
	SalesMonths       []sales.Month `json:"sales_months"`
	SalesRowsUpserted int           `json:"sales_rows_upserted"`
	FailedShops       []string      `json:"failed_shops"`
	FailedMonths      []sales.Month `json:"failed_months"`
	Error             string        `json:"error,omitempty"`
	StartedAt         time.Time     `json:"started_at"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty"`
	DurationSeconds   float64       `json:"duration_seconds"`
}

// ToSyncRunResponse converts a sync run
func ToSyncRunResponse(run *sales.SyncRun) SyncRunResponse {
	return SyncRunResponse{
		ID:                run.ID,
		Trigger:           string(run.Trigger),
		Status:            string(run.Status),
		RangeStart:        run.RangeStart.Format(DateLayout),
		RangeEnd:          run.RangeEnd.Format(DateLayout),
		Months:            nonNil(run.Months),
		RateMonthsSynced:  run.RateMonthsSynced,
		SalesMonths:       nonNil(run.SalesMonths),
		SalesRowsUpserted: run.SalesRowsUpserted,
		FailedShops:       nonNil(run.FailedShops),
		FailedMonths:      nonNil(run.FailedMonths),
		Error:             run.Error,
		StartedAt:         run.StartedAt,
		CompletedAt:       run.CompletedAt,
		DurationSeconds:   run.Duration().Seconds(),
	}
}

// ToSyncRunResponses converts a list of sync runs
func ToSyncRunResponses(runs []sales.SyncRun) []SyncRunResponse {
	out := make([]SyncRunResponse, len(runs))
	for i := range runs {
		out[i] = ToSyncRunResponse(&runs[i])
	}
	return out
}

// MissingMonthsResponse lists the months of a range without exchange rates
type MissingMonthsResponse struct {
	Months  []sales.Month `json:"months"`
	Missing []sales.Month `json:"missing"`
}

// ShopResponse describes a shop
type ShopResponse struct {
	ID          uuid.UUID `json:"id"`
	SellerID    string    `json:"seller_id"`
	Name        string    `json:"name"`
	Marketplace string    `json:"marketplace"`
	Region      string    `json:"region,omitempty"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToShopResponses converts a list of shops
func ToShopResponses(shops []sales.Shop) []ShopResponse {
	out := make([]ShopResponse, len(shops))
	for i, s := range shops {
		out[i] = ShopResponse{
			ID:          s.ID,
			SellerID:    s.SellerID,
			Name:        s.Name,
			Marketplace: s.Marketplace,
			Region:      s.Region,
			Currency:    s.Currency,
			Status:      string(s.Status),
			UpdatedAt:   s.UpdatedAt,
		}
	}
	return out
}

// ExchangeRateResponse describes one monthly rate
type ExchangeRateResponse struct {
	Month     sales.Month     `json:"month"`
	Currency  string          `json:"currency"`
	Rate      decimal.Decimal `json:"rate"`
	Source    string          `json:"source,omitempty"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// ToExchangeRateResponses converts a list of rates
func ToExchangeRateResponses(rates []sales.ExchangeRate) []ExchangeRateResponse {
	out := make([]ExchangeRateResponse, len(rates))
	for i, r := range rates {
		out[i] = ExchangeRateResponse{
			Month:     r.Month,
			Currency:  r.Currency,
			Rate:      r.Rate,
			Source:    r.Source,
			FetchedAt: r.FetchedAt,
		}
	}
	return out
}

// ReportURLResponse points to an exported monthly report
type ReportURLResponse struct {
	Month     sales.Month `json:"month"`
	URL       string      `json:"url"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
