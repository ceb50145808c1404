// Package storage exports monthly sales snapshots to S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"path"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sellerdash/backend/internal/domain/sales"
)

const (
	// DefaultPrefix is the key prefix of monthly sales reports
	DefaultPrefix = "reports/sales"

	reportContentType = "application/json"
)

// ErrReportNotFound is returned when no report exists for a month
var ErrReportNotFound = errors.New("report not found")

// ReportStore persists monthly sales snapshots
type ReportStore interface {
	PutMonthlyReport(ctx context.Context, report *MonthlySalesReport) (string, error)
	GetMonthlyReport(ctx context.Context, month sales.Month) (*MonthlySalesReport, error)
	ReportURL(ctx context.Context, month sales.Month, expiresIn time.Duration) (string, time.Time, error)
}

// MonthlySalesReport is the JSON document written for one month
type MonthlySalesReport struct {
	Month       string           `json:"month"`
	GeneratedAt time.Time        `json:"generated_at"`
	Totals      []CurrencyTotals `json:"totals"`
	Rows        []ReportRow      `json:"rows"`
}

// CurrencyTotals sums a month's figures in one currency
type CurrencyTotals struct {
	Currency     string          `json:"currency"`
	OrderCount   int             `json:"order_count"`
	UnitsSold    int             `json:"units_sold"`
	SalesAmount  decimal.Decimal `json:"sales_amount"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	AdSpend      decimal.Decimal `json:"ad_spend"`
}

// ReportRow is one shop-day of the report
type ReportRow struct {
	SellerID     string          `json:"seller_id"`
	Date         string          `json:"date"`
	Currency     string          `json:"currency"`
	OrderCount   int             `json:"order_count"`
	UnitsSold    int             `json:"units_sold"`
	SalesAmount  decimal.Decimal `json:"sales_amount"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	AdSpend      decimal.Decimal `json:"ad_spend"`
}

// NewMonthlySalesReport builds the snapshot of a month's aggregated rows
func NewMonthlySalesReport(month sales.Month, rows []sales.Sale, generatedAt time.Time) *MonthlySalesReport {
	report := &MonthlySalesReport{
		Month:       month.String(),
		GeneratedAt: generatedAt.UTC(),
		Totals:      make([]CurrencyTotals, 0),
		Rows:        make([]ReportRow, 0, len(rows)),
	}

	totals := make(map[string]*CurrencyTotals)
	for _, r := range sales.AggregateDaily(rows) {
		report.Rows = append(report.Rows, ReportRow{
			SellerID:     r.SellerID,
			Date:         r.Date.Format(time.DateOnly),
			Currency:     r.Currency,
			OrderCount:   r.OrderCount,
			UnitsSold:    r.UnitsSold,
			SalesAmount:  r.SalesAmount,
			RefundAmount: r.RefundAmount,
			AdSpend:      r.AdSpend,
		})

		t, ok := totals[r.Currency]
		if !ok {
			t = &CurrencyTotals{Currency: r.Currency}
			totals[r.Currency] = t
		}
		t.OrderCount += r.OrderCount
		t.UnitsSold += r.UnitsSold
		t.SalesAmount = t.SalesAmount.Add(r.SalesAmount)
		t.RefundAmount = t.RefundAmount.Add(r.RefundAmount)
		t.AdSpend = t.AdSpend.Add(r.AdSpend)
	}

	for _, t := range totals {
		report.Totals = append(report.Totals, *t)
	}
	sort.Slice(report.Totals, func(i, j int) bool {
		return report.Totals[i].Currency < report.Totals[j].Currency
	})
	return report
}

// ReportKey returns the object key of a month's report under prefix
func ReportKey(prefix string, month sales.Month) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return path.Join(prefix, month.String()+".json")
}
