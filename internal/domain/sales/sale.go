package sales

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale holds the daily sales figures of one shop.
// (SellerID, Date) identifies a row; re-synchronizing a day replaces its figures.
type Sale struct {
	ID           uuid.UUID
	ShopID       uuid.UUID
	SellerID     string
	Date         time.Time // midnight UTC
	Currency     string
	OrderCount   int
	UnitsSold    int
	SalesAmount  decimal.Decimal
	RefundAmount decimal.Decimal
	AdSpend      decimal.Decimal
	SyncedAt     time.Time
}

// NetAmount returns sales minus refunds
func (s *Sale) NetAmount() decimal.Decimal {
	return s.SalesAmount.Sub(s.RefundAmount)
}

// Key returns the natural key of the row
func (s *Sale) Key() SaleKey {
	return SaleKey{SellerID: s.SellerID, Date: TruncateToDay(s.Date)}
}

// Validate checks the row before it is written
func (s *Sale) Validate() error {
	if s.SellerID == "" {
		return fmt.Errorf("%w: seller ID is required", ErrInvalidSale)
	}
	if s.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidSale)
	}
	if s.Currency == "" {
		return fmt.Errorf("%w: currency is required", ErrInvalidSale)
	}
	if s.OrderCount < 0 || s.UnitsSold < 0 {
		return fmt.Errorf("%w: counts cannot be negative", ErrInvalidSale)
	}
	return nil
}

// SaleKey is the natural key of a Sale
type SaleKey struct {
	SellerID string
	Date     time.Time
}

// AggregateDaily merges rows sharing (SellerID, Date) by summing their figures.
// The ERP may return several rows per day (one per ASIN or per order batch); the
// dashboard stores one row per shop and day. Output is sorted by seller then date.
func AggregateDaily(rows []Sale) []Sale {
	index := make(map[SaleKey]int, len(rows))
	out := make([]Sale, 0, len(rows))

	for _, r := range rows {
		r.Date = TruncateToDay(r.Date)
		r.Currency = NormalizeCurrency(r.Currency)
		key := r.Key()

		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, r)
			continue
		}
		agg := &out[i]
		agg.OrderCount += r.OrderCount
		agg.UnitsSold += r.UnitsSold
		agg.SalesAmount = agg.SalesAmount.Add(r.SalesAmount)
		agg.RefundAmount = agg.RefundAmount.Add(r.RefundAmount)
		agg.AdSpend = agg.AdSpend.Add(r.AdSpend)
		if r.SyncedAt.After(agg.SyncedAt) {
			agg.SyncedAt = r.SyncedAt
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SellerID != out[j].SellerID {
			return out[i].SellerID < out[j].SellerID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
