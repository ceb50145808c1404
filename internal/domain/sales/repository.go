package sales

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ShopRepository persists shops
type ShopRepository interface {
	// Upsert inserts or updates shops by seller ID and returns them with their stored IDs
	Upsert(ctx context.Context, shops []Shop) ([]Shop, error)
	FindAll(ctx context.Context) ([]Shop, error)
	FindActive(ctx context.Context) ([]Shop, error)
	FindBySellerID(ctx context.Context, sellerID string) (*Shop, error)
}

// SaleRepository persists daily sales rows
type SaleRepository interface {
	// UpsertBatch writes rows keyed by (seller_id, date) in one transaction
	UpsertBatch(ctx context.Context, rows []Sale) (int, error)
	FindByRange(ctx context.Context, filter SalesFilter) ([]Sale, error)
	// MonthsWithSales returns which of the given months have at least one row
	MonthsWithSales(ctx context.Context, months []Month) ([]Month, error)
	// Totals aggregates native-currency totals per (seller, month, currency)
	Totals(ctx context.Context, filter SalesFilter) ([]SalesTotal, error)
}

// ExchangeRateRepository persists monthly exchange rates
type ExchangeRateRepository interface {
	UpsertBatch(ctx context.Context, rates []ExchangeRate) (int, error)
	FindByMonth(ctx context.Context, month Month) ([]ExchangeRate, error)
	FindByMonths(ctx context.Context, months []Month) ([]ExchangeRate, error)
	// MonthsPresent returns which of the given months have at least one rate
	MonthsPresent(ctx context.Context, months []Month) ([]Month, error)
}

// SyncRunRepository persists sync run records
type SyncRunRepository interface {
	Save(ctx context.Context, run *SyncRun) error
	Recent(ctx context.Context, limit int) ([]SyncRun, error)
}

// SalesFilter narrows sales queries
type SalesFilter struct {
	StartDate time.Time
	EndDate   time.Time // inclusive day
	SellerIDs []string
}

// SalesTotal is a native-currency aggregate of sales for one seller and month
type SalesTotal struct {
	SellerID     string
	Month        Month
	Currency     string
	OrderCount   int64
	UnitsSold    int64
	SalesAmount  decimal.Decimal
	RefundAmount decimal.Decimal
	AdSpend      decimal.Decimal
}
