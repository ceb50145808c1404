package sales

import "context"

// SalesSource is the read side of the ERP the dashboard synchronizes from
type SalesSource interface {
	// ListShops returns every storefront known to the ERP
	ListShops(ctx context.Context) ([]Shop, error)
	// FetchDailySales returns the daily sales of one shop within a month.
	// Rows may repeat a day; callers aggregate them.
	FetchDailySales(ctx context.Context, shop Shop, month Month) ([]Sale, error)
	// FetchExchangeRates returns the rates the ERP applies for a month
	FetchExchangeRates(ctx context.Context, month Month) ([]ExchangeRate, error)
}
