package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sellerdash/backend/internal/domain/sales"
)

// Filter selects the sales a dashboard query covers
type Filter struct {
	StartDate time.Time
	EndDate   time.Time // inclusive
	SellerIDs []string
}

// MissingRate names a (month, currency) pair that could not be converted
type MissingRate struct {
	Month    sales.Month `json:"month"`
	Currency string      `json:"currency"`
}

// ShopMonthSummary is one shop's totals for one month
type ShopMonthSummary struct {
	SellerID     string           `json:"seller_id"`
	ShopName     string           `json:"shop_name"`
	Marketplace  string           `json:"marketplace"`
	Month        sales.Month      `json:"month"`
	Currency     string           `json:"currency"`
	OrderCount   int64            `json:"order_count"`
	UnitsSold    int64            `json:"units_sold"`
	SalesAmount  decimal.Decimal  `json:"sales_amount"`
	RefundAmount decimal.Decimal  `json:"refund_amount"`
	AdSpend      decimal.Decimal  `json:"ad_spend"`
	NetAmount    decimal.Decimal  `json:"net_amount"`
	Rate         *decimal.Decimal `json:"rate,omitempty"`
	SalesBase    *decimal.Decimal `json:"sales_base,omitempty"`
	NetBase      *decimal.Decimal `json:"net_base,omitempty"`

	// SalesDisplay and NetDisplay are the native amounts with their currency symbol
	SalesDisplay string `json:"sales_display"`
	NetDisplay   string `json:"net_display"`
}

// SalesSummary is the dashboard summary for a date range
type SalesSummary struct {
	StartDate    time.Time          `json:"start_date"`
	EndDate      time.Time          `json:"end_date"`
	BaseCurrency string             `json:"base_currency"`
	Rows         []ShopMonthSummary `json:"rows"`
	OrderCount   int64              `json:"order_count"`
	UnitsSold    int64              `json:"units_sold"`
	SalesTotal   decimal.Decimal    `json:"sales_total"`
	RefundTotal  decimal.Decimal    `json:"refund_total"`
	AdSpendTotal decimal.Decimal    `json:"ad_spend_total"`
	NetTotal     decimal.Decimal    `json:"net_total"`
	MissingRates []MissingRate      `json:"missing_rates"`

	SalesTotalDisplay string `json:"sales_total_display"`
	NetTotalDisplay   string `json:"net_total_display"`
}

// TrendPoint is the converted total of one day across shops
type TrendPoint struct {
	Date       time.Time       `json:"date"`
	OrderCount int64           `json:"order_count"`
	UnitsSold  int64           `json:"units_sold"`
	Sales      decimal.Decimal `json:"sales"`
	Net        decimal.Decimal `json:"net"`
}

// SalesTrend is the daily series for a date range, in the base currency
type SalesTrend struct {
	BaseCurrency string        `json:"base_currency"`
	Points       []TrendPoint  `json:"points"`
	MissingRates []MissingRate `json:"missing_rates"`
}
