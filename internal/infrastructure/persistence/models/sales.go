package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sellerdash/backend/internal/domain/sales"
)

// ShopModel is the persistence model for a marketplace shop
type ShopModel struct {
	BaseModel
	SellerID    string `gorm:"type:varchar(64);not null;uniqueIndex:idx_shops_seller_id"`
	Name        string `gorm:"type:varchar(200);not null;default:''"`
	Marketplace string `gorm:"type:varchar(16);not null;default:''"`
	Region      string `gorm:"type:varchar(32);not null;default:''"`
	Currency    string `gorm:"type:varchar(3);not null;default:''"`
	Status      string `gorm:"type:varchar(16);not null;default:'ACTIVE';index"`
}

// TableName returns the table name for GORM
func (ShopModel) TableName() string {
	return "shops"
}

// ToDomain converts the model to a domain Shop
func (m *ShopModel) ToDomain() sales.Shop {
	return sales.Shop{
		ID:          m.ID,
		SellerID:    m.SellerID,
		Name:        m.Name,
		Marketplace: m.Marketplace,
		Region:      m.Region,
		Currency:    m.Currency,
		Status:      sales.ShopStatus(m.Status),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ShopModelFromDomain creates a model from a domain Shop
func ShopModelFromDomain(s sales.Shop) *ShopModel {
	m := &ShopModel{
		BaseModel: BaseModel{
			ID:        s.ID,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		},
		SellerID:    s.SellerID,
		Name:        s.Name,
		Marketplace: s.Marketplace,
		Region:      s.Region,
		Currency:    sales.NormalizeCurrency(s.Currency),
		Status:      string(s.Status),
	}
	if m.Status == "" {
		m.Status = string(sales.ShopStatusActive)
	}
	m.EnsureID()
	return m
}

// SaleModel is the persistence model for one shop's sales on one day
type SaleModel struct {
	BaseModel
	ShopID       *uuid.UUID      `gorm:"type:uuid;index"`
	SellerID     string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_sales_seller_date,priority:1"`
	Date         time.Time       `gorm:"type:date;not null;uniqueIndex:idx_sales_seller_date,priority:2;index"`
	Month        string          `gorm:"type:varchar(7);not null;index"`
	Currency     string          `gorm:"type:varchar(3);not null"`
	OrderCount   int             `gorm:"not null;default:0"`
	UnitsSold    int             `gorm:"not null;default:0"`
	SalesAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	RefundAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AdSpend      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	SyncedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SaleModel) TableName() string {
	return "sales"
}

// ToDomain converts the model to a domain Sale
func (m *SaleModel) ToDomain() sales.Sale {
	s := sales.Sale{
		ID:           m.ID,
		SellerID:     m.SellerID,
		Date:         sales.TruncateToDay(m.Date.UTC()),
		Currency:     m.Currency,
		OrderCount:   m.OrderCount,
		UnitsSold:    m.UnitsSold,
		SalesAmount:  m.SalesAmount,
		RefundAmount: m.RefundAmount,
		AdSpend:      m.AdSpend,
		SyncedAt:     m.SyncedAt,
	}
	if m.ShopID != nil {
		s.ShopID = *m.ShopID
	}
	return s
}

// SaleModelFromDomain creates a model from a domain Sale
func SaleModelFromDomain(s sales.Sale) *SaleModel {
	date := sales.TruncateToDay(s.Date)
	m := &SaleModel{
		BaseModel:    BaseModel{ID: s.ID},
		SellerID:     s.SellerID,
		Date:         date,
		Month:        sales.MonthOf(date).String(),
		Currency:     sales.NormalizeCurrency(s.Currency),
		OrderCount:   s.OrderCount,
		UnitsSold:    s.UnitsSold,
		SalesAmount:  s.SalesAmount,
		RefundAmount: s.RefundAmount,
		AdSpend:      s.AdSpend,
		SyncedAt:     s.SyncedAt,
	}
	if s.ShopID != uuid.Nil {
		shopID := s.ShopID
		m.ShopID = &shopID
	}
	if m.SyncedAt.IsZero() {
		m.SyncedAt = time.Now()
	}
	m.EnsureID()
	return m
}

// ExchangeRateModel is the persistence model for a monthly exchange rate
type ExchangeRateModel struct {
	BaseModel
	Month     string          `gorm:"type:varchar(7);not null;uniqueIndex:idx_exchange_rates_month_currency,priority:1"`
	Currency  string          `gorm:"type:varchar(3);not null;uniqueIndex:idx_exchange_rates_month_currency,priority:2"`
	Rate      decimal.Decimal `gorm:"type:decimal(18,8);not null"`
	Source    string          `gorm:"type:varchar(32);not null;default:''"`
	FetchedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ExchangeRateModel) TableName() string {
	return "exchange_rates"
}

// ToDomain converts the model to a domain ExchangeRate
func (m *ExchangeRateModel) ToDomain() sales.ExchangeRate {
	month, _ := sales.ParseMonth(m.Month)
	return sales.ExchangeRate{
		Month:     month,
		Currency:  m.Currency,
		Rate:      m.Rate,
		Source:    m.Source,
		FetchedAt: m.FetchedAt,
	}
}

// ExchangeRateModelFromDomain creates a model from a domain ExchangeRate
func ExchangeRateModelFromDomain(r sales.ExchangeRate) *ExchangeRateModel {
	m := &ExchangeRateModel{
		Month:     r.Month.String(),
		Currency:  sales.NormalizeCurrency(r.Currency),
		Rate:      r.Rate,
		Source:    r.Source,
		FetchedAt: r.FetchedAt,
	}
	if m.FetchedAt.IsZero() {
		m.FetchedAt = time.Now()
	}
	m.EnsureID()
	return m
}

// SyncRunModel is the persistence model for a sync run.
// List fields are stored as JSON text.
type SyncRunModel struct {
	ID                uuid.UUID  `gorm:"type:uuid;primary_key"`
	Trigger           string     `gorm:"type:varchar(16);not null"`
	RangeStart        time.Time  `gorm:"type:date;not null"`
	RangeEnd          time.Time  `gorm:"type:date;not null"`
	Months            string     `gorm:"type:text;not null;default:'[]'"`
	RateMonthsSynced  int        `gorm:"not null;default:0"`
	SalesMonths       string     `gorm:"type:text;not null;default:'[]'"`
	SalesRowsUpserted int        `gorm:"not null;default:0"`
	FailedShops       string     `gorm:"type:text;not null;default:'[]'"`
	FailedMonths      string     `gorm:"type:text;not null;default:'[]'"`
	Status            string     `gorm:"type:varchar(16);not null;index"`
	Error             string     `gorm:"type:text;not null;default:''"`
	StartedAt         time.Time  `gorm:"not null;index"`
	CompletedAt       *time.Time ``
}

// TableName returns the table name for GORM
func (SyncRunModel) TableName() string {
	return "sync_runs"
}

// ToDomain converts the model to a domain SyncRun
func (m *SyncRunModel) ToDomain() sales.SyncRun {
	run := sales.SyncRun{
		ID:                m.ID,
		Trigger:           sales.SyncTrigger(m.Trigger),
		RangeStart:        m.RangeStart,
		RangeEnd:          m.RangeEnd,
		RateMonthsSynced:  m.RateMonthsSynced,
		SalesRowsUpserted: m.SalesRowsUpserted,
		Status:            sales.SyncRunStatus(m.Status),
		Error:             m.Error,
		StartedAt:         m.StartedAt,
		CompletedAt:       m.CompletedAt,
	}
	_ = json.Unmarshal([]byte(m.Months), &run.Months)
	_ = json.Unmarshal([]byte(m.SalesMonths), &run.SalesMonths)
	_ = json.Unmarshal([]byte(m.FailedShops), &run.FailedShops)
	_ = json.Unmarshal([]byte(m.FailedMonths), &run.FailedMonths)
	return run
}

// SyncRunModelFromDomain creates a model from a domain SyncRun
func SyncRunModelFromDomain(r *sales.SyncRun) *SyncRunModel {
	return &SyncRunModel{
		ID:                r.ID,
		Trigger:           string(r.Trigger),
		RangeStart:        sales.TruncateToDay(r.RangeStart),
		RangeEnd:          sales.TruncateToDay(r.RangeEnd),
		Months:            toJSON(r.Months),
		RateMonthsSynced:  r.RateMonthsSynced,
		SalesMonths:       toJSON(r.SalesMonths),
		SalesRowsUpserted: r.SalesRowsUpserted,
		FailedShops:       toJSON(r.FailedShops),
		FailedMonths:      toJSON(r.FailedMonths),
		Status:            string(r.Status),
		Error:             r.Error,
		StartedAt:         r.StartedAt,
		CompletedAt:       r.CompletedAt,
	}
}

func toJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return "[]"
	}
	return string(data)
}
