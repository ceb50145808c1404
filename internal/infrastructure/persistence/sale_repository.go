package persistence

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sellerdash/backend/internal/domain/sales"
	"github.com/sellerdash/backend/internal/infrastructure/persistence/models"
)

// saleBatchSize bounds the rows per INSERT statement
const saleBatchSize = 500

// GormSaleRepository implements sales.SaleRepository using GORM
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

// UpsertBatch writes rows keyed by (seller_id, date). Rows are aggregated first so a
// batch never carries the same key twice.
func (r *GormSaleRepository) UpsertBatch(ctx context.Context, rows []sales.Sale) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	rows = sales.AggregateDaily(rows)

	now := time.Now()
	batch := make([]*models.SaleModel, len(rows))
	for i, row := range rows {
		m := models.SaleModelFromDomain(row)
		m.CreatedAt = now
		m.UpdatedAt = now
		batch[i] = m
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "seller_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"shop_id", "month", "currency", "order_count", "units_sold",
				"sales_amount", "refund_amount", "ad_spend", "synced_at", "updated_at",
			}),
		}).CreateInBatches(&batch, saleBatchSize).Error
	})
	if err != nil {
		return 0, err
	}
	return len(batch), nil
}

// FindByRange returns the rows of the filter ordered by date then seller
func (r *GormSaleRepository) FindByRange(ctx context.Context, filter sales.SalesFilter) ([]sales.Sale, error) {
	var rows []models.SaleModel
	if err := r.applyFilter(r.db.WithContext(ctx), filter).
		Order("date, seller_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]sales.Sale, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// MonthsWithSales returns which of the given months have at least one row
func (r *GormSaleRepository) MonthsWithSales(ctx context.Context, months []sales.Month) ([]sales.Month, error) {
	if len(months) == 0 {
		return []sales.Month{}, nil
	}
	var present []string
	if err := r.db.WithContext(ctx).
		Model(&models.SaleModel{}).
		Where("month IN ?", sales.MonthStrings(months)).
		Distinct().
		Pluck("month", &present).Error; err != nil {
		return nil, err
	}
	return parseMonths(present)
}

type saleTotalRow struct {
	SellerID     string
	Month        string
	Currency     string
	OrderCount   int64
	UnitsSold    int64
	SalesAmount  decimal.Decimal
	RefundAmount decimal.Decimal
	AdSpend      decimal.Decimal
}

// Totals aggregates native-currency totals per (seller, month, currency).
// Postgres sums the NUMERIC columns itself. SQLite stores them with REAL affinity
// and would sum in floating point, so there the rows are added up with decimal.
func (r *GormSaleRepository) Totals(ctx context.Context, filter sales.SalesFilter) ([]sales.SalesTotal, error) {
	if r.db.Dialector.Name() != "postgres" {
		return r.totalsInMemory(ctx, filter)
	}

	var rows []saleTotalRow
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.SaleModel{}), filter).
		Select(`seller_id, month, currency,
			SUM(order_count) AS order_count,
			SUM(units_sold) AS units_sold,
			SUM(sales_amount) AS sales_amount,
			SUM(refund_amount) AS refund_amount,
			SUM(ad_spend) AS ad_spend`).
		Group("seller_id, month, currency").
		Order("month, seller_id, currency").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]sales.SalesTotal, 0, len(rows))
	for _, row := range rows {
		month, err := sales.ParseMonth(row.Month)
		if err != nil {
			return nil, err
		}
		out = append(out, sales.SalesTotal{
			SellerID:     row.SellerID,
			Month:        month,
			Currency:     row.Currency,
			OrderCount:   row.OrderCount,
			UnitsSold:    row.UnitsSold,
			SalesAmount:  row.SalesAmount,
			RefundAmount: row.RefundAmount,
			AdSpend:      row.AdSpend,
		})
	}
	return out, nil
}

func (r *GormSaleRepository) totalsInMemory(ctx context.Context, filter sales.SalesFilter) ([]sales.SalesTotal, error) {
	rows, err := r.FindByRange(ctx, filter)
	if err != nil {
		return nil, err
	}

	type totalKey struct {
		sellerID string
		month    sales.Month
		currency string
	}
	index := make(map[totalKey]int)
	out := make([]sales.SalesTotal, 0)
	for _, row := range rows {
		key := totalKey{row.SellerID, sales.MonthOf(row.Date), row.Currency}
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, sales.SalesTotal{
				SellerID:     key.sellerID,
				Month:        key.month,
				Currency:     key.currency,
				SalesAmount:  decimal.Zero,
				RefundAmount: decimal.Zero,
				AdSpend:      decimal.Zero,
			})
		}
		t := &out[i]
		t.OrderCount += int64(row.OrderCount)
		t.UnitsSold += int64(row.UnitsSold)
		t.SalesAmount = t.SalesAmount.Add(row.SalesAmount)
		t.RefundAmount = t.RefundAmount.Add(row.RefundAmount)
		t.AdSpend = t.AdSpend.Add(row.AdSpend)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Month != b.Month {
			return a.Month.Before(b.Month)
		}
		if a.SellerID != b.SellerID {
			return a.SellerID < b.SellerID
		}
		return a.Currency < b.Currency
	})
	return out, nil
}

func (r *GormSaleRepository) applyFilter(query *gorm.DB, filter sales.SalesFilter) *gorm.DB {
	if !filter.StartDate.IsZero() {
		query = query.Where("date >= ?", sales.TruncateToDay(filter.StartDate))
	}
	if !filter.EndDate.IsZero() {
		query = query.Where("date <= ?", sales.TruncateToDay(filter.EndDate))
	}
	if len(filter.SellerIDs) > 0 {
		query = query.Where("seller_id IN ?", filter.SellerIDs)
	}
	return query
}

func parseMonths(values []string) ([]sales.Month, error) {
	out := make([]sales.Month, 0, len(values))
	for _, v := range values {
		m, err := sales.ParseMonth(v)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	sortMonths(out)
	return out, nil
}

func sortMonths(months []sales.Month) {
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
}

// Ensure GormSaleRepository implements sales.SaleRepository
var _ sales.SaleRepository = (*GormSaleRepository)(nil)
