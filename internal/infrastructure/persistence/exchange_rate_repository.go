package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sellerdash/backend/internal/domain/sales"
	"github.com/sellerdash/backend/internal/infrastructure/persistence/models"
)

// GormExchangeRateRepository implements sales.ExchangeRateRepository using GORM
type GormExchangeRateRepository struct {
	db *gorm.DB
}

// NewGormExchangeRateRepository creates a new GormExchangeRateRepository
func NewGormExchangeRateRepository(db *gorm.DB) *GormExchangeRateRepository {
	return &GormExchangeRateRepository{db: db}
}

// UpsertBatch writes rates keyed by (month, currency)
func (r *GormExchangeRateRepository) UpsertBatch(ctx context.Context, rates []sales.ExchangeRate) (int, error) {
	rates = sales.DedupeRates(rates)
	if len(rates) == 0 {
		return 0, nil
	}

	now := time.Now()
	batch := make([]*models.ExchangeRateModel, 0, len(rates))
	for _, rate := range rates {
		if err := rate.Validate(); err != nil {
			return 0, err
		}
		m := models.ExchangeRateModelFromDomain(rate)
		m.CreatedAt = now
		m.UpdatedAt = now
		batch = append(batch, m)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "month"}, {Name: "currency"}},
			DoUpdates: clause.AssignmentColumns([]string{"rate", "source", "fetched_at", "updated_at"}),
		}).Create(&batch).Error
	})
	if err != nil {
		return 0, err
	}
	return len(batch), nil
}

// FindByMonth returns the rates of one month ordered by currency
func (r *GormExchangeRateRepository) FindByMonth(ctx context.Context, month sales.Month) ([]sales.ExchangeRate, error) {
	return r.FindByMonths(ctx, []sales.Month{month})
}

// FindByMonths returns the rates of several months ordered by month then currency
func (r *GormExchangeRateRepository) FindByMonths(ctx context.Context, months []sales.Month) ([]sales.ExchangeRate, error) {
	if len(months) == 0 {
		return []sales.ExchangeRate{}, nil
	}
	var rows []models.ExchangeRateModel
	if err := r.db.WithContext(ctx).
		Where("month IN ?", sales.MonthStrings(months)).
		Order("month, currency").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]sales.ExchangeRate, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// MonthsPresent returns which of the given months have at least one rate
func (r *GormExchangeRateRepository) MonthsPresent(ctx context.Context, months []sales.Month) ([]sales.Month, error) {
	if len(months) == 0 {
		return []sales.Month{}, nil
	}
	var present []string
	if err := r.db.WithContext(ctx).
		Model(&models.ExchangeRateModel{}).
		Where("month IN ?", sales.MonthStrings(months)).
		Distinct().
		Pluck("month", &present).Error; err != nil {
		return nil, err
	}
	return parseMonths(present)
}

// Ensure GormExchangeRateRepository implements sales.ExchangeRateRepository
var _ sales.ExchangeRateRepository = (*GormExchangeRateRepository)(nil)
