package persistence

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sellerdash/backend/internal/domain/sales"
	"github.com/sellerdash/backend/internal/infrastructure/persistence/models"
)

// GormSyncRunRepository implements sales.SyncRunRepository using GORM
type GormSyncRunRepository struct {
	db *gorm.DB
}

// NewGormSyncRunRepository creates a new GormSyncRunRepository
func NewGormSyncRunRepository(db *gorm.DB) *GormSyncRunRepository {
	return &GormSyncRunRepository{db: db}
}

// Save inserts a run or replaces the stored copy
func (r *GormSyncRunRepository) Save(ctx context.Context, run *sales.SyncRun) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(models.SyncRunModelFromDomain(run)).Error
}

// Recent returns the latest runs, newest first
func (r *GormSyncRunRepository) Recent(ctx context.Context, limit int) ([]sales.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []models.SyncRunModel
	if err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]sales.SyncRun, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Ensure GormSyncRunRepository implements sales.SyncRunRepository
var _ sales.SyncRunRepository = (*GormSyncRunRepository)(nil)
