package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sellerdash/backend/internal/domain/sales"
	"github.com/sellerdash/backend/internal/infrastructure/persistence/models"
)

// GormShopRepository implements sales.ShopRepository using GORM
type GormShopRepository struct {
	db *gorm.DB
}

// NewGormShopRepository creates a new GormShopRepository
func NewGormShopRepository(db *gorm.DB) *GormShopRepository {
	return &GormShopRepository{db: db}
}

// Upsert inserts or updates shops by seller ID and returns the stored rows
func (r *GormShopRepository) Upsert(ctx context.Context, shops []sales.Shop) ([]sales.Shop, error) {
	if len(shops) == 0 {
		return []sales.Shop{}, nil
	}

	now := time.Now()
	rows := make([]*models.ShopModel, 0, len(shops))
	sellerIDs := make([]string, 0, len(shops))
	seen := make(map[string]int, len(shops))
	for _, s := range shops {
		if s.SellerID == "" {
			return nil, sales.ErrInvalidShop
		}
		m := models.ShopModelFromDomain(s)
		m.UpdatedAt = now
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		// last one wins within a batch
		if i, ok := seen[s.SellerID]; ok {
			rows[i] = m
			continue
		}
		seen[s.SellerID] = len(rows)
		rows = append(rows, m)
		sellerIDs = append(sellerIDs, s.SellerID)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "seller_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "marketplace", "region", "currency", "status", "updated_at",
			}),
		}).Create(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	var stored []models.ShopModel
	if err := r.db.WithContext(ctx).
		Where("seller_id IN ?", sellerIDs).
		Order("seller_id").
		Find(&stored).Error; err != nil {
		return nil, err
	}
	return shopsToDomain(stored), nil
}

// FindAll returns every shop ordered by seller ID
func (r *GormShopRepository) FindAll(ctx context.Context) ([]sales.Shop, error) {
	var rows []models.ShopModel
	if err := r.db.WithContext(ctx).Order("seller_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return shopsToDomain(rows), nil
}

// FindActive returns the shops that are synchronized
func (r *GormShopRepository) FindActive(ctx context.Context) ([]sales.Shop, error) {
	var rows []models.ShopModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(sales.ShopStatusActive)).
		Order("seller_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return shopsToDomain(rows), nil
}

// FindBySellerID finds a shop by its ERP seller ID
func (r *GormShopRepository) FindBySellerID(ctx context.Context, sellerID string) (*sales.Shop, error) {
	var row models.ShopModel
	if err := r.db.WithContext(ctx).Where("seller_id = ?", sellerID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sales.ErrShopNotFound
		}
		return nil, err
	}
	shop := row.ToDomain()
	return &shop, nil
}

func shopsToDomain(rows []models.ShopModel) []sales.Shop {
	out := make([]sales.Shop, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

// Ensure GormShopRepository implements sales.ShopRepository
var _ sales.ShopRepository = (*GormShopRepository)(nil)
