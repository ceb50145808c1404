package models

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel provides common persistence fields for all models
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// EnsureID assigns a new ID when the model has none
func (m *BaseModel) EnsureID() {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
}

// All returns every model managed by the application, for AutoMigrate
func All() []any {
	return []any{
		&ShopModel{},
		&SaleModel{},
		&ExchangeRateModel{},
		&SyncRunModel{},
	}
}
