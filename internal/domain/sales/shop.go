package sales

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ShopStatus represents whether a shop is still synchronized
type ShopStatus string

const (
	// ShopStatusActive marks a shop whose data is synchronized
	ShopStatusActive ShopStatus = "ACTIVE"
	// ShopStatusDisabled marks a shop that is kept for history only
	ShopStatusDisabled ShopStatus = "DISABLED"
)

// IsValid returns true if the status is known
func (s ShopStatus) IsValid() bool {
	return s == ShopStatusActive || s == ShopStatusDisabled
}

// Shop is a marketplace storefront registered in the ERP
type Shop struct {
	ID          uuid.UUID
	SellerID    string // ERP "sid", the natural key
	Name        string
	Marketplace string // marketplace site, e.g. "US", "DE", "JP"
	Region      string
	Currency    string // ISO-4217 code of the storefront's sales
	Status      ShopStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewShop creates an active shop
func NewShop(sellerID, name, marketplace, currency string) (*Shop, error) {
	sellerID = strings.TrimSpace(sellerID)
	if sellerID == "" {
		return nil, ErrInvalidShop
	}
	now := time.Now()
	return &Shop{
		ID:          uuid.New(),
		SellerID:    sellerID,
		Name:        strings.TrimSpace(name),
		Marketplace: strings.ToUpper(strings.TrimSpace(marketplace)),
		Currency:    NormalizeCurrency(currency),
		Status:      ShopStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// IsActive returns true if the shop's data should be synchronized
func (s *Shop) IsActive() bool {
	return s.Status == ShopStatusActive
}

// NormalizeCurrency trims and upper-cases a currency code
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
