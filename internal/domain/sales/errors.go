package sales

import "errors"

var (
	// ErrInvalidDateRange is returned when the start of a range is after its end
	ErrInvalidDateRange = errors.New("sales: start date is after end date")
	// ErrInvalidMonth is returned when a month string cannot be parsed
	ErrInvalidMonth = errors.New("sales: invalid month, expected YYYY-MM")
	// ErrRateNotFound is returned when no exchange rate exists for a currency
	ErrRateNotFound = errors.New("sales: exchange rate not found")
	// ErrInvalidRate is returned for non-positive rates or empty currency codes
	ErrInvalidRate = errors.New("sales: invalid exchange rate")
	// ErrShopNotFound is returned when a shop does not exist
	ErrShopNotFound = errors.New("sales: shop not found")
	// ErrInvalidShop is returned when a shop lacks its seller ID
	ErrInvalidShop = errors.New("sales: invalid shop")
	// ErrInvalidSale is returned when a sale row fails validation
	ErrInvalidSale = errors.New("sales: invalid sale")
	// ErrSyncInProgress is returned when a sync is requested while another one runs
	ErrSyncInProgress = errors.New("sales: sync already in progress")
)
