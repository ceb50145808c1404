package lingxing

import (
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

// marketplaceRegions maps marketplace site codes that are not ISO regions
var marketplaceRegions = map[string]string{
	"UK": "GB",
	"EU": "DE",
}

// CurrencyForMarketplace returns the ISO-4217 currency of a marketplace site code such
// as "US" or "JP", or "" when it is unknown
func CurrencyForMarketplace(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if mapped, ok := marketplaceRegions[code]; ok {
		code = mapped
	}
	region, err := language.ParseRegion(code)
	if err != nil {
		return ""
	}
	unit, ok := currency.FromRegion(region)
	if !ok {
		return ""
	}
	return unit.String()
}
