package sales

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// BaseCurrency is the currency every amount is converted to for reporting
const BaseCurrency = "CNY"

// ExchangeRate is the monthly rate of one currency against BaseCurrency,
// expressed as BaseCurrency units per one unit of Currency.
type ExchangeRate struct {
	Month     Month
	Currency  string
	Rate      decimal.Decimal
	Source    string
	FetchedAt time.Time
}

// Validate checks the rate before it is written
func (r *ExchangeRate) Validate() error {
	if r.Month.IsZero() {
		return fmt.Errorf("%w: month is required", ErrInvalidRate)
	}
	if NormalizeCurrency(r.Currency) == "" {
		return fmt.Errorf("%w: currency is required", ErrInvalidRate)
	}
	if !r.Rate.IsPositive() {
		return fmt.Errorf("%w: rate must be positive for %s", ErrInvalidRate, r.Currency)
	}
	return nil
}

type rateKey struct {
	month    Month
	currency string
}

// DedupeRates collapses duplicate (Month, Currency) entries. The entry with the
// latest FetchedAt wins; on equal timestamps the later occurrence wins. Invalid
// entries are dropped. Output is sorted by month, then currency.
func DedupeRates(rates []ExchangeRate) []ExchangeRate {
	index := make(map[rateKey]int, len(rates))
	out := make([]ExchangeRate, 0, len(rates))

	for _, r := range rates {
		r.Currency = NormalizeCurrency(r.Currency)
		if err := r.Validate(); err != nil {
			continue
		}
		key := rateKey{month: r.Month, currency: r.Currency}
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, r)
			continue
		}
		if !r.FetchedAt.Before(out[i].FetchedAt) {
			out[i] = r
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month.Before(out[j].Month)
		}
		return out[i].Currency < out[j].Currency
	})
	return out
}

// RateTable holds the rates of one month keyed by currency
type RateTable struct {
	Month Month
	rates map[string]decimal.Decimal
}

// NewRateTable builds a table from the rates belonging to month; other months are ignored
func NewRateTable(month Month, rates []ExchangeRate) *RateTable {
	t := &RateTable{Month: month, rates: make(map[string]decimal.Decimal, len(rates))}
	for _, r := range rates {
		if r.Month != month {
			continue
		}
		t.rates[NormalizeCurrency(r.Currency)] = r.Rate
	}
	return t
}

// Len returns the number of currencies in the table
func (t *RateTable) Len() int {
	return len(t.rates)
}

// Rate returns the rate of a currency. The base currency always has rate 1.
func (t *RateTable) Rate(currency string) (decimal.Decimal, error) {
	currency = NormalizeCurrency(currency)
	if currency == BaseCurrency {
		return decimal.NewFromInt(1), nil
	}
	rate, ok := t.rates[currency]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s in %s", ErrRateNotFound, currency, t.Month)
	}
	return rate, nil
}

// Convert converts an amount in currency to BaseCurrency
func (t *RateTable) Convert(amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	rate, err := t.Rate(currency)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}
