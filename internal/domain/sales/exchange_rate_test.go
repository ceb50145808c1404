package sales

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rate(month Month, currency, value string, fetchedAt time.Time) ExchangeRate {
	return ExchangeRate{
		Month:     month,
		Currency:  currency,
		Rate:      decimal.RequireFromString(value),
		Source:    "test",
		FetchedAt: fetchedAt,
	}
}

func TestDedupeRates(t *testing.T) {
	mar := NewMonth(2024, time.March)
	apr := NewMonth(2024, time.April)
	t0 := time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)

	t.Run("latest fetch wins", func(t *testing.T) {
		out := DedupeRates([]ExchangeRate{
			rate(mar, "USD", "7.10", t0.Add(time.Hour)),
			rate(mar, "usd", "7.20", t0),
		})
		require.Len(t, out, 1)
		assert.Equal(t, "USD", out[0].Currency)
		assert.True(t, decimal.RequireFromString("7.10").Equal(out[0].Rate))
	})

	t.Run("later occurrence wins on equal timestamps", func(t *testing.T) {
		out := DedupeRates([]ExchangeRate{
			rate(mar, "EUR", "7.80", t0),
			rate(mar, "EUR", "7.85", t0),
		})
		require.Len(t, out, 1)
		assert.True(t, decimal.RequireFromString("7.85").Equal(out[0].Rate))
	})

	t.Run("drops invalid entries", func(t *testing.T) {
		out := DedupeRates([]ExchangeRate{
			rate(mar, "", "7.1", t0),
			rate(mar, "JPY", "0", t0),
			rate(mar, "GBP", "-1", t0),
			rate(Month{}, "USD", "7.1", t0),
			rate(mar, "CAD", "5.2", t0),
		})
		require.Len(t, out, 1)
		assert.Equal(t, "CAD", out[0].Currency)
	})

	t.Run("sorted by month then currency", func(t *testing.T) {
		out := DedupeRates([]ExchangeRate{
			rate(apr, "USD", "7.2", t0),
			rate(mar, "USD", "7.1", t0),
			rate(mar, "EUR", "7.8", t0),
		})
		require.Len(t, out, 3)
		assert.Equal(t, []string{"2024-03/EUR", "2024-03/USD", "2024-04/USD"}, []string{
			out[0].Month.String() + "/" + out[0].Currency,
			out[1].Month.String() + "/" + out[1].Currency,
			out[2].Month.String() + "/" + out[2].Currency,
		})
	})

	t.Run("same currency in different months is kept", func(t *testing.T) {
		out := DedupeRates([]ExchangeRate{
			rate(mar, "USD", "7.1", t0),
			rate(apr, "USD", "7.2", t0),
		})
		assert.Len(t, out, 2)
	})
}

func TestRateTable(t *testing.T) {
	mar := NewMonth(2024, time.March)
	table := NewRateTable(mar, []ExchangeRate{
		rate(mar, "usd", "7.2", time.Now()),
		rate(NewMonth(2024, time.April), "EUR", "7.9", time.Now()),
	})

	assert.Equal(t, 1, table.Len())

	got, err := table.Convert(decimal.NewFromInt(10), "USD")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(72).Equal(got))

	base, err := table.Convert(decimal.NewFromInt(10), "cny")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(base))

	_, err = table.Convert(decimal.NewFromInt(10), "EUR")
	assert.ErrorIs(t, err, ErrRateNotFound)
}
