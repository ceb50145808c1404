package salesync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerdash/backend/internal/domain/sales"
)

func importRow(sellerID string, d time.Time, amount int64) sales.Sale {
	r := saleRow(d, amount)
	r.SellerID = sellerID
	return r
}

func TestService_ImportSales(t *testing.T) {
	t.Run("stores rows of known shops and records a CLI run", func(t *testing.T) {
		f := newFixture(day(2024, 3, 10))
		shop := testShop("101")
		f.shops = newMemShopRepo(shop)
		f.svc.shops = f.shops

		var exported []sales.Month
		f.svc.SetOnMonthSyncedCallback(func(_ context.Context, m sales.Month, _ []sales.Sale) error {
			exported = append(exported, m)
			return nil
		})

		result, err := f.svc.ImportSales(context.Background(), []sales.Sale{
			importRow("101", day(2024, 1, 30), 10),
			importRow("101", day(2024, 1, 30), 5), // same day, aggregated
			importRow("101", day(2024, 3, 2), 7),
			importRow("999", day(2024, 3, 2), 1),
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"999"}, result.UnknownSellers)
		assert.Equal(t, 1, result.SkippedRows)
		require.NotNil(t, result.Run)
		assert.Equal(t, sales.SyncTriggerCLI, result.Run.Trigger)
		assert.Equal(t, sales.SyncRunStatusSuccess, result.Run.Status)
		assert.Equal(t, 2, result.Run.SalesRowsUpserted)
		assert.Equal(t, []sales.Month{jan, feb, mar}, result.Run.Months)
		assert.Equal(t, []sales.Month{jan, mar}, result.Run.SalesMonths)
		assert.Equal(t, []sales.Month{jan, mar}, exported)

		rows, err := f.sales.FindByRange(context.Background(), sales.SalesFilter{
			StartDate: day(2024, 1, 30), EndDate: day(2024, 1, 30),
		})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, shop.ID, rows[0].ShopID)
		assert.Equal(t, "USD", rows[0].Currency)
		assert.Equal(t, int64(15), rows[0].SalesAmount.IntPart())

		runs, _ := f.runs.Recent(context.Background(), 10)
		require.Len(t, runs, 1)
		assert.Equal(t, sales.SyncRunStatusSuccess, runs[0].Status)
	})

	t.Run("nothing to store", func(t *testing.T) {
		f := newFixture(day(2024, 3, 10))

		result, err := f.svc.ImportSales(context.Background(), []sales.Sale{importRow("404", day(2024, 3, 1), 1)})
		require.NoError(t, err)
		assert.Nil(t, result.Run)
		assert.Equal(t, 1, result.SkippedRows)
		assert.Zero(t, f.sales.count())
	})

	t.Run("refused while a sync runs", func(t *testing.T) {
		f := newFixture(day(2024, 3, 10))
		f.svc.running.Store(true)

		_, err := f.svc.ImportSales(context.Background(), nil)
		assert.ErrorIs(t, err, sales.ErrSyncInProgress)
	})
}
