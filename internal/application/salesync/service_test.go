package salesync

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sellerdash/backend/internal/domain/sales"
)

// MockSalesSource is a mock implementation of sales.SalesSource
type MockSalesSource struct {
	mock.Mock
}

func (m *MockSalesSource) ListShops(ctx context.Context) ([]sales.Shop, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sales.Shop), args.Error(1)
}

func (m *MockSalesSource) FetchDailySales(ctx context.Context, shop sales.Shop, month sales.Month) ([]sales.Sale, error) {
	args := m.Called(ctx, shop, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sales.Sale), args.Error(1)
}

func (m *MockSalesSource) FetchExchangeRates(ctx context.Context, month sales.Month) ([]sales.ExchangeRate, error) {
	args := m.Called(ctx, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sales.ExchangeRate), args.Error(1)
}

// in-memory repositories

type memShopRepo struct {
	mu    sync.Mutex
	shops map[string]sales.Shop
}

func newMemShopRepo(shops ...sales.Shop) *memShopRepo {
	r := &memShopRepo{shops: map[string]sales.Shop{}}
	for _, s := range shops {
		r.shops[s.SellerID] = s
	}
	return r
}

func (r *memShopRepo) Upsert(_ context.Context, shops []sales.Shop) ([]sales.Shop, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sales.Shop, 0, len(shops))
	for _, s := range shops {
		if existing, ok := r.shops[s.SellerID]; ok {
			s.ID = existing.ID
		} else if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		r.shops[s.SellerID] = s
		out = append(out, s)
	}
	return out, nil
}

func (r *memShopRepo) FindAll(_ context.Context) ([]sales.Shop, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sales.Shop, 0, len(r.shops))
	for _, s := range r.shops {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SellerID < out[j].SellerID })
	return out, nil
}

func (r *memShopRepo) FindActive(ctx context.Context) ([]sales.Shop, error) {
	all, _ := r.FindAll(ctx)
	out := make([]sales.Shop, 0, len(all))
	for _, s := range all {
		if s.IsActive() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memShopRepo) FindBySellerID(_ context.Context, sellerID string) (*sales.Shop, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shops[sellerID]
	if !ok {
		return nil, sales.ErrShopNotFound
	}
	return &s, nil
}

type memSaleRepo struct {
	mu   sync.Mutex
	rows map[sales.SaleKey]sales.Sale
}

func newMemSaleRepo() *memSaleRepo {
	return &memSaleRepo{rows: map[sales.SaleKey]sales.Sale{}}
}

func (r *memSaleRepo) UpsertBatch(_ context.Context, rows []sales.Sale) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		r.rows[row.Key()] = row
	}
	return len(rows), nil
}

func (r *memSaleRepo) FindByRange(_ context.Context, filter sales.SalesFilter) ([]sales.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sales.Sale
	for _, row := range r.rows {
		if !row.Date.Before(filter.StartDate) && !row.Date.After(filter.EndDate) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memSaleRepo) MonthsWithSales(_ context.Context, months []sales.Month) ([]sales.Month, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sales.Month
	for _, m := range months {
		for _, row := range r.rows {
			if m.Contains(row.Date) {
				out = append(out, m)
				break
			}
		}
	}
	return out, nil
}

func (r *memSaleRepo) Totals(_ context.Context, _ sales.SalesFilter) ([]sales.SalesTotal, error) {
	return nil, nil
}

func (r *memSaleRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type memRateRepo struct {
	mu    sync.Mutex
	rates map[sales.Month][]sales.ExchangeRate
	err   error
}

func newMemRateRepo() *memRateRepo {
	return &memRateRepo{rates: map[sales.Month][]sales.ExchangeRate{}}
}

func (r *memRateRepo) UpsertBatch(_ context.Context, rates []sales.ExchangeRate) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	for _, rt := range rates {
		r.rates[rt.Month] = append(r.rates[rt.Month], rt)
	}
	return len(rates), nil
}

func (r *memRateRepo) FindByMonth(_ context.Context, month sales.Month) ([]sales.ExchangeRate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rates[month], nil
}

func (r *memRateRepo) FindByMonths(ctx context.Context, months []sales.Month) ([]sales.ExchangeRate, error) {
	var out []sales.ExchangeRate
	for _, m := range months {
		rates, _ := r.FindByMonth(ctx, m)
		out = append(out, rates...)
	}
	return out, nil
}

func (r *memRateRepo) MonthsPresent(_ context.Context, months []sales.Month) ([]sales.Month, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sales.Month
	for _, m := range months {
		if len(r.rates[m]) > 0 {
			out = append(out, m)
		}
	}
	return out, nil
}

type memRunRepo struct {
	mu   sync.Mutex
	runs []sales.SyncRun
}

func (r *memRunRepo) Save(_ context.Context, run *sales.SyncRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.runs {
		if r.runs[i].ID == run.ID {
			r.runs[i] = *run
			return nil
		}
	}
	r.runs = append(r.runs, *run)
	return nil
}

func (r *memRunRepo) Recent(_ context.Context, limit int) ([]sales.SyncRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sales.SyncRun, 0, len(r.runs))
	for i := len(r.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.runs[i])
	}
	return out, nil
}

// fixtures

type fixture struct {
	shops  *memShopRepo
	sales  *memSaleRepo
	rates  *memRateRepo
	runs   *memRunRepo
	source *MockSalesSource
	svc    *Service
}

func newFixture(now time.Time, opts ...Option) *fixture {
	f := &fixture{
		shops:  newMemShopRepo(),
		sales:  newMemSaleRepo(),
		rates:  newMemRateRepo(),
		runs:   &memRunRepo{},
		source: new(MockSalesSource),
	}
	opts = append([]Option{
		WithClock(func() time.Time { return now }),
		WithConfig(Config{Workers: 2, ReopenDays: 3, RateFetchAttempts: 3, RateRetryInterval: time.Millisecond}),
	}, opts...)
	f.svc = NewService(f.shops, f.sales, f.rates, f.runs, f.source, opts...)
	return f
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testShop(sellerID string) sales.Shop {
	shop, _ := sales.NewShop(sellerID, "Shop "+sellerID, "US", "USD")
	return *shop
}

func usdRate(month sales.Month, value string) []sales.ExchangeRate {
	return []sales.ExchangeRate{{
		Month:     month,
		Currency:  "USD",
		Rate:      decimal.RequireFromString(value),
		Source:    "test",
		FetchedAt: time.Now(),
	}}
}

func saleRow(d time.Time, amount int64) sales.Sale {
	return sales.Sale{Date: d, OrderCount: 1, UnitsSold: 1, SalesAmount: decimal.NewFromInt(amount)}
}

func forSeller(sellerID string) interface{} {
	return mock.MatchedBy(func(s sales.Shop) bool { return s.SellerID == sellerID })
}

var (
	jan = sales.NewMonth(2024, time.January)
	feb = sales.NewMonth(2024, time.February)
	mar = sales.NewMonth(2024, time.March)
)

func TestService_MissingMonths(t *testing.T) {
	f := newFixture(day(2024, 3, 15))
	_, err := f.rates.UpsertBatch(context.Background(), usdRate(feb, "7.1"))
	require.NoError(t, err)

	missing, err := f.svc.MissingMonths(context.Background(), []sales.Month{jan, feb, mar})
	require.NoError(t, err)
	assert.Equal(t, []sales.Month{jan, mar}, missing)

	missing, err = f.svc.MissingMonths(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, missing)

	wide, err := sales.MonthsBetween(day(1000, 1, 1), day(9999, 12, 31))
	require.NoError(t, err)
	_, err = f.svc.MissingMonths(context.Background(), wide)
	assert.ErrorIs(t, err, sales.ErrInvalidDateRange)
}

func TestService_SyncExchangeRates(t *testing.T) {
	t.Run("retries transient failures", func(t *testing.T) {
		f := newFixture(day(2024, 3, 15))
		f.source.On("FetchExchangeRates", mock.Anything, jan).Return(nil, errors.New("timeout")).Once()
		f.source.On("FetchExchangeRates", mock.Anything, jan).Return(usdRate(jan, "7.1"), nil).Once()

		n, err := f.svc.SyncExchangeRates(context.Background(), []sales.Month{jan})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		f.source.AssertNumberOfCalls(t, "FetchExchangeRates", 2)
	})

	t.Run("skips a month that keeps failing", func(t *testing.T) {
		f := newFixture(day(2024, 3, 15))
		f.source.On("FetchExchangeRates", mock.Anything, jan).Return(nil, errors.New("boom"))
		f.source.On("FetchExchangeRates", mock.Anything, feb).Return(usdRate(feb, "7.2"), nil)

		n, err := f.svc.SyncExchangeRates(context.Background(), []sales.Month{jan, feb})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		f.source.AssertNumberOfCalls(t, "FetchExchangeRates", 4)

		stored, _ := f.rates.FindByMonth(context.Background(), feb)
		assert.Len(t, stored, 1)
	})

	t.Run("fails when every month fails", func(t *testing.T) {
		f := newFixture(day(2024, 3, 15))
		f.source.On("FetchExchangeRates", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

		n, err := f.svc.SyncExchangeRates(context.Background(), []sales.Month{jan})
		assert.ErrorIs(t, err, ErrAllRateMonthsFailed)
		assert.Zero(t, n)
	})

	t.Run("stamps missing month and dedupes", func(t *testing.T) {
		f := newFixture(day(2024, 3, 15))
		older := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		f.source.On("FetchExchangeRates", mock.Anything, feb).Return([]sales.ExchangeRate{
			{Currency: "usd", Rate: decimal.RequireFromString("7.0"), FetchedAt: older},
			{Currency: "USD", Rate: decimal.RequireFromString("7.2"), FetchedAt: older.Add(time.Hour)},
		}, nil)

		_, err := f.svc.SyncExchangeRates(context.Background(), []sales.Month{feb})
		require.NoError(t, err)

		stored, _ := f.rates.FindByMonth(context.Background(), feb)
		require.Len(t, stored, 1)
		assert.Equal(t, feb, stored[0].Month)
		assert.True(t, decimal.RequireFromString("7.2").Equal(stored[0].Rate))
	})
}

func TestService_SyncShops(t *testing.T) {
	t.Run("stores remote shops and returns active ones", func(t *testing.T) {
		f := newFixture(day(2024, 3, 15))
		disabled := testShop("s2")
		disabled.Status = sales.ShopStatusDisabled
		f.source.On("ListShops", mock.Anything).Return([]sales.Shop{testShop("s1"), disabled}, nil)

		active, err := f.svc.SyncShops(context.Background())
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "s1", active[0].SellerID)

		all, _ := f.shops.FindAll(context.Background())
		assert.Len(t, all, 2)
	})

	t.Run("falls back to stored shops", func(t *testing.T) {
		f := newFixture(day(2024, 3, 15))
		_, _ = f.shops.Upsert(context.Background(), []sales.Shop{testShop("s9")})
		f.source.On("ListShops", mock.Anything).Return(nil, errors.New("unreachable"))

		active, err := f.svc.SyncShops(context.Background())
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "s9", active[0].SellerID)
	})
}

func TestService_SyncSalesMonth(t *testing.T) {
	t.Run("aggregates and upserts per shop", func(t *testing.T) {
		f := newFixture(day(2024, 3, 15))
		s1 := testShop("s1")
		f.source.On("FetchDailySales", mock.Anything, forSeller("s1"), feb).Return([]sales.Sale{
			saleRow(day(2024, 2, 3), 10),
			saleRow(day(2024, 2, 3).Add(6*time.Hour), 5),
			saleRow(day(2024, 2, 4), 7),
			saleRow(day(2024, 3, 1), 99), // outside the month
		}, nil)

		var callbackRows []sales.Sale
		f.svc.SetOnMonthSyncedCallback(func(_ context.Context, month sales.Month, rows []sales.Sale) error {
			assert.Equal(t, feb, month)
			callbackRows = rows
			return nil
		})

		n, failed, err := f.svc.SyncSalesMonth(context.Background(), feb, []sales.Shop{s1})
		require.NoError(t, err)
		assert.Empty(t, failed)
		assert.Equal(t, 2, n)
		require.Len(t, callbackRows, 2)
		assert.True(t, decimal.NewFromInt(15).Equal(callbackRows[0].SalesAmount))
		assert.Equal(t, "USD", callbackRows[0].Currency)
		assert.Equal(t, s1.ID, callbackRows[0].ShopID)
	})

	t.Run("failing shop does not stop the others", func(t *testing.T) {
		f := newFixture(day(2024, 3, 15))
		f.source.On("FetchDailySales", mock.Anything, forSeller("s1"), feb).Return([]sales.Sale{saleRow(day(2024, 2, 3), 10)}, nil)
		f.source.On("FetchDailySales", mock.Anything, forSeller("s2"), feb).Return(nil, errors.New("rate limited"))

		n, failed, err := f.svc.SyncSalesMonth(context.Background(), feb, []sales.Shop{testShop("s1"), testShop("s2")})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, []string{"s2"}, failed)
	})

	t.Run("every shop failing is an error", func(t *testing.T) {
		f := newFixture(day(2024, 3, 15))
		f.source.On("FetchDailySales", mock.Anything, mock.Anything, feb).Return(nil, errors.New("down"))

		_, failed, err := f.svc.SyncSalesMonth(context.Background(), feb, []sales.Shop{testShop("s1"), testShop("s2")})
		assert.ErrorIs(t, err, ErrAllShopsFailed)
		assert.Len(t, failed, 2)
	})

	t.Run("bounded concurrency", func(t *testing.T) {
		f := newFixture(day(2024, 3, 15))
		var inFlight, peak int32
		f.source.On("FetchDailySales", mock.Anything, mock.Anything, feb).
			Run(func(mock.Arguments) {
				cur := atomic.AddInt32(&inFlight, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
			}).
			Return([]sales.Sale{}, nil)

		shops := []sales.Shop{testShop("a"), testShop("b"), testShop("c"), testShop("d"), testShop("e"), testShop("f")}
		_, failed, err := f.svc.SyncSalesMonth(context.Background(), feb, shops)
		require.NoError(t, err)
		assert.Empty(t, failed)
		assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
		f.source.AssertNumberOfCalls(t, "FetchDailySales", 6)
	})
}

func TestService_GetData(t *testing.T) {
	t.Run("syncs missing and open months only", func(t *testing.T) {
		// March 2nd: February is still inside the reopen window
		f := newFixture(day(2024, 3, 2))
		ctx := context.Background()
		_, _ = f.rates.UpsertBatch(ctx, usdRate(jan, "7.0"))
		_, _ = f.sales.UpsertBatch(ctx, []sales.Sale{{SellerID: "s1", Date: day(2024, 1, 10), Currency: "USD"}})

		f.source.On("FetchExchangeRates", mock.Anything, feb).Return(usdRate(feb, "7.1"), nil)
		f.source.On("FetchExchangeRates", mock.Anything, mar).Return(usdRate(mar, "7.2"), nil)
		f.source.On("ListShops", mock.Anything).Return([]sales.Shop{testShop("s1")}, nil)
		f.source.On("FetchDailySales", mock.Anything, forSeller("s1"), feb).Return([]sales.Sale{saleRow(day(2024, 2, 1), 1)}, nil)
		f.source.On("FetchDailySales", mock.Anything, forSeller("s1"), mar).Return([]sales.Sale{saleRow(day(2024, 3, 1), 1)}, nil)

		run, err := f.svc.GetData(ctx, GetDataRequest{Start: day(2024, 1, 1), End: day(2024, 3, 31)})
		require.NoError(t, err)
		assert.Equal(t, sales.SyncRunStatusSuccess, run.Status)
		assert.Equal(t, sales.SyncTriggerManual, run.Trigger)
		assert.Equal(t, 2, run.RateMonthsSynced)
		assert.Equal(t, []sales.Month{feb, mar}, run.SalesMonths)
		assert.Equal(t, 2, run.SalesRowsUpserted)
		assert.Equal(t, 3, f.sales.count())

		f.source.AssertNotCalled(t, "FetchExchangeRates", mock.Anything, jan)
		f.source.AssertNotCalled(t, "FetchDailySales", mock.Anything, mock.Anything, jan)

		recent, err := f.svc.RecentRuns(ctx, 10)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, sales.SyncRunStatusSuccess, recent[0].Status)
		assert.False(t, f.svc.IsRunning())
	})

	t.Run("closed month with data is skipped after the window", func(t *testing.T) {
		f := newFixture(day(2024, 3, 20))
		ctx := context.Background()
		_, _ = f.rates.UpsertBatch(ctx, usdRate(feb, "7.1"))
		_, _ = f.rates.UpsertBatch(ctx, usdRate(mar, "7.2"))
		_, _ = f.sales.UpsertBatch(ctx, []sales.Sale{{SellerID: "s1", Date: day(2024, 2, 10), Currency: "USD"}})

		f.source.On("ListShops", mock.Anything).Return([]sales.Shop{testShop("s1")}, nil)
		f.source.On("FetchDailySales", mock.Anything, forSeller("s1"), mar).Return([]sales.Sale{}, nil)

		run, err := f.svc.GetData(ctx, GetDataRequest{Start: day(2024, 2, 1), End: day(2024, 4, 30), Trigger: sales.SyncTriggerScheduled})
		require.NoError(t, err)
		assert.Equal(t, []sales.Month{mar}, run.SalesMonths)
		assert.Zero(t, run.RateMonthsSynced)
		f.source.AssertNotCalled(t, "FetchExchangeRates", mock.Anything, mock.Anything)
	})

	t.Run("force re-syncs everything", func(t *testing.T) {
		f := newFixture(day(2024, 3, 20))
		ctx := context.Background()
		_, _ = f.rates.UpsertBatch(ctx, usdRate(feb, "7.1"))
		_, _ = f.sales.UpsertBatch(ctx, []sales.Sale{{SellerID: "s1", Date: day(2024, 2, 10), Currency: "USD"}})

		f.source.On("FetchExchangeRates", mock.Anything, feb).Return(usdRate(feb, "7.15"), nil)
		f.source.On("ListShops", mock.Anything).Return([]sales.Shop{testShop("s1")}, nil)
		f.source.On("FetchDailySales", mock.Anything, forSeller("s1"), feb).Return([]sales.Sale{saleRow(day(2024, 2, 10), 3)}, nil)

		run, err := f.svc.GetData(ctx, GetDataRequest{Start: day(2024, 2, 1), End: day(2024, 2, 29), Force: true})
		require.NoError(t, err)
		assert.Equal(t, 1, run.RateMonthsSynced)
		assert.Equal(t, []sales.Month{feb}, run.SalesMonths)
	})

	t.Run("shop failures make the run partial", func(t *testing.T) {
		f := newFixture(day(2024, 3, 20))
		f.source.On("FetchExchangeRates", mock.Anything, mar).Return(usdRate(mar, "7.2"), nil)
		f.source.On("ListShops", mock.Anything).Return([]sales.Shop{testShop("s1"), testShop("s2")}, nil)
		f.source.On("FetchDailySales", mock.Anything, forSeller("s1"), mar).Return([]sales.Sale{saleRow(day(2024, 3, 5), 3)}, nil)
		f.source.On("FetchDailySales", mock.Anything, forSeller("s2"), mar).Return(nil, errors.New("denied"))

		var completed *sales.SyncRun
		f.svc.SetOnRunCompletedCallback(func(_ context.Context, run *sales.SyncRun) error {
			completed = run
			return nil
		})

		run, err := f.svc.GetData(context.Background(), GetDataRequest{Start: day(2024, 3, 1), End: day(2024, 3, 20)})
		require.NoError(t, err)
		assert.Equal(t, sales.SyncRunStatusPartial, run.Status)
		assert.Equal(t, []string{"s2"}, run.FailedShops)
		assert.Same(t, run, completed)
	})

	t.Run("rejects an inverted range", func(t *testing.T) {
		f := newFixture(day(2024, 3, 20))
		_, err := f.svc.GetData(context.Background(), GetDataRequest{Start: day(2024, 3, 2), End: day(2024, 3, 1)})
		assert.ErrorIs(t, err, sales.ErrInvalidDateRange)
	})

	t.Run("rejects a range wider than the month limit", func(t *testing.T) {
		f := newFixture(day(2024, 3, 20), WithConfig(Config{MaxMonths: 3}))

		_, err := f.svc.GetData(context.Background(), GetDataRequest{Start: day(2023, 12, 1), End: day(2024, 3, 1)})
		assert.ErrorIs(t, err, sales.ErrInvalidDateRange)
		assert.Empty(t, f.runs.runs)
		f.source.AssertNotCalled(t, "FetchExchangeRates", mock.Anything, mock.Anything)

		_, err = f.svc.GetData(context.Background(), GetDataRequest{Start: day(1000, 1, 1), End: day(9999, 12, 31)})
		assert.ErrorIs(t, err, sales.ErrInvalidDateRange)
	})

	t.Run("rejects a concurrent run", func(t *testing.T) {
		f := newFixture(day(2024, 3, 20))
		f.svc.running.Store(true)
		_, err := f.svc.GetData(context.Background(), GetDataRequest{Start: day(2024, 3, 1), End: day(2024, 3, 2)})
		assert.ErrorIs(t, err, sales.ErrSyncInProgress)
	})

	t.Run("cancelled context fails the run", func(t *testing.T) {
		f := newFixture(day(2024, 3, 20))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		run, err := f.svc.GetData(ctx, GetDataRequest{Start: day(2024, 3, 1), End: day(2024, 3, 2)})
		assert.ErrorIs(t, err, context.Canceled)
		require.NotNil(t, run)
		assert.Equal(t, sales.SyncRunStatusFailed, run.Status)

		recent, _ := f.runs.Recent(context.Background(), 1)
		require.Len(t, recent, 1)
		assert.Equal(t, sales.SyncRunStatusFailed, recent[0].Status)
	})
}
