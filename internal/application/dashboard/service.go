// Package dashboard answers the read queries of the sales dashboard: totals per shop
// and month, daily trends and exchange rates, converted to the base currency.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sellerdash/backend/internal/domain/sales"
)

// CachePrefix prefixes every cache key written by the dashboard
const CachePrefix = "dashboard:"

// DefaultCacheTTL is how long a cached query result is served
const DefaultCacheTTL = 5 * time.Minute

// MaxRangeDays is the widest date range a dashboard query may span
const MaxRangeDays = 366

// SummaryCache stores query results
type SummaryCache interface {
	// Get loads a cached value into dest and reports whether it was found
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// DeletePrefix removes every key starting with prefix
	DeletePrefix(ctx context.Context, prefix string) error
}

// Service serves dashboard queries
type Service struct {
	shops  sales.ShopRepository
	sales  sales.SaleRepository
	rates  sales.ExchangeRateRepository
	cache  SummaryCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewService creates a dashboard service. cache may be nil.
func NewService(
	shops sales.ShopRepository,
	saleRepo sales.SaleRepository,
	rates sales.ExchangeRateRepository,
	cache SummaryCache,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		shops:  shops,
		sales:  saleRepo,
		rates:  rates,
		cache:  cache,
		ttl:    DefaultCacheTTL,
		logger: logger,
	}
}

// SetCacheTTL overrides the cache TTL
func (s *Service) SetCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		s.ttl = ttl
	}
}

// SalesSummary returns per shop and month totals in native currency, plus base
// currency conversions. A month without a rate for a currency is listed in
// MissingRates and left out of the converted totals.
func (s *Service) SalesSummary(ctx context.Context, filter Filter) (*SalesSummary, error) {
	filter, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}

	key := cacheKey("summary", filter)
	var cached SalesSummary
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	totals, err := s.sales.Totals(ctx, sales.SalesFilter(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sales: %w", err)
	}
	tables, err := s.rateTables(ctx, filter)
	if err != nil {
		return nil, err
	}
	shopIndex, err := s.shopIndex(ctx)
	if err != nil {
		return nil, err
	}

	summary := &SalesSummary{
		StartDate:    filter.StartDate,
		EndDate:      filter.EndDate,
		BaseCurrency: sales.BaseCurrency,
		Rows:         make([]ShopMonthSummary, 0, len(totals)),
		SalesTotal:   decimal.Zero,
		RefundTotal:  decimal.Zero,
		AdSpendTotal: decimal.Zero,
		NetTotal:     decimal.Zero,
		MissingRates: []MissingRate{},
	}
	missing := newMissingSet()

	for _, t := range totals {
		net := t.SalesAmount.Sub(t.RefundAmount)
		row := ShopMonthSummary{
			SellerID:     t.SellerID,
			Month:        t.Month,
			Currency:     t.Currency,
			OrderCount:   t.OrderCount,
			UnitsSold:    t.UnitsSold,
			SalesAmount:  t.SalesAmount,
			RefundAmount: t.RefundAmount,
			AdSpend:      t.AdSpend,
			NetAmount:    net,
			SalesDisplay: FormatAmount(t.SalesAmount, t.Currency),
			NetDisplay:   FormatAmount(net, t.Currency),
		}
		if shop, ok := shopIndex[t.SellerID]; ok {
			row.ShopName = shop.Name
			row.Marketplace = shop.Marketplace
		}

		summary.OrderCount += t.OrderCount
		summary.UnitsSold += t.UnitsSold

		rate, err := tableFor(tables, t.Month).Rate(t.Currency)
		if err != nil {
			missing.add(t.Month, t.Currency)
			summary.Rows = append(summary.Rows, row)
			continue
		}
		salesBase := t.SalesAmount.Mul(rate)
		netBase := net.Mul(rate)
		row.Rate = &rate
		row.SalesBase = &salesBase
		row.NetBase = &netBase

		summary.SalesTotal = summary.SalesTotal.Add(salesBase)
		summary.RefundTotal = summary.RefundTotal.Add(t.RefundAmount.Mul(rate))
		summary.AdSpendTotal = summary.AdSpendTotal.Add(t.AdSpend.Mul(rate))
		summary.NetTotal = summary.NetTotal.Add(netBase)
		summary.Rows = append(summary.Rows, row)
	}

	sort.SliceStable(summary.Rows, func(i, j int) bool {
		a, b := summary.Rows[i], summary.Rows[j]
		if a.Month != b.Month {
			return a.Month.Before(b.Month)
		}
		return a.SellerID < b.SellerID
	})
	summary.MissingRates = missing.list()
	summary.SalesTotalDisplay = FormatAmount(summary.SalesTotal, summary.BaseCurrency)
	summary.NetTotalDisplay = FormatAmount(summary.NetTotal, summary.BaseCurrency)

	s.cacheSet(ctx, key, summary)
	return summary, nil
}

// DailyTrend returns one point per day of the range with base currency totals across
// shops. Days without sales are zero.
func (s *Service) DailyTrend(ctx context.Context, filter Filter) (*SalesTrend, error) {
	filter, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}

	key := cacheKey("trend", filter)
	var cached SalesTrend
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	rows, err := s.sales.FindByRange(ctx, sales.SalesFilter(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}
	tables, err := s.rateTables(ctx, filter)
	if err != nil {
		return nil, err
	}

	points := make([]TrendPoint, 0)
	index := make(map[time.Time]int)
	for d := filter.StartDate; !d.After(filter.EndDate); d = d.AddDate(0, 0, 1) {
		index[d] = len(points)
		points = append(points, TrendPoint{Date: d, Sales: decimal.Zero, Net: decimal.Zero})
	}

	missing := newMissingSet()
	for _, r := range rows {
		i, ok := index[sales.TruncateToDay(r.Date)]
		if !ok {
			continue
		}
		p := &points[i]
		p.OrderCount += int64(r.OrderCount)
		p.UnitsSold += int64(r.UnitsSold)

		month := sales.MonthOf(r.Date)
		rate, err := tableFor(tables, month).Rate(r.Currency)
		if err != nil {
			missing.add(month, r.Currency)
			continue
		}
		p.Sales = p.Sales.Add(r.SalesAmount.Mul(rate))
		p.Net = p.Net.Add(r.NetAmount().Mul(rate))
	}

	trend := &SalesTrend{
		BaseCurrency: sales.BaseCurrency,
		Points:       points,
		MissingRates: missing.list(),
	}
	s.cacheSet(ctx, key, trend)
	return trend, nil
}

// ListRates returns the stored rates of a month
func (s *Service) ListRates(ctx context.Context, month sales.Month) ([]sales.ExchangeRate, error) {
	if month.IsZero() {
		return nil, sales.ErrInvalidMonth
	}
	return s.rates.FindByMonth(ctx, month)
}

// ListShops returns every known shop
func (s *Service) ListShops(ctx context.Context) ([]sales.Shop, error) {
	return s.shops.FindAll(ctx)
}

// Invalidate drops every cached dashboard result
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.DeletePrefix(ctx, CachePrefix)
}

func (s *Service) rateTables(ctx context.Context, filter Filter) (map[sales.Month]*sales.RateTable, error) {
	months, err := sales.MonthsBetween(filter.StartDate, filter.EndDate)
	if err != nil {
		return nil, err
	}
	rates, err := s.rates.FindByMonths(ctx, months)
	if err != nil {
		return nil, fmt.Errorf("failed to load exchange rates: %w", err)
	}
	tables := make(map[sales.Month]*sales.RateTable, len(months))
	for _, m := range months {
		tables[m] = sales.NewRateTable(m, rates)
	}
	return tables, nil
}

func (s *Service) shopIndex(ctx context.Context) (map[string]sales.Shop, error) {
	shops, err := s.shops.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load shops: %w", err)
	}
	index := make(map[string]sales.Shop, len(shops))
	for _, shop := range shops {
		index[shop.SellerID] = shop
	}
	return index, nil
}

func (s *Service) cacheGet(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	found, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("Dashboard cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return found
}

func (s *Service) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("Dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func tableFor(tables map[sales.Month]*sales.RateTable, m sales.Month) *sales.RateTable {
	if t, ok := tables[m]; ok {
		return t
	}
	return sales.NewRateTable(m, nil)
}

func normalizeFilter(f Filter) (Filter, error) {
	if f.StartDate.IsZero() || f.EndDate.IsZero() {
		return f, fmt.Errorf("%w: start and end dates are required", sales.ErrInvalidDateRange)
	}
	f.StartDate = sales.TruncateToDay(f.StartDate)
	f.EndDate = sales.TruncateToDay(f.EndDate)
	if f.EndDate.Before(f.StartDate) {
		return f, sales.ErrInvalidDateRange
	}
	if f.EndDate.Sub(f.StartDate) >= MaxRangeDays*24*time.Hour {
		return f, fmt.Errorf("%w: ranges are limited to %d days", sales.ErrInvalidDateRange, MaxRangeDays)
	}
	ids := make([]string, 0, len(f.SellerIDs))
	for _, id := range f.SellerIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	f.SellerIDs = ids
	return f, nil
}

func cacheKey(kind string, f Filter) string {
	return fmt.Sprintf("%s%s:%s:%s:%s",
		CachePrefix, kind,
		f.StartDate.Format("2006-01-02"),
		f.EndDate.Format("2006-01-02"),
		strings.Join(f.SellerIDs, ","),
	)
}

type missingSet struct {
	seen map[MissingRate]bool
	out  []MissingRate
}

func newMissingSet() *missingSet {
	return &missingSet{seen: map[MissingRate]bool{}, out: []MissingRate{}}
}

func (m *missingSet) add(month sales.Month, currency string) {
	key := MissingRate{Month: month, Currency: sales.NormalizeCurrency(currency)}
	if m.seen[key] {
		return
	}
	m.seen[key] = true
	m.out = append(m.out, key)
}

func (m *missingSet) list() []MissingRate {
	sort.Slice(m.out, func(i, j int) bool {
		if m.out[i].Month != m.out[j].Month {
			return m.out[i].Month.Before(m.out[j].Month)
		}
		return m.out[i].Currency < m.out[j].Currency
	})
	return m.out
}
