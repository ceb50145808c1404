// Package salesync synchronizes monthly exchange rates and daily shop sales from the
// ERP into the dashboard database.
package salesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sellerdash/backend/internal/domain/sales"
	"github.com/sellerdash/backend/internal/infrastructure/logger"
)

// ErrAllShopsFailed is returned when no shop of a month could be synchronized
var ErrAllShopsFailed = errors.New("salesync: every shop failed")

// ErrAllRateMonthsFailed is returned when no requested month's rates could be stored
var ErrAllRateMonthsFailed = errors.New("salesync: exchange rates failed for every month")

// MetricsRecorder receives sync measurements
type MetricsRecorder interface {
	RecordRun(ctx context.Context, run *sales.SyncRun)
	RecordShopFailure(ctx context.Context, sellerID string)
}

// GetDataRequest describes one synchronization request
type GetDataRequest struct {
	Start   time.Time
	End     time.Time
	Force   bool // re-sync every month of the range, even those already stored
	Trigger sales.SyncTrigger
}

// Service synchronizes exchange rates and sales from a SalesSource into the repositories
type Service struct {
	shops  sales.ShopRepository
	sales  sales.SaleRepository
	rates  sales.ExchangeRateRepository
	runs   sales.SyncRunRepository
	source sales.SalesSource

	config  Config
	logger  *zap.Logger
	now     func() time.Time
	metrics MetricsRecorder

	running atomic.Bool

	// Callback handlers (optional)
	onMonthSynced  func(ctx context.Context, month sales.Month, rows []sales.Sale) error
	onRunCompleted func(ctx context.Context, run *sales.SyncRun) error
}

// NewService creates a new sync service
func NewService(
	shops sales.ShopRepository,
	saleRepo sales.SaleRepository,
	rates sales.ExchangeRateRepository,
	runs sales.SyncRunRepository,
	source sales.SalesSource,
	opts ...Option,
) *Service {
	s := &Service{
		shops:  shops,
		sales:  saleRepo,
		rates:  rates,
		runs:   runs,
		source: source,
		config: DefaultConfig(),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetOnMonthSyncedCallback sets the callback invoked after a month's sales are stored
func (s *Service) SetOnMonthSyncedCallback(cb func(ctx context.Context, month sales.Month, rows []sales.Sale) error) {
	s.onMonthSynced = cb
}

// SetOnRunCompletedCallback sets the callback invoked after a run finished
func (s *Service) SetOnRunCompletedCallback(cb func(ctx context.Context, run *sales.SyncRun) error) {
	s.onRunCompleted = cb
}

// IsRunning reports whether a GetData call is in progress
func (s *Service) IsRunning() bool {
	return s.running.Load()
}

// ---------------------------------------------------------------------------
// Exchange rates
// ---------------------------------------------------------------------------

// MissingMonths returns the months for which no exchange rate is stored, in input order
func (s *Service) MissingMonths(ctx context.Context, months []sales.Month) ([]sales.Month, error) {
	if len(months) == 0 {
		return nil, nil
	}
	if err := s.checkSpan(months); err != nil {
		return nil, err
	}
	present, err := s.rates.MonthsPresent(ctx, months)
	if err != nil {
		return nil, fmt.Errorf("failed to check stored exchange rates: %w", err)
	}
	return subtractMonths(months, present), nil
}

// SyncExchangeRates fetches, de-duplicates and stores the rates of each month.
// It returns how many months were written; a month that keeps failing is skipped.
func (s *Service) SyncExchangeRates(ctx context.Context, months []sales.Month) (int, error) {
	synced, failed := s.syncRates(ctx, months)
	if err := ctx.Err(); err != nil {
		return synced, err
	}
	if len(months) > 0 && synced == 0 && len(failed) == len(months) {
		return 0, ErrAllRateMonthsFailed
	}
	return synced, nil
}

func (s *Service) syncRates(ctx context.Context, months []sales.Month) (int, []sales.Month) {
	synced := 0
	var failed []sales.Month

	for _, month := range months {
		if ctx.Err() != nil {
			failed = append(failed, month)
			continue
		}

		rates, err := s.fetchRatesWithRetry(ctx, month)
		if err != nil {
			s.logger.Error("Failed to fetch exchange rates",
				zap.String("month", month.String()),
				zap.Error(err),
			)
			failed = append(failed, month)
			continue
		}

		for i := range rates {
			if rates[i].Month.IsZero() {
				rates[i].Month = month
			}
		}
		rates = sales.DedupeRates(rates)
		if len(rates) == 0 {
			s.logger.Warn("ERP returned no usable exchange rates", zap.String("month", month.String()))
			failed = append(failed, month)
			continue
		}

		n, err := s.rates.UpsertBatch(ctx, rates)
		if err != nil {
			s.logger.Error("Failed to store exchange rates",
				zap.String("month", month.String()),
				zap.Error(err),
			)
			failed = append(failed, month)
			continue
		}

		s.logger.Info("Exchange rates synchronized",
			zap.String("month", month.String()),
			zap.Int("currencies", n),
		)
		synced++
	}
	return synced, failed
}

// fetchRatesWithRetry retries the rate fetch with exponential backoff
func (s *Service) fetchRatesWithRetry(ctx context.Context, month sales.Month) ([]sales.ExchangeRate, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.config.RateRetryInterval
	eb.MaxInterval = 30 * time.Second
	eb.MaxElapsedTime = 0

	attempts := s.config.RateFetchAttempts
	if attempts < 1 {
		attempts = 1
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)

	var rates []sales.ExchangeRate
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		r, err := s.source.FetchExchangeRates(ctx, month)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			s.logger.Warn("Exchange rate fetch failed, retrying",
				zap.String("month", month.String()),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		rates = r
		return nil
	}, policy)
	if err != nil {
		return nil, err
	}
	return rates, nil
}

// ---------------------------------------------------------------------------
// Shops and sales
// ---------------------------------------------------------------------------

// SyncShops refreshes the shop list from the ERP and returns the active shops.
// If the ERP cannot be reached, the stored active shops are returned instead.
func (s *Service) SyncShops(ctx context.Context) ([]sales.Shop, error) {
	remote, err := s.source.ListShops(ctx)
	if err != nil {
		s.logger.Warn("Failed to list shops from ERP, using stored shops", zap.Error(err))
		return s.shops.FindActive(ctx)
	}

	stored, err := s.shops.Upsert(ctx, remote)
	if err != nil {
		return nil, fmt.Errorf("failed to store shops: %w", err)
	}

	active := make([]sales.Shop, 0, len(stored))
	for _, shop := range stored {
		if shop.IsActive() {
			active = append(active, shop)
		}
	}
	s.logger.Info("Shops synchronized",
		zap.Int("total", len(stored)),
		zap.Int("active", len(active)),
	)
	return active, nil
}

// SyncSalesMonth fetches one month of sales for every shop with a bounded pool of
// workers and upserts them. A failing shop is logged and reported, never stopping
// the others. The error is set when the context ends or every shop failed.
func (s *Service) SyncSalesMonth(ctx context.Context, month sales.Month, shops []sales.Shop) (int, []string, error) {
	var (
		mu          sync.Mutex
		upserted    int
		failedShops []string
		monthRows   []sales.Sale
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)

	for _, shop := range shops {
		shop := shop
		if !shop.IsActive() {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			rows, n, err := s.syncShopMonth(gctx, shop, month)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Error("Failed to synchronize shop sales",
					zap.String("seller_id", shop.SellerID),
					zap.String("shop", shop.Name),
					zap.String("month", month.String()),
					zap.Error(err),
				)
				failedShops = append(failedShops, shop.SellerID)
				if s.metrics != nil {
					s.metrics.RecordShopFailure(ctx, shop.SellerID)
				}
				return nil
			}
			upserted += n
			monthRows = append(monthRows, rows...)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return upserted, failedShops, err
	}

	attempted := 0
	for _, shop := range shops {
		if shop.IsActive() {
			attempted++
		}
	}
	if attempted > 0 && len(failedShops) == attempted {
		return 0, failedShops, fmt.Errorf("%w: %s", ErrAllShopsFailed, month)
	}

	s.logger.Info("Sales month synchronized",
		zap.String("month", month.String()),
		zap.Int("shops", attempted),
		zap.Int("rows", upserted),
		zap.Int("failed_shops", len(failedShops)),
	)

	if s.onMonthSynced != nil {
		if err := s.onMonthSynced(ctx, month, sales.AggregateDaily(monthRows)); err != nil {
			s.logger.Warn("Month synced callback failed",
				zap.String("month", month.String()),
				zap.Error(err),
			)
		}
	}

	return upserted, failedShops, nil
}

// syncShopMonth fetches, normalizes and stores one shop's month
func (s *Service) syncShopMonth(ctx context.Context, shop sales.Shop, month sales.Month) ([]sales.Sale, int, error) {
	raw, err := s.source.FetchDailySales(ctx, shop, month)
	if err != nil {
		return nil, 0, err
	}

	syncedAt := s.now()
	rows := make([]sales.Sale, 0, len(raw))
	for _, r := range raw {
		r.ShopID = shop.ID
		r.SellerID = shop.SellerID
		if r.Currency == "" {
			r.Currency = shop.Currency
		}
		r.Date = sales.TruncateToDay(r.Date)
		if !month.Contains(r.Date) {
			continue
		}
		if r.SyncedAt.IsZero() {
			r.SyncedAt = syncedAt
		}
		if err := r.Validate(); err != nil {
			s.logger.Warn("Skipping invalid sales row",
				zap.String("seller_id", shop.SellerID),
				zap.Time("date", r.Date),
				zap.Error(err),
			)
			continue
		}
		rows = append(rows, r)
	}

	rows = sales.AggregateDaily(rows)
	if len(rows) == 0 {
		return nil, 0, nil
	}

	n, err := s.sales.UpsertBatch(ctx, rows)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to store sales: %w", err)
	}
	return rows, n, nil
}

// ---------------------------------------------------------------------------
// Orchestration
// ---------------------------------------------------------------------------

// GetData synchronizes everything the dashboard needs for [Start, End]:
// exchange rates for months that have none, the shop list, and the sales of every
// month that is missing or still open. Force re-syncs every month of the range.
// Shop and month failures are recorded on the returned run, not returned as errors.
func (s *Service) GetData(ctx context.Context, req GetDataRequest) (*sales.SyncRun, error) {
	months, err := sales.MonthsBetween(req.Start, req.End)
	if err != nil {
		return nil, err
	}
	if err := s.checkSpan(months); err != nil {
		return nil, err
	}

	if !s.running.CompareAndSwap(false, true) {
		return nil, sales.ErrSyncInProgress
	}
	defer s.running.Store(false)

	trigger := req.Trigger
	if trigger == "" {
		trigger = sales.SyncTriggerManual
	}
	run := sales.NewSyncRun(trigger, req.Start, req.End, months)
	s.saveRun(ctx, run)

	ctx, log := logger.WithRunID(ctx, s.logger, run.ID.String())
	log.Info("Starting data synchronization",
		zap.Strings("months", sales.MonthStrings(months)),
		zap.Bool("force", req.Force),
		zap.String("trigger", string(trigger)),
	)

	if err := s.runSync(ctx, run, months, req.Force); err != nil {
		run.Fail(err)
		s.finishRun(ctx, run)
		log.Error("Data synchronization failed", zap.Error(err))
		return run, err
	}

	run.Complete()
	s.finishRun(ctx, run)

	log.Info("Data synchronization completed",
		zap.String("status", string(run.Status)),
		zap.Int("rate_months", run.RateMonthsSynced),
		zap.Int("sales_rows", run.SalesRowsUpserted),
		zap.Strings("failed_shops", run.FailedShops),
		zap.Duration("duration", run.Duration()),
	)
	return run, nil
}

func (s *Service) runSync(ctx context.Context, run *sales.SyncRun, months []sales.Month, force bool) error {
	months = s.startedMonths(months)

	rateMonths := months
	if !force {
		missing, err := s.MissingMonths(ctx, months)
		if err != nil {
			return err
		}
		rateMonths = missing
	}
	synced, failedRateMonths := s.syncRates(ctx, rateMonths)
	run.RateMonthsSynced = synced
	run.FailedMonths = append(run.FailedMonths, failedRateMonths...)
	if err := ctx.Err(); err != nil {
		return err
	}

	shops, err := s.SyncShops(ctx)
	if err != nil {
		return err
	}

	salesMonths, err := s.salesMonths(ctx, months, force)
	if err != nil {
		return err
	}
	run.SalesMonths = salesMonths

	for _, month := range salesMonths {
		n, failedShops, err := s.SyncSalesMonth(ctx, month, shops)
		run.SalesRowsUpserted += n
		run.FailedShops = appendUnique(run.FailedShops, failedShops...)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			run.FailedMonths = append(run.FailedMonths, month)
		}
	}
	return nil
}

// checkSpan rejects month lists longer than MaxMonths
func (s *Service) checkSpan(months []sales.Month) error {
	if len(months) > s.config.MaxMonths {
		return fmt.Errorf("%w: %d months exceeds the limit of %d",
			sales.ErrInvalidDateRange, len(months), s.config.MaxMonths)
	}
	return nil
}

// startedMonths drops months that have not begun yet
func (s *Service) startedMonths(months []sales.Month) []sales.Month {
	current := sales.MonthOf(s.now().UTC())
	started := make([]sales.Month, 0, len(months))
	for _, m := range months {
		if current.Before(m) {
			s.logger.Debug("Skipping future month", zap.String("month", m.String()))
			continue
		}
		started = append(started, m)
	}
	return started
}

// salesMonths picks the months whose sales must be fetched: months without stored
// rows and months still open for restatement.
func (s *Service) salesMonths(ctx context.Context, started []sales.Month, force bool) ([]sales.Month, error) {
	now := s.now().UTC()
	if force {
		return started, nil
	}

	stored, err := s.sales.MonthsWithSales(ctx, started)
	if err != nil {
		return nil, fmt.Errorf("failed to check stored sales: %w", err)
	}
	have := make(map[sales.Month]bool, len(stored))
	for _, m := range stored {
		have[m] = true
	}

	out := make([]sales.Month, 0, len(started))
	for _, m := range started {
		if !have[m] || s.isOpen(m, now) {
			out = append(out, m)
		}
	}
	return out, nil
}

// isOpen reports whether a month may still change on the ERP side
func (s *Service) isOpen(m sales.Month, now time.Time) bool {
	current := sales.MonthOf(now)
	if m == current {
		return true
	}
	return m == current.Prev() && now.Day() <= s.config.ReopenDays
}

// RecentRuns returns the latest sync runs, newest first
func (s *Service) RecentRuns(ctx context.Context, limit int) ([]sales.SyncRun, error) {
	if limit <= 0 || limit > s.config.RunHistoryLimit {
		limit = s.config.RunHistoryLimit
	}
	return s.runs.Recent(ctx, limit)
}

func (s *Service) saveRun(ctx context.Context, run *sales.SyncRun) {
	if err := s.runs.Save(ctx, run); err != nil {
		s.logger.Warn("Failed to save sync run",
			zap.String("run_id", run.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) finishRun(ctx context.Context, run *sales.SyncRun) {
	// The run record must be written even when ctx was cancelled
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	s.saveRun(saveCtx, run)

	if s.metrics != nil {
		s.metrics.RecordRun(saveCtx, run)
	}
	if s.onRunCompleted != nil {
		if err := s.onRunCompleted(saveCtx, run); err != nil {
			s.logger.Warn("Run completed callback failed",
				zap.String("run_id", run.ID.String()),
				zap.Error(err),
			)
		}
	}
}

func subtractMonths(all, remove []sales.Month) []sales.Month {
	skip := make(map[sales.Month]bool, len(remove))
	for _, m := range remove {
		skip[m] = true
	}
	out := make([]sales.Month, 0, len(all))
	for _, m := range all {
		if !skip[m] {
			out = append(out, m)
		}
	}
	return out
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, d := range dst {
			if d == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}
