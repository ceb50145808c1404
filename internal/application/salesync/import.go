package salesync

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/sellerdash/backend/internal/domain/sales"
	"github.com/sellerdash/backend/internal/infrastructure/logger"
)

// ImportResult summarizes an offline sales import
type ImportResult struct {
	Run *sales.SyncRun
	// UnknownSellers lists seller IDs without a stored shop; their rows were skipped
	UnknownSellers []string
	SkippedRows    int
}

// ImportSales stores sales rows obtained outside the ERP API, such as a CSV
// export. Rows are matched to stored shops by seller ID, aggregated per day and
// upserted. The import is recorded as a CLI sync run and every touched month is
// handed to the month synced callback.
func (s *Service) ImportSales(ctx context.Context, rows []sales.Sale) (*ImportResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, sales.ErrSyncInProgress
	}
	defer s.running.Store(false)

	shops, err := s.shops.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load shops: %w", err)
	}
	bySeller := make(map[string]sales.Shop, len(shops))
	for _, shop := range shops {
		bySeller[shop.SellerID] = shop
	}

	result := &ImportResult{}
	unknown := make(map[string]bool)
	syncedAt := s.now()
	kept := make([]sales.Sale, 0, len(rows))
	for _, r := range rows {
		shop, ok := bySeller[r.SellerID]
		if !ok {
			unknown[r.SellerID] = true
			result.SkippedRows++
			continue
		}
		r.ShopID = shop.ID
		if r.Currency == "" {
			r.Currency = shop.Currency
		}
		r.Date = sales.TruncateToDay(r.Date)
		if r.SyncedAt.IsZero() {
			r.SyncedAt = syncedAt
		}
		if err := r.Validate(); err != nil {
			result.SkippedRows++
			continue
		}
		kept = append(kept, r)
	}
	for id := range unknown {
		result.UnknownSellers = append(result.UnknownSellers, id)
	}
	sort.Strings(result.UnknownSellers)

	kept = sales.AggregateDaily(kept)
	if len(kept) == 0 {
		return result, nil
	}

	start, end := kept[0].Date, kept[0].Date
	byMonth := make(map[sales.Month][]sales.Sale)
	for _, r := range kept {
		if r.Date.Before(start) {
			start = r.Date
		}
		if r.Date.After(end) {
			end = r.Date
		}
		m := sales.MonthOf(r.Date)
		byMonth[m] = append(byMonth[m], r)
	}
	months, err := sales.MonthsBetween(start, end)
	if err != nil {
		return nil, err
	}

	run := sales.NewSyncRun(sales.SyncTriggerCLI, start, end, months)
	result.Run = run
	s.saveRun(ctx, run)
	ctx, log := logger.WithRunID(ctx, s.logger, run.ID.String())

	n, err := s.sales.UpsertBatch(ctx, kept)
	if err != nil {
		err = fmt.Errorf("failed to store sales: %w", err)
		run.Fail(err)
		s.finishRun(ctx, run)
		return result, err
	}
	run.SalesRowsUpserted = n
	for _, m := range months {
		monthRows, ok := byMonth[m]
		if !ok {
			continue
		}
		run.SalesMonths = append(run.SalesMonths, m)
		if s.onMonthSynced != nil {
			if err := s.onMonthSynced(ctx, m, monthRows); err != nil {
				log.Warn("Month synced callback failed", zap.String("month", m.String()), zap.Error(err))
			}
		}
	}
	run.Complete()
	s.finishRun(ctx, run)

	log.Info("Sales import completed",
		zap.Int("rows", n),
		zap.Strings("months", sales.MonthStrings(run.SalesMonths)),
		zap.Int("skipped_rows", result.SkippedRows),
		zap.Strings("unknown_sellers", result.UnknownSellers),
	)
	return result, nil
}
