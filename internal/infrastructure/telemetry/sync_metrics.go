package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/metric"

	"github.com/sellerdash/backend/internal/application/salesync"
	"github.com/sellerdash/backend/internal/domain/sales"
)

var _ salesync.MetricsRecorder = (*SyncMetrics)(nil)

// SyncMetrics records sync runs
type SyncMetrics struct {
	runsTotal         *Counter
	salesRowsTotal    *Counter
	rateMonthsTotal   *Counter
	shopFailuresTotal *Counter
	duration          *Histogram
}

// NewSyncMetrics creates the sync instruments on meter
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &SyncMetrics{}
	var err error

	if m.runsTotal, err = NewCounter(meter, "sync_runs_total",
		"Sync runs by final status", "{run}"); err != nil {
		return nil, err
	}
	if m.salesRowsTotal, err = NewCounter(meter, "sync_sales_rows_total",
		"Daily sales rows upserted", "{row}"); err != nil {
		return nil, err
	}
	if m.rateMonthsTotal, err = NewCounter(meter, "sync_rate_months_total",
		"Months of exchange rates stored", "{month}"); err != nil {
		return nil, err
	}
	if m.shopFailuresTotal, err = NewCounter(meter, "sync_shop_failures_total",
		"Shop-month fetches that failed", "{failure}"); err != nil {
		return nil, err
	}
	if m.duration, err = NewHistogram(meter, HistogramOpts{
		Name:        "sync_duration_seconds",
		Description: "Sync run duration",
		Unit:        "s",
		Boundaries:  SyncDurationBuckets,
	}); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordRun records a finished run
func (m *SyncMetrics) RecordRun(ctx context.Context, run *sales.SyncRun) {
	if run == nil {
		return
	}
	status := AttrStatus.String(string(run.Status))
	trigger := AttrTrigger.String(string(run.Trigger))

	m.runsTotal.Inc(ctx, status, trigger)
	m.salesRowsTotal.Add(ctx, int64(run.SalesRowsUpserted))
	m.rateMonthsTotal.Add(ctx, int64(run.RateMonthsSynced))
	m.duration.RecordDuration(ctx, run.Duration(), status)
}

// RecordShopFailure counts one failed shop fetch
func (m *SyncMetrics) RecordShopFailure(ctx context.Context, sellerID string) {
	m.shopFailuresTotal.Inc(ctx, AttrSellerID.String(sellerID))
}
