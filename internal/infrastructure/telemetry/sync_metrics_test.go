package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/sellerdash/backend/internal/domain/sales"
)

func newTestMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return reader, provider
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumFor(t *testing.T, m metricdata.Metrics, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	want := attribute.NewSet(attrs...)
	var total int64
	for _, dp := range sum.DataPoints {
		if len(attrs) == 0 || dp.Attributes.Equals(&want) {
			total += dp.Value
		}
	}
	return total
}

func finishedRun(status sales.SyncRunStatus, rows, rateMonths int) *sales.SyncRun {
	start := time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC)
	done := start.Add(90 * time.Second)
	return &sales.SyncRun{
		Trigger:           sales.SyncTriggerScheduled,
		Status:            status,
		SalesRowsUpserted: rows,
		RateMonthsSynced:  rateMonths,
		StartedAt:         start,
		CompletedAt:       &done,
	}
}

func TestNewSyncMetrics_NilMeter(t *testing.T) {
	_, err := NewSyncMetrics(nil)
	assert.ErrorIs(t, err, ErrMeterNil)
}

func TestSyncMetrics_RecordRun(t *testing.T) {
	reader, provider := newTestMeter(t)
	m, err := NewSyncMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordRun(ctx, finishedRun(sales.SyncRunStatusSuccess, 120, 2))
	m.RecordRun(ctx, finishedRun(sales.SyncRunStatusPartial, 30, 0))
	m.RecordRun(ctx, nil)

	metrics := collect(t, reader)

	runs := metrics["sync_runs_total"]
	assert.Equal(t, int64(2), sumFor(t, runs))
	assert.Equal(t, int64(1), sumFor(t, runs,
		AttrStatus.String("SUCCESS"), AttrTrigger.String("SCHEDULED")))
	assert.Equal(t, int64(150), sumFor(t, metrics["sync_sales_rows_total"]))
	assert.Equal(t, int64(2), sumFor(t, metrics["sync_rate_months_total"]))

	hist, ok := metrics["sync_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
		assert.InDelta(t, 90, dp.Sum, 0.001)
	}
	assert.Equal(t, uint64(2), count)
}

func TestSyncMetrics_RecordShopFailure(t *testing.T) {
	reader, provider := newTestMeter(t)
	m, err := NewSyncMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordShopFailure(ctx, "A1")
	m.RecordShopFailure(ctx, "A1")
	m.RecordShopFailure(ctx, "B2")

	failures := collect(t, reader)["sync_shop_failures_total"]
	assert.Equal(t, int64(2), sumFor(t, failures, AttrSellerID.String("A1")))
	assert.Equal(t, int64(3), sumFor(t, failures))
}
