package telemetry

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetricsConfig holds database metrics configuration.
type DBMetricsConfig struct {
	SlowQueryThreshold time.Duration
	PoolStatsInterval  time.Duration
}

// DefaultDBMetricsConfig returns the default database metrics configuration
func DefaultDBMetricsConfig() DBMetricsConfig {
	return DBMetricsConfig{
		SlowQueryThreshold: 200 * time.Millisecond,
		PoolStatsInterval:  15 * time.Second,
	}
}

// DBMetrics records connection pool and query metrics.
type DBMetrics struct {
	poolConnections *Gauge
	queryTotal      *Counter
	queryDuration   *Histogram
	slowQueryTotal  *Counter

	config   DBMetricsConfig
	logger   *zap.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewDBMetrics creates the database instruments on meter
func NewDBMetrics(meter metric.Meter, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultDBMetricsConfig()
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = defaults.SlowQueryThreshold
	}
	if cfg.PoolStatsInterval <= 0 {
		cfg.PoolStatsInterval = defaults.PoolStatsInterval
	}

	m := &DBMetrics{config: cfg, logger: logger, stopCh: make(chan struct{})}
	var err error

	if m.poolConnections, err = NewGauge(meter, "db_pool_connections",
		"Connections in the pool by state", "{connection}"); err != nil {
		return nil, err
	}
	if m.queryTotal, err = NewCounter(meter, "db_query_total",
		"Database queries by operation", "{query}"); err != nil {
		return nil, err
	}
	if m.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.slowQueryTotal, err = NewCounter(meter, "db_slow_query_total",
		"Queries slower than the configured threshold", "{query}"); err != nil {
		return nil, err
	}
	return m, nil
}

// StartPoolStats samples sqlDB.Stats until ctx is done or Stop is called
func (m *DBMetrics) StartPoolStats(ctx context.Context, sqlDB *sql.DB) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.config.PoolStatsInterval)
		defer ticker.Stop()

		m.collectPoolStats(ctx, sqlDB)
		for {
			select {
			case <-ticker.C:
				m.collectPoolStats(ctx, sqlDB)
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *DBMetrics) collectPoolStats(ctx context.Context, sqlDB *sql.DB) {
	stats := sqlDB.Stats()
	m.poolConnections.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	m.poolConnections.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	m.poolConnections.Record(ctx, int64(stats.MaxOpenConnections), AttrDBState.String("max"))
}

// Stop ends pool sampling. It is safe to call more than once.
func (m *DBMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
	})
}

// RecordQuery records one executed statement
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, duration time.Duration) {
	operation = strings.ToUpper(operation)
	if operation == "" {
		operation = "UNKNOWN"
	}
	m.queryTotal.Inc(ctx, AttrDBOperation.String(operation))
	m.queryDuration.RecordDuration(ctx, duration, AttrDBOperation.String(operation))

	if duration > m.config.SlowQueryThreshold {
		if table == "" {
			table = "unknown"
		}
		m.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
		m.logger.Debug("Slow query",
			zap.String("operation", operation),
			zap.String("table", table),
			zap.Duration("duration", duration),
		)
	}
}

type dbMetricsKey struct{}

// dbMetricsPlugin times every GORM statement and feeds DBMetrics
type dbMetricsPlugin struct {
	metrics *DBMetrics
}

// Name implements gorm.Plugin
func (p *dbMetricsPlugin) Name() string { return "sellerdash:db_metrics" }

// Initialize implements gorm.Plugin
func (p *dbMetricsPlugin) Initialize(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		ctx := tx.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		tx.Statement.Context = context.WithValue(ctx, dbMetricsKey{}, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			p.record(tx, operation)
		}
	}

	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("db_metrics:before_create", before); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("db_metrics:after_create", after("INSERT")); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("db_metrics:before_query", before); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("db_metrics:after_query", after("SELECT")); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("db_metrics:before_update", before); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("db_metrics:after_update", after("UPDATE")); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("db_metrics:before_delete", before); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("db_metrics:after_delete", after("DELETE")); err != nil {
		return err
	}
	if err := cb.Raw().Before("gorm:raw").Register("db_metrics:before_raw", before); err != nil {
		return err
	}
	return cb.Raw().After("gorm:raw").Register("db_metrics:after_raw", after(""))
}

func (p *dbMetricsPlugin) record(tx *gorm.DB, operation string) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	start, ok := ctx.Value(dbMetricsKey{}).(time.Time)
	if !ok {
		return
	}
	if operation == "" {
		operation = detectOperation(tx.Statement.SQL.String())
	}
	p.metrics.RecordQuery(ctx, operation, tx.Statement.Table, time.Since(start))
}

// detectOperation returns the leading SQL keyword of a raw statement
func detectOperation(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	switch op := strings.ToUpper(fields[0]); op {
	case "SELECT", "INSERT", "UPDATE", "DELETE":
		return op
	case "WITH":
		return "SELECT"
	default:
		return "OTHER"
	}
}

// RegisterDBMetrics installs query timing callbacks on db and starts pool sampling
func RegisterDBMetrics(ctx context.Context, db *gorm.DB, metrics *DBMetrics) error {
	if err := db.Use(&dbMetricsPlugin{metrics: metrics}); err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	metrics.StartPoolStats(ctx, sqlDB)
	return nil
}
