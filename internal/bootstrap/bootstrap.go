// Package bootstrap builds the components shared by the server and the sync CLI
// from the loaded configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sellerdash/backend/internal/application/dashboard"
	"github.com/sellerdash/backend/internal/application/salesync"
	"github.com/sellerdash/backend/internal/domain/sales"
	"github.com/sellerdash/backend/internal/infrastructure/cache"
	"github.com/sellerdash/backend/internal/infrastructure/config"
	"github.com/sellerdash/backend/internal/infrastructure/lingxing"
	"github.com/sellerdash/backend/internal/infrastructure/logger"
	"github.com/sellerdash/backend/internal/infrastructure/migration"
	"github.com/sellerdash/backend/internal/infrastructure/persistence"
	"github.com/sellerdash/backend/internal/infrastructure/storage"
	"github.com/sellerdash/backend/internal/infrastructure/telemetry"
	"github.com/sellerdash/backend/migrations"
)

// NewLogger creates the application logger from the log section
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
}

// OpenDatabase connects to the configured database and brings its schema up to
// date. SQLite databases are migrated from the GORM models; PostgreSQL runs the
// embedded SQL migrations when database.auto_migrate is set.
func OpenDatabase(cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
	db, err := persistence.NewDatabase(&cfg.Database, log.Named("gorm"))
	if err != nil {
		return nil, err
	}

	switch {
	case db.Driver == persistence.DriverSQLite:
		err = db.AutoMigrate()
	case cfg.Database.AutoMigrate:
		err = migratePostgres(db, log)
	}
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migratePostgres(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	m, err := migration.NewWithFS(sqlDB, migrations.FS, log)
	if err != nil {
		return err
	}
	// closing the migrator would close the shared connection pool
	return m.Up()
}

// Repositories groups the sales repositories
type Repositories struct {
	Shops *persistence.GormShopRepository
	Sales *persistence.GormSaleRepository
	Rates *persistence.GormExchangeRateRepository
	Runs  *persistence.GormSyncRunRepository
}

// NewRepositories creates the repositories on db
func NewRepositories(db *persistence.Database) Repositories {
	return Repositories{
		Shops: persistence.NewGormShopRepository(db.DB),
		Sales: persistence.NewGormSaleRepository(db.DB),
		Rates: persistence.NewGormExchangeRateRepository(db.DB),
		Runs:  persistence.NewGormSyncRunRepository(db.DB),
	}
}

// NewLingxingClient creates the ERP client from the lingxing section
func NewLingxingClient(cfg *config.Config, log *zap.Logger) (*lingxing.Client, error) {
	return lingxing.NewClient(lingxing.Config{
		BaseURL:           cfg.Lingxing.BaseURL,
		AppID:             cfg.Lingxing.AppID,
		AppSecret:         cfg.Lingxing.AppSecret,
		RequestsPerSecond: cfg.Lingxing.RateLimitRPS,
		Burst:             cfg.Lingxing.RateLimitBurst,
		Timeout:           cfg.Lingxing.Timeout,
		PageSize:          cfg.Lingxing.PageSize,
	}, lingxing.WithLogger(log.Named("lingxing")))
}

// NewSyncService creates the sync service. metrics may be nil, and so may source
// for callers that only read local state.
func NewSyncService(cfg *config.Config, repos Repositories, source sales.SalesSource, metrics salesync.MetricsRecorder, log *zap.Logger) *salesync.Service {
	opts := []salesync.Option{
		salesync.WithConfig(salesync.Config{
			Workers:           cfg.Sync.Workers,
			ReopenDays:        cfg.Sync.ReopenDays,
			RateFetchAttempts: cfg.Sync.RateFetchAttempts,
			RateRetryInterval: cfg.Sync.RateRetryInterval,
			MaxMonths:         cfg.Sync.MaxMonths,
		}),
		salesync.WithLogger(log.Named("sync")),
	}
	if metrics != nil {
		opts = append(opts, salesync.WithMetrics(metrics))
	}
	return salesync.NewService(repos.Shops, repos.Sales, repos.Rates, repos.Runs, source, opts...)
}

// NewReportStore returns the S3 store when storage is enabled, otherwise the
// in-memory stub
func NewReportStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.ReportStore, error) {
	if !cfg.Storage.Enabled {
		log.Info("Object storage disabled, monthly reports are kept in memory")
		return storage.NewStubReportStore(), nil
	}
	store, err := storage.NewS3ReportStore(&cfg.Storage, storage.WithLogger(log.Named("storage")))
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		log.Warn("Report bucket check failed", zap.String("bucket", cfg.Storage.Bucket), zap.Error(err))
	}
	return store, nil
}

// NewDashboard creates the dashboard service with the configured cache. The
// returned cache must be closed by the caller.
func NewDashboard(cfg *config.Config, repos Repositories, log *zap.Logger) (*dashboard.Service, cache.Cache, error) {
	c, err := cache.NewSummaryCacheFactory(cfg.Redis, cache.WithLogger(log)).CreateCache()
	if err != nil {
		return nil, nil, err
	}
	svc := dashboard.NewService(repos.Shops, repos.Sales, repos.Rates, c, log.Named("dashboard"))
	svc.SetCacheTTL(cfg.Redis.CacheTTL)
	return svc, c, nil
}

// ConnectHooks exports every synced month to store and drops cached dashboard
// results once a run finishes
func ConnectHooks(svc *salesync.Service, exporter *storage.ReportExporter, dash *dashboard.Service) {
	if exporter != nil {
		svc.SetOnMonthSyncedCallback(exporter.OnMonthSynced)
	}
	if dash != nil {
		svc.SetOnRunCompletedCallback(func(ctx context.Context, _ *sales.SyncRun) error {
			return dash.Invalidate(ctx)
		})
	}
}

// Telemetry holds the OpenTelemetry providers
type Telemetry struct {
	Meters   *telemetry.MeterProvider
	Tracers  *telemetry.TracerProvider
	Logs     *telemetry.LoggerProvider
	Profiler *telemetry.Profiler
}

// NewTelemetry starts the providers enabled in the telemetry section. Disabled
// providers are still returned and act as no-ops.
func NewTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Telemetry, error) {
	t := cfg.Telemetry
	serviceName := t.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}

	meters, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           t.Enabled,
		CollectorEndpoint: t.CollectorEndpoint,
		ExportInterval:    t.ExportInterval,
		ServiceName:       serviceName,
		Insecure:          t.Insecure,
	}, log)
	if err != nil {
		return nil, err
	}
	tracers, err := telemetry.NewTracerProvider(ctx, telemetry.TracingConfig{
		Enabled:           t.TracingEnabled,
		CollectorEndpoint: t.CollectorEndpoint,
		SamplingRatio:     t.SamplingRatio,
		ServiceName:       serviceName,
		Insecure:          t.Insecure,
	}, log)
	if err != nil {
		return nil, errors.Join(err, meters.Shutdown(ctx))
	}
	logs, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           t.LogsEnabled,
		CollectorEndpoint: t.CollectorEndpoint,
		ServiceName:       serviceName,
		Insecure:          t.Insecure,
		MinLevel:          t.LogsMinLevel,
	}, log)
	if err != nil {
		return nil, errors.Join(err, meters.Shutdown(ctx), tracers.Shutdown(ctx))
	}
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         t.ProfilingEnabled,
		ServerAddress:   t.ProfilingServer,
		ApplicationName: serviceName,
	}, log)
	if err != nil {
		// profiling failures are not fatal
		log.Warn("Profiler not started", zap.Error(err))
		profiler = nil
	}
	if profiler != nil && profiler.IsEnabled() {
		tracers.EnableSpanProfiles()
	}

	return &Telemetry{Meters: meters, Tracers: tracers, Logs: logs, Profiler: profiler}, nil
}

// Shutdown flushes and stops every provider
func (t *Telemetry) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var errs []error
	if t.Profiler != nil {
		errs = append(errs, t.Profiler.Stop())
	}
	errs = append(errs,
		t.Logs.Shutdown(ctx),
		t.Tracers.Shutdown(ctx),
		t.Meters.Shutdown(ctx),
	)
	return errors.Join(errs...)
}
