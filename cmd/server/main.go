package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/sellerdash/backend/docs"
	"github.com/sellerdash/backend/internal/application/salesync"
	"github.com/sellerdash/backend/internal/bootstrap"
	"github.com/sellerdash/backend/internal/infrastructure/auth"
	"github.com/sellerdash/backend/internal/infrastructure/config"
	"github.com/sellerdash/backend/internal/infrastructure/logger"
	"github.com/sellerdash/backend/internal/infrastructure/scheduler"
	"github.com/sellerdash/backend/internal/infrastructure/storage"
	"github.com/sellerdash/backend/internal/infrastructure/telemetry"
	"github.com/sellerdash/backend/internal/interfaces/http/handler"
	"github.com/sellerdash/backend/internal/interfaces/http/middleware"
	"github.com/sellerdash/backend/internal/interfaces/http/router"
)

//	@title			Seller Dashboard API
//	@version		1.0
//	@description	Sales and exchange-rate synchronization from the Lingxing ERP, plus dashboard queries.

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Operator token, formatted "Bearer <token>"

// reportLinkTTL is how long report download links stay valid
const reportLinkTTL = 15 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := bootstrap.NewLogger(cfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx := context.Background()

	tel, err := bootstrap.NewTelemetry(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			log.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}()
	log = tel.Logs.Bridge(log)

	log.Info("Starting seller dashboard",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", telemetry.ServiceVersion),
	)

	db, err := bootstrap.OpenDatabase(cfg, log)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", db.Driver))

	if err := telemetry.RegisterDBTracing(db.DB, db.Driver, log); err != nil {
		log.Warn("Database tracing not registered", zap.Error(err))
	}
	meter := tel.Meters.Meter("sellerdash")
	if tel.Meters.IsEnabled() {
		dbMetrics, err := telemetry.NewDBMetrics(meter, telemetry.DefaultDBMetricsConfig(), log)
		if err != nil {
			log.Fatal("Failed to create database metrics", zap.Error(err))
		}
		if err := telemetry.RegisterDBMetrics(ctx, db.DB, dbMetrics); err != nil {
			log.Fatal("Failed to register database metrics", zap.Error(err))
		}
		defer dbMetrics.Stop()
	}

	repos := bootstrap.NewRepositories(db)

	client, err := bootstrap.NewLingxingClient(cfg, log)
	if err != nil {
		log.Fatal("Failed to create ERP client", zap.Error(err))
	}

	var syncMetrics *telemetry.SyncMetrics
	if tel.Meters.IsEnabled() {
		if syncMetrics, err = telemetry.NewSyncMetrics(meter); err != nil {
			log.Fatal("Failed to create sync metrics", zap.Error(err))
		}
	}
	syncService := bootstrap.NewSyncService(cfg, repos, client, syncMetricsRecorder(syncMetrics), log)

	dashboardService, summaryCache, err := bootstrap.NewDashboard(cfg, repos, log)
	if err != nil {
		log.Fatal("Failed to create dashboard cache", zap.Error(err))
	}
	defer func() {
		_ = summaryCache.Close()
	}()

	reportStore, err := bootstrap.NewReportStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to create report store", zap.Error(err))
	}
	exporter := storage.NewReportExporter(reportStore, repos.Sales, log.Named("export"))
	bootstrap.ConnectHooks(syncService, exporter, dashboardService)

	// Background jobs and the daily trigger
	var jobs handler.JobScheduler
	if cfg.Scheduler.Enabled {
		syncScheduler, err := scheduler.NewSyncScheduler(scheduler.SyncSchedulerConfig{
			MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
			JobTimeout:        cfg.Scheduler.JobTimeout,
			RetryAttempts:     cfg.Scheduler.RetryAttempts,
			RetryDelay:        cfg.Scheduler.RetryDelay,
		}, scheduler.NewSalesSyncExecutor(syncService), log)
		if err != nil {
			log.Fatal("Failed to create sync scheduler", zap.Error(err))
		}
		if err := syncScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start sync scheduler", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := syncScheduler.Stop(stopCtx); err != nil {
				log.Error("Failed to stop sync scheduler", zap.Error(err))
			}
		}()

		triggerCfg := scheduler.DefaultDailyTriggerConfig()
		triggerCfg.Hour = cfg.Scheduler.DailyHour
		triggerCfg.Minute = cfg.Scheduler.DailyMinute
		trigger, err := scheduler.NewDailyTrigger(triggerCfg, syncScheduler, log)
		if err != nil {
			log.Fatal("Failed to create daily trigger", zap.Error(err))
		}
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start daily trigger", zap.Error(err))
		}
		defer func() {
			_ = trigger.Stop(context.Background())
		}()
		jobs = syncScheduler
		log.Info("Sync scheduler started",
			zap.Int("daily_hour", cfg.Scheduler.DailyHour),
			zap.Int("daily_minute", cfg.Scheduler.DailyMinute),
		)
	}

	tokens := auth.NewTokenService(cfg.Auth)
	if !tokens.Enabled() {
		log.Warn("auth.jwt_secret is not set, sync endpoints are unauthenticated")
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Order matters: the request ID must exist before the span and log entry are created
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName, cfg.Telemetry.TracingEnabled))
	engine.Use(middleware.SpanEnricher())
	engine.Use(logger.GinMiddleware(log, logger.WithQuietPaths("/health", "/api/v1/system/ping")))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
		AllowMethods:  cfg.HTTP.CORSAllowMethods,
		AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders: []string{middleware.RequestIDKey},
		MaxAge:        12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodyBytes))
	if tel.Meters.IsEnabled() {
		engine.Use(middleware.HTTPMetrics(meter))
	}

	systemHandler := handler.NewSystemHandler(telemetry.ServiceVersion, map[string]handler.HealthChecker{
		"database": func(context.Context) error { return db.Ping() },
	})
	engine.GET("/health", systemHandler.Health)

	if cfg.HTTP.SwaggerEnabled {
		engine.GET("/swagger/*any",
			middleware.SwaggerProtection(cfg.HTTP.SwaggerAllowedIPs),
			ginSwagger.WrapHandler(swaggerFiles.Handler),
		)
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	router.RegisterAPI(r, router.Handlers{
		Sync:   handler.NewSyncHandler(syncService, jobs),
		Sales:  handler.NewSalesHandler(dashboardService),
		Report: handler.NewReportHandler(reportStore, reportLinkTTL),
	},
		middleware.RequireToken(tokens, auth.ScopeSyncWrite, log),
		middleware.RateLimit(middleware.NewRateLimiter(cfg.HTTP.SyncRatePerMinute, cfg.HTTP.SyncRateBurst)),
	)

	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/ping", systemHandler.Ping)
	r.Register(systemRoutes)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited gracefully")
}

// syncMetricsRecorder avoids handing the sync service a typed nil
func syncMetricsRecorder(m *telemetry.SyncMetrics) salesync.MetricsRecorder {
	if m == nil {
		return nil
	}
	return m
}
