package cache

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/sellerdash/backend/internal/application/dashboard"
	"github.com/sellerdash/backend/internal/infrastructure/config"
)

// Cache is a SummaryCache that owns resources
type Cache interface {
	dashboard.SummaryCache
	io.Closer
}

// SummaryCacheFactory creates summary caches based on configuration
type SummaryCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// SummaryCacheFactoryOption is a functional option for configuring the factory
type SummaryCacheFactoryOption func(*SummaryCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) SummaryCacheFactoryOption {
	return func(f *SummaryCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory cache when
// Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) SummaryCacheFactoryOption {
	return func(f *SummaryCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewSummaryCacheFactory creates a new factory
func NewSummaryCacheFactory(cfg config.RedisConfig, opts ...SummaryCacheFactoryOption) *SummaryCacheFactory {
	f := &SummaryCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateCache returns a Redis cache when Redis is enabled and reachable,
// otherwise an in-memory cache if fallback is allowed
func (f *SummaryCacheFactory) CreateCache() (Cache, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory dashboard cache")
		return NewInMemorySummaryCache(), nil
	}

	c, err := NewRedisSummaryCache(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}, WithCacheLogger(f.logger.Named("cache")))
	if err == nil {
		f.logger.Info("Using Redis dashboard cache", zap.String("addr", f.redisConfig.Addr()))
		return c, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for dashboard cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory dashboard cache. "+
		"Cached summaries are not shared between instances.",
		zap.Error(err),
	)
	return NewInMemorySummaryCache(), nil
}
