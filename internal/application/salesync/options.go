package salesync

import (
	"time"

	"go.uber.org/zap"
)

// Config holds the tunables of the sync service
type Config struct {
	// Workers bounds how many shops are fetched concurrently
	Workers int
	// ReopenDays is how many days into a month the previous month is still re-synced,
	// since the ERP restates late refunds and fees
	ReopenDays int
	// RateFetchAttempts is the number of attempts for one month's exchange rates
	RateFetchAttempts int
	// RateRetryInterval is the initial backoff between rate fetch attempts
	RateRetryInterval time.Duration
	// RunHistoryLimit caps RecentRuns
	RunHistoryLimit int
	// MaxMonths caps how many months one sync or missing-month check may span
	MaxMonths int
}

// DefaultConfig returns the default sync configuration
func DefaultConfig() Config {
	return Config{
		Workers:           4,
		ReopenDays:        3,
		RateFetchAttempts: 3,
		RateRetryInterval: 2 * time.Second,
		RunHistoryLimit:   100,
		MaxMonths:         24,
	}
}

// Option configures a Service
type Option func(*Service)

// WithConfig replaces the service configuration; zero fields keep their defaults
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		if cfg.Workers > 0 {
			s.config.Workers = cfg.Workers
		}
		if cfg.ReopenDays >= 0 {
			s.config.ReopenDays = cfg.ReopenDays
		}
		if cfg.RateFetchAttempts > 0 {
			s.config.RateFetchAttempts = cfg.RateFetchAttempts
		}
		if cfg.RateRetryInterval > 0 {
			s.config.RateRetryInterval = cfg.RateRetryInterval
		}
		if cfg.RunHistoryLimit > 0 {
			s.config.RunHistoryLimit = cfg.RunHistoryLimit
		}
		if cfg.MaxMonths > 0 {
			s.config.MaxMonths = cfg.MaxMonths
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the time source (used for the open-month window)
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) {
		s.metrics = m
	}
}
