package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Lingxing  LingxingConfig
	Sync      SyncConfig
	Scheduler SchedulerConfig
	Storage   StorageConfig
	HTTP      HTTPConfig
	Auth      AuthConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
	// File rotation, used when Output is a file path
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres or sqlite
	Path            string // sqlite database file
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	AutoMigrate     bool
	LogLevel        string // silent, error, warn, info
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	CacheTTL time.Duration
}

// Addr returns the host:port address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LingxingConfig holds the ERP OpenAPI settings
type LingxingConfig struct {
	BaseURL        string
	AppID          string
	AppSecret      string
	RateLimitRPS   float64
	RateLimitBurst int
	Timeout        time.Duration
	PageSize       int
}

// SyncConfig holds sales synchronization settings
type SyncConfig struct {
	Workers           int
	ReopenDays        int
	RateFetchAttempts int
	RateRetryInterval time.Duration
	LookbackMonths    int // default range of CLI runs without --start
	MaxMonths         int // widest range one sync may cover
}

// SchedulerConfig holds the daily sync scheduler configuration
type SchedulerConfig struct {
	Enabled           bool
	DailyHour         int
	DailyMinute       int
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
}

// StorageConfig holds S3-compatible report export settings
type StorageConfig struct {
	Enabled      bool
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool
	Prefix       string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	MaxBodyBytes     int64
	// Requests per minute and burst allowed to each caller of the sync write
	// routes; a negative rate disables the limit
	SyncRatePerMinute int
	SyncRateBurst     int
	// API documentation under /swagger
	SwaggerEnabled    bool
	SwaggerAllowedIPs []string
}

// AuthConfig holds the operator token settings. Write endpoints require a bearer
// token signed with JWTSecret; an empty secret leaves them open.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration. Enabled turns on metrics;
// traces and logs are exported to the same collector when their flags are set.
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	ServiceName       string
	Insecure          bool
	ExportInterval    time.Duration
	TracingEnabled    bool
	SamplingRatio     float64
	LogsEnabled       bool
	LogsMinLevel      string
	ProfilingEnabled  bool
	ProfilingServer   string
}

// Load loads configuration from config.toml in the usual locations
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration from the given TOML file, or from config.toml
// in the usual locations when path is empty.
// Priority (highest to lowest):
// 1. Environment variables with SELLERDASH_ prefix (e.g., SELLERDASH_DATABASE_PASSWORD)
// 2. Variables from a .env file in the working directory
// 3. The TOML file
// 4. Built-in defaults
func LoadFile(path string) (*Config, error) {
	// .env never overrides variables already set in the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("./backend")
		v.AddConfigPath("/app")

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
			// Config file not found is OK, we'll use defaults and env vars
		}
	}

	v.SetEnvPrefix("SELLERDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Path:            v.GetString("database.path"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
			LogLevel:        v.GetString("database.log_level"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			CacheTTL: v.GetDuration("redis.cache_ttl"),
		},
		Log: LogConfig{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Output:     v.GetString("log.output"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
			Compress:   v.GetBool("log.compress"),
		},
		Lingxing: LingxingConfig{
			BaseURL:        v.GetString("lingxing.base_url"),
			AppID:          v.GetString("lingxing.app_id"),
			AppSecret:      v.GetString("lingxing.app_secret"),
			RateLimitRPS:   v.GetFloat64("lingxing.rate_limit_rps"),
			RateLimitBurst: v.GetInt("lingxing.rate_limit_burst"),
			Timeout:        v.GetDuration("lingxing.timeout"),
			PageSize:       v.GetInt("lingxing.page_size"),
		},
		Sync: SyncConfig{
			Workers:           v.GetInt("sync.workers"),
			ReopenDays:        v.GetInt("sync.reopen_days"),
			RateFetchAttempts: v.GetInt("sync.rate_fetch_attempts"),
			RateRetryInterval: v.GetDuration("sync.rate_retry_interval"),
			LookbackMonths:    v.GetInt("sync.lookback_months"),
			MaxMonths:         v.GetInt("sync.max_months"),
		},
		Scheduler: SchedulerConfig{
			Enabled:           v.GetBool("scheduler.enabled"),
			DailyHour:         v.GetInt("scheduler.daily_hour"),
			DailyMinute:       v.GetInt("scheduler.daily_minute"),
			MaxConcurrentJobs: v.GetInt("scheduler.max_concurrent_jobs"),
			JobTimeout:        v.GetDuration("scheduler.job_timeout"),
			RetryAttempts:     v.GetInt("scheduler.retry_attempts"),
			RetryDelay:        v.GetDuration("scheduler.retry_delay"),
		},
		Storage: StorageConfig{
			Enabled:      v.GetBool("storage.enabled"),
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UseSSL:       v.GetBool("storage.use_ssl"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
			Prefix:       v.GetString("storage.prefix"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			MaxBodyBytes:     v.GetInt64("http.max_body_bytes"),

			SyncRatePerMinute: v.GetInt("http.sync_rate_per_minute"),
			SyncRateBurst:     v.GetInt("http.sync_rate_burst"),

			SwaggerEnabled:    v.GetBool("http.swagger_enabled"),
			SwaggerAllowedIPs: v.GetStringSlice("http.swagger_allowed_ips"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("auth.jwt_secret"),
			Issuer:    v.GetString("auth.issuer"),
			TokenTTL:  v.GetDuration("auth.token_ttl"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
			TracingEnabled:    v.GetBool("telemetry.tracing_enabled"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			LogsMinLevel:      v.GetString("telemetry.logs_min_level"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			ProfilingServer:   v.GetString("telemetry.profiling_server"),
		},
	}

	// The reopen window may legitimately be zero, so only default it when unset
	if !v.IsSet("sync.reopen_days") {
		cfg.Sync.ReopenDays = 3
	}
	if !v.IsSet("scheduler.daily_hour") {
		cfg.Scheduler.DailyHour = 2
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "sellerdash"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "sellerdash.db"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "sellerdash"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.CacheTTL == 0 {
		cfg.Redis.CacheTTL = 5 * time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 100
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 7
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 30
	}
	if cfg.Lingxing.BaseURL == "" {
		cfg.Lingxing.BaseURL = "https://openapi.lingxing.com"
	}
	if cfg.Lingxing.RateLimitRPS == 0 {
		cfg.Lingxing.RateLimitRPS = 5
	}
	if cfg.Lingxing.RateLimitBurst == 0 {
		cfg.Lingxing.RateLimitBurst = 5
	}
	if cfg.Lingxing.Timeout == 0 {
		cfg.Lingxing.Timeout = 30 * time.Second
	}
	if cfg.Lingxing.PageSize == 0 {
		cfg.Lingxing.PageSize = 200
	}
	if cfg.Sync.Workers == 0 {
		cfg.Sync.Workers = 4
	}
	if cfg.Sync.RateFetchAttempts == 0 {
		cfg.Sync.RateFetchAttempts = 3
	}
	if cfg.Sync.RateRetryInterval == 0 {
		cfg.Sync.RateRetryInterval = 2 * time.Second
	}
	if cfg.Sync.MaxMonths == 0 {
		cfg.Sync.MaxMonths = 24
	}
	if cfg.Sync.LookbackMonths == 0 {
		cfg.Sync.LookbackMonths = 2
	}
	if cfg.Scheduler.MaxConcurrentJobs == 0 {
		cfg.Scheduler.MaxConcurrentJobs = 1
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 30 * time.Minute
	}
	if cfg.Scheduler.RetryAttempts == 0 {
		cfg.Scheduler.RetryAttempts = 3
	}
	if cfg.Scheduler.RetryDelay == 0 {
		cfg.Scheduler.RetryDelay = 5 * time.Minute
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "reports/sales"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// POST /sync runs synchronously
		cfg.HTTP.WriteTimeout = 10 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	// An empty origin list means no cross-origin requests are allowed
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.HTTP.MaxBodyBytes == 0 {
		cfg.HTTP.MaxBodyBytes = 1 << 20
	}
	if cfg.HTTP.SyncRatePerMinute == 0 {
		cfg.HTTP.SyncRatePerMinute = 6
	}
	if cfg.HTTP.SyncRateBurst == 0 {
		cfg.HTTP.SyncRateBurst = 3
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "sellerdash"
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 30 * 24 * time.Hour
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "sellerdash"
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 60 * time.Second
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.LogsMinLevel == "" {
		cfg.Telemetry.LogsMinLevel = "info"
	}
	if cfg.Telemetry.ProfilingServer == "" {
		cfg.Telemetry.ProfilingServer = "http://localhost:4040"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be 'postgres' or 'sqlite', got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0 and 1, got %v", c.Telemetry.SamplingRatio)
	}

	if c.Sync.MaxMonths < 0 {
		return fmt.Errorf("sync.max_months cannot be negative")
	}
	if c.Sync.LookbackMonths > c.Sync.MaxMonths {
		return fmt.Errorf("sync.lookback_months (%d) cannot exceed sync.max_months (%d)",
			c.Sync.LookbackMonths, c.Sync.MaxMonths)
	}
	if c.Sync.Workers < 0 {
		return fmt.Errorf("sync.workers cannot be negative")
	}
	if c.Sync.ReopenDays < 0 || c.Sync.ReopenDays > 27 {
		return fmt.Errorf("sync.reopen_days must be between 0 and 27, got %d", c.Sync.ReopenDays)
	}
	if c.Scheduler.DailyHour < 0 || c.Scheduler.DailyHour > 23 {
		return fmt.Errorf("scheduler.daily_hour must be between 0 and 23, got %d", c.Scheduler.DailyHour)
	}
	if c.Scheduler.DailyMinute < 0 || c.Scheduler.DailyMinute > 59 {
		return fmt.Errorf("scheduler.daily_minute must be between 0 and 59, got %d", c.Scheduler.DailyMinute)
	}
	if c.Lingxing.RateLimitRPS < 0 {
		return fmt.Errorf("lingxing.rate_limit_rps cannot be negative")
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}

	if c.Storage.Enabled {
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required when storage is enabled")
		}
		if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
			return fmt.Errorf("storage.access_key and storage.secret_key are required when storage is enabled")
		}
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Lingxing.AppID == "" || c.Lingxing.AppSecret == "" {
			return fmt.Errorf("lingxing.app_id and lingxing.app_secret are required in production")
		}
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret is required in production")
		}
		if c.Database.Driver == "postgres" {
			if c.Database.Password == "" {
				return fmt.Errorf("database.password is required in production")
			}
			if c.Database.SSLMode == "disable" {
				return fmt.Errorf("database.sslmode cannot be 'disable' in production")
			}
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values.
// For sqlite it is the database file path.
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
