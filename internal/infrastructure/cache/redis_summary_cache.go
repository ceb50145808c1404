package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sellerdash/backend/internal/application/dashboard"
)

const (
	defaultScanBatchSize = 100
	defaultKeyNamespace  = "sellerdash:"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisSummaryCache stores dashboard query results as JSON in Redis
type RedisSummaryCache struct {
	client     *redis.Client
	ownsClient bool
	namespace  string
	logger     *zap.Logger
}

// RedisSummaryCacheOption is a functional option for configuring the cache
type RedisSummaryCacheOption func(*RedisSummaryCache)

// WithNamespace prefixes every key written to Redis
func WithNamespace(ns string) RedisSummaryCacheOption {
	return func(c *RedisSummaryCache) {
		c.namespace = ns
	}
}

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger *zap.Logger) RedisSummaryCacheOption {
	return func(c *RedisSummaryCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewRedisSummaryCache connects to Redis and verifies the connection
func NewRedisSummaryCache(cfg RedisConfig, opts ...RedisSummaryCacheOption) (*RedisSummaryCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c := NewRedisSummaryCacheWithClient(client, opts...)
	c.ownsClient = true
	return c, nil
}

// NewRedisSummaryCacheWithClient wraps an existing client. The caller keeps
// ownership of the client.
func NewRedisSummaryCacheWithClient(client *redis.Client, opts ...RedisSummaryCacheOption) *RedisSummaryCache {
	c := &RedisSummaryCache{
		client:    client,
		namespace: defaultKeyNamespace,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisSummaryCache) key(k string) string {
	return c.namespace + k
}

// Get loads the value stored under key into dest
func (c *RedisSummaryCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warn("Dropping corrupted cache entry", zap.String("key", key), zap.Error(err))
		_ = c.client.Del(ctx, c.key(key))
		return false, nil
	}
	return true, nil
}

// Set stores value as JSON under key. A zero ttl stores without expiry.
func (c *RedisSummaryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix using SCAN, so large
// keyspaces are never blocked by KEYS
func (c *RedisSummaryCache) DeletePrefix(ctx context.Context, prefix string) error {
	var (
		cursor  uint64
		deleted int64
	)
	pattern := c.key(prefix) + "*"

	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, defaultScanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("failed to scan cache keys: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return fmt.Errorf("failed to delete cache keys: %w", err)
			}
			deleted += n
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	c.logger.Debug("Invalidated cache prefix", zap.String("prefix", prefix), zap.Int64("deleted", deleted))
	return nil
}

// Ping checks the Redis connection
func (c *RedisSummaryCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the client if this cache created it
func (c *RedisSummaryCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

var _ dashboard.SummaryCache = (*RedisSummaryCache)(nil)
