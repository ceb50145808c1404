package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sellerdash/backend/internal/application/dashboard"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// InMemorySummaryCache is a process-local SummaryCache for single-instance
// deployments and tests. Values are JSON encoded so callers never share memory
// with the cache.
type InMemorySummaryCache struct {
	mu        sync.RWMutex
	entries   map[string]entry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemorySummaryCache creates the cache and starts its cleanup loop
func NewInMemorySummaryCache() *InMemorySummaryCache {
	return newInMemorySummaryCache(time.Now, 5*time.Minute)
}

func newInMemorySummaryCache(now func() time.Time, cleanupInterval time.Duration) *InMemorySummaryCache {
	c := &InMemorySummaryCache{
		entries:  make(map[string]entry),
		now:      now,
		stopChan: make(chan struct{}),
	}
	c.wg.Add(1)
	go c.cleanupLoop(cleanupInterval)
	return c
}

// Get loads the value stored under key into dest
func (c *InMemorySummaryCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || e.expired(c.now()) {
		return false, nil
	}
	if err := json.Unmarshal(e.data, dest); err != nil {
		return false, fmt.Errorf("failed to decode cache value: %w", err)
	}
	return true, nil
}

// Set stores value under key. A zero ttl stores without expiry.
func (c *InMemorySummaryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}

	e := entry{data: data}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

// DeletePrefix removes every key starting with prefix
func (c *InMemorySummaryCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

// Size returns the number of stored entries, expired ones included
func (c *InMemorySummaryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup loop. Safe to call multiple times.
func (c *InMemorySummaryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

func (c *InMemorySummaryCache) cleanupLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *InMemorySummaryCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
		}
	}
}

var _ dashboard.SummaryCache = (*InMemorySummaryCache)(nil)
