package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/sigec-posto/internal/ports"
)

// ErrMiss is returned by Get for absent or expired keys, whatever the backend.
var ErrMiss = errors.New("cache miss")

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// LocalCache keeps derived values (topology summaries) in process memory.
// It is the default backend and the fallback when Redis cannot be reached.
type LocalCache struct {
	data       map[string]cacheEntry
	mu         sync.RWMutex
	maxEntries int
	now        func() time.Time
	log        *zap.Logger
	stopCh     chan struct{}
	closeOnce  sync.Once
}

// NewLocalCache creates an in-memory cache that sweeps expired entries every
// cleanupInterval. maxEntries <= 0 means unbounded.
func NewLocalCache(cleanupInterval time.Duration, maxEntries int, log *zap.Logger) *LocalCache {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	c := &LocalCache{
		data:       make(map[string]cacheEntry),
		maxEntries: maxEntries,
		now:        time.Now,
		log:        log,
		stopCh:     make(chan struct{}),
	}

	go c.cleanupLoop(cleanupInterval)

	log.Info("Local in-memory cache initialized",
		zap.Duration("cleanup_interval", cleanupInterval),
		zap.Int("max_entries", maxEntries),
	)
	return c
}

func (c *LocalCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[key]
	if !ok || c.expired(entry, c.now()) {
		return "", ErrMiss
	}
	return entry.value, nil
}

func (c *LocalCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	strVal, err := encode(value)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := cacheEntry{value: strVal}
	if expiration > 0 {
		entry.expiresAt = c.now().Add(expiration)
	}
	if _, exists := c.data[key]; !exists && c.maxEntries > 0 && len(c.data) >= c.maxEntries {
		c.evictLocked()
	}
	c.data[key] = entry
	return nil
}

func (c *LocalCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *LocalCache) Ping() error {
	return nil
}

func (c *LocalCache) Close() error {
	c.closeOnce.Do(func() { close(c.stopCh) })
	return nil
}

// Len returns the number of stored entries, expired ones included until
// the next sweep.
func (c *LocalCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func (c *LocalCache) expired(e cacheEntry, now time.Time) bool {
	return !e.expiresAt.IsZero() && !e.expiresAt.After(now)
}

// evictLocked drops expired entries, or the one closest to expiry when none
// has expired yet.
func (c *LocalCache) evictLocked() {
	now := c.now()
	victim, found := "", false
	var soonest time.Time
	for key, entry := range c.data {
		if c.expired(entry, now) {
			delete(c.data, key)
			continue
		}
		// entries without expiry go last
		if entry.expiresAt.IsZero() {
			if !found {
				victim, found = key, true
			}
			continue
		}
		if !found || soonest.IsZero() || entry.expiresAt.Before(soonest) {
			victim, soonest, found = key, entry.expiresAt, true
		}
	}
	if found && len(c.data) >= c.maxEntries {
		delete(c.data, victim)
	}
}

func (c *LocalCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopCh:
			return
		}
	}
}

func (c *LocalCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	expired := 0
	for key, entry := range c.data {
		if c.expired(entry, now) {
			delete(c.data, key)
			expired++
		}
	}

	if expired > 0 {
		c.log.Debug("Cache cleanup completed", zap.Int("expired_entries", expired))
	}
}

func encode(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to marshal value: %w", err)
		}
		return string(data), nil
	}
}

var _ ports.Cache = (*LocalCache)(nil)
