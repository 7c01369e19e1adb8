package cache

import (
	"context"
	"sync"
	"time"

	"schemagate/internal/auth/metrics"
)

const memoryBackend = "memory"

// DefaultJanitorInterval is how often expired entries are swept.
const DefaultJanitorInterval = time.Minute

type memoryItem struct {
	entry     Entry
	expiresAt time.Time
}

// MemoryCache is a map-backed Cache with per-entry expiry. A janitor goroutine
// sweeps expired entries so memory stays bounded by the TTL; Close stops it.
type MemoryCache struct {
	mu      sync.RWMutex
	items   map[string]memoryItem
	now     func() time.Time
	metrics *metrics.Metrics

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// MemoryOption configures a MemoryCache.
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	interval time.Duration
	now      func() time.Time
	metrics  *metrics.Metrics
}

// WithJanitorInterval overrides DefaultJanitorInterval.
func WithJanitorInterval(d time.Duration) MemoryOption {
	return func(c *memoryConfig) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithClock overrides time.Now for expiry decisions.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *memoryConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMetrics records lookups, evictions and size.
func WithMetrics(m *metrics.Metrics) MemoryOption {
	return func(c *memoryConfig) {
		c.metrics = m
	}
}

// NewMemory starts a MemoryCache and its janitor.
func NewMemory(opts ...MemoryOption) *MemoryCache {
	cfg := memoryConfig{interval: DefaultJanitorInterval, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	c := &MemoryCache{
		items:   make(map[string]memoryItem),
		now:     cfg.now,
		metrics: cfg.metrics,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.janitor(cfg.interval)
	return c
}

// Get returns the live entry for key.
//
// Side effects: records a hit, negative hit or miss metric.
func (c *MemoryCache) Get(_ context.Context, key string) (Entry, error) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(item.expiresAt) {
		c.metrics.RecordCacheLookup(memoryBackend, metrics.ResultMiss)
		return Entry{}, ErrNotFound
	}
	if item.entry.Negative {
		c.metrics.RecordCacheLookup(memoryBackend, metrics.ResultNegativeHit)
	} else {
		c.metrics.RecordCacheLookup(memoryBackend, metrics.ResultHit)
	}
	return cloneEntry(item.entry), nil
}

// Set replaces the entry for key. A non-positive ttl deletes it instead.
func (c *MemoryCache) Set(_ context.Context, key string, entry Entry, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ttl <= 0 {
		delete(c.items, key)
	} else {
		c.items[key] = memoryItem{entry: cloneEntry(entry), expiresAt: c.now().Add(ttl)}
	}
	c.metrics.SetCacheEntries(len(c.items))
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	c.metrics.SetCacheEntries(len(c.items))
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Sweep removes expired entries and returns how many were evicted.
func (c *MemoryCache) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for key, item := range c.items {
		if !now.Before(item.expiresAt) {
			delete(c.items, key)
			evicted++
		}
	}
	c.metrics.RecordEvictions(evicted)
	c.metrics.SetCacheEntries(len(c.items))
	return evicted
}

// Close stops the janitor and waits for it to exit. It is safe to call twice.
func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stop)
	})
	<-c.done
	return nil
}

func (c *MemoryCache) janitor(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

func cloneEntry(e Entry) Entry {
	e.Identity = e.Identity.Clone()
	return e
}
