package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTTL             = 5 * time.Minute
	defaultCleanupInterval = 30 * time.Second
)

// SettingsCache is an in-process TTL cache for runtime settings. Entries
// expire after a fixed TTL; invalidation on write is the caller's duty.
// Safe for concurrent use.
type SettingsCache struct {
	entries sync.Map // map[string]*settingsEntry
	ttl     time.Duration
	logger  *zap.Logger
	stopCh  chan struct{}
	stopped int32

	hits   int64
	misses int64
}

type settingsEntry struct {
	value     string
	expiresAt time.Time
}

func (e *settingsEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// SettingsCacheOption configures a SettingsCache
type SettingsCacheOption func(*SettingsCache)

// WithTTL sets the entry time-to-live
func WithTTL(ttl time.Duration) SettingsCacheOption {
	return func(c *SettingsCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) SettingsCacheOption {
	return func(c *SettingsCache) {
		c.logger = logger
	}
}

// NewSettingsCache creates a settings cache and starts its background
// cleanup goroutine. Call Close to release it.
func NewSettingsCache(opts ...SettingsCacheOption) *SettingsCache {
	c := &SettingsCache{
		ttl:    defaultTTL,
		logger: zap.NewNop(),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.cleanupLoop()
	return c
}

// Get returns the cached value for key and whether it is still fresh.
// An expired entry is removed and reported as a miss.
func (c *SettingsCache) Get(key string) (string, bool) {
	if value, ok := c.entries.Load(key); ok {
		entry := value.(*settingsEntry)
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			return entry.value, true
		}
		c.entries.Delete(key)
	}

	atomic.AddInt64(&c.misses, 1)
	return "", false
}

// Set stores a value under key with the cache's TTL
func (c *SettingsCache) Set(key, value string) {
	c.entries.Store(key, &settingsEntry{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	})
	c.logger.Debug("cached setting", zap.String("key", key), zap.Duration("ttl", c.ttl))
}

// Invalidate removes a single key
func (c *SettingsCache) Invalidate(key string) {
	c.entries.Delete(key)
}

// InvalidateAll removes every cached setting
func (c *SettingsCache) InvalidateAll() {
	c.entries.Range(func(key, _ any) bool {
		c.entries.Delete(key)
		return true
	})
	c.logger.Info("invalidated settings cache")
}

// Stats returns hit and miss counters
func (c *SettingsCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Len returns the number of entries, expired ones included
func (c *SettingsCache) Len() int {
	count := 0
	c.entries.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (c *SettingsCache) Close() {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
}

func (c *SettingsCache) cleanupLoop() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *SettingsCache) removeExpired() {
	removed := 0
	c.entries.Range(func(key, value any) bool {
		if value.(*settingsEntry).isExpired() {
			c.entries.Delete(key)
			removed++
		}
		return true
	})
	if removed > 0 {
		c.logger.Debug("removed expired settings", zap.Int("count", removed))
	}
}
