package pipeline

import (
	"context"
	"sync"
	"time"
)

// cachedSummary is an in-memory cached pipeline result with expiry.
type cachedSummary struct {
	summary   *Summary
	expiresAt time.Time
}

func (c *cachedSummary) expired() bool {
	return time.Now().After(c.expiresAt)
}

// ResultCache caches pipeline summaries by Gmail message ID so a webhook
// retrigger for an already-classified message replays the recorded
// summary instead of re-running classification.
type ResultCache struct {
	memory   sync.Map // map[string]*cachedSummary
	disabled bool
	ttl      time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// NewResultCache creates a result cache. A disabled cache always misses.
func NewResultCache(disabled bool, ttl time.Duration) *ResultCache {
	ctx, cancel := context.WithCancel(context.Background())

	cache := &ResultCache{
		disabled: disabled,
		ttl:      ttl,
		ctx:      ctx,
		cancel:   cancel,
	}

	if !disabled {
		go cache.cleanupLoop()
	}

	return cache
}

// Get returns the cached summary for a message, or nil on a miss.
func (c *ResultCache) Get(messageID string) *Summary {
	if c.disabled {
		return nil
	}

	value, ok := c.memory.Load(messageID)
	if !ok {
		return nil
	}

	cached := value.(*cachedSummary)
	if cached.expired() {
		c.memory.Delete(messageID)
		return nil
	}
	return cached.summary
}

// Set stores a summary for a message.
func (c *ResultCache) Set(messageID string, summary *Summary) {
	if c.disabled {
		return
	}
	c.memory.Store(messageID, &cachedSummary{
		summary:   summary,
		expiresAt: time.Now().Add(c.ttl),
	})
}

// Invalidate removes a cached summary.
func (c *ResultCache) Invalidate(messageID string) {
	c.memory.Delete(messageID)
}

// Close stops the cleanup goroutine.
func (c *ResultCache) Close() {
	c.cancel()
}

// cleanupLoop periodically evicts expired entries.
func (c *ResultCache) cleanupLoop() {
	interval := c.ttl
	if interval < time.Minute {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.memory.Range(func(key, value interface{}) bool {
				if value.(*cachedSummary).expired() {
					c.memory.Delete(key)
				}
				return true
			})
		}
	}
}
