package cache

import (
	"sync"
	"time"
)

// ScheduledCache wipes the whole delegate when more than the configured
// interval has elapsed since the last clear. The check runs ahead of every
// operation; there is no background goroutine.
type ScheduledCache struct {
	delegate Cache
	interval time.Duration

	mu        sync.Mutex
	lastClear time.Time
	now       func() time.Time
}

// NewScheduledCache wraps delegate with interval-based clearing.
// Interval must be positive.
func NewScheduledCache(delegate Cache, interval time.Duration) *ScheduledCache {
	if interval <= 0 {
		panic(&ConfigError{Field: "ClearInterval", Message: "must be greater than 0"})
	}
	return &ScheduledCache{
		delegate:  delegate,
		interval:  interval,
		lastClear: time.Now(),
		now:       time.Now,
	}
}

func (c *ScheduledCache) ID() string { return c.delegate.ID() }

func (c *ScheduledCache) Get(key string) (any, bool) {
	c.clearWhenStale()
	return c.delegate.Get(key)
}

func (c *ScheduledCache) Put(key string, value any) {
	c.clearWhenStale()
	c.delegate.Put(key, value)
}

func (c *ScheduledCache) Remove(key string) {
	c.clearWhenStale()
	c.delegate.Remove(key)
}

func (c *ScheduledCache) Clear() {
	c.mu.Lock()
	c.lastClear = c.now()
	c.mu.Unlock()
	c.delegate.Clear()
}

func (c *ScheduledCache) Size() int {
	c.clearWhenStale()
	return c.delegate.Size()
}

func (c *ScheduledCache) clearWhenStale() {
	c.mu.Lock()
	stale := c.now().Sub(c.lastClear) > c.interval
	if stale {
		c.lastClear = c.now()
	}
	c.mu.Unlock()
	if stale {
		c.delegate.Clear()
	}
}
