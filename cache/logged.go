package cache

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// LoggedCache decorates a cache with hit/miss accounting and debug logging.
// Counters are atomic so the decorator can sit beneath or above the
// synchronization layer.
type LoggedCache struct {
	delegate Cache
	logger   zerolog.Logger
	requests atomic.Uint64
	hits     atomic.Uint64
}

// NewLoggedCache wraps delegate with hit-ratio tracking logged through logger.
func NewLoggedCache(delegate Cache, logger zerolog.Logger) *LoggedCache {
	return &LoggedCache{
		delegate: delegate,
		logger:   logger.With().Str("cache", delegate.ID()).Logger(),
	}
}

func (c *LoggedCache) ID() string { return c.delegate.ID() }

func (c *LoggedCache) Get(key string) (any, bool) {
	c.requests.Add(1)
	v, ok := c.delegate.Get(key)
	if ok {
		c.hits.Add(1)
	}
	c.logger.Debug().
		Str("key", key).
		Bool("hit", ok).
		Float64("hit_ratio", c.HitRatio()).
		Msg("cache lookup")
	return v, ok
}

func (c *LoggedCache) Put(key string, value any) { c.delegate.Put(key, value) }
func (c *LoggedCache) Remove(key string)         { c.delegate.Remove(key) }
func (c *LoggedCache) Clear()                    { c.delegate.Clear() }
func (c *LoggedCache) Size() int                 { return c.delegate.Size() }

// Requests returns the number of lookups observed.
func (c *LoggedCache) Requests() uint64 { return c.requests.Load() }

// Hits returns the number of lookups that found a value.
func (c *LoggedCache) Hits() uint64 { return c.hits.Load() }

// HitRatio returns hits over requests, or 0 before the first lookup.
func (c *LoggedCache) HitRatio() float64 {
	req := c.requests.Load()
	if req == 0 {
		return 0
	}
	return float64(c.hits.Load()) / float64(req)
}
