package cache

import "time"

// ExpiringCache is a base store whose entries lapse after a fixed TTL.
// It serves the role soft references play on runtimes that have them:
// entries disappear over time without an explicit size bound. Expired
// entries are collected lazily on access. Not safe for concurrent use on
// its own.
type ExpiringCache struct {
	id    string
	ttl   time.Duration
	items map[string]expiringEntry
	now   func() time.Time
}

type expiringEntry struct {
	value    any
	deadline time.Time
}

// NewExpiringCache creates a TTL cache. TTL must be positive.
func NewExpiringCache(id string, ttl time.Duration) *ExpiringCache {
	if ttl <= 0 {
		panic(&ConfigError{Field: "TTL", Message: "must be greater than 0"})
	}
	return &ExpiringCache{
		id:    id,
		ttl:   ttl,
		items: make(map[string]expiringEntry),
		now:   time.Now,
	}
}

func (c *ExpiringCache) ID() string { return c.id }

func (c *ExpiringCache) Get(key string) (any, bool) {
	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.deadline) {
		delete(c.items, key)
		return nil, false
	}
	return e.value, true
}

func (c *ExpiringCache) Put(key string, value any) {
	c.items[key] = expiringEntry{value: value, deadline: c.now().Add(c.ttl)}
}

func (c *ExpiringCache) Remove(key string) {
	delete(c.items, key)
}

func (c *ExpiringCache) Clear() {
	c.items = make(map[string]expiringEntry)
}

// Size sweeps expired entries and returns the live count.
func (c *ExpiringCache) Size() int {
	now := c.now()
	for key, e := range c.items {
		if now.After(e.deadline) {
			delete(c.items, key)
		}
	}
	return len(c.items)
}
