package cache

import (
	"container/list"
	"weak"
)

// defaultRetention is how many recent entries a WeakCache pins with strong
// references so they survive at least a few GC cycles.
const defaultRetention = 256

// WeakCache is a base store whose entries the garbage collector may reclaim
// under memory pressure. Values are held through weak pointers; the most
// recently touched entries are additionally pinned by a small strong-
// reference ring so hot entries are not dropped immediately. Not safe for
// concurrent use on its own.
type WeakCache struct {
	id        string
	retention int
	items     map[string]weak.Pointer[weakEntry]
	pinned    *list.List
}

type weakEntry struct {
	value any
}

// NewWeakCache creates a weak-reference cache with the default retention.
func NewWeakCache(id string) *WeakCache {
	return &WeakCache{
		id:        id,
		retention: defaultRetention,
		items:     make(map[string]weak.Pointer[weakEntry]),
		pinned:    list.New(),
	}
}

// SetRetention adjusts how many recent entries stay strongly referenced.
func (c *WeakCache) SetRetention(n int) {
	if n < 0 {
		n = 0
	}
	c.retention = n
	for c.pinned.Len() > c.retention {
		c.pinned.Remove(c.pinned.Back())
	}
}

func (c *WeakCache) ID() string { return c.id }

func (c *WeakCache) Get(key string) (any, bool) {
	p, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e := p.Value()
	if e == nil {
		// Reclaimed by the collector.
		delete(c.items, key)
		return nil, false
	}
	c.pin(e)
	return e.value, true
}

func (c *WeakCache) Put(key string, value any) {
	e := &weakEntry{value: value}
	c.items[key] = weak.Make(e)
	c.pin(e)
}

func (c *WeakCache) Remove(key string) {
	delete(c.items, key)
}

func (c *WeakCache) Clear() {
	c.items = make(map[string]weak.Pointer[weakEntry])
	c.pinned.Init()
}

// Size sweeps reclaimed entries and returns the live count.
func (c *WeakCache) Size() int {
	for key, p := range c.items {
		if p.Value() == nil {
			delete(c.items, key)
		}
	}
	return len(c.items)
}

func (c *WeakCache) pin(e *weakEntry) {
	if c.retention == 0 {
		return
	}
	c.pinned.PushFront(e)
	for c.pinned.Len() > c.retention {
		c.pinned.Remove(c.pinned.Back())
	}
}
