package cache

import "container/list"

// LRUCache is a bounded base store that evicts the least-recently-used
// entry once capacity is exceeded. Get refreshes recency. Not safe for
// concurrent use on its own.
type LRUCache struct {
	id       string
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

type lruEntry struct {
	key   string
	value any
}

// NewLRUCache creates an LRU cache bounded to capacity entries.
// Capacity must be positive.
func NewLRUCache(id string, capacity int) *LRUCache {
	if capacity <= 0 {
		panic(&ConfigError{Field: "Capacity", Message: "must be greater than 0"})
	}
	return &LRUCache{
		id:       id,
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
	}
}

func (c *LRUCache) ID() string { return c.id }

func (c *LRUCache) Get(key string) (any, bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*lruEntry).value, true
}

func (c *LRUCache) Put(key string, value any) {
	if el, ok := c.items[key]; ok {
		el.Value.(*lruEntry).value = value
		c.ll.MoveToFront(el)
		return
	}
	c.items[key] = c.ll.PushFront(&lruEntry{key: key, value: value})
	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*lruEntry).key)
	}
}

func (c *LRUCache) Remove(key string) {
	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
}

func (c *LRUCache) Clear() {
	c.ll.Init()
	c.items = make(map[string]*list.Element)
}

func (c *LRUCache) Size() int { return c.ll.Len() }
