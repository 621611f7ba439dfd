package cache

import "container/list"

// FIFOCache is a bounded base store that evicts entries in insertion order
// once capacity is exceeded. Unlike LRUCache, reads do not affect eviction
// order. Not safe for concurrent use on its own.
type FIFOCache struct {
	id       string
	capacity int
	queue    *list.List
	items    map[string]*list.Element
	values   map[string]any
}

// NewFIFOCache creates a FIFO cache bounded to capacity entries.
// Capacity must be positive.
func NewFIFOCache(id string, capacity int) *FIFOCache {
	if capacity <= 0 {
		panic(&ConfigError{Field: "Capacity", Message: "must be greater than 0"})
	}
	return &FIFOCache{
		id:       id,
		capacity: capacity,
		queue:    list.New(),
		items:    make(map[string]*list.Element),
		values:   make(map[string]any),
	}
}

func (c *FIFOCache) ID() string { return c.id }

func (c *FIFOCache) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

func (c *FIFOCache) Put(key string, value any) {
	if _, ok := c.values[key]; !ok {
		c.items[key] = c.queue.PushBack(key)
		if c.queue.Len() > c.capacity {
			oldest := c.queue.Front()
			c.queue.Remove(oldest)
			evicted := oldest.Value.(string)
			delete(c.items, evicted)
			delete(c.values, evicted)
		}
	}
	c.values[key] = value
}

func (c *FIFOCache) Remove(key string) {
	if el, ok := c.items[key]; ok {
		c.queue.Remove(el)
		delete(c.items, key)
	}
	delete(c.values, key)
}

func (c *FIFOCache) Clear() {
	c.queue.Init()
	c.items = make(map[string]*list.Element)
	c.values = make(map[string]any)
}

func (c *FIFOCache) Size() int { return len(c.values) }
