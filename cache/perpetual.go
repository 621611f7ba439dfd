package cache

// PerpetualCache is the unbounded map-backed base store. Entries stay until
// removed or cleared. Not safe for concurrent use; wrap it with
// SynchronizedCache when shared.
type PerpetualCache struct {
	id    string
	store map[string]any
}

// NewPerpetualCache creates an empty perpetual cache with the given id.
func NewPerpetualCache(id string) *PerpetualCache {
	return &PerpetualCache{id: id, store: make(map[string]any)}
}

func (c *PerpetualCache) ID() string { return c.id }

func (c *PerpetualCache) Get(key string) (any, bool) {
	v, ok := c.store[key]
	return v, ok
}

func (c *PerpetualCache) Put(key string, value any) {
	c.store[key] = value
}

func (c *PerpetualCache) Remove(key string) {
	delete(c.store, key)
}

func (c *PerpetualCache) Clear() {
	c.store = make(map[string]any)
}

func (c *PerpetualCache) Size() int { return len(c.store) }
