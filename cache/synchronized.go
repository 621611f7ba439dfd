package cache

import "sync"

// SynchronizedCache guards every operation on the delegate with a single
// coarse-grained mutex. It is the layer that makes a shared cache instance
// safe for concurrent sessions; it must sit beneath BlockingCache so the
// per-key locks serialize miss computation while this mutex protects the
// underlying structure.
type SynchronizedCache struct {
	mu       sync.Mutex
	delegate Cache
}

// NewSynchronizedCache wraps delegate with a mutex.
func NewSynchronizedCache(delegate Cache) *SynchronizedCache {
	return &SynchronizedCache{delegate: delegate}
}

func (c *SynchronizedCache) ID() string { return c.delegate.ID() }

func (c *SynchronizedCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delegate.Get(key)
}

func (c *SynchronizedCache) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delegate.Put(key, value)
}

func (c *SynchronizedCache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delegate.Remove(key)
}

func (c *SynchronizedCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delegate.Clear()
}

func (c *SynchronizedCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delegate.Size()
}
