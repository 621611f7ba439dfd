package cache

import (
	"fmt"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// BlockingCache provides single-flight semantics per key. Get acquires a
// per-key lock; when the value is absent the lock stays held, so exactly
// one caller computes the miss while every other caller for the same key
// blocks. The computing caller must release the lock by calling Put (on
// success) or Remove (on failure or abandonment) for that key.
//
// BlockingCache must be the outermost decorator so the guarantee spans the
// full read-then-populate cycle through the inner layers.
type BlockingCache struct {
	delegate Cache
	timeout  time.Duration
	locks    *xsync.MapOf[string, chan struct{}]
}

// NewBlockingCache wraps delegate with per-key miss locking. A timeout of
// zero waits indefinitely; otherwise Get panics when the lock cannot be
// acquired in time, which surfaces a stuck computation as a usage error.
func NewBlockingCache(delegate Cache, timeout time.Duration) *BlockingCache {
	return &BlockingCache{
		delegate: delegate,
		timeout:  timeout,
		locks:    xsync.NewMapOf[string, chan struct{}](),
	}
}

func (c *BlockingCache) ID() string { return c.delegate.ID() }

// Get returns the cached value. On a miss the per-key lock remains held
// until the caller invokes Put or Remove for the same key.
func (c *BlockingCache) Get(key string) (any, bool) {
	c.acquire(key)
	v, ok := c.delegate.Get(key)
	if ok {
		c.release(key)
	}
	return v, ok
}

// Put stores the value and releases the key's lock.
func (c *BlockingCache) Put(key string, value any) {
	c.delegate.Put(key, value)
	c.release(key)
}

// Remove releases the key's lock without touching the delegate; the entry
// is intentionally left for the next computation to populate.
func (c *BlockingCache) Remove(key string) {
	c.release(key)
}

func (c *BlockingCache) Clear()    { c.delegate.Clear() }
func (c *BlockingCache) Size() int { return c.delegate.Size() }

func (c *BlockingCache) acquire(key string) {
	sem, _ := c.locks.LoadOrCompute(key, func() chan struct{} {
		return make(chan struct{}, 1)
	})
	if c.timeout <= 0 {
		sem <- struct{}{}
		return
	}
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case sem <- struct{}{}:
	case <-timer.C:
		panic(fmt.Sprintf("cache %s: could not acquire lock for key %s within %s", c.ID(), key, c.timeout))
	}
}

func (c *BlockingCache) release(key string) {
	sem, ok := c.locks.Load(key)
	if !ok {
		return
	}
	select {
	case <-sem:
	default:
		// Releasing an unheld lock is a no-op.
	}
}
