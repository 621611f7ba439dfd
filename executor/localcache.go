package executor

import "github.com/goliatone/go-sqlmapper/cache"

// lookupState is the tri-state outcome of a local cache probe. Modeling
// in-flight entries explicitly keeps the placeholder invisible to callers:
// no sentinel value can ever leak out as a result.
type lookupState int

const (
	lookupMiss lookupState = iota
	lookupHit
	lookupInFlight
)

// localCache is the per-session result cache. Entries are bucketed by the
// key's running hash; equality within a bucket falls back to the key's
// exact value comparison. Owned by a single executor, so no locking.
type localCache struct {
	buckets map[int32][]*localEntry
}

type localEntry struct {
	key      *cache.Key
	value    any
	inFlight bool
}

func newLocalCache() *localCache {
	return &localCache{buckets: make(map[int32][]*localEntry)}
}

// Lookup probes for key. The value is only meaningful on lookupHit.
func (c *localCache) Lookup(key *cache.Key) (any, lookupState) {
	for _, e := range c.buckets[key.HashCode()] {
		if e.key.Equal(key) {
			if e.inFlight {
				return nil, lookupInFlight
			}
			return e.value, lookupHit
		}
	}
	return nil, lookupMiss
}

// PutPlaceholder marks key as having a computation in flight.
func (c *localCache) PutPlaceholder(key *cache.Key) {
	c.put(key, nil, true)
}

// Put stores the computed value, replacing a placeholder if present.
func (c *localCache) Put(key *cache.Key, value any) {
	c.put(key, value, false)
}

func (c *localCache) put(key *cache.Key, value any, inFlight bool) {
	h := key.HashCode()
	for _, e := range c.buckets[h] {
		if e.key.Equal(key) {
			e.value = value
			e.inFlight = inFlight
			return
		}
	}
	c.buckets[h] = append(c.buckets[h], &localEntry{key: key, value: value, inFlight: inFlight})
}

// Remove drops the entry for key, placeholder or not.
func (c *localCache) Remove(key *cache.Key) {
	h := key.HashCode()
	bucket := c.buckets[h]
	for i, e := range bucket {
		if e.key.Equal(key) {
			c.buckets[h] = append(bucket[:i], bucket[i+1:]...)
			if len(c.buckets[h]) == 0 {
				delete(c.buckets, h)
			}
			return
		}
	}
}

// Clear drops every entry.
func (c *localCache) Clear() {
	c.buckets = make(map[int32][]*localEntry)
}

// Size returns the number of entries, in-flight placeholders included.
func (c *localCache) Size() int {
	n := 0
	for _, bucket := range c.buckets {
		n += len(bucket)
	}
	return n
}
