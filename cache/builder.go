package cache

import (
	"time"

	"github.com/rs/zerolog"
)

// Eviction selects the base store policy for a built cache.
type Eviction int

const (
	// EvictLRU bounds the cache and drops the least-recently-used entry.
	EvictLRU Eviction = iota
	// EvictFIFO bounds the cache and drops the oldest entry.
	EvictFIFO
	// EvictWeak lets the garbage collector reclaim entries.
	EvictWeak
	// EvictTTL drops entries after a fixed time-to-live.
	EvictTTL
	// EvictNone keeps every entry until an explicit clear.
	EvictNone
)

const defaultCapacity = 1024

// Builder assembles a second-level cache chain by explicit configuration.
// Decorators are layered inside-out in a fixed order: base store, logging,
// metrics, serialization, synchronization, scheduled clearing, blocking.
// Synchronization is always applied; the rest are opt-in.
type Builder struct {
	id              string
	base            Cache
	eviction        Eviction
	capacity        int
	ttl             time.Duration
	logger          *zerolog.Logger
	metrics         bool
	readWrite       bool
	clearInterval   time.Duration
	blocking        bool
	blockingTimeout time.Duration
}

// NewBuilder starts a builder for a cache identified by id, typically the
// mapping namespace. The default configuration is an LRU base store with a
// capacity of 1024 entries, synchronized, without the optional layers.
func NewBuilder(id string) *Builder {
	return &Builder{
		id:       id,
		eviction: EvictLRU,
		capacity: defaultCapacity,
	}
}

// Base supplies a custom base store (for example a shared Redis store) and
// overrides the eviction policy.
func (b *Builder) Base(base Cache) *Builder {
	b.base = base
	return b
}

// Eviction selects the base store policy.
func (b *Builder) Eviction(policy Eviction) *Builder {
	b.eviction = policy
	return b
}

// Capacity bounds the base store for the LRU and FIFO policies.
func (b *Builder) Capacity(n int) *Builder {
	b.capacity = n
	return b
}

// TTL sets the entry lifetime for the TTL policy.
func (b *Builder) TTL(d time.Duration) *Builder {
	b.ttl = d
	return b
}

// Logging enables the hit-ratio logging decorator.
func (b *Builder) Logging(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// Metrics enables the Prometheus counter decorator.
func (b *Builder) Metrics() *Builder {
	b.metrics = true
	return b
}

// ReadWrite marks the cache read-write: returned values are deep-copied
// through serialization so callers can mutate them safely.
func (b *Builder) ReadWrite() *Builder {
	b.readWrite = true
	return b
}

// ClearInterval enables scheduled clearing.
func (b *Builder) ClearInterval(d time.Duration) *Builder {
	b.clearInterval = d
	return b
}

// Blocking enables single-flight miss locking. A zero timeout waits
// indefinitely.
func (b *Builder) Blocking(timeout time.Duration) *Builder {
	b.blocking = true
	b.blockingTimeout = timeout
	return b
}

// Validate checks the configuration without building.
func (b *Builder) Validate() error {
	if b.id == "" {
		return &ConfigError{Field: "ID", Message: "must not be empty"}
	}
	if b.base == nil {
		switch b.eviction {
		case EvictLRU, EvictFIFO:
			if b.capacity <= 0 {
				return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
			}
		case EvictTTL:
			if b.ttl <= 0 {
				return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
			}
		case EvictWeak, EvictNone:
		default:
			return &ConfigError{Field: "Eviction", Message: "unknown policy"}
		}
	}
	if b.clearInterval < 0 {
		return &ConfigError{Field: "ClearInterval", Message: "must not be negative"}
	}
	if b.blockingTimeout < 0 {
		return &ConfigError{Field: "BlockingTimeout", Message: "must not be negative"}
	}
	return nil
}

// Build assembles the chain. Construction errors are fatal to the build and
// never deferred to first use.
func (b *Builder) Build() (Cache, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	c := b.base
	if c == nil {
		switch b.eviction {
		case EvictLRU:
			c = NewLRUCache(b.id, b.capacity)
		case EvictFIFO:
			c = NewFIFOCache(b.id, b.capacity)
		case EvictWeak:
			c = NewWeakCache(b.id)
		case EvictTTL:
			c = NewExpiringCache(b.id, b.ttl)
		case EvictNone:
			c = NewPerpetualCache(b.id)
		}
	}

	if b.logger != nil {
		c = NewLoggedCache(c, *b.logger)
	}
	if b.metrics {
		c = NewMetricsCache(c)
	}
	if b.readWrite {
		c = NewSerializedCache(c)
	}
	c = NewSynchronizedCache(c)
	if b.clearInterval > 0 {
		c = NewScheduledCache(c, b.clearInterval)
	}
	if b.blocking {
		c = NewBlockingCache(c, b.blockingTimeout)
	}
	return c, nil
}
