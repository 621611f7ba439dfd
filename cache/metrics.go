package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheHits tracks second-level cache hits per cache id.
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlmapper_cache_hits_total",
			Help: "Total number of second-level cache hits",
		},
		[]string{"cache"},
	)

	// cacheMisses tracks second-level cache misses per cache id.
	cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlmapper_cache_misses_total",
			Help: "Total number of second-level cache misses",
		},
		[]string{"cache"},
	)

	// cachePuts tracks cache populations per cache id.
	cachePuts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlmapper_cache_puts_total",
			Help: "Total number of second-level cache populations",
		},
		[]string{"cache"},
	)

	// cacheClears tracks wholesale cache clears per cache id.
	cacheClears = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlmapper_cache_clears_total",
			Help: "Total number of second-level cache clears",
		},
		[]string{"cache"},
	)
)

// MetricsCache decorates a cache with Prometheus counters.
type MetricsCache struct {
	delegate Cache
}

// NewMetricsCache wraps delegate with hit/miss/put/clear counters labeled
// by the cache id.
func NewMetricsCache(delegate Cache) *MetricsCache {
	return &MetricsCache{delegate: delegate}
}

func (c *MetricsCache) ID() string { return c.delegate.ID() }

func (c *MetricsCache) Get(key string) (any, bool) {
	v, ok := c.delegate.Get(key)
	if ok {
		cacheHits.WithLabelValues(c.ID()).Inc()
	} else {
		cacheMisses.WithLabelValues(c.ID()).Inc()
	}
	return v, ok
}

func (c *MetricsCache) Put(key string, value any) {
	cachePuts.WithLabelValues(c.ID()).Inc()
	c.delegate.Put(key, value)
}

func (c *MetricsCache) Remove(key string) { c.delegate.Remove(key) }

func (c *MetricsCache) Clear() {
	cacheClears.WithLabelValues(c.ID()).Inc()
	c.delegate.Clear()
}

func (c *MetricsCache) Size() int { return c.delegate.Size() }
