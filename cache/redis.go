package cache

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-sqlmapper/internal/redisstore"
)

// RedisConfig configures a Redis-backed base store for a cache chain shared
// across processes.
type RedisConfig struct {
	// Addr is the host:port of the Redis server.
	Addr string

	// Password authenticates against the server; empty for none.
	Password string

	// DB selects the Redis logical database.
	DB int

	// TTL is the lifetime Redis applies to every entry. Zero keeps entries
	// until explicitly removed or cleared.
	TTL time.Duration

	// OpTimeout bounds each Redis round-trip. Defaults to 5s.
	OpTimeout time.Duration

	// Logger receives warnings when Redis operations fail; failures degrade
	// to cache misses rather than surfacing errors to query execution.
	Logger zerolog.Logger
}

// NewRedisCache creates a base store over Redis keyed under the cache id.
// The returned store is already safe for concurrent use; the builder still
// layers decorators above it the same way as for in-memory stores.
func NewRedisCache(id string, cfg RedisConfig) (Cache, error) {
	return redisstore.New(id, redisstore.Config{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TTL:       cfg.TTL,
		OpTimeout: cfg.OpTimeout,
		Logger:    cfg.Logger,
	})
}
