package cache

// Cache is the contract shared by base stores and decorators in the
// second-level cache chain. Keys are canonical strings, typically produced
// by Key.Digest.
//
// Base stores are not safe for concurrent use on their own; thread safety
// for a shared cache instance is provided by SynchronizedCache (and, for
// single-flight semantics, BlockingCache) in the decorator chain.
type Cache interface {
	// ID identifies the cache instance, usually a mapping namespace.
	ID() string

	// Get returns the cached value for key and whether it was present.
	Get(key string) (any, bool)

	// Put stores value under key, replacing any previous entry.
	Put(key string, value any)

	// Remove evicts the entry for key if present.
	Remove(key string)

	// Clear evicts every entry.
	Clear()

	// Size returns the number of live entries.
	Size() int
}

// ConfigError reports an invalid cache configuration value. Cache
// construction errors are fatal at build time and never deferred.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "cache config error in field " + e.Field + ": " + e.Message
}
