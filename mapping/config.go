package mapping

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-sqlmapper/cache"
)

// LocalCacheScope controls the lifetime of the per-session local cache.
type LocalCacheScope int

const (
	// ScopeSession keeps local cache entries until an update, commit,
	// rollback or close invalidates them.
	ScopeSession LocalCacheScope = iota
	// ScopeStatement clears the local cache after every top-level call, so
	// sequential identical queries always produce distinct result objects.
	ScopeStatement
)

// Configuration is the explicit registry owned by the session factory. It
// holds statement descriptors and namespace caches and carries the settings
// executors consult. There is no package-level registry; construct one and
// pass it around.
type Configuration struct {
	environment  string
	scope        LocalCacheScope
	cacheEnabled bool
	logger       zerolog.Logger
	statements   map[string]*MappedStatement
	caches       map[string]cache.Cache
}

// NewConfiguration creates an empty registry for the given environment id.
// The environment id contributes to cache keys so results from different
// environments never collide. Second-level caching defaults to enabled.
func NewConfiguration(environment string) *Configuration {
	return &Configuration{
		environment:  environment,
		cacheEnabled: true,
		logger:       zerolog.Nop(),
		statements:   make(map[string]*MappedStatement),
		caches:       make(map[string]cache.Cache),
	}
}

// Environment returns the environment id, possibly empty.
func (c *Configuration) Environment() string { return c.environment }

// LocalCacheScope returns the configured local cache lifetime.
func (c *Configuration) LocalCacheScope() LocalCacheScope { return c.scope }

// SetLocalCacheScope configures the local cache lifetime.
func (c *Configuration) SetLocalCacheScope(scope LocalCacheScope) { c.scope = scope }

// CacheEnabled reports whether executors should consult second-level
// caches at all.
func (c *Configuration) CacheEnabled() bool { return c.cacheEnabled }

// SetCacheEnabled toggles second-level caching globally.
func (c *Configuration) SetCacheEnabled(enabled bool) { c.cacheEnabled = enabled }

// Logger returns the configured logger; defaults to a no-op logger.
func (c *Configuration) Logger() zerolog.Logger { return c.logger }

// SetLogger installs the logger executors and caches derive theirs from.
func (c *Configuration) SetLogger(logger zerolog.Logger) { c.logger = logger }

// AddStatement registers a statement descriptor. Duplicate ids are an
// error; descriptors are immutable so replacement is never needed.
func (c *Configuration) AddStatement(ms *MappedStatement) error {
	if _, exists := c.statements[ms.ID()]; exists {
		return fmt.Errorf("mapping: statement %q already registered", ms.ID())
	}
	c.statements[ms.ID()] = ms
	return nil
}

// Statement looks up a descriptor by id.
func (c *Configuration) Statement(id string) (*MappedStatement, error) {
	ms, ok := c.statements[id]
	if !ok {
		return nil, fmt.Errorf("mapping: unknown statement %q", id)
	}
	return ms, nil
}

// AddCache registers a namespace cache.
func (c *Configuration) AddCache(cch cache.Cache) error {
	if _, exists := c.caches[cch.ID()]; exists {
		return fmt.Errorf("mapping: cache %q already registered", cch.ID())
	}
	c.caches[cch.ID()] = cch
	return nil
}

// Cache looks up a namespace cache by id; nil when absent.
func (c *Configuration) Cache(id string) cache.Cache {
	return c.caches[id]
}

// Caches returns every registered namespace cache.
func (c *Configuration) Caches() []cache.Cache {
	out := make([]cache.Cache, 0, len(c.caches))
	for _, cch := range c.caches {
		out = append(out, cch)
	}
	return out
}
