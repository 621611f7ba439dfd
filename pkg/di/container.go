// Package di wires configuration, database handle and caches into a
// session factory for executors.
package di

import (
	"database/sql"
	"errors"

	"github.com/goliatone/go-sqlmapper/cache"
	"github.com/goliatone/go-sqlmapper/executor"
	"github.com/goliatone/go-sqlmapper/mapping"
)

// Container owns the long-lived pieces of a mapper setup: the statement
// registry, the database pool and the shared namespace caches. Executors
// created from it are short-lived and single-session.
type Container struct {
	cfg    *mapping.Configuration
	db     *sql.DB
	kind   executor.Type
	txOpts []executor.TxOption
}

// Option configures a Container.
type Option func(*Container)

// WithDefaultExecutorType sets the strategy NewDefaultExecutor uses.
func WithDefaultExecutorType(t executor.Type) Option {
	return func(c *Container) { c.kind = t }
}

// WithTransactionOptions sets the options applied to every transaction the
// container opens (timeout, isolation, auto-commit).
func WithTransactionOptions(opts ...executor.TxOption) Option {
	return func(c *Container) { c.txOpts = opts }
}

// New creates a container over the given registry and pool.
func New(cfg *mapping.Configuration, db *sql.DB, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("di: configuration must not be nil")
	}
	if db == nil {
		return nil, errors.New("di: db must not be nil")
	}
	c := &Container{cfg: cfg, db: db, kind: executor.Simple}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Configuration returns the statement registry.
func (c *Container) Configuration() *mapping.Configuration { return c.cfg }

// DB returns the underlying pool.
func (c *Container) DB() *sql.DB { return c.db }

// NewExecutor opens a transaction and binds an executor of the given type
// to it. The caller owns the executor and must Close it.
func (c *Container) NewExecutor(kind executor.Type, opts ...executor.Option) executor.Executor {
	tx := executor.NewTransaction(c.db, c.txOpts...)
	return executor.New(c.cfg, tx, kind, opts...)
}

// NewDefaultExecutor is NewExecutor with the container's default type.
func (c *Container) NewDefaultExecutor(opts ...executor.Option) executor.Executor {
	return c.NewExecutor(c.kind, opts...)
}

// RegisterCache builds a cache chain and registers it as a namespace cache
// in one step.
func (c *Container) RegisterCache(b *cache.Builder) (cache.Cache, error) {
	cch, err := b.Build()
	if err != nil {
		return nil, err
	}
	if err := c.cfg.AddCache(cch); err != nil {
		return nil, err
	}
	return cch, nil
}
