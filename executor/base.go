package executor

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-sqlmapper/cache"
	"github.com/goliatone/go-sqlmapper/mapping"
)

// strategy is the backend-specific half of an executor. baseExecutor owns
// the caching algorithm and delegates the actual statement driving here.
type strategy interface {
	doUpdate(ctx context.Context, ms *mapping.MappedStatement, param any, boundSQL mapping.BoundSQL) (int64, error)
	doQuery(ctx context.Context, ms *mapping.MappedStatement, param any, bounds mapping.RowBounds, handler mapping.ResultHandler, boundSQL mapping.BoundSQL) ([]any, error)
	doQueryCursor(ctx context.Context, ms *mapping.MappedStatement, param any, bounds mapping.RowBounds, boundSQL mapping.BoundSQL) (*Cursor, error)
	doFlushStatements(ctx context.Context, isRollback bool) ([]BatchResult, error)
}

// Option configures an executor at construction.
type Option func(*baseExecutor)

// WithMaterializer overrides the default map-row materializer.
func WithMaterializer(m ResultMaterializer) Option {
	return func(e *baseExecutor) { e.materializer = m }
}

// baseExecutor implements the query algorithm shared by every strategy:
// local cache consultation, placeholder discipline for recursive queries,
// query-stack depth tracking and deferred-load draining.
type baseExecutor struct {
	cfg          *mapping.Configuration
	tx           Transaction
	strategy     strategy
	materializer ResultMaterializer
	logger       zerolog.Logger

	localCache  *localCache
	outputCache *localCache
	deferred    []*DeferredLoad
	queryDepth  int
	closed      bool
}

func newBaseExecutor(cfg *mapping.Configuration, tx Transaction, kind Type, opts ...Option) *baseExecutor {
	e := &baseExecutor{
		cfg:          cfg,
		tx:           tx,
		materializer: MapMaterializer{},
		logger: cfg.Logger().With().
			Str("session", uuid.NewString()).
			Logger(),
		localCache:  newLocalCache(),
		outputCache: newLocalCache(),
	}
	for _, opt := range opts {
		opt(e)
	}
	switch kind {
	case Reuse:
		e.strategy = newReuseStrategy(e)
	case Batch:
		e.strategy = newBatchStrategy(e)
	default:
		e.strategy = &simpleStrategy{base: e}
	}
	return e
}

func (e *baseExecutor) Query(ctx context.Context, ms *mapping.MappedStatement, param any, bounds mapping.RowBounds, handler mapping.ResultHandler) ([]any, error) {
	if e.closed {
		return nil, ErrClosed
	}
	boundSQL, err := ms.BoundSQL(param)
	if err != nil {
		return nil, err
	}
	key := statementKey(ms, param, bounds, boundSQL, e.cfg.Environment())
	return e.QueryKeyed(ctx, ms, param, bounds, handler, key, boundSQL)
}

func (e *baseExecutor) QueryKeyed(ctx context.Context, ms *mapping.MappedStatement, param any, bounds mapping.RowBounds, handler mapping.ResultHandler, key *cache.Key, boundSQL mapping.BoundSQL) ([]any, error) {
	if e.closed {
		return nil, ErrClosed
	}
	if e.queryDepth == 0 && ms.FlushCacheRequired() {
		e.clearLocalCaches()
	}

	e.queryDepth++
	list, err := e.lookupOrExecute(ctx, ms, param, bounds, handler, key, boundSQL)
	e.queryDepth--
	if err != nil {
		return nil, err
	}

	if e.queryDepth == 0 {
		if err := e.drainDeferred(); err != nil {
			return nil, err
		}
		if e.cfg.LocalCacheScope() == mapping.ScopeStatement {
			e.clearLocalCaches()
		}
	}
	return list, nil
}

func (e *baseExecutor) lookupOrExecute(ctx context.Context, ms *mapping.MappedStatement, param any, bounds mapping.RowBounds, handler mapping.ResultHandler, key *cache.Key, boundSQL mapping.BoundSQL) ([]any, error) {
	// A custom handler consumes rows directly; the call bypasses the local
	// cache for both lookup and population.
	if handler == nil {
		if v, state := e.localCache.Lookup(key); state == lookupHit {
			e.logger.Debug().Str("statement", ms.ID()).Msg("local cache hit")
			if ms.Type() == mapping.StatementCallable {
				e.applyCachedOutputs(ms, key, param)
			}
			return v.([]any), nil
		}
	}
	return e.queryFromDatabase(ctx, ms, param, bounds, handler, key, boundSQL)
}

func (e *baseExecutor) queryFromDatabase(ctx context.Context, ms *mapping.MappedStatement, param any, bounds mapping.RowBounds, handler mapping.ResultHandler, key *cache.Key, boundSQL mapping.BoundSQL) ([]any, error) {
	e.localCache.PutPlaceholder(key)
	e.logger.Debug().Str("statement", ms.ID()).Str("sql", boundSQL.SQL).Msg("executing query")

	list, err := e.strategy.doQuery(ctx, ms, param, bounds, handler, boundSQL)
	if err != nil {
		// Never leave a poisoned placeholder behind.
		e.localCache.Remove(key)
		return nil, err
	}

	if handler == nil {
		e.localCache.Put(key, list)
	} else {
		e.localCache.Remove(key)
	}
	if ms.Type() == mapping.StatementCallable {
		e.outputCache.Put(key, ms.OutSnapshot(param))
	}
	return list, nil
}

func (e *baseExecutor) applyCachedOutputs(ms *mapping.MappedStatement, key *cache.Key, param any) {
	v, state := e.outputCache.Lookup(key)
	if state != lookupHit {
		return
	}
	snapshot, ok := v.(map[string]any)
	if !ok {
		return
	}
	ms.OutApply(param, snapshot)
}

func (e *baseExecutor) QueryCursor(ctx context.Context, ms *mapping.MappedStatement, param any, bounds mapping.RowBounds) (*Cursor, error) {
	if e.closed {
		return nil, ErrClosed
	}
	boundSQL, err := ms.BoundSQL(param)
	if err != nil {
		return nil, err
	}
	return e.strategy.doQueryCursor(ctx, ms, param, bounds, boundSQL)
}

func (e *baseExecutor) Update(ctx context.Context, ms *mapping.MappedStatement, param any) (int64, error) {
	if e.closed {
		return 0, ErrClosed
	}
	e.clearLocalCaches()
	boundSQL, err := ms.BoundSQL(param)
	if err != nil {
		return 0, err
	}
	e.logger.Debug().Str("statement", ms.ID()).Str("sql", boundSQL.SQL).Msg("executing update")
	return e.strategy.doUpdate(ctx, ms, param, boundSQL)
}

func (e *baseExecutor) FlushStatements(ctx context.Context) ([]BatchResult, error) {
	return e.flushStatements(ctx, false)
}

func (e *baseExecutor) flushStatements(ctx context.Context, isRollback bool) ([]BatchResult, error) {
	if e.closed {
		return nil, ErrClosed
	}
	return e.strategy.doFlushStatements(ctx, isRollback)
}

func (e *baseExecutor) Commit(ctx context.Context, required bool) error {
	if e.closed {
		return ErrClosed
	}
	e.clearLocalCaches()
	if _, err := e.flushStatements(ctx, false); err != nil {
		return err
	}
	if required {
		return e.tx.Commit(ctx)
	}
	return nil
}

// Rollback clears session state, discards pending batches and, when
// required, rolls back the backing transaction. Unlike Commit it is a nil
// no-op once the executor is closed, so cleanup paths that run after Close
// can call it unconditionally.
func (e *baseExecutor) Rollback(ctx context.Context, required bool) error {
	if e.closed {
		return nil
	}
	e.clearLocalCaches()
	_, flushErr := e.flushStatements(ctx, true)
	if required {
		if err := e.tx.Rollback(ctx); err != nil && flushErr == nil {
			flushErr = err
		}
	}
	return flushErr
}

func (e *baseExecutor) CreateCacheKey(ms *mapping.MappedStatement, param any, bounds mapping.RowBounds, boundSQL mapping.BoundSQL) (*cache.Key, error) {
	if e.closed {
		return nil, ErrClosed
	}
	return statementKey(ms, param, bounds, boundSQL, e.cfg.Environment()), nil
}

func (e *baseExecutor) IsCached(_ *mapping.MappedStatement, key *cache.Key) bool {
	_, state := e.localCache.Lookup(key)
	return state == lookupHit
}

func (e *baseExecutor) ClearLocalCache() {
	if !e.closed {
		e.clearLocalCaches()
	}
}

func (e *baseExecutor) DeferLoad(key *cache.Key, property string, kind TargetKind, assign AssignFunc) error {
	if e.closed {
		return ErrClosed
	}
	d := &DeferredLoad{key: key, property: property, kind: kind, assign: assign, cache: e.localCache}
	if d.CanLoad() {
		return d.Load()
	}
	e.deferred = append(e.deferred, d)
	return nil
}

func (e *baseExecutor) Transaction() Transaction { return e.tx }

func (e *baseExecutor) Close(forceRollback bool) error {
	if e.closed {
		return nil
	}
	rollbackErr := e.Rollback(context.Background(), forceRollback)

	closeErr := e.tx.Close()
	e.closed = true
	e.localCache = newLocalCache()
	e.outputCache = newLocalCache()
	e.deferred = nil

	if rollbackErr != nil {
		return rollbackErr
	}
	return closeErr
}

func (e *baseExecutor) Closed() bool { return e.closed }

func (e *baseExecutor) clearLocalCaches() {
	e.localCache.Clear()
	e.outputCache.Clear()
}

func (e *baseExecutor) drainDeferred() error {
	for len(e.deferred) > 0 {
		d := e.deferred[0]
		e.deferred = e.deferred[1:]
		if err := d.Load(); err != nil {
			e.deferred = nil
			return err
		}
	}
	e.deferred = nil
	return nil
}

// conn returns the transaction's statement surface.
func (e *baseExecutor) conn(ctx context.Context) (DB, error) {
	return e.tx.Connection(ctx)
}

// statementContext bounds ctx by the statement timeout, falling back to the
// transaction default. The returned cancel is always non-nil.
func (e *baseExecutor) statementContext(ctx context.Context, ms *mapping.MappedStatement) (context.Context, context.CancelFunc) {
	timeout := ms.Timeout()
	if timeout == 0 {
		timeout = e.tx.Timeout()
	}
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

var _ Executor = (*baseExecutor)(nil)
