package executor

import (
	"context"
	"fmt"

	"github.com/goliatone/go-sqlmapper/cache"
	"github.com/goliatone/go-sqlmapper/mapping"
)

// CachingExecutor decorates an executor with second-level caching. Results
// are staged per transaction and only published to the shared caches on
// commit, so other sessions never observe uncommitted data.
type CachingExecutor struct {
	delegate Executor
	tcm      *transactionalCacheManager
}

var _ Executor = (*CachingExecutor)(nil)

// NewCachingExecutor wraps delegate with second-level cache handling.
func NewCachingExecutor(delegate Executor) *CachingExecutor {
	return &CachingExecutor{
		delegate: delegate,
		tcm:      newTransactionalCacheManager(),
	}
}

func (e *CachingExecutor) Query(ctx context.Context, ms *mapping.MappedStatement, param any, bounds mapping.RowBounds, handler mapping.ResultHandler) ([]any, error) {
	boundSQL, err := ms.BoundSQL(param)
	if err != nil {
		return nil, err
	}
	key, err := e.delegate.CreateCacheKey(ms, param, bounds, boundSQL)
	if err != nil {
		return nil, err
	}
	return e.QueryKeyed(ctx, ms, param, bounds, handler, key, boundSQL)
}

func (e *CachingExecutor) QueryKeyed(ctx context.Context, ms *mapping.MappedStatement, param any, bounds mapping.RowBounds, handler mapping.ResultHandler, key *cache.Key, boundSQL mapping.BoundSQL) ([]any, error) {
	// Refuse before consulting the staged caches; a stale session must not
	// keep serving hits after Close.
	if e.delegate.Closed() {
		return nil, ErrClosed
	}
	c := ms.Cache()
	if c != nil {
		e.flushCacheIfRequired(ms)
		if ms.UseCache() && handler == nil {
			if boundSQL.HasOutParams() {
				return nil, fmt.Errorf("executor: caching stored procedures with OUT parameters is not supported, remove the cache from statement %q", ms.ID())
			}
			if list, ok := e.tcm.get(c, key.Digest()); ok {
				return list, nil
			}
			list, err := e.delegate.QueryKeyed(ctx, ms, param, bounds, handler, key, boundSQL)
			if err != nil {
				return nil, err
			}
			e.tcm.put(c, key.Digest(), list)
			return list, nil
		}
	}
	return e.delegate.QueryKeyed(ctx, ms, param, bounds, handler, key, boundSQL)
}

func (e *CachingExecutor) QueryCursor(ctx context.Context, ms *mapping.MappedStatement, param any, bounds mapping.RowBounds) (*Cursor, error) {
	e.flushCacheIfRequired(ms)
	return e.delegate.QueryCursor(ctx, ms, param, bounds)
}

func (e *CachingExecutor) Update(ctx context.Context, ms *mapping.MappedStatement, param any) (int64, error) {
	e.flushCacheIfRequired(ms)
	return e.delegate.Update(ctx, ms, param)
}

func (e *CachingExecutor) FlushStatements(ctx context.Context) ([]BatchResult, error) {
	return e.delegate.FlushStatements(ctx)
}

// Commit publishes staged entries to the shared caches only after the
// delegate commits successfully.
func (e *CachingExecutor) Commit(ctx context.Context, required bool) error {
	if err := e.delegate.Commit(ctx, required); err != nil {
		return err
	}
	e.tcm.commit()
	return nil
}

// Rollback discards staged entries. Missed keys are removed from the shared
// caches either way so that blocking caches release the locks this session
// acquired on its misses.
func (e *CachingExecutor) Rollback(ctx context.Context, required bool) error {
	err := e.delegate.Rollback(ctx, required)
	if required {
		e.tcm.rollback()
	}
	return err
}

func (e *CachingExecutor) CreateCacheKey(ms *mapping.MappedStatement, param any, bounds mapping.RowBounds, boundSQL mapping.BoundSQL) (*cache.Key, error) {
	return e.delegate.CreateCacheKey(ms, param, bounds, boundSQL)
}

func (e *CachingExecutor) IsCached(ms *mapping.MappedStatement, key *cache.Key) bool {
	return e.delegate.IsCached(ms, key)
}

func (e *CachingExecutor) ClearLocalCache() { e.delegate.ClearLocalCache() }

func (e *CachingExecutor) DeferLoad(key *cache.Key, property string, kind TargetKind, assign AssignFunc) error {
	return e.delegate.DeferLoad(key, property, kind, assign)
}

func (e *CachingExecutor) Transaction() Transaction { return e.delegate.Transaction() }

func (e *CachingExecutor) Close(forceRollback bool) error {
	if forceRollback {
		e.tcm.rollback()
	} else {
		e.tcm.commit()
	}
	return e.delegate.Close(forceRollback)
}

func (e *CachingExecutor) Closed() bool { return e.delegate.Closed() }

func (e *CachingExecutor) flushCacheIfRequired(ms *mapping.MappedStatement) {
	if c := ms.Cache(); c != nil && ms.FlushCacheRequired() {
		e.tcm.clear(c)
	}
}

// transactionalCacheManager lazily wraps every shared cache this session
// touches in a staging layer keyed by the cache instance itself.
type transactionalCacheManager struct {
	caches map[cache.Cache]*transactionalCache
}

func newTransactionalCacheManager() *transactionalCacheManager {
	return &transactionalCacheManager{caches: make(map[cache.Cache]*transactionalCache)}
}

func (m *transactionalCacheManager) staged(c cache.Cache) *transactionalCache {
	tc, ok := m.caches[c]
	if !ok {
		tc = newTransactionalCache(c)
		m.caches[c] = tc
	}
	return tc
}

func (m *transactionalCacheManager) clear(c cache.Cache) { m.staged(c).Clear() }

func (m *transactionalCacheManager) get(c cache.Cache, key string) ([]any, bool) {
	v, ok := m.staged(c).Get(key)
	if !ok || v == nil {
		return nil, false
	}
	list, ok := v.([]any)
	return list, ok
}

func (m *transactionalCacheManager) put(c cache.Cache, key string, list []any) {
	m.staged(c).Put(key, list)
}

func (m *transactionalCacheManager) commit() {
	for _, tc := range m.caches {
		tc.commit()
	}
}

func (m *transactionalCacheManager) rollback() {
	for _, tc := range m.caches {
		tc.rollback()
	}
}

// transactionalCache stages writes to a shared cache until commit. Reads go
// straight to the delegate; the session's own staged entries stay invisible
// even to itself so a rollback leaves no trace. Keys that missed are
// remembered: blocking caches hold a lock per missed key, and commit or
// rollback must touch those keys again to release them.
type transactionalCache struct {
	delegate      cache.Cache
	clearOnCommit bool
	toAddOnCommit map[string]any
	missed        map[string]struct{}
}

func newTransactionalCache(delegate cache.Cache) *transactionalCache {
	return &transactionalCache{
		delegate:      delegate,
		toAddOnCommit: make(map[string]any),
		missed:        make(map[string]struct{}),
	}
}

func (t *transactionalCache) Get(key string) (any, bool) {
	v, ok := t.delegate.Get(key)
	if !ok || v == nil {
		t.missed[key] = struct{}{}
	}
	if t.clearOnCommit {
		// A staged clear masks everything already in the delegate.
		return nil, false
	}
	return v, ok
}

func (t *transactionalCache) Put(key string, value any) {
	t.toAddOnCommit[key] = value
}

func (t *transactionalCache) Clear() {
	t.clearOnCommit = true
	t.toAddOnCommit = make(map[string]any)
}

func (t *transactionalCache) commit() {
	if t.clearOnCommit {
		t.delegate.Clear()
	}
	for key, value := range t.toAddOnCommit {
		t.delegate.Put(key, value)
	}
	// Missed keys that were never resolved still need a write so blocking
	// caches release their per-key locks.
	for key := range t.missed {
		if _, ok := t.toAddOnCommit[key]; !ok {
			t.delegate.Put(key, nil)
		}
	}
	t.reset()
}

func (t *transactionalCache) rollback() {
	for key := range t.missed {
		t.delegate.Remove(key)
	}
	t.reset()
}

func (t *transactionalCache) reset() {
	t.clearOnCommit = false
	t.toAddOnCommit = make(map[string]any)
	t.missed = make(map[string]struct{})
}
