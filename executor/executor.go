package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-sqlmapper/cache"
	"github.com/goliatone/go-sqlmapper/mapping"
)

// ErrClosed is returned by every operation on a closed executor.
var ErrClosed = errors.New("executor: closed")

// Type selects the backend execution strategy.
type Type int

const (
	// Simple prepares a fresh statement per call and closes it immediately.
	Simple Type = iota
	// Reuse keeps prepared statements keyed by SQL text for the lifetime of
	// the executor.
	Reuse
	// Batch accumulates updates and submits them together on flush.
	Batch
)

// BatchPendingCount is returned by Update on a batch executor: the real
// update counts are unknown until the batch flushes.
const BatchPendingCount int64 = -2147482646

// Executor runs mapped statements against a transactional backend with
// per-session result caching. Executors are not safe for concurrent use;
// each instance is owned by exactly one logical caller at a time.
type Executor interface {
	// Query executes a select statement, consulting the local cache first.
	Query(ctx context.Context, ms *mapping.MappedStatement, param any, bounds mapping.RowBounds, handler mapping.ResultHandler) ([]any, error)

	// QueryKeyed is Query with a pre-built cache key and rendered SQL, used
	// by decorating executors to avoid rendering twice.
	QueryKeyed(ctx context.Context, ms *mapping.MappedStatement, param any, bounds mapping.RowBounds, handler mapping.ResultHandler, key *cache.Key, boundSQL mapping.BoundSQL) ([]any, error)

	// QueryCursor streams results without touching either cache layer.
	QueryCursor(ctx context.Context, ms *mapping.MappedStatement, param any, bounds mapping.RowBounds) (*Cursor, error)

	// Update executes an insert/update/delete, invalidating the local cache.
	Update(ctx context.Context, ms *mapping.MappedStatement, param any) (int64, error)

	// FlushStatements submits any pending batched statements.
	FlushStatements(ctx context.Context) ([]BatchResult, error)

	// Commit clears caches, flushes batches and, when required, commits the
	// underlying transaction.
	Commit(ctx context.Context, required bool) error

	// Rollback clears caches, discards batches and, when required, rolls
	// back the underlying transaction. On a closed executor it is a nil
	// no-op rather than an error, so post-Close cleanup can always call it.
	Rollback(ctx context.Context, required bool) error

	// CreateCacheKey builds the fingerprint for one logical call.
	CreateCacheKey(ms *mapping.MappedStatement, param any, bounds mapping.RowBounds, boundSQL mapping.BoundSQL) (*cache.Key, error)

	// IsCached reports whether the local cache holds a result for key.
	IsCached(ms *mapping.MappedStatement, key *cache.Key) bool

	// ClearLocalCache drops all locally cached results.
	ClearLocalCache()

	// DeferLoad resolves a nested result dependency now if its key is
	// cached, or queues it until the outermost query completes.
	DeferLoad(key *cache.Key, property string, kind TargetKind, assign AssignFunc) error

	// Transaction exposes the underlying transaction.
	Transaction() Transaction

	// Close rolls back or commits pending work and releases the transaction.
	// The executor is unusable afterwards.
	Close(forceRollback bool) error

	// Closed reports whether Close has run.
	Closed() bool
}

// BatchResult accumulates the outcome of one batched statement run: the
// parameter objects added in order and, after a successful flush, the
// per-row update counts.
type BatchResult struct {
	Statement        *mapping.MappedStatement
	SQL              string
	ParameterObjects []any
	UpdateCounts     []int64
}

// BatchError reports a batch flush failure with enough context to recover
// already-completed work: which statement failed, its 1-based position in
// the flush, and the results of the statements that succeeded before it.
type BatchError struct {
	StatementID string
	Position    int
	Successful  []BatchResult
	Err         error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("executor: batch statement %q at position %d failed after %d successful statement(s): %v",
		e.StatementID, e.Position, len(e.Successful), e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// New creates an executor of the given type bound to tx. When the
// configuration enables second-level caching the returned executor is
// wrapped with the caching decorator.
func New(cfg *mapping.Configuration, tx Transaction, kind Type, opts ...Option) Executor {
	base := newBaseExecutor(cfg, tx, kind, opts...)
	if cfg.CacheEnabled() {
		return NewCachingExecutor(base)
	}
	return base
}
