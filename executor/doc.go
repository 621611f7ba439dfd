// Package executor runs mapped statements against database/sql with
// session-scoped result caching, deferred nested loads and batched updates.
//
// # Executor types
//
// Three strategies share one session core:
//
//   - Simple prepares a statement per call and closes it immediately.
//   - Reuse keeps prepared statements keyed by SQL text until flush or close.
//   - Batch accumulates updates and executes them together on flush,
//     returning BatchPendingCount from Update until then.
//
// Construct one with New; when the configuration enables second-level
// caching the executor is wrapped in a CachingExecutor transparently.
//
// # Local cache
//
// Every query result is keyed by a cache.Key built from the statement id,
// row bounds, rendered SQL, parameter values and environment. A placeholder
// marks in-flight executions so recursive lookups of the same key during
// result mapping register a deferred load instead of re-querying.
//
// # Second-level cache
//
// CachingExecutor stages cache writes per transaction and publishes them on
// commit, so uncommitted results never leak to other sessions. A rollback
// discards the staged entries and releases any blocking-cache locks acquired
// on misses.
//
// Executors are not safe for concurrent use. Each instance belongs to one
// logical session.
package executor
