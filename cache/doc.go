// Package cache provides the statement cache key and the composable
// second-level cache chain shared across sessions.
//
// # Overview
//
// The package exports two building blocks:
//
//   - Key: a deterministic fingerprint of a logical statement call, built
//     from the statement id, pagination bounds, rendered SQL and parameter
//     values. It backs both the per-session local cache and the shared
//     second-level cache.
//   - Cache: a string-keyed get/put/remove/clear/size contract implemented
//     by base stores (perpetual, LRU, FIFO, weak, TTL, Redis) and layered
//     decorators (logging, metrics, serialization, synchronization,
//     scheduled clearing, blocking).
//
// # Building a cache chain
//
// Chains are assembled by explicit configuration through the Builder;
// decorator order is fixed and enforced by Build:
//
//	c, err := cache.NewBuilder("app.UserMapper").
//		Eviction(cache.EvictLRU).
//		Capacity(512).
//		ReadWrite().
//		Blocking(0).
//		Build()
//
// Blocking is always outermost so its per-key single-flight guarantee spans
// the full read-then-populate cycle; synchronization always sits beneath it
// to protect the underlying store during concurrent access on other keys.
//
// # Key construction
//
// Keys fold each contributed value into a running hash and checksum, and
// keep the raw values as the exact-equality fallback:
//
//	key := cache.NewKey("app.selectUser", 0, math.MaxInt32, sql, 42, "dev")
//
// Value hashing is resolved through a fixed type switch or the optional
// Hasher interface. Maps fold their entries order-independently, since Go
// randomizes iteration order; everything else falls back to a sorted-key
// msgpack encoding. Equal inputs always produce equal keys.
package cache
