package executor

import (
	"fmt"

	"github.com/goliatone/go-sqlmapper/cache"
	"github.com/goliatone/go-sqlmapper/mapping"
)

// TargetKind tells a deferred load how to reduce the cached row sequence
// before assignment.
type TargetKind int

const (
	// TargetSingle reduces to the lone row, or nil when the dependency
	// returned no rows.
	TargetSingle TargetKind = iota
	// TargetSlice assigns the whole row sequence.
	TargetSlice
)

// AssignFunc injects the resolved value onto the waiting result object.
// Accessors are supplied by the result-mapping layer at build time.
type AssignFunc func(value any)

// DeferredLoad records a lazy nested-result resolution requested while a
// parent query was still executing. It is resolved immediately when its
// dependency is already cached, otherwise queued and drained once the
// outermost query returns.
type DeferredLoad struct {
	key      *cache.Key
	property string
	kind     TargetKind
	assign   AssignFunc
	cache    *localCache
}

// CanLoad reports whether the dependency is cached and not in flight.
func (d *DeferredLoad) CanLoad() bool {
	_, state := d.cache.Lookup(d.key)
	return state == lookupHit
}

// Load reduces the cached rows to the target shape and assigns them. A
// dependency that is no longer cached (the local cache was cleared while
// the load was queued) is skipped silently.
func (d *DeferredLoad) Load() error {
	v, state := d.cache.Lookup(d.key)
	if state != lookupHit {
		return nil
	}
	rows, ok := v.([]any)
	if !ok {
		return fmt.Errorf("executor: deferred load for %q: cached value is %T, not a row list", d.property, v)
	}
	switch d.kind {
	case TargetSlice:
		d.assign(rows)
	case TargetSingle:
		switch len(rows) {
		case 0:
			d.assign(nil)
		case 1:
			d.assign(rows[0])
		default:
			return fmt.Errorf("executor: deferred load for %q expected one row, got %d", d.property, len(rows))
		}
	default:
		return fmt.Errorf("executor: deferred load for %q: unknown target kind %d", d.property, d.kind)
	}
	return nil
}

// statementKey builds the cache key contribution order shared by queries
// and deferred dependencies.
func statementKey(ms *mapping.MappedStatement, param any, bounds mapping.RowBounds, boundSQL mapping.BoundSQL, environment string) *cache.Key {
	key := cache.NewKey()
	key.Update(ms.ID())
	key.Update(bounds.Offset)
	key.Update(bounds.Limit)
	key.Update(boundSQL.SQL)
	for _, pm := range boundSQL.ParameterMappings {
		if pm.Mode == mapping.ModeOut {
			continue
		}
		key.Update(pm.Value(param))
	}
	if environment != "" {
		key.Update(environment)
	}
	return key
}
