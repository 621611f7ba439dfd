package mapping

import (
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-sqlmapper/cache"
)

// StatementType selects how the backend statement is driven.
type StatementType int

const (
	// StatementPrepared is a regular prepared statement.
	StatementPrepared StatementType = iota
	// StatementCallable is a stored-procedure call that may declare OUT
	// parameters.
	StatementCallable
)

// ParameterMode declares the direction of a bound parameter.
type ParameterMode int

const (
	ModeIn ParameterMode = iota
	ModeOut
	ModeInOut
)

// ValueFunc extracts a parameter value from the caller's parameter object.
// Accessors are resolved once when the statement is built, never through
// reflection at call time.
type ValueFunc func(param any) any

// ParameterMapping binds one placeholder of the rendered SQL to a value of
// the parameter object.
type ParameterMapping struct {
	Property string
	Mode     ParameterMode
	Value    ValueFunc
}

// BoundSQL is the output of a renderer: SQL text with placeholder syntax of
// the target driver plus the ordered parameter bindings.
type BoundSQL struct {
	SQL               string
	ParameterMappings []ParameterMapping
}

// Args resolves the IN and INOUT parameter values in declaration order.
func (b BoundSQL) Args(param any) []any {
	args := make([]any, 0, len(b.ParameterMappings))
	for _, pm := range b.ParameterMappings {
		if pm.Mode == ModeOut {
			continue
		}
		args = append(args, pm.Value(param))
	}
	return args
}

// HasOutParams reports whether any mapping declares OUT or INOUT mode.
func (b BoundSQL) HasOutParams() bool {
	for _, pm := range b.ParameterMappings {
		if pm.Mode == ModeOut || pm.Mode == ModeInOut {
			return true
		}
	}
	return false
}

// SQLSource renders a statement descriptor and a parameter object into
// bound SQL. Dynamic SQL engines implement this; StaticSQLSource covers the
// common fixed-text case.
type SQLSource interface {
	BoundSQL(param any) (BoundSQL, error)
}

// StaticSQLSource is a renderer for fixed SQL text with a fixed binding
// list.
type StaticSQLSource struct {
	sql      string
	mappings []ParameterMapping
}

// NewStaticSQLSource creates a renderer that always returns the given text
// and bindings.
func NewStaticSQLSource(sql string, mappings ...ParameterMapping) *StaticSQLSource {
	return &StaticSQLSource{sql: sql, mappings: mappings}
}

func (s *StaticSQLSource) BoundSQL(any) (BoundSQL, error) {
	return BoundSQL{SQL: s.sql, ParameterMappings: s.mappings}, nil
}

// OutSnapshotFunc captures a statement's OUT parameter values from the
// parameter object after execution, for local output-parameter caching.
type OutSnapshotFunc func(param any) map[string]any

// OutApplyFunc copies a cached OUT parameter snapshot back onto the
// caller's parameter object.
type OutApplyFunc func(param any, snapshot map[string]any)

// MappedStatement is the immutable descriptor of one executable statement.
// Build one with NewStatement; descriptors are shared and must not change
// after construction.
type MappedStatement struct {
	id                 string
	statementType      StatementType
	source             SQLSource
	flushCacheRequired bool
	useCache           bool
	cache              cache.Cache
	keyGenerator       KeyGenerator
	timeout            time.Duration
	outSnapshot        OutSnapshotFunc
	outApply           OutApplyFunc
}

// StatementBuilder assembles a MappedStatement.
type StatementBuilder struct {
	ms  MappedStatement
	err error
}

// NewStatement starts a builder for a statement with the given id and
// renderer. Query statements default to useCache=true; set FlushCache for
// statements that must invalidate instead.
func NewStatement(id string, source SQLSource) *StatementBuilder {
	b := &StatementBuilder{ms: MappedStatement{
		id:            id,
		statementType: StatementPrepared,
		source:        source,
		useCache:      true,
		keyGenerator:  NopKeyGenerator{},
	}}
	if id == "" {
		b.err = errors.New("mapping: statement id must not be empty")
	}
	if source == nil {
		b.err = fmt.Errorf("mapping: statement %q requires a SQL source", id)
	}
	return b
}

// Type sets the statement type.
func (b *StatementBuilder) Type(t StatementType) *StatementBuilder {
	b.ms.statementType = t
	return b
}

// FlushCache marks the statement as forcing a cache flush before it runs.
func (b *StatementBuilder) FlushCache(flush bool) *StatementBuilder {
	b.ms.flushCacheRequired = flush
	return b
}

// UseCache controls whether results participate in the second-level cache.
func (b *StatementBuilder) UseCache(use bool) *StatementBuilder {
	b.ms.useCache = use
	return b
}

// Cache attaches the namespace's second-level cache, or nil for none.
func (b *StatementBuilder) Cache(c cache.Cache) *StatementBuilder {
	b.ms.cache = c
	return b
}

// KeyGenerator attaches the statement's key generator.
func (b *StatementBuilder) KeyGenerator(kg KeyGenerator) *StatementBuilder {
	if kg == nil {
		kg = NopKeyGenerator{}
	}
	b.ms.keyGenerator = kg
	return b
}

// Timeout bounds each backend execution of this statement. Zero falls back
// to the transaction timeout.
func (b *StatementBuilder) Timeout(d time.Duration) *StatementBuilder {
	b.ms.timeout = d
	return b
}

// OutAccessors installs the snapshot/apply pair for callable statements
// with OUT parameters.
func (b *StatementBuilder) OutAccessors(snapshot OutSnapshotFunc, apply OutApplyFunc) *StatementBuilder {
	b.ms.outSnapshot = snapshot
	b.ms.outApply = apply
	return b
}

// Build finalizes the descriptor.
func (b *StatementBuilder) Build() (*MappedStatement, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.ms.statementType == StatementCallable && (b.ms.outSnapshot == nil) != (b.ms.outApply == nil) {
		return nil, fmt.Errorf("mapping: statement %q must set both or neither OUT accessors", b.ms.id)
	}
	ms := b.ms
	return &ms, nil
}

func (m *MappedStatement) ID() string                 { return m.id }
func (m *MappedStatement) Type() StatementType        { return m.statementType }
func (m *MappedStatement) FlushCacheRequired() bool   { return m.flushCacheRequired }
func (m *MappedStatement) UseCache() bool             { return m.useCache }
func (m *MappedStatement) Cache() cache.Cache         { return m.cache }
func (m *MappedStatement) KeyGenerator() KeyGenerator { return m.keyGenerator }
func (m *MappedStatement) Timeout() time.Duration     { return m.timeout }

// BoundSQL renders the statement for the given parameter object.
func (m *MappedStatement) BoundSQL(param any) (BoundSQL, error) {
	return m.source.BoundSQL(param)
}

// OutSnapshot captures OUT parameter values; nil map when the statement has
// no accessors installed.
func (m *MappedStatement) OutSnapshot(param any) map[string]any {
	if m.outSnapshot == nil {
		return nil
	}
	return m.outSnapshot(param)
}

// OutApply copies a cached snapshot back onto the parameter object.
func (m *MappedStatement) OutApply(param any, snapshot map[string]any) {
	if m.outApply == nil || snapshot == nil {
		return
	}
	m.outApply(param, snapshot)
}
