package mapping

import (
	"context"
	"database/sql"
	"fmt"
)

// KeyGenerator hooks into statement execution to produce or propagate
// generated keys. ProcessBefore runs ahead of the backend execution,
// ProcessAfter runs with the backend result once it is available.
type KeyGenerator interface {
	ProcessBefore(ctx context.Context, ms *MappedStatement, param any) error
	ProcessAfter(ctx context.Context, ms *MappedStatement, param any, result sql.Result) error
}

// BatchKeyGenerator is implemented by generators that can harvest keys for
// a whole batch run at once. The batch executor prefers this path; other
// generators are applied per parameter object.
type BatchKeyGenerator interface {
	ProcessBatch(ctx context.Context, ms *MappedStatement, params []any, results []sql.Result) error
}

// NopKeyGenerator ignores both hooks.
type NopKeyGenerator struct{}

func (NopKeyGenerator) ProcessBefore(context.Context, *MappedStatement, any) error { return nil }
func (NopKeyGenerator) ProcessAfter(context.Context, *MappedStatement, any, sql.Result) error {
	return nil
}

// KeyAssignFunc writes a generated key onto a parameter object. Like all
// accessors in this package it is resolved at statement-build time.
type KeyAssignFunc func(param any, id int64)

// AutoKeyGenerator harvests driver auto-increment keys through
// sql.Result.LastInsertId and assigns them onto parameter objects.
type AutoKeyGenerator struct {
	Assign KeyAssignFunc
}

var _ BatchKeyGenerator = (*AutoKeyGenerator)(nil)

func (g *AutoKeyGenerator) ProcessBefore(context.Context, *MappedStatement, any) error { return nil }

func (g *AutoKeyGenerator) ProcessAfter(_ context.Context, ms *MappedStatement, param any, result sql.Result) error {
	if g.Assign == nil || result == nil {
		return nil
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("mapping: statement %s: harvesting generated key: %w", ms.ID(), err)
	}
	g.Assign(param, id)
	return nil
}

// ProcessBatch assigns each parameter object its row's generated key.
func (g *AutoKeyGenerator) ProcessBatch(ctx context.Context, ms *MappedStatement, params []any, results []sql.Result) error {
	for i, res := range results {
		if i >= len(params) {
			break
		}
		if err := g.ProcessAfter(ctx, ms, params[i], res); err != nil {
			return err
		}
	}
	return nil
}
