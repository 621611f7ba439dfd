package executor

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-sqlmapper/mapping"
)

// reuseStrategy caches prepared statement handles keyed by rendered SQL
// text for the lifetime of the executor. Handles are closed when the
// executor flushes.
type reuseStrategy struct {
	base  *baseExecutor
	stmts map[string]*sql.Stmt
}

func newReuseStrategy(base *baseExecutor) *reuseStrategy {
	return &reuseStrategy{base: base, stmts: make(map[string]*sql.Stmt)}
}

func (s *reuseStrategy) stmt(ctx context.Context, query string) (*sql.Stmt, error) {
	if stmt, ok := s.stmts[query]; ok {
		return stmt, nil
	}
	db, err := s.base.conn(ctx)
	if err != nil {
		return nil, err
	}
	stmt, err := db.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	s.stmts[query] = stmt
	return stmt, nil
}

func (s *reuseStrategy) doUpdate(ctx context.Context, ms *mapping.MappedStatement, param any, boundSQL mapping.BoundSQL) (int64, error) {
	kg := ms.KeyGenerator()
	if err := kg.ProcessBefore(ctx, ms, param); err != nil {
		return 0, err
	}
	stmt, err := s.stmt(ctx, boundSQL.SQL)
	if err != nil {
		return 0, err
	}

	ctx, cancel := s.base.statementContext(ctx, ms)
	defer cancel()

	res, err := stmt.ExecContext(ctx, boundSQL.Args(param)...)
	if err != nil {
		return 0, err
	}
	if err := kg.ProcessAfter(ctx, ms, param, res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *reuseStrategy) doQuery(ctx context.Context, ms *mapping.MappedStatement, param any, bounds mapping.RowBounds, handler mapping.ResultHandler, boundSQL mapping.BoundSQL) ([]any, error) {
	stmt, err := s.stmt(ctx, boundSQL.SQL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.base.statementContext(ctx, ms)
	defer cancel()

	rows, err := stmt.QueryContext(ctx, boundSQL.Args(param)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.base.materializer.Materialize(rows, ms, bounds, handler)
}

func (s *reuseStrategy) doQueryCursor(ctx context.Context, ms *mapping.MappedStatement, param any, _ mapping.RowBounds, boundSQL mapping.BoundSQL) (*Cursor, error) {
	stmt, err := s.stmt(ctx, boundSQL.SQL)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, boundSQL.Args(param)...)
	if err != nil {
		return nil, err
	}
	// The cached statement stays open for reuse; the cursor only owns rows.
	return newCursor(rows, nil)
}

// doFlushStatements closes every cached handle and clears the cache. Reuse
// executors accumulate no batch results.
func (s *reuseStrategy) doFlushStatements(context.Context, bool) ([]BatchResult, error) {
	var firstErr error
	for _, stmt := range s.stmts {
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.stmts = make(map[string]*sql.Stmt)
	return nil, firstErr
}
