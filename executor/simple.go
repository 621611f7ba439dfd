package executor

import (
	"context"

	"github.com/goliatone/go-sqlmapper/mapping"
)

// simpleStrategy prepares a fresh backend statement for every call and
// closes it immediately, success or failure.
type simpleStrategy struct {
	base *baseExecutor
}

func (s *simpleStrategy) doUpdate(ctx context.Context, ms *mapping.MappedStatement, param any, boundSQL mapping.BoundSQL) (count int64, err error) {
	db, err := s.base.conn(ctx)
	if err != nil {
		return 0, err
	}
	kg := ms.KeyGenerator()
	if err := kg.ProcessBefore(ctx, ms, param); err != nil {
		return 0, err
	}

	ctx, cancel := s.base.statementContext(ctx, ms)
	defer cancel()

	stmt, err := db.PrepareContext(ctx, boundSQL.SQL)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, boundSQL.Args(param)...)
	if err != nil {
		return 0, err
	}
	if err := kg.ProcessAfter(ctx, ms, param, res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *simpleStrategy) doQuery(ctx context.Context, ms *mapping.MappedStatement, param any, bounds mapping.RowBounds, handler mapping.ResultHandler, boundSQL mapping.BoundSQL) ([]any, error) {
	db, err := s.base.conn(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.base.statementContext(ctx, ms)
	defer cancel()

	stmt, err := db.PrepareContext(ctx, boundSQL.SQL)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, boundSQL.Args(param)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.base.materializer.Materialize(rows, ms, bounds, handler)
}

func (s *simpleStrategy) doQueryCursor(ctx context.Context, ms *mapping.MappedStatement, param any, _ mapping.RowBounds, boundSQL mapping.BoundSQL) (*Cursor, error) {
	db, err := s.base.conn(ctx)
	if err != nil {
		return nil, err
	}
	stmt, err := db.PrepareContext(ctx, boundSQL.SQL)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, boundSQL.Args(param)...)
	if err != nil {
		stmt.Close()
		return nil, err
	}
	// The cursor owns both and closes them together.
	return newCursor(rows, stmt)
}

func (s *simpleStrategy) doFlushStatements(context.Context, bool) ([]BatchResult, error) {
	// Nothing accumulates outside batch mode.
	return nil, nil
}
