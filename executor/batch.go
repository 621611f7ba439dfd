package executor

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-sqlmapper/mapping"
)

// batchStrategy accumulates updates and submits them on flush. Consecutive
// updates with the same rendered SQL and statement descriptor share one
// prepared statement and one BatchResult; any change starts a new run.
type batchStrategy struct {
	base *baseExecutor

	currentSQL       string
	currentStatement *mapping.MappedStatement
	items            []*batchItem
}

// batchItem is one accumulated run: a prepared statement plus the parameter
// objects and resolved argument sets added to it in order.
type batchItem struct {
	stmt    *sql.Stmt
	sql     string
	ms      *mapping.MappedStatement
	params  []any
	argSets [][]any
}

func newBatchStrategy(base *baseExecutor) *batchStrategy {
	return &batchStrategy{base: base}
}

func (s *batchStrategy) doUpdate(ctx context.Context, ms *mapping.MappedStatement, param any, boundSQL mapping.BoundSQL) (int64, error) {
	kg := ms.KeyGenerator()
	if err := kg.ProcessBefore(ctx, ms, param); err != nil {
		return 0, err
	}

	// Arguments are resolved now; the parameter object may change before
	// the flush runs.
	args := boundSQL.Args(param)

	if boundSQL.SQL == s.currentSQL && ms == s.currentStatement && len(s.items) > 0 {
		last := s.items[len(s.items)-1]
		last.params = append(last.params, param)
		last.argSets = append(last.argSets, args)
		return BatchPendingCount, nil
	}

	db, err := s.base.conn(ctx)
	if err != nil {
		return 0, err
	}
	stmt, err := db.PrepareContext(ctx, boundSQL.SQL)
	if err != nil {
		return 0, err
	}
	s.items = append(s.items, &batchItem{
		stmt:    stmt,
		sql:     boundSQL.SQL,
		ms:      ms,
		params:  []any{param},
		argSets: [][]any{args},
	})
	s.currentSQL = boundSQL.SQL
	s.currentStatement = ms
	return BatchPendingCount, nil
}

// doQuery flushes pending batches first so reads observe preceding writes.
func (s *batchStrategy) doQuery(ctx context.Context, ms *mapping.MappedStatement, param any, bounds mapping.RowBounds, handler mapping.ResultHandler, boundSQL mapping.BoundSQL) ([]any, error) {
	if _, err := s.doFlushStatements(ctx, false); err != nil {
		return nil, err
	}
	simple := simpleStrategy{base: s.base}
	return simple.doQuery(ctx, ms, param, bounds, handler, boundSQL)
}

func (s *batchStrategy) doQueryCursor(ctx context.Context, ms *mapping.MappedStatement, param any, bounds mapping.RowBounds, boundSQL mapping.BoundSQL) (*Cursor, error) {
	if _, err := s.doFlushStatements(ctx, false); err != nil {
		return nil, err
	}
	simple := simpleStrategy{base: s.base}
	return simple.doQueryCursor(ctx, ms, param, bounds, boundSQL)
}

// doFlushStatements executes every accumulated run in insertion order. On
// rollback nothing executes and the accumulation is dropped. Cleanup always
// runs: open statements are closed and internal state reset even when an
// execution fails mid-flush.
func (s *batchStrategy) doFlushStatements(ctx context.Context, isRollback bool) (results []BatchResult, err error) {
	items := s.items
	defer func() {
		for _, item := range items {
			if item.stmt != nil {
				item.stmt.Close()
				item.stmt = nil
			}
		}
		s.items = nil
		s.currentSQL = ""
		s.currentStatement = nil
	}()

	if isRollback {
		return nil, nil
	}

	for i, item := range items {
		br := BatchResult{
			Statement:        item.ms,
			SQL:              item.sql,
			ParameterObjects: item.params,
		}

		stmtCtx, cancel := s.base.statementContext(ctx, item.ms)
		sqlResults := make([]sql.Result, 0, len(item.argSets))
		for _, args := range item.argSets {
			res, execErr := item.stmt.ExecContext(stmtCtx, args...)
			if execErr != nil {
				cancel()
				return results, &BatchError{
					StatementID: item.ms.ID(),
					Position:    i + 1,
					Successful:  results,
					Err:         execErr,
				}
			}
			count, _ := res.RowsAffected()
			br.UpdateCounts = append(br.UpdateCounts, count)
			sqlResults = append(sqlResults, res)
		}
		cancel()

		if kgErr := s.processKeys(ctx, item, sqlResults); kgErr != nil {
			return results, &BatchError{
				StatementID: item.ms.ID(),
				Position:    i + 1,
				Successful:  results,
				Err:         kgErr,
			}
		}

		item.stmt.Close()
		item.stmt = nil
		results = append(results, br)
	}
	return results, nil
}

// processKeys runs key-generator post-processing for one flushed run.
// Generators that understand batches harvest every key at once; the rest
// are applied per parameter object.
func (s *batchStrategy) processKeys(ctx context.Context, item *batchItem, results []sql.Result) error {
	kg := item.ms.KeyGenerator()
	if bkg, ok := kg.(mapping.BatchKeyGenerator); ok {
		return bkg.ProcessBatch(ctx, item.ms, item.params, results)
	}
	for j, param := range item.params {
		if j >= len(results) {
			break
		}
		if err := kg.ProcessAfter(ctx, item.ms, param, results[j]); err != nil {
			return err
		}
	}
	return nil
}
