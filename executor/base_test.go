package executor

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-sqlmapper/mapping"
	"github.com/goliatone/go-sqlmapper/pkg/testsupport"
)

// usersScript answers SELECTs with the given rows and everything else with
// one affected row.
func usersScript(rows ...[]driver.Value) testsupport.Script {
	return func(query string, _ []driver.Value) (testsupport.Result, error) {
		if strings.HasPrefix(query, "SELECT") {
			return testsupport.Result{Cols: []string{"id", "name"}, Rows: rows}, nil
		}
		return testsupport.Result{RowsAffected: 1}, nil
	}
}

func newTestEnv(t *testing.T, script testsupport.Script) (*mapping.Configuration, *testsupport.FakeDB, Transaction) {
	t.Helper()
	f := testsupport.NewFakeDB(script)
	t.Cleanup(func() { f.DB.Close() })
	cfg := mapping.NewConfiguration("test")
	cfg.SetCacheEnabled(false)
	return cfg, f, NewTransaction(f.DB)
}

func mustStatement(t *testing.T, b *mapping.StatementBuilder) *mapping.MappedStatement {
	t.Helper()
	ms, err := b.Build()
	require.NoError(t, err)
	return ms
}

func idParam() mapping.ParameterMapping {
	return mapping.ParameterMapping{
		Property: "id",
		Mode:     mapping.ModeIn,
		Value:    func(p any) any { return p },
	}
}

func TestExecutor_QueryServesRepeatsFromLocalCache(t *testing.T) {
	cfg, f, tx := newTestEnv(t, usersScript([]driver.Value{int64(1), "ana"}))
	exec := New(cfg, tx, Simple)
	ms := mustStatement(t, mapping.NewStatement("users.selectByID",
		mapping.NewStaticSQLSource("SELECT id, name FROM users WHERE id = ?", idParam())))

	first, err := exec.Query(context.Background(), ms, int64(1), mapping.DefaultRowBounds(), nil)
	require.NoError(t, err)
	second, err := exec.Query(context.Background(), ms, int64(1), mapping.DefaultRowBounds(), nil)
	require.NoError(t, err)

	assert.Len(t, f.Queries(), 1, "second call must be served locally")
	assert.Equal(t, first, second)
	require.Len(t, first, 1)
	assert.Equal(t, "ana", first[0].(map[string]any)["name"])
}

func TestExecutor_DistinctParamsMissTheCache(t *testing.T) {
	cfg, f, tx := newTestEnv(t, usersScript([]driver.Value{int64(1), "ana"}))
	exec := New(cfg, tx, Simple)
	ms := mustStatement(t, mapping.NewStatement("users.selectByID",
		mapping.NewStaticSQLSource("SELECT id, name FROM users WHERE id = ?", idParam())))

	_, err := exec.Query(context.Background(), ms, int64(1), mapping.DefaultRowBounds(), nil)
	require.NoError(t, err)
	_, err = exec.Query(context.Background(), ms, int64(2), mapping.DefaultRowBounds(), nil)
	require.NoError(t, err)

	assert.Len(t, f.Queries(), 2)
}

func TestExecutor_UpdateInvalidatesLocalCache(t *testing.T) {
	cfg, f, tx := newTestEnv(t, usersScript([]driver.Value{int64(1), "ana"}))
	exec := New(cfg, tx, Simple)
	sel := mustStatement(t, mapping.NewStatement("users.selectByID",
		mapping.NewStaticSQLSource("SELECT id, name FROM users WHERE id = ?", idParam())))
	upd := mustStatement(t, mapping.NewStatement("users.rename",
		mapping.NewStaticSQLSource("UPDATE users SET name = 'bob' WHERE id = ?", idParam())))

	_, err := exec.Query(context.Background(), sel, int64(1), mapping.DefaultRowBounds(), nil)
	require.NoError(t, err)

	count, err := exec.Update(context.Background(), upd, int64(1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = exec.Query(context.Background(), sel, int64(1), mapping.DefaultRowBounds(), nil)
	require.NoError(t, err)
	assert.Len(t, f.Queries(), 2, "update must invalidate cached results")
}

func TestExecutor_StatementScopeClearsBetweenQueries(t *testing.T) {
	cfg, f, tx := newTestEnv(t, usersScript([]driver.Value{int64(1), "ana"}))
	cfg.SetLocalCacheScope(mapping.ScopeStatement)
	exec := New(cfg, tx, Simple)
	ms := mustStatement(t, mapping.NewStatement("users.selectByID",
		mapping.NewStaticSQLSource("SELECT id, name FROM users WHERE id = ?", idParam())))

	a, err := exec.Query(context.Background(), ms, int64(1), mapping.DefaultRowBounds(), nil)
	require.NoError(t, err)
	b, err := exec.Query(context.Background(), ms, int64(1), mapping.DefaultRowBounds(), nil)
	require.NoError(t, err)

	assert.Len(t, f.Queries(), 2, "statement scope never reuses results")
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	// Distinct row objects: mutating one must not leak into the other.
	a[0].(map[string]any)["name"] = "mutated"
	assert.Equal(t, "ana", b[0].(map[string]any)["name"])
}

func TestExecutor_FlushStatementClearsCacheBeforeRunning(t *testing.T) {
	cfg, f, tx := newTestEnv(t, usersScript([]driver.Value{int64(1), "ana"}))
	exec := New(cfg, tx, Simple)
	ms := mustStatement(t, mapping.NewStatement("users.selectFresh",
		mapping.NewStaticSQLSource("SELECT id, name FROM users WHERE id = ?", idParam())).
		FlushCache(true))

	_, err := exec.Query(context.Background(), ms, int64(1), mapping.DefaultRowBounds(), nil)
	require.NoError(t, err)
	_, err = exec.Query(context.Background(), ms, int64(1), mapping.DefaultRowBounds(), nil)
	require.NoError(t, err)

	assert.Len(t, f.Queries(), 2)
}

func TestExecutor_ResultHandlerBypassesLocalCache(t *testing.T) {
	cfg, f, tx := newTestEnv(t, usersScript(
		[]driver.Value{int64(1), "ana"},
		[]driver.Value{int64(2), "bob"},
	))
	exec := New(cfg, tx, Simple)
	ms := mustStatement(t, mapping.NewStatement("users.selectAll",
		mapping.NewStaticSQLSource("SELECT id, name FROM users")))

	var seen []string
	handler := func(rc *mapping.ResultContext) {
		seen = append(seen, rc.Value().(map[string]any)["name"].(string))
	}

	list, err := exec.Query(context.Background(), ms, nil, mapping.DefaultRowBounds(), handler)
	require.NoError(t, err)
	assert.Nil(t, list, "handler mode returns no list")
	assert.Equal(t, []string{"ana", "bob"}, seen)

	_, err = exec.Query(context.Background(), ms, nil, mapping.DefaultRowBounds(), handler)
	require.NoError(t, err)
	assert.Len(t, f.Queries(), 2, "handler calls never read the cache")

	// Handler calls never populate it either.
	_, err = exec.Query(context.Background(), ms, nil, mapping.DefaultRowBounds(), nil)
	require.NoError(t, err)
	assert.Len(t, f.Queries(), 3)
}

func TestExecutor_ResultHandlerCanStopEarly(t *testing.T) {
	cfg, _, tx := newTestEnv(t, usersScript(
		[]driver.Value{int64(1), "ana"},
		[]driver.Value{int64(2), "bob"},
		[]driver.Value{int64(3), "cho"},
	))
	exec := New(cfg, tx, Simple)
	ms := mustStatement(t, mapping.NewStatement("users.selectAll",
		mapping.NewStaticSQLSource("SELECT id, name FROM users")))

	handled := 0
	_, err := exec.Query(context.Background(), ms, nil, mapping.DefaultRowBounds(), func(rc *mapping.ResultContext) {
		handled = rc.Count()
		rc.Stop()
	})
	require.NoError(t, err)
	assert.Equal(t, 1, handled)
}

func TestExecutor_RowBoundsPaginateAndKeySeparately(t *testing.T) {
	cfg, f, tx := newTestEnv(t, usersScript(
		[]driver.Value{int64(1), "ana"},
		[]driver.Value{int64(2), "bob"},
		[]driver.Value{int64(3), "cho"},
	))
	exec := New(cfg, tx, Simple)
	ms := mustStatement(t, mapping.NewStatement("users.selectAll",
		mapping.NewStaticSQLSource("SELECT id, name FROM users")))

	page, err := exec.Query(context.Background(), ms, nil, mapping.NewRowBounds(1, 1), nil)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "bob", page[0].(map[string]any)["name"])

	// Same page is cached; a different page is a different key.
	_, err = exec.Query(context.Background(), ms, nil, mapping.NewRowBounds(1, 1), nil)
	require.NoError(t, err)
	assert.Len(t, f.Queries(), 1)

	_, err = exec.Query(context.Background(), ms, nil, mapping.NewRowBounds(2, 1), nil)
	require.NoError(t, err)
	assert.Len(t, f.Queries(), 2)
}

func TestExecutor_QueryErrorLeavesNoPoisonedEntry(t *testing.T) {
	boom := errors.New("backend down")
	failing := func(string, []driver.Value) (testsupport.Result, error) {
		return testsupport.Result{}, boom
	}
	cfg, f, tx := newTestEnv(t, failing)
	exec := New(cfg, tx, Simple)
	ms := mustStatement(t, mapping.NewStatement("users.selectByID",
		mapping.NewStaticSQLSource("SELECT id, name FROM users WHERE id = ?", idParam())))

	_, err := exec.Query(context.Background(), ms, int64(1), mapping.DefaultRowBounds(), nil)
	require.ErrorIs(t, err, boom)

	boundSQL, err := ms.BoundSQL(int64(1))
	require.NoError(t, err)
	key, err := exec.CreateCacheKey(ms, int64(1), mapping.DefaultRowBounds(), boundSQL)
	require.NoError(t, err)
	assert.False(t, exec.IsCached(ms, key), "failed execution must not leave an entry behind")

	f.SetScript(usersScript([]driver.Value{int64(1), "ana"}))
	list, err := exec.Query(context.Background(), ms, int64(1), mapping.DefaultRowBounds(), nil)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestExecutor_DeferLoadResolvesImmediatelyWhenCached(t *testing.T) {
	cfg, _, tx := newTestEnv(t, usersScript([]driver.Value{int64(1), "ana"}))
	exec := New(cfg, tx, Simple)
	ms := mustStatement(t, mapping.NewStatement("users.selectByID",
		mapping.NewStaticSQLSource("SELECT id, name FROM users WHERE id = ?", idParam())))

	_, err := exec.Query(context.Background(), ms, int64(1), mapping.DefaultRowBounds(), nil)
	require.NoError(t, err)

	boundSQL, err := ms.BoundSQL(int64(1))
	require.NoError(t, err)
	key, err := exec.CreateCacheKey(ms, int64(1), mapping.DefaultRowBounds(), boundSQL)
	require.NoError(t, err)

	var got any
	require.NoError(t, exec.DeferLoad(key, "author", TargetSingle, func(v any) { got = v }))
	require.NotNil(t, got)
	assert.Equal(t, "ana", got.(map[string]any)["name"])
}

func TestExecutor_DeferLoadQueuesUntilDependencyIsCached(t *testing.T) {
	cfg, _, tx := newTestEnv(t, usersScript(
		[]driver.Value{int64(1), "ana"},
		[]driver.Value{int64(2), "bob"},
	))
	exec := New(cfg, tx, Simple)
	ms := mustStatement(t, mapping.NewStatement("users.selectAll",
		mapping.NewStaticSQLSource("SELECT id, name FROM users")))

	boundSQL, err := ms.BoundSQL(nil)
	require.NoError(t, err)
	key, err := exec.CreateCacheKey(ms, nil, mapping.DefaultRowBounds(), boundSQL)
	require.NoError(t, err)

	var got []any
	require.NoError(t, exec.DeferLoad(key, "posts", TargetSlice, func(v any) { got = v.([]any) }))
	assert.Nil(t, got, "dependency not cached yet")

	// The next top-level query populates the cache and drains the queue.
	_, err = exec.Query(context.Background(), ms, nil, mapping.DefaultRowBounds(), nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestExecutor_DeferLoadSingleRejectsMultipleRows(t *testing.T) {
	cfg, _, tx := newTestEnv(t, usersScript(
		[]driver.Value{int64(1), "ana"},
		[]driver.Value{int64(2), "bob"},
	))
	exec := New(cfg, tx, Simple)
	ms := mustStatement(t, mapping.NewStatement("users.selectAll",
		mapping.NewStaticSQLSource("SELECT id, name FROM users")))

	_, err := exec.Query(context.Background(), ms, nil, mapping.DefaultRowBounds(), nil)
	require.NoError(t, err)

	boundSQL, err := ms.BoundSQL(nil)
	require.NoError(t, err)
	key, err := exec.CreateCacheKey(ms, nil, mapping.DefaultRowBounds(), boundSQL)
	require.NoError(t, err)

	err = exec.DeferLoad(key, "author", TargetSingle, func(any) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected one row")
}

func TestExecutor_CallableOutputsCachedAndReapplied(t *testing.T) {
	type procParam struct {
		In  int64
		Out int64
	}

	cfg, f, tx := newTestEnv(t, usersScript([]driver.Value{int64(1), "ana"}))
	exec := New(cfg, tx, Simple)
	ms := mustStatement(t, mapping.NewStatement("users.callStats",
		mapping.NewStaticSQLSource("SELECT count(*) FROM users WHERE region = ?",
			mapping.ParameterMapping{Property: "in", Mode: mapping.ModeIn, Value: func(p any) any { return p.(*procParam).In }},
			mapping.ParameterMapping{Property: "out", Mode: mapping.ModeOut, Value: func(p any) any { return p.(*procParam).Out }},
		)).
		Type(mapping.StatementCallable).
		OutAccessors(
			func(p any) map[string]any { return map[string]any{"out": p.(*procParam).Out} },
			func(p any, snap map[string]any) { p.(*procParam).Out = snap["out"].(int64) },
		))

	// The backend would populate Out during execution; the fake driver
	// cannot, so it is set up front and the snapshot captures it.
	p1 := &procParam{In: 7, Out: 99}
	_, err := exec.Query(context.Background(), ms, p1, mapping.DefaultRowBounds(), nil)
	require.NoError(t, err)

	p2 := &procParam{In: 7}
	_, err = exec.Query(context.Background(), ms, p2, mapping.DefaultRowBounds(), nil)
	require.NoError(t, err)

	assert.Len(t, f.Queries(), 1, "second call is a cache hit")
	assert.Equal(t, int64(99), p2.Out, "cached outputs must be applied on a hit")
}

func TestExecutor_QueryCursorStreamsWithoutCaching(t *testing.T) {
	cfg, f, tx := newTestEnv(t, usersScript(
		[]driver.Value{int64(1), "ana"},
		[]driver.Value{int64(2), "bob"},
	))
	exec := New(cfg, tx, Simple)
	ms := mustStatement(t, mapping.NewStatement("users.selectAll",
		mapping.NewStaticSQLSource("SELECT id, name FROM users")))

	cur, err := exec.QueryCursor(context.Background(), ms, nil, mapping.DefaultRowBounds())
	require.NoError(t, err)

	var names []string
	for cur.Next() {
		names = append(names, cur.Value()["name"].(string))
	}
	require.NoError(t, cur.Err())
	require.NoError(t, cur.Close())
	assert.Equal(t, []string{"ana", "bob"}, names)

	// Cursors never populate the local cache.
	_, err = exec.Query(context.Background(), ms, nil, mapping.DefaultRowBounds(), nil)
	require.NoError(t, err)
	assert.Len(t, f.Queries(), 2)
}

func TestExecutor_CommitClearsLocalCache(t *testing.T) {
	cfg, f, tx := newTestEnv(t, usersScript([]driver.Value{int64(1), "ana"}))
	exec := New(cfg, tx, Simple)
	ms := mustStatement(t, mapping.NewStatement("users.selectByID",
		mapping.NewStaticSQLSource("SELECT id, name FROM users WHERE id = ?", idParam())))

	_, err := exec.Query(context.Background(), ms, int64(1), mapping.DefaultRowBounds(), nil)
	require.NoError(t, err)
	require.NoError(t, exec.Commit(context.Background(), true))

	_, err = exec.Query(context.Background(), ms, int64(1), mapping.DefaultRowBounds(), nil)
	require.NoError(t, err)
	assert.Len(t, f.Queries(), 2)
}

func TestExecutor_RollbackClearsLocalCache(t *testing.T) {
	cfg, f, tx := newTestEnv(t, usersScript([]driver.Value{int64(1), "ana"}))
	exec := New(cfg, tx, Simple)
	ms := mustStatement(t, mapping.NewStatement("users.selectByID",
		mapping.NewStaticSQLSource("SELECT id, name FROM users WHERE id = ?", idParam())))

	_, err := exec.Query(context.Background(), ms, int64(1), mapping.DefaultRowBounds(), nil)
	require.NoError(t, err)
	require.NoError(t, exec.Rollback(context.Background(), true))

	_, err = exec.Query(context.Background(), ms, int64(1), mapping.DefaultRowBounds(), nil)
	require.NoError(t, err)
	assert.Len(t, f.Queries(), 2)
}

// associationMaterializer re-enters the session with a same-statement query
// while the outer result set is being materialized, the way a lazy
// association resolver would.
type associationMaterializer struct {
	inner MapMaterializer
	exec  Executor
	ms    *mapping.MappedStatement

	fired     bool
	nested    []any
	nestedErr error
}

func (m *associationMaterializer) Materialize(rows *sql.Rows, ms *mapping.MappedStatement, bounds mapping.RowBounds, handler mapping.ResultHandler) ([]any, error) {
	list, err := m.inner.Materialize(rows, ms, bounds, handler)
	if err != nil || m.fired {
		return list, err
	}
	m.fired = true
	// The outer entry is still an in-flight placeholder at this point.
	m.nested, m.nestedErr = m.exec.Query(context.Background(), m.ms, int64(1), mapping.DefaultRowBounds(), nil)
	return list, nil
}

func TestExecutor_NestedSameKeyQueryDuringMaterialization(t *testing.T) {
	cfg, f, tx := newTestEnv(t, usersScript([]driver.Value{int64(1), "ana"}))
	ms := mustStatement(t, mapping.NewStatement("users.selectByID",
		mapping.NewStaticSQLSource("SELECT id, name FROM users WHERE id = ?", idParam())))

	m := &associationMaterializer{ms: ms}
	exec := New(cfg, tx, Simple, WithMaterializer(m))
	m.exec = exec

	outer, err := exec.Query(context.Background(), ms, int64(1), mapping.DefaultRowBounds(), nil)
	require.NoError(t, err)

	// The nested call ran against an in-flight entry; it must re-execute
	// and return real rows, never the placeholder.
	require.NoError(t, m.nestedErr)
	require.Len(t, m.nested, 1)
	assert.Equal(t, "ana", m.nested[0].(map[string]any)["name"])
	assert.Len(t, f.Queries(), 2, "an in-flight key re-executes instead of being served")

	require.Len(t, outer, 1)
	assert.Equal(t, "ana", outer[0].(map[string]any)["name"])

	// The outer result replaced the placeholder intact; repeats are local hits.
	repeat, err := exec.Query(context.Background(), ms, int64(1), mapping.DefaultRowBounds(), nil)
	require.NoError(t, err)
	assert.Len(t, f.Queries(), 2)
	assert.Equal(t, outer, repeat)
}

func TestExecutor_RollbackAfterCloseIsANoOp(t *testing.T) {
	cfg, _, tx := newTestEnv(t, usersScript())
	exec := New(cfg, tx, Simple)

	require.NoError(t, exec.Close(false))
	assert.NoError(t, exec.Rollback(context.Background(), true))
}

func TestExecutor_CloseRejectsFurtherWork(t *testing.T) {
	cfg, _, tx := newTestEnv(t, usersScript([]driver.Value{int64(1), "ana"}))
	exec := New(cfg, tx, Simple)
	ms := mustStatement(t, mapping.NewStatement("users.selectByID",
		mapping.NewStaticSQLSource("SELECT id, name FROM users WHERE id = ?", idParam())))

	require.NoError(t, exec.Close(false))
	assert.True(t, exec.Closed())

	_, err := exec.Query(context.Background(), ms, int64(1), mapping.DefaultRowBounds(), nil)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = exec.Update(context.Background(), ms, int64(1))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = exec.FlushStatements(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	err = exec.DeferLoad(nil, "x", TargetSingle, func(any) {})
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, exec.Commit(context.Background(), true), ErrClosed)

	// Closing twice is harmless.
	assert.NoError(t, exec.Close(true))
}
