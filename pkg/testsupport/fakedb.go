// Package testsupport provides shared test helpers: fixture loading and an
// in-memory database/sql driver with scripted responses, call recording and
// per-statement error injection.
package testsupport

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"sync"
)

// Result scripts the outcome of one statement execution.
type Result struct {
	// Cols and Rows serve queries.
	Cols []string
	Rows [][]driver.Value

	// LastInsertID and RowsAffected serve execs.
	LastInsertID int64
	RowsAffected int64
}

// Script decides the response for an execution of query with args. Return
// an error to simulate a backend failure.
type Script func(query string, args []driver.Value) (Result, error)

// ExecRecord captures one statement execution observed by the fake driver.
type ExecRecord struct {
	Query string
	Args  []driver.Value
}

// FakeDB is an in-memory database/sql backend. Every statement goes through
// PrepareContext, so prepared-statement lifecycles (reuse, batching, close)
// are observable through the counters.
type FakeDB struct {
	DB *sql.DB

	mu          sync.Mutex
	script      Script
	prepared    []string
	stmtsClosed int
	execs       []ExecRecord
	queries     []ExecRecord
}

// NewFakeDB opens a *sql.DB over the fake driver. The zero script returns
// empty results for everything.
func NewFakeDB(script Script) *FakeDB {
	f := &FakeDB{script: script}
	f.DB = sql.OpenDB(&fakeConnector{f: f})
	// A single connection keeps prepared-statement accounting deterministic.
	f.DB.SetMaxOpenConns(1)
	return f
}

// SetScript swaps the scripted responses.
func (f *FakeDB) SetScript(script Script) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = script
}

// Prepared returns the SQL text of every statement prepared so far.
func (f *FakeDB) Prepared() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prepared...)
}

// StmtsClosed returns how many prepared statements have been closed.
func (f *FakeDB) StmtsClosed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stmtsClosed
}

// Execs returns every exec observed, in order.
func (f *FakeDB) Execs() []ExecRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ExecRecord(nil), f.execs...)
}

// Queries returns every query observed, in order.
func (f *FakeDB) Queries() []ExecRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ExecRecord(nil), f.queries...)
}

func (f *FakeDB) run(query string, args []driver.Value) (Result, error) {
	f.mu.Lock()
	script := f.script
	f.mu.Unlock()
	if script == nil {
		return Result{}, nil
	}
	return script(query, args)
}

func (f *FakeDB) recordPrepare(query string) {
	f.mu.Lock()
	f.prepared = append(f.prepared, query)
	f.mu.Unlock()
}

func (f *FakeDB) recordStmtClose() {
	f.mu.Lock()
	f.stmtsClosed++
	f.mu.Unlock()
}

func (f *FakeDB) recordExec(r ExecRecord) {
	f.mu.Lock()
	f.execs = append(f.execs, r)
	f.mu.Unlock()
}

func (f *FakeDB) recordQuery(r ExecRecord) {
	f.mu.Lock()
	f.queries = append(f.queries, r)
	f.mu.Unlock()
}

type fakeConnector struct {
	f *FakeDB
}

func (c *fakeConnector) Connect(context.Context) (driver.Conn, error) {
	return &fakeConn{f: c.f}, nil
}

func (c *fakeConnector) Driver() driver.Driver { return fakeDriver{} }

type fakeDriver struct{}

func (fakeDriver) Open(string) (driver.Conn, error) {
	return nil, driver.ErrSkip
}

type fakeConn struct {
	f *FakeDB
}

var (
	_ driver.Conn               = (*fakeConn)(nil)
	_ driver.ConnPrepareContext = (*fakeConn)(nil)
	_ driver.ConnBeginTx        = (*fakeConn)(nil)
)

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	c.f.recordPrepare(query)
	return &fakeStmt{f: c.f, query: query}, nil
}

func (c *fakeConn) PrepareContext(_ context.Context, query string) (driver.Stmt, error) {
	return c.Prepare(query)
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) Begin() (driver.Tx, error) { return fakeTx{}, nil }

func (c *fakeConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return fakeTx{}, nil
}

type fakeTx struct{}

func (fakeTx) Commit() error   { return nil }
func (fakeTx) Rollback() error { return nil }

type fakeStmt struct {
	f     *FakeDB
	query string
}

var (
	_ driver.Stmt             = (*fakeStmt)(nil)
	_ driver.StmtExecContext  = (*fakeStmt)(nil)
	_ driver.StmtQueryContext = (*fakeStmt)(nil)
)

func (s *fakeStmt) Close() error {
	s.f.recordStmtClose()
	return nil
}

func (s *fakeStmt) NumInput() int { return -1 }

func (s *fakeStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.f.recordExec(ExecRecord{Query: s.query, Args: append([]driver.Value(nil), args...)})
	res, err := s.f.run(s.query, args)
	if err != nil {
		return nil, err
	}
	return fakeResult{lastID: res.LastInsertID, affected: res.RowsAffected}, nil
}

func (s *fakeStmt) ExecContext(_ context.Context, args []driver.NamedValue) (driver.Result, error) {
	return s.Exec(namedToValues(args))
}

func (s *fakeStmt) Query(args []driver.Value) (driver.Rows, error) {
	s.f.recordQuery(ExecRecord{Query: s.query, Args: append([]driver.Value(nil), args...)})
	res, err := s.f.run(s.query, args)
	if err != nil {
		return nil, err
	}
	return &fakeRows{cols: res.Cols, data: res.Rows}, nil
}

func (s *fakeStmt) QueryContext(_ context.Context, args []driver.NamedValue) (driver.Rows, error) {
	return s.Query(namedToValues(args))
}

func namedToValues(named []driver.NamedValue) []driver.Value {
	out := make([]driver.Value, len(named))
	for i, nv := range named {
		out[i] = nv.Value
	}
	return out
}

type fakeResult struct {
	lastID   int64
	affected int64
}

func (r fakeResult) LastInsertId() (int64, error) { return r.lastID, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.affected, nil }

type fakeRows struct {
	cols []string
	data [][]driver.Value
	i    int
}

func (r *fakeRows) Columns() []string { return append([]string(nil), r.cols...) }
func (r *fakeRows) Close() error      { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.i >= len(r.data) {
		return io.EOF
	}
	row := r.data[r.i]
	for i := range dest {
		if i < len(row) {
			dest[i] = row[i]
		} else {
			dest[i] = nil
		}
	}
	r.i++
	return nil
}
