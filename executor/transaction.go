package executor

import (
	"context"
	"database/sql"
	"time"
)

// DB is the prepare/exec/query surface shared by *sql.DB, *sql.Tx and
// *sql.Conn.
type DB interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Transaction abstracts the backend connection and transactional boundary
// an executor drives. Commit and Rollback are no-ops in auto-commit mode.
type Transaction interface {
	// Connection returns the statement surface, starting the underlying
	// transaction lazily on first use.
	Connection(ctx context.Context) (DB, error)

	// Commit commits the in-flight transaction, if any.
	Commit(ctx context.Context) error

	// Rollback rolls back the in-flight transaction, if any.
	Rollback(ctx context.Context) error

	// Close rolls back any in-flight transaction and releases resources.
	Close() error

	// Timeout is the default per-statement execution bound; zero means
	// unbounded.
	Timeout() time.Duration
}

// TxOption configures a transaction created by NewTransaction.
type TxOption func(*sqlTransaction)

// WithTimeout sets the default per-statement timeout.
func WithTimeout(d time.Duration) TxOption {
	return func(t *sqlTransaction) { t.timeout = d }
}

// WithAutoCommit disables the lazy transaction: statements run directly on
// the pool and Commit/Rollback become no-ops.
func WithAutoCommit() TxOption {
	return func(t *sqlTransaction) { t.autoCommit = true }
}

// WithTxOptions passes options to BeginTx (isolation level, read-only).
func WithTxOptions(opts *sql.TxOptions) TxOption {
	return func(t *sqlTransaction) { t.txOpts = opts }
}

// sqlTransaction drives a database/sql pool with a lazily started *sql.Tx.
type sqlTransaction struct {
	db         *sql.DB
	tx         *sql.Tx
	txOpts     *sql.TxOptions
	autoCommit bool
	timeout    time.Duration
}

// NewTransaction wraps db in a Transaction. Unless auto-commit is
// requested, the first Connection call begins a transaction that stays open
// until Commit, Rollback or Close.
func NewTransaction(db *sql.DB, opts ...TxOption) Transaction {
	t := &sqlTransaction{db: db}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *sqlTransaction) Connection(ctx context.Context) (DB, error) {
	if t.autoCommit {
		return t.db, nil
	}
	if t.tx == nil {
		tx, err := t.db.BeginTx(ctx, t.txOpts)
		if err != nil {
			return nil, err
		}
		t.tx = tx
	}
	return t.tx, nil
}

func (t *sqlTransaction) Commit(context.Context) error {
	if t.tx == nil {
		return nil
	}
	err := t.tx.Commit()
	t.tx = nil
	return err
}

func (t *sqlTransaction) Rollback(context.Context) error {
	if t.tx == nil {
		return nil
	}
	err := t.tx.Rollback()
	t.tx = nil
	return err
}

func (t *sqlTransaction) Close() error {
	if t.tx == nil {
		return nil
	}
	err := t.tx.Rollback()
	t.tx = nil
	return err
}

func (t *sqlTransaction) Timeout() time.Duration { return t.timeout }
