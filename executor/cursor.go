package executor

import "database/sql"

// Cursor streams query results one row at a time without buffering or
// caching. Close must be called; it releases the rows and, when the cursor
// owns it, the prepared statement.
type Cursor struct {
	rows    *sql.Rows
	stmt    *sql.Stmt // nil when the statement is owned elsewhere
	cols    []string
	current map[string]any
	err     error
}

func newCursor(rows *sql.Rows, stmt *sql.Stmt) (*Cursor, error) {
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		if stmt != nil {
			stmt.Close()
		}
		return nil, err
	}
	return &Cursor{rows: rows, stmt: stmt, cols: cols}, nil
}

// Next advances to the next row, returning false at the end of the result
// set or on error.
func (c *Cursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		if c.err == nil {
			c.err = c.rows.Err()
		}
		return false
	}
	row, err := scanMapRow(c.rows, c.cols)
	if err != nil {
		c.err = err
		return false
	}
	c.current = row
	return true
}

// Value returns the current row.
func (c *Cursor) Value() map[string]any { return c.current }

// Err returns the first error encountered while iterating.
func (c *Cursor) Err() error { return c.err }

// Close releases the underlying rows and statement.
func (c *Cursor) Close() error {
	err := c.rows.Close()
	if c.stmt != nil {
		if serr := c.stmt.Close(); err == nil {
			err = serr
		}
	}
	return err
}
