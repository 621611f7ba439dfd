package executor

import (
	"database/sql"

	"github.com/goliatone/go-sqlmapper/mapping"
)

// ResultMaterializer turns raw backend rows into result objects. The
// reflection-heavy object population of a full mapping layer lives behind
// this interface; the engine only needs the produced sequence.
type ResultMaterializer interface {
	Materialize(rows *sql.Rows, ms *mapping.MappedStatement, bounds mapping.RowBounds, handler mapping.ResultHandler) ([]any, error)
}

// MapMaterializer is the default materializer: each row becomes a
// map[string]any keyed by column name. Map rows round-trip losslessly
// through the serialized cache decorator.
type MapMaterializer struct{}

var _ ResultMaterializer = MapMaterializer{}

// Materialize scans every row within bounds. With a handler, rows are
// handed over one at a time and no list is returned.
func (MapMaterializer) Materialize(rows *sql.Rows, _ *mapping.MappedStatement, bounds mapping.RowBounds, handler mapping.ResultHandler) ([]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []any
	var rc *mapping.ResultContext
	if handler != nil {
		rc = mapping.NewResultContext()
	}

	skipped, taken := 0, 0
	for rows.Next() {
		if skipped < bounds.Offset {
			skipped++
			// The row must still be consumed to advance the cursor.
			if err := scanDiscard(rows, len(cols)); err != nil {
				return nil, err
			}
			continue
		}
		if taken >= bounds.Limit {
			break
		}
		row, err := scanMapRow(rows, cols)
		if err != nil {
			return nil, err
		}
		taken++
		if handler != nil {
			rc.NextValue(row)
			handler(rc)
			if rc.Stopped() {
				break
			}
			continue
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanMapRow(rows *sql.Rows, cols []string) (map[string]any, error) {
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	row := make(map[string]any, len(cols))
	for i, col := range cols {
		v := values[i]
		// Drivers reuse byte slices between rows; copy before they go stale.
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		row[col] = v
	}
	return row, nil
}

func scanDiscard(rows *sql.Rows, n int) error {
	values := make([]any, n)
	ptrs := make([]any, n)
	for i := range values {
		ptrs[i] = &values[i]
	}
	return rows.Scan(ptrs...)
}
