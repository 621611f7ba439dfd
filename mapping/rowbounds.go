package mapping

import "math"

// NoRowOffset and NoRowLimit are the unbounded pagination defaults.
const (
	NoRowOffset = 0
	NoRowLimit  = math.MaxInt32
)

// RowBounds paginates a query result in memory: Offset rows are skipped and
// at most Limit rows are materialized. Bounds contribute to the cache key,
// so different pages of the same query cache independently.
type RowBounds struct {
	Offset int
	Limit  int
}

// DefaultRowBounds returns unbounded pagination.
func DefaultRowBounds() RowBounds {
	return RowBounds{Offset: NoRowOffset, Limit: NoRowLimit}
}

// NewRowBounds creates explicit pagination bounds.
func NewRowBounds(offset, limit int) RowBounds {
	return RowBounds{Offset: offset, Limit: limit}
}
