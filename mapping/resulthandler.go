package mapping

// ResultContext carries one materialized row to a ResultHandler and lets
// the handler stop iteration early.
type ResultContext struct {
	value   any
	count   int
	stopped bool
}

// NewResultContext returns an empty context for a handler-driven query.
func NewResultContext() *ResultContext {
	return &ResultContext{}
}

// Value returns the current row object.
func (rc *ResultContext) Value() any { return rc.value }

// Count returns how many rows have been handled so far.
func (rc *ResultContext) Count() int { return rc.count }

// Stop requests that no further rows be materialized.
func (rc *ResultContext) Stop() { rc.stopped = true }

// Stopped reports whether the handler requested early termination.
func (rc *ResultContext) Stopped() bool { return rc.stopped }

// NextValue advances the context to the next row.
func (rc *ResultContext) NextValue(v any) {
	rc.value = v
	rc.count++
}

// ResultHandler consumes rows one at a time instead of receiving the
// materialized list. Supplying a handler to a query bypasses the local
// result cache for that call.
type ResultHandler func(rc *ResultContext)
