package normalize

import (
	"sync/atomic"
	"time"
)

// IDGenerator hands out unique, strictly increasing transaction ids. Ids are
// seeded from the ingestion wall clock so they stay time-biased like the
// store's historical keys, but each call increments an atomic counter, so two
// items normalized in the same millisecond can never collide.
type IDGenerator struct {
	next atomic.Int64
}

// NewIDGenerator seeds a generator at the given instant.
func NewIDGenerator(now time.Time) *IDGenerator {
	g := &IDGenerator{}
	g.next.Store(now.UnixMilli())
	return g
}

// Next returns the next id. Safe for concurrent use.
func (g *IDGenerator) Next() int64 {
	return g.next.Add(1) - 1
}
