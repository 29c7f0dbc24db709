// Package refcount provides the atomic reference-counting primitive
// embedded in every shared pipeline object (sounds, data sources,
// sample sources, streams, handles).
package refcount

import "sync/atomic"

// Count is an atomic non-negative reference count. The zero value is
// not usable; construct with New, which starts the count at 1 to
// represent the creator's own reference.
type Count struct {
	n atomic.Int64
}

// New returns a Count initialized to 1, representing the reference
// held by the object's creator.
func New() *Count {
	c := &Count{}
	c.n.Store(1)
	return c
}

// Acquire adds a reference and returns the count after the increment.
// Callers must already hold a live reference (directly or via a
// container that holds one) before calling Acquire; acquiring through
// a reference that may already have dropped to zero is a race.
func (c *Count) Acquire() int64 {
	return c.n.Add(1)
}

// Release drops a reference and returns true if this call dropped the
// count to zero, meaning the caller is responsible for destroying the
// underlying object. Only one Release call can ever observe zero.
func (c *Count) Release() bool {
	return c.n.Add(-1) == 0
}

// Load returns the current count for diagnostics; it is not safe to
// act on without a subsequent Acquire/Release since it can change
// concurrently.
func (c *Count) Load() int64 {
	return c.n.Load()
}
