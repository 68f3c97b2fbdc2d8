package alloc

import (
	"fmt"
	"sync/atomic"
)

// Arena is a capacity-bounded allocation tracker. It reserves bytes with a
// CAS loop so concurrent reservations never overshoot the limit, and it
// never leaves a partial reservation behind: a refused Alloc changes
// nothing.
//
// It implements the handle.Allocator contract and doubles as the
// allocation-tracking test double for leak checks: once every strong and
// weak reference of everything built on the arena is released, Used
// returns to its previous level.
type Arena struct {
	limit int64
	used  atomic.Int64
}

// NewArena returns an arena allowing up to limit reserved bytes.
// A non-positive limit means unbounded (accounting only).
func NewArena(limit int64) *Arena {
	return &Arena{limit: limit}
}

// Alloc reserves n bytes or reports why it cannot.
func (a *Arena) Alloc(n int64) error {
	if n < 0 {
		return fmt.Errorf("arena: negative reservation %d", n)
	}
	for {
		used := a.used.Load()
		if a.limit > 0 && used+n > a.limit {
			return fmt.Errorf("arena: need %d bytes, used %d of limit %d", n, used, a.limit)
		}
		if a.used.CompareAndSwap(used, used+n) {
			return nil
		}
	}
}

// Free returns n previously reserved bytes.
func (a *Arena) Free(n int64) {
	if a.used.Add(-n) < 0 {
		panic("arena: freed more than was reserved")
	}
}

// Used returns the currently reserved byte count.
func (a *Arena) Used() int64 {
	return a.used.Load()
}

// Limit returns the configured capacity, 0 for unbounded.
func (a *Arena) Limit() int64 {
	return a.limit
}
