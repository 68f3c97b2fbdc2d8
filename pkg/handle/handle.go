package handle

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Allocator is the storage accounting contract used by handle constructors.
// Alloc reserves n bytes or reports an error leaving nothing reserved;
// Free returns previously reserved bytes.
type Allocator interface {
	Alloc(n int64) error
	Free(n int64)
}

// nopAllocator is the default: no limit, no accounting.
type nopAllocator struct{}

func (nopAllocator) Alloc(int64) error { return nil }
func (nopAllocator) Free(int64)        {}

// control is the per-referent block shared by every handle and weak
// reference pointing at the same value. The weak count holds one extra
// reference on behalf of all strong handles, so the block's reservation is
// returned exactly when both counts are spent.
type control[T any] struct {
	strong atomic.Int64
	weak   atomic.Int64

	value *T
	del   func(*T)

	alloc       Allocator
	valueWeight int64
	blockWeight int64
}

// decStrong drops one strong reference. The goroutine which observes the
// 1 -> 0 transition runs the deleter, synchronously, exactly once.
func (c *control[T]) decStrong() {
	n := c.strong.Add(-1)
	switch {
	case n < 0:
		panic(errNegativeRefCount)
	case n == 0:
		if c.del != nil {
			c.del(c.value)
		}
		c.value = nil
		c.alloc.Free(c.valueWeight)
		c.decWeak()
	}
}

func (c *control[T]) decWeak() {
	n := c.weak.Add(-1)
	switch {
	case n < 0:
		panic(errNegativeRefCount)
	case n == 0:
		c.alloc.Free(c.blockWeight)
	}
}

// Handle is a shared-ownership reference to one heap value of type T.
// The zero value is an empty handle which owns nothing.
//
// Go has no copy constructors or destructors, so ownership transitions are
// explicit: Clone takes a new strong reference, Release (or Reset) gives
// one back. A plain struct copy of a Handle does NOT take a reference and
// must not outlive the original.
type Handle[T any] struct {
	cb *control[T]
}

// Option configures a handle constructor.
type Option[T any] func(*options[T])

type options[T any] struct {
	del    func(*T)
	alloc  Allocator
	weight int64
}

// WithDeleter binds a destruction routine invoked exactly once, when the
// last strong reference is released.
func WithDeleter[T any](del func(*T)) Option[T] {
	return func(o *options[T]) { o.del = del }
}

// WithAllocator routes the storage reservation of the value and its control
// block through a. Constructors fail with ErrAllocFailed when a refuses.
func WithAllocator[T any](a Allocator) Option[T] {
	return func(o *options[T]) { o.alloc = a }
}

// WithWeight overrides the accounted value weight in bytes. By default the
// shallow size of T is used, which undercounts values holding references.
func WithWeight[T any](n int64) Option[T] {
	return func(o *options[T]) { o.weight = n }
}

// New places value under shared ownership: one reservation, one control
// block, strong count 1. On allocation failure no state is left behind.
func New[T any](value T, opts ...Option[T]) (Handle[T], error) {
	return Adopt(&value, opts...)
}

// Adopt is New for caller-supplied storage: the handle takes ownership of
// *ptr without copying it.
func Adopt[T any](ptr *T, opts ...Option[T]) (Handle[T], error) {
	o := options[T]{alloc: nopAllocator{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.alloc == nil {
		o.alloc = nopAllocator{}
	}

	cb := &control[T]{}
	cb.blockWeight = int64(unsafe.Sizeof(*cb))
	cb.valueWeight = o.weight
	if cb.valueWeight <= 0 {
		cb.valueWeight = int64(unsafe.Sizeof(*ptr))
	}

	// Single reservation for value + block: all-or-nothing.
	if err := o.alloc.Alloc(cb.valueWeight + cb.blockWeight); err != nil {
		return Handle[T]{}, fmt.Errorf("%w: %v", ErrAllocFailed, err)
	}

	cb.value = ptr
	cb.del = o.del
	cb.alloc = o.alloc
	cb.strong.Store(1)
	cb.weak.Store(1) // base reference held by the strong side
	return Handle[T]{cb: cb}, nil
}

// Empty returns a handle which owns nothing. Equivalent to the zero value.
func Empty[T any]() Handle[T] {
	return Handle[T]{}
}

// IsEmpty reports whether the handle owns nothing.
func (h Handle[T]) IsEmpty() bool {
	return h.cb == nil
}

// Clone takes one more strong reference and returns a handle sharing the
// same control block. Cloning an empty handle yields an empty handle.
// No allocation happens; the only side effect is the count increment,
// observable to every holder.
func (h Handle[T]) Clone() Handle[T] {
	if h.cb == nil {
		return Handle[T]{}
	}
	// A live handle holds its own reference, so the count is >= 1 here and
	// cannot race to zero underneath us. Seeing < 2 after the increment
	// means the caller cloned through a stale struct copy.
	if n := h.cb.strong.Add(1); n < 2 {
		panic(errDeadResurrection)
	}
	return Handle[T]{cb: h.cb}
}

// Move transfers ownership out of *src without touching the counts.
// *src is empty afterwards.
func Move[T any](src *Handle[T]) Handle[T] {
	h := Handle[T]{cb: src.cb}
	src.cb = nil
	return h
}

// Assign rebinds h to the same referent as src, releasing h's previous
// referent. The source is retained before the target is released, so
// assigning a handle to itself (or to any handle sharing its control
// block) never transits through zero and is a no-op.
func (h *Handle[T]) Assign(src Handle[T]) {
	if h.cb == src.cb {
		return
	}
	n := src.Clone()
	h.Release()
	h.cb = n.cb
}

// Release gives back one strong reference and empties the handle. If this
// was the last strong reference the deleter runs immediately on the calling
// goroutine; if no weak references remain the control block's reservation
// is returned in the same step. Releasing an empty handle is a no-op.
func (h *Handle[T]) Release() {
	cb := h.cb
	if cb == nil {
		return
	}
	h.cb = nil
	cb.decStrong()
}

// Reset releases the current referent and leaves the handle empty.
// Idempotent: resetting an empty handle does nothing.
func (h *Handle[T]) Reset() {
	h.Release()
}

// UseCount returns the current number of strong references, 0 for an empty
// handle. The value is inherently racy under concurrent clones/releases
// and must not drive ownership decisions; it is informational only.
func (h Handle[T]) UseCount() int64 {
	if h.cb == nil {
		return 0
	}
	return h.cb.strong.Load()
}

// Get returns the managed value, or ErrNilDeref for an empty handle.
func (h Handle[T]) Get() (*T, error) {
	if h.cb == nil {
		return nil, ErrNilDeref
	}
	return h.cb.value, nil
}

// MustGet is Get for call sites where an empty handle is impossible;
// it panics with ErrNilDeref otherwise.
func (h Handle[T]) MustGet() *T {
	v, err := h.Get()
	if err != nil {
		panic(err)
	}
	return v
}

// Downgrade returns a non-owning observer of the referent. Weak references
// never keep the value alive, only the control block.
func (h Handle[T]) Downgrade() Weak[T] {
	if h.cb == nil {
		return Weak[T]{}
	}
	if n := h.cb.weak.Add(1); n < 2 {
		panic(errDeadResurrection)
	}
	return Weak[T]{cb: h.cb}
}
