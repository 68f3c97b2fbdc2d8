package handle

// Weak is a non-owning observer of a shared referent. It does not extend
// the value's lifetime; it only keeps the control block reachable so that
// Upgrade can answer "is the value still alive" without racing destruction.
// The zero value is an empty weak reference.
//
// Weak is the prescribed shape for back-references: two values owning each
// other through strong handles never reach count zero, a weak back edge
// breaks the cycle.
type Weak[T any] struct {
	cb *control[T]
}

// IsEmpty reports whether the weak reference observes nothing.
func (w Weak[T]) IsEmpty() bool {
	return w.cb == nil
}

// Clone takes one more weak reference to the same control block.
func (w Weak[T]) Clone() Weak[T] {
	if w.cb == nil {
		return Weak[T]{}
	}
	if n := w.cb.weak.Add(1); n < 2 {
		panic(errDeadResurrection)
	}
	return Weak[T]{cb: w.cb}
}

// Upgrade attempts to obtain an owning handle. It fails (empty handle,
// false) once the strong count has already reached zero: the CAS loop only
// ever moves the count from n > 0 to n+1, so an upgrade can never revive a
// destroyed value.
func (w Weak[T]) Upgrade() (Handle[T], bool) {
	cb := w.cb
	if cb == nil {
		return Handle[T]{}, false
	}
	for {
		n := cb.strong.Load()
		if n == 0 {
			return Handle[T]{}, false
		}
		if cb.strong.CompareAndSwap(n, n+1) {
			return Handle[T]{cb: cb}, true
		}
	}
}

// UseCount returns the referent's current strong count, 0 when the value
// is already gone or the weak reference is empty. Informational only.
func (w Weak[T]) UseCount() int64 {
	if w.cb == nil {
		return 0
	}
	return w.cb.strong.Load()
}

// Release drops the weak reference and empties it. When the last weak
// reference of an already-destroyed value is released, the control block's
// reservation is returned. Releasing an empty weak reference is a no-op.
func (w *Weak[T]) Release() {
	cb := w.cb
	if cb == nil {
		return
	}
	w.cb = nil
	cb.decWeak()
}
