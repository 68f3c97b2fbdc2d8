// Package sharedhandle is the single-import facade over pkg/handle: a
// reference-counted shared-ownership handle with deterministic, exactly-once
// destruction of the managed value, weak observers, and optional allocation
// accounting through pkg/alloc.
//
// The full API, including options and the sharded container of handles,
// lives in the subpackages; this package only forwards the entry points.
package sharedhandle

import (
	"github.com/Borislavv/shared-handle/pkg/handle"
)

// Errors reported by constructors and accessors.
var (
	ErrAllocFailed = handle.ErrAllocFailed
	ErrNilDeref    = handle.ErrNilDeref
)

// New places value under shared ownership with a strong count of 1.
func New[T any](value T, opts ...handle.Option[T]) (handle.Handle[T], error) {
	return handle.New(value, opts...)
}

// Adopt is New for caller-supplied storage.
func Adopt[T any](ptr *T, opts ...handle.Option[T]) (handle.Handle[T], error) {
	return handle.Adopt(ptr, opts...)
}

// NewSlice places a whole container under one control block with a single
// destruction call tearing down every element.
func NewSlice[T any](elems []T, elemDel func(*T), opts ...handle.Option[[]T]) (handle.Handle[[]T], error) {
	return handle.NewSlice(elems, elemDel, opts...)
}

// Empty returns a handle which owns nothing.
func Empty[T any]() handle.Handle[T] {
	return handle.Empty[T]()
}

// Move transfers ownership out of *src without touching the counts.
func Move[T any](src *handle.Handle[T]) handle.Handle[T] {
	return handle.Move(src)
}
