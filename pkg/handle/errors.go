package handle

import "errors"

var (
	// ErrAllocFailed is reported by constructors when the configured
	// allocator cannot reserve storage for the value and its control block.
	// The failure is all-or-nothing: no partial reservation is left behind.
	ErrAllocFailed = errors.New("shared handle: allocation failed")

	// ErrNilDeref is reported when an empty handle is dereferenced.
	// This is a caller defect, not a resource condition, and is surfaced
	// at the point of misuse instead of manifesting later as garbage.
	ErrNilDeref = errors.New("shared handle: nil dereference")
)

// Count transitions below are guarded the same way the count itself is
// maintained: going negative or resurrecting a dead referent is unreachable
// through the public API, therefore it panics instead of returning an error.
var (
	errNegativeRefCount = errors.New("shared handle: refcount dropped below zero (too many releases)")
	errDeadResurrection = errors.New("shared handle: clone of a handle whose referent was already destroyed")
)
