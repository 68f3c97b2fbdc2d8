package handle

import "unsafe"

// NewSlice places a whole container under one control block: one strong
// count for the group, one destruction call which tears down every element
// (through elemDel, which may be nil) and drops the backing array.
//
// This is the handle-to-container shape. The complementary shape, a
// container holding many independently counted handles, is what
// pkg/registry provides; neither is privileged, pick per ownership model.
func NewSlice[T any](elems []T, elemDel func(*T), opts ...Option[[]T]) (Handle[[]T], error) {
	var zero T
	weight := int64(unsafe.Sizeof(elems)) + int64(len(elems))*int64(unsafe.Sizeof(zero))

	del := func(s *[]T) {
		if elemDel != nil {
			for i := range *s {
				elemDel(&(*s)[i])
			}
		}
		*s = nil
	}

	// Caller options are applied last so an allocator or explicit weight
	// can still be supplied; overriding the deleter drops element teardown.
	opts = append([]Option[[]T]{WithWeight[[]T](weight), WithDeleter(del)}, opts...)
	return New(elems, opts...)
}
