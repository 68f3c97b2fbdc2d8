package registry

import (
	"sync"
	"sync/atomic"

	"github.com/Borislavv/shared-handle/pkg/handle"
	synced "github.com/Borislavv/shared-handle/pkg/sync"
)

// entry is the pooled record holding one stored handle. Entries are zeroed
// before going back to the pool so a recycled record can never leak a
// reference.
type entry[T any] struct {
	h handle.Handle[T]
}

type shard[T any] struct {
	sync.RWMutex
	id    uint64
	items map[string]*entry[T]
	len   *atomic.Int64
	pool  *synced.BatchPool[*entry[T]]
}

func newShard[T any](id uint64, defaultLen int, pool *synced.BatchPool[*entry[T]]) *shard[T] {
	return &shard[T]{
		id:    id,
		items: make(map[string]*entry[T], defaultLen),
		len:   &atomic.Int64{},
		pool:  pool,
	}
}

// set stores its own clone of h, releasing the reference of any entry it
// replaces. Sibling entries are untouched.
func (s *shard[T]) set(key string, h handle.Handle[T]) (replaced bool) {
	e := s.pool.Get()
	e.h = h.Clone()

	s.Lock()
	old, existed := s.items[key]
	s.items[key] = e
	s.Unlock()

	if existed {
		old.h.Release()
		*old = entry[T]{}
		s.pool.Put(old)
		return true
	}
	s.len.Add(1)
	return false
}

// get clones the stored handle under the read lock, so the entry cannot be
// released out from under the clone.
func (s *shard[T]) get(key string) (handle.Handle[T], bool) {
	s.RLock()
	e, ok := s.items[key]
	if !ok {
		s.RUnlock()
		return handle.Empty[T](), false
	}
	h := e.h.Clone()
	s.RUnlock()
	return h, true
}

// del removes the entry and releases exactly its one stored reference.
func (s *shard[T]) del(key string) bool {
	s.Lock()
	e, ok := s.items[key]
	if ok {
		delete(s.items, key)
	}
	s.Unlock()

	if !ok {
		return false
	}
	s.len.Add(-1)
	e.h.Release()
	*e = entry[T]{}
	s.pool.Put(e)
	return true
}

// walk visits every entry under the read lock. The handle passed to fn is
// the stored one: clone it to retain it beyond the callback.
func (s *shard[T]) walk(fn func(key string, h handle.Handle[T])) {
	s.RLock()
	defer s.RUnlock()
	for k, e := range s.items {
		fn(k, e.h)
	}
}
