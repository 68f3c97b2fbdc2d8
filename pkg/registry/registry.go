package registry

import (
	"sync"

	"github.com/Borislavv/shared-handle/pkg/handle"
	synced "github.com/Borislavv/shared-handle/pkg/sync"
	"github.com/zeebo/xxh3"
)

// ShardCount is fixed so the shard index is a single hash and mask away.
const ShardCount uint64 = 256

// Registry is the container-of-handles shape: a sharded, string-keyed map
// where every entry holds its own strong reference. Storing, replacing or
// removing an entry adjusts exactly that entry's count, exactly as any
// other clone/release would; sibling entries are unaffected.
//
// The registry never owns values exclusively: callers keep their own
// handles, the registry keeps its own, and the value lives until the last
// of all of them is released.
type Registry[T any] struct {
	shards [ShardCount]*shard[T]
	pool   *synced.BatchPool[*entry[T]]
}

func New[T any](defaultLenPerShard int) *Registry[T] {
	r := &Registry[T]{}
	r.pool = synced.NewBatchPool[*entry[T]](synced.PreallocationBatchSize, func() *entry[T] {
		return &entry[T]{}
	})
	for id := uint64(0); id < ShardCount; id++ {
		r.shards[id] = newShard[T](id, defaultLenPerShard, r.pool)
	}
	return r
}

func (r *Registry[T]) shardOf(key string) *shard[T] {
	return r.shards[xxh3.HashString(key)%ShardCount]
}

// Set stores a clone of h under key and reports whether an existing entry
// was replaced. A replaced entry's reference is released after the new one
// is in place.
func (r *Registry[T]) Set(key string, h handle.Handle[T]) (replaced bool) {
	return r.shardOf(key).set(key, h)
}

// Get returns a fresh clone of the stored handle. The caller owns the
// returned reference and must release it.
func (r *Registry[T]) Get(key string) (handle.Handle[T], bool) {
	return r.shardOf(key).get(key)
}

// Del removes the entry and releases its stored reference. Whether the
// value is destroyed depends on what other handles remain, as always.
func (r *Registry[T]) Del(key string) bool {
	return r.shardOf(key).del(key)
}

// Len returns the total number of stored entries.
func (r *Registry[T]) Len() int64 {
	var length int64
	for _, s := range r.shards {
		length += s.len.Load()
	}
	return length
}

// Walk visits all entries, one goroutine per shard. Handles passed to fn
// are the stored ones: clone to retain.
func (r *Registry[T]) Walk(fn func(key string, h handle.Handle[T])) {
	wg := &sync.WaitGroup{}
	wg.Add(int(ShardCount))
	defer wg.Wait()
	for _, s := range r.shards {
		go func(s *shard[T]) {
			defer wg.Done()
			s.walk(fn)
		}(s)
	}
}
