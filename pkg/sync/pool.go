package synced

import (
	"sync"
	"sync/atomic"
)

// PreallocationBatchSize is the default warm-up size for batch pools.
const PreallocationBatchSize = 1000

// BatchPool wraps sync.Pool with batch preallocation: the pool is warmed
// up front and refills itself a batch at a time instead of allocating one
// object per miss. Used for registry entry records, which churn at the
// rate of Set/Del traffic.
type BatchPool[T any] struct {
	len       int64
	pool      *sync.Pool
	allocFunc func() T
}

func NewBatchPool[T any](batchSize int, allocFunc func() T) *BatchPool[T] {
	bp := &BatchPool[T]{allocFunc: allocFunc}
	bp.pool = &sync.Pool{
		New: func() any {
			bp.preallocate(batchSize)
			atomic.AddInt64(&bp.len, int64(batchSize))
			return bp.pool.Get()
		},
	}
	bp.preallocate(batchSize)
	atomic.AddInt64(&bp.len, int64(batchSize))
	return bp
}

func (bp *BatchPool[T]) Len() int {
	return int(atomic.LoadInt64(&bp.len))
}

func (bp *BatchPool[T]) preallocate(n int) {
	for i := 0; i < n; i++ {
		bp.pool.Put(bp.allocFunc())
	}
}

func (bp *BatchPool[T]) Get() T {
	return bp.pool.Get().(T)
}

func (bp *BatchPool[T]) Put(x T) {
	bp.pool.Put(x)
}
