package alloc

import (
	"errors"
	"sync"
	"testing"

	"github.com/Borislavv/shared-handle/pkg/handle"
)

func TestArenaRefusesOverLimit(t *testing.T) {
	arena := NewArena(100)

	if err := arena.Alloc(60); err != nil {
		t.Fatalf("unexpected refusal: %v", err)
	}
	if err := arena.Alloc(41); err == nil {
		t.Fatal("expected refusal over the limit")
	}
	// a refused reservation leaves nothing behind
	if got := arena.Used(); got != 60 {
		t.Fatalf("refused reservation changed usage to %d", got)
	}

	if err := arena.Alloc(40); err != nil {
		t.Fatalf("reservation up to the limit was refused: %v", err)
	}
	arena.Free(100)
	if got := arena.Used(); got != 0 {
		t.Fatalf("expected 0 used after free, got %d", got)
	}
}

func TestHandleConstructionIsAllOrNothing(t *testing.T) {
	arena := NewArena(8) // far too small for value + control block

	_, err := handle.New("does not fit",
		handle.WithAllocator[string](arena),
		handle.WithWeight[string](1024),
	)
	if !errors.Is(err, handle.ErrAllocFailed) {
		t.Fatalf("expected ErrAllocFailed, got %v", err)
	}
	if got := arena.Used(); got != 0 {
		t.Fatalf("failed construction left %d bytes reserved", got)
	}
}

func TestArenaUnboundedAccountsOnly(t *testing.T) {
	arena := NewArena(0)
	if err := arena.Alloc(1 << 40); err != nil {
		t.Fatalf("unbounded arena refused a reservation: %v", err)
	}
	if got := arena.Used(); got != 1<<40 {
		t.Fatalf("expected full accounting, got %d", got)
	}
	arena.Free(1 << 40)
}

func TestArenaConcurrentReservations(t *testing.T) {
	const limit = 1000
	const workers = 32
	const perWorker = 100

	arena := NewArena(limit)

	var granted, refused int64
	mu := &sync.Mutex{}
	wg := &sync.WaitGroup{}
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			var g, r int64
			for j := 0; j < perWorker; j++ {
				if err := arena.Alloc(1); err != nil {
					r++
				} else {
					g++
				}
			}
			mu.Lock()
			granted += g
			refused += r
			mu.Unlock()
		}()
	}
	wg.Wait()

	if granted != limit {
		t.Fatalf("expected exactly %d granted reservations, got %d (refused %d)", limit, granted, refused)
	}
	if got := arena.Used(); got != limit {
		t.Fatalf("expected %d used, got %d", limit, got)
	}
}
