package handle

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestUseCountTracksLiveOwners(t *testing.T) {
	h, err := New(42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := h.UseCount(); got != 1 {
		t.Fatalf("expected use count 1 after create, got %d", got)
	}

	c1 := h.Clone()
	c2 := h.Clone()
	if got := h.UseCount(); got != 3 {
		t.Fatalf("expected use count 3 after two clones, got %d", got)
	}

	c1.Release()
	if got := h.UseCount(); got != 2 {
		t.Fatalf("expected use count 2, got %d", got)
	}
	c2.Release()
	if got := h.UseCount(); got != 1 {
		t.Fatalf("expected use count 1, got %d", got)
	}
	h.Release()
	if got := h.UseCount(); got != 0 {
		t.Fatalf("expected use count 0 after final release, got %d", got)
	}
}

func TestValueDestroyedExactlyOnce(t *testing.T) {
	var destroyed atomic.Int64
	h, err := New("payload", WithDeleter[string](func(*string) { destroyed.Add(1) }))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clones := make([]Handle[string], 0, 10)
	for i := 0; i < 10; i++ {
		clones = append(clones, h.Clone())
	}
	h.Release()
	if destroyed.Load() != 0 {
		t.Fatalf("value destroyed while %d clones are still alive", len(clones))
	}
	// release in mixed order
	for _, i := range []int{3, 0, 9, 5, 1, 7, 2, 8, 4, 6} {
		clones[i].Release()
	}

	if got := destroyed.Load(); got != 1 {
		t.Fatalf("expected exactly one destruction, got %d", got)
	}
}

func TestNoDoubleFree(t *testing.T) {
	var destroyed atomic.Int64
	h, _ := New(1, WithDeleter[int](func(*int) { destroyed.Add(1) }))
	c := h.Clone()

	h.Release()
	c.Release()

	if got := destroyed.Load(); got != 1 {
		t.Fatalf("expected destruction to run once, ran %d times", got)
	}

	// releasing already-empty handles must not touch the count again
	h.Release()
	c.Release()
	if got := destroyed.Load(); got != 1 {
		t.Fatalf("release of empty handle re-triggered destruction, ran %d times", got)
	}
}

func TestSelfAssignIsNoOp(t *testing.T) {
	var destroyed atomic.Int64
	h, _ := New("self", WithDeleter[string](func(*string) { destroyed.Add(1) }))

	h.Assign(h)
	if got := h.UseCount(); got != 1 {
		t.Fatalf("self-assignment changed use count to %d", got)
	}
	if destroyed.Load() != 0 {
		t.Fatal("self-assignment destroyed the value")
	}

	// assignment between two handles of the same control block is the same no-op
	c := h.Clone()
	h.Assign(c)
	if got := h.UseCount(); got != 2 {
		t.Fatalf("same-referent assignment changed use count to %d", got)
	}

	c.Release()
	h.Release()
	if got := destroyed.Load(); got != 1 {
		t.Fatalf("expected exactly one destruction, got %d", got)
	}
}

func TestAssignReplacesReferent(t *testing.T) {
	var aDestroyed, bDestroyed atomic.Int64
	a, _ := New("a", WithDeleter[string](func(*string) { aDestroyed.Add(1) }))
	b, _ := New("b", WithDeleter[string](func(*string) { bDestroyed.Add(1) }))

	a.Assign(b)

	if aDestroyed.Load() != 1 {
		t.Fatal("old referent was not destroyed when its last owner was reassigned")
	}
	if got := b.UseCount(); got != 2 {
		t.Fatalf("expected source use count 2 after assignment, got %d", got)
	}
	v, err := a.Get()
	if err != nil || *v != "b" {
		t.Fatalf("expected rebound value %q, got %v (err: %v)", "b", v, err)
	}

	a.Release()
	b.Release()
	if bDestroyed.Load() != 1 {
		t.Fatal("new referent leaked after all owners released")
	}
}

func TestNilDereferenceIsCaught(t *testing.T) {
	e := Empty[int]()
	if _, err := e.Get(); !errors.Is(err, ErrNilDeref) {
		t.Fatalf("expected ErrNilDeref, got %v", err)
	}

	h, _ := New(7)
	h.Release()
	if _, err := h.Get(); !errors.Is(err, ErrNilDeref) {
		t.Fatalf("expected ErrNilDeref on released handle, got %v", err)
	}

	defer func() {
		err, ok := recover().(error)
		if !ok || !errors.Is(err, ErrNilDeref) {
			t.Fatalf("expected MustGet to panic with ErrNilDeref, got %v", err)
		}
	}()
	_ = e.MustGet()
	t.Fatal("MustGet on empty handle did not panic")
}

func TestScopeRelease(t *testing.T) {
	var destroyed atomic.Int64
	var outer Handle[int]

	func() {
		inner, err := New(100, WithDeleter[int](func(*int) { destroyed.Add(1) }))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer inner.Release()

		outer = inner.Clone()
		if got := inner.UseCount(); got != 2 {
			t.Fatalf("expected use count 2 inside the scope, got %d", got)
		}
	}()

	if got := outer.UseCount(); got != 1 {
		t.Fatalf("expected use count 1 after the inner scope ended, got %d", got)
	}
	if destroyed.Load() != 0 {
		t.Fatal("value destroyed while the outer handle is alive")
	}

	outer.Reset()
	if got := outer.UseCount(); got != 0 {
		t.Fatalf("expected use count 0 after reset, got %d", got)
	}
	if got := destroyed.Load(); got != 1 {
		t.Fatalf("expected exactly one destruction, got %d", got)
	}
}

func TestMoveTransfersWithoutCounting(t *testing.T) {
	var destroyed atomic.Int64
	src, _ := New(5, WithDeleter[int](func(*int) { destroyed.Add(1) }))

	dst := Move(&src)
	if !src.IsEmpty() {
		t.Fatal("source is not empty after move")
	}
	if got := dst.UseCount(); got != 1 {
		t.Fatalf("move changed the use count to %d", got)
	}

	src.Release() // no-op on the emptied source
	if destroyed.Load() != 0 {
		t.Fatal("releasing the moved-from handle destroyed the value")
	}
	dst.Release()
	if got := destroyed.Load(); got != 1 {
		t.Fatalf("expected exactly one destruction, got %d", got)
	}
}

func TestResetIsIdempotent(t *testing.T) {
	var destroyed atomic.Int64
	h, _ := New(3, WithDeleter[int](func(*int) { destroyed.Add(1) }))

	h.Reset()
	h.Reset()
	h.Reset()

	if got := destroyed.Load(); got != 1 {
		t.Fatalf("expected exactly one destruction after repeated resets, got %d", got)
	}

	e := Empty[int]()
	e.Reset() // must be a plain no-op
}

func TestCloneOfEmptyIsEmpty(t *testing.T) {
	e := Empty[string]()
	c := e.Clone()
	if !c.IsEmpty() || c.UseCount() != 0 {
		t.Fatal("clone of an empty handle is not empty")
	}
}

func TestConcurrentLastOwnerRace(t *testing.T) {
	const owners = 64

	for iter := 0; iter < 100; iter++ {
		var destroyed atomic.Int64
		h, _ := New(iter, WithDeleter[int](func(*int) { destroyed.Add(1) }))

		clones := make([]Handle[int], owners)
		for i := range clones {
			clones[i] = h.Clone()
		}
		h.Release()

		startCh := make(chan struct{})
		wg := &sync.WaitGroup{}
		wg.Add(owners)
		for i := 0; i < owners; i++ {
			go func(i int) {
				defer wg.Done()
				<-startCh
				clones[i].Release()
			}(i)
		}
		close(startCh)
		wg.Wait()

		if got := destroyed.Load(); got != 1 {
			t.Fatalf("iter %d: expected exactly one destruction, got %d", iter, got)
		}
	}
}

func TestConcurrentCloneReleaseChurn(t *testing.T) {
	const workers = 16
	const rounds = 1000

	var destroyed atomic.Int64
	base, _ := New("churn", WithDeleter[string](func(*string) { destroyed.Add(1) }))

	wg := &sync.WaitGroup{}
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				c := base.Clone()
				if _, err := c.Get(); err != nil {
					t.Errorf("live clone failed to dereference: %v", err)
					c.Release()
					return
				}
				c.Release()
			}
		}()
	}
	wg.Wait()

	if destroyed.Load() != 0 {
		t.Fatal("value destroyed while the base handle is still alive")
	}
	base.Release()
	if got := destroyed.Load(); got != 1 {
		t.Fatalf("expected exactly one destruction, got %d", got)
	}
}

func BenchmarkCloneRelease(b *testing.B) {
	h, _ := New(1)
	defer h.Release()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			c := h.Clone()
			c.Release()
		}
	})
}
