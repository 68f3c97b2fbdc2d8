package handle

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Borislavv/shared-handle/pkg/alloc"
)

func TestDowngradeUpgrade(t *testing.T) {
	h, _ := New("observed")
	w := h.Downgrade()

	u, ok := w.Upgrade()
	if !ok {
		t.Fatal("upgrade failed while the value is alive")
	}
	if got := h.UseCount(); got != 2 {
		t.Fatalf("expected use count 2 after upgrade, got %d", got)
	}
	v, err := u.Get()
	if err != nil || *v != "observed" {
		t.Fatalf("upgraded handle dereference failed: %v (err: %v)", v, err)
	}

	u.Release()
	w.Release()
	h.Release()
}

func TestUpgradeAfterLastReleaseFails(t *testing.T) {
	var destroyed atomic.Int64
	h, _ := New(1, WithDeleter[int](func(*int) { destroyed.Add(1) }))
	w := h.Downgrade()

	h.Release()
	if got := destroyed.Load(); got != 1 {
		t.Fatalf("weak reference kept the value alive: destroyed %d times", got)
	}

	if u, ok := w.Upgrade(); ok {
		u.Release()
		t.Fatal("upgrade succeeded after the value was destroyed")
	}
	if got := w.UseCount(); got != 0 {
		t.Fatalf("expected strong count 0 through the weak reference, got %d", got)
	}
	w.Release()
}

func TestWeakReleaseIsIdempotent(t *testing.T) {
	h, _ := New(1)
	w := h.Downgrade()
	w.Release()
	w.Release() // no-op on the emptied weak reference
	h.Release()

	e := Weak[int]{}
	e.Release()
	if _, ok := e.Upgrade(); ok {
		t.Fatal("upgrade of an empty weak reference succeeded")
	}
}

func TestNoLeakThroughArenaAccounting(t *testing.T) {
	arena := alloc.NewArena(0) // unbounded, accounting only

	h, err := New("tracked", WithAllocator[string](arena), WithWeight[string](128))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if arena.Used() == 0 {
		t.Fatal("arena did not account the reservation")
	}

	c := h.Clone()
	w := h.Downgrade()
	reserved := arena.Used()

	// clones and weak refs reserve nothing
	if arena.Used() != reserved {
		t.Fatal("clone or downgrade changed the reservation")
	}

	h.Release()
	c.Release()
	// value freed, control block still held for the weak observer
	afterStrong := arena.Used()
	if afterStrong == 0 || afterStrong >= reserved {
		t.Fatalf("expected a partial release (block kept for weak), used %d of %d", afterStrong, reserved)
	}

	w.Release()
	if got := arena.Used(); got != 0 {
		t.Fatalf("expected everything returned after the last weak release, %d bytes still reserved", got)
	}
}

func TestConcurrentUpgradeVsRelease(t *testing.T) {
	const attempts = 200

	for iter := 0; iter < attempts; iter++ {
		var destroyed atomic.Int64
		h, _ := New(iter, WithDeleter[int](func(*int) { destroyed.Add(1) }))
		w := h.Downgrade()

		startCh := make(chan struct{})
		wg := &sync.WaitGroup{}
		wg.Add(2)

		go func() {
			defer wg.Done()
			<-startCh
			h.Release()
		}()
		go func() {
			defer wg.Done()
			<-startCh
			if u, ok := w.Upgrade(); ok {
				// a successful upgrade must always see a live value
				if _, err := u.Get(); err != nil {
					t.Errorf("iter %d: upgraded handle failed to dereference: %v", iter, err)
				}
				u.Release()
			}
		}()

		close(startCh)
		wg.Wait()

		if got := destroyed.Load(); got != 1 {
			t.Fatalf("iter %d: expected exactly one destruction, got %d", iter, got)
		}
		w.Release()
	}
}
