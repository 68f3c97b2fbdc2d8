package api

import (
	"context"
	"testing"

	"github.com/Borislavv/shared-handle/internal/registry/config"
	"github.com/Borislavv/shared-handle/pkg/alloc"
	"github.com/Borislavv/shared-handle/pkg/model"
	storage "github.com/Borislavv/shared-handle/pkg/registry"
	"github.com/prometheus/client_golang/prometheus"
	gstrconv "github.com/savsgio/gotils/strconv"
	"github.com/valyala/fasthttp"
)

type meterStub struct {
	upgradeHits   int
	upgradeMisses int
}

func (m *meterStub) IncTotal(string, string, string)                       {}
func (m *meterStub) IncStatus(string, string, string)                      {}
func (m *meterStub) NewResponseTimeTimer(string, string) *prometheus.Timer { return nil }
func (m *meterStub) FlushResponseTimeTimer(*prometheus.Timer)              {}
func (m *meterStub) HandleCreated()                                        {}
func (m *meterStub) HandleCloned()                                         {}
func (m *meterStub) HandleReleased()                                       {}
func (m *meterStub) ValueDestroyed()                                       {}
func (m *meterStub) AllocFailed()                                          {}

func (m *meterStub) WeakUpgrade(ok bool) {
	if ok {
		m.upgradeHits++
	} else {
		m.upgradeMisses++
	}
}

func newTestController(store *storage.Registry[model.Resource]) (*ResourceController, *meterStub) {
	meter := &meterStub{}
	c := NewResourceController(context.Background(), &config.Config{}, store, alloc.NewArena(0), meter)
	return c, meter
}

func TestUpsertCopiesReusedRequestBuffers(t *testing.T) {
	store := storage.New[model.Resource](16)
	c, _ := newTestController(store)

	// One RequestCtx serves both requests, as on a keep-alive connection
	// where fasthttp rewrites the path and header buffers in place. The
	// router's path param aliases the path buffer the same way, which the
	// mutable key below stands in for.
	r := &fasthttp.RequestCtx{}
	keyBuf := []byte("alpha")

	r.SetUserValue("key", gstrconv.B2S(keyBuf))
	r.Request.Header.SetContentType("text/html")
	r.Request.SetBody([]byte("<h1>hi</h1>"))
	c.Upsert(r)
	if got := r.Response.StatusCode(); got != fasthttp.StatusCreated {
		t.Fatalf("unexpected status: %d", got)
	}

	// The second request overwrites the very same buffers: a shorter
	// content type rewrites the first one's bytes in place.
	copy(keyBuf, "omega")
	r.Request.Reset()
	r.Response.Reset()
	r.SetUserValue("key", "beta")
	r.Request.Header.SetContentType("x/y")
	r.Request.SetBody([]byte("{}"))
	c.Upsert(r)

	h, ok := store.Get("alpha")
	if !ok {
		t.Fatal("first resource is gone after an unrelated request")
	}
	defer h.Release()
	res, err := h.Get()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.Key(); got != "alpha" {
		t.Fatalf("stored key mutated after an unrelated request: %q", got)
	}
	if got := res.ContentType(); got != "text/html" {
		t.Fatalf("stored content type mutated after an unrelated request: %q", got)
	}
	if got := string(res.Body()); got != "<h1>hi</h1>" {
		t.Fatalf("stored body mutated after an unrelated request: %q", got)
	}
}

func TestLastResourceObservesWithoutOwning(t *testing.T) {
	store := storage.New[model.Resource](16)
	c, meter := newTestController(store)

	empty := &fasthttp.RequestCtx{}
	c.ReadLast(empty)
	if got := empty.Response.StatusCode(); got != fasthttp.StatusNotFound {
		t.Fatalf("expected 404 before any upsert, got %d", got)
	}

	up := &fasthttp.RequestCtx{}
	up.SetUserValue("key", "alpha")
	up.Request.Header.SetContentType("text/plain")
	up.Request.SetBody([]byte("payload"))
	c.Upsert(up)

	last := &fasthttp.RequestCtx{}
	c.ReadLast(last)
	if got := last.Response.StatusCode(); got != fasthttp.StatusOK {
		t.Fatalf("unexpected status: %d", got)
	}
	if got := string(last.Response.Body()); got != "payload" {
		t.Fatalf("unexpected body: %q", got)
	}
	if meter.upgradeHits != 1 {
		t.Fatalf("successful upgrade was not recorded: %d hits", meter.upgradeHits)
	}

	// Deleting the registry entry destroys the value: the weak edge must
	// not have kept it alive.
	del := &fasthttp.RequestCtx{}
	del.SetUserValue("key", "alpha")
	c.Delete(del)

	gone := &fasthttp.RequestCtx{}
	c.ReadLast(gone)
	if got := gone.Response.StatusCode(); got != fasthttp.StatusNotFound {
		t.Fatalf("expected 404 after deletion, got %d", got)
	}
	if meter.upgradeMisses != 2 {
		t.Fatalf("failed upgrades were not recorded: %d misses", meter.upgradeMisses)
	}
}
