package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Borislavv/shared-handle/internal/registry/config"
	"github.com/Borislavv/shared-handle/pkg/alloc"
	"github.com/Borislavv/shared-handle/pkg/handle"
	"github.com/Borislavv/shared-handle/pkg/model"
	"github.com/Borislavv/shared-handle/pkg/prometheus/metrics"
	storage "github.com/Borislavv/shared-handle/pkg/registry"
	"github.com/Borislavv/shared-handle/pkg/utils"
	"github.com/fasthttp/router"
	"github.com/rs/zerolog/log"
	gstrconv "github.com/savsgio/gotils/strconv"
	"github.com/valyala/fasthttp"
)

const (
	ResourcePath     = "/api/v1/resource/{key}"
	ResourceStatPath = "/api/v1/resource/{key}/stat"
	LastResourcePath = "/api/v1/last-resource"
	StatsPath        = "/api/v1/stats"
)

var (
	notFoundResponseBytes = []byte(`{
	  "status": 404,
	  "error": "Not Found",
	  "message": "` + string(messagePlaceholder) + `"
	}`)
	insufficientStorageResponseBytes = []byte(`{
	  "status": 507,
	  "error": "Insufficient Storage",
	  "message": "` + string(messagePlaceholder) + `"
	}`)
	internalErrorResponseBytes = []byte(`{
	  "status": 500,
	  "error": "Internal Server Error",
	  "message": "` + string(messagePlaceholder) + `"
	}`)
	messagePlaceholder = []byte("${message}")
	zeroLiteral        = "0"
)

var (
	durCh chan time.Duration
)

// ResourceController serves the resource registry API: every endpoint is a
// thin wrapper over one public handle operation (create, clone, release).
type ResourceController struct {
	cfg     *config.Config
	ctx     context.Context
	store   *storage.Registry[model.Resource]
	arena   *alloc.Arena
	metrics metrics.Meter

	// last weakly observes the most recently stored resource, so the
	// last-resource endpoint never extends a deleted resource's lifetime.
	lastMu sync.Mutex
	last   handle.Weak[model.Resource]
}

func NewResourceController(
	ctx context.Context,
	cfg *config.Config,
	store *storage.Registry[model.Resource],
	arena *alloc.Arena,
	meter metrics.Meter,
) *ResourceController {
	c := &ResourceController{
		cfg:     cfg,
		ctx:     ctx,
		store:   store,
		arena:   arena,
		metrics: meter,
	}
	if c.cfg.IsDebugOn() {
		c.runLogDebugInfo(ctx)
	}
	return c
}

// Upsert places the request body under shared ownership and stores the
// handle in the registry. The registry keeps the only long-lived reference;
// readers clone it per request.
func (c *ResourceController) Upsert(r *fasthttp.RequestCtx) {
	f := time.Now()

	key, ok := r.UserValue("key").(string)
	if !ok || key == "" {
		c.respondNotFound(errors.New("resource key is missed"), r)
		return
	}

	// fasthttp reuses the request's path, header and body buffers for the
	// next request on the connection: everything stored past the handler
	// must be copied out first.
	key = strings.Clone(key)
	body := append([]byte(nil), r.PostBody()...)
	contentType := gstrconv.B2S(append([]byte(nil), r.Request.Header.ContentType()...))
	res := model.NewResource(key, body, contentType)

	h, err := handle.Adopt(res,
		handle.WithAllocator[model.Resource](c.arena),
		handle.WithWeight[model.Resource](res.Weight()),
		handle.WithDeleter[model.Resource](func(*model.Resource) { c.metrics.ValueDestroyed() }),
	)
	if err != nil {
		c.metrics.AllocFailed()
		c.respondInsufficientStorage(err, r)
		return
	}

	replaced := c.store.Set(key, h)
	c.rememberLast(h)
	useCount := h.UseCount() - 1 // the registry's reference survives ours
	h.Release()

	c.metrics.HandleCreated()
	if replaced {
		c.metrics.HandleReleased()
	}

	r.Response.SetStatusCode(fasthttp.StatusCreated)
	c.writeJson(map[string]any{
		"key":      key,
		"replaced": replaced,
		"useCount": useCount,
	}, r)

	c.reportDuration(f)
}

// Read clones the stored handle, serves the payload and releases the clone.
func (c *ResourceController) Read(r *fasthttp.RequestCtx) {
	f := time.Now()

	key, _ := r.UserValue("key").(string)

	h, found := c.store.Get(key)
	if !found {
		c.respondNotFound(errors.New("resource is not registered: "+key), r)
		return
	}
	c.metrics.HandleCloned()
	defer func() {
		h.Release()
		c.metrics.HandleReleased()
	}()

	res, err := h.Get()
	if err != nil {
		c.respondInternalError(err, r)
		return
	}

	r.Response.Header.SetContentType(res.ContentType())
	r.Response.Header.Add("Last-Modified", res.CreatedAt().Format(http.TimeFormat))
	r.Response.Header.Add("X-Use-Count", strconv.FormatInt(h.UseCount(), 10))
	if _, err = r.Write(res.Body()); err != nil {
		log.Err(err).Msg("[resource-controller] failed to write into *fasthttp.RequestCtx")
		return
	}

	c.reportDuration(f)
}

// rememberLast swaps the weak reference behind the last-resource endpoint,
// dropping the previous one.
func (c *ResourceController) rememberLast(h handle.Handle[model.Resource]) {
	w := h.Downgrade()
	c.lastMu.Lock()
	prev := c.last
	c.last = w
	c.lastMu.Unlock()
	prev.Release()
}

// ReadLast serves the most recently stored resource through a weak
// reference. Once the registry entry is replaced or deleted and the value
// dies, the upgrade fails and the endpoint answers 404 instead of keeping
// the resource alive.
func (c *ResourceController) ReadLast(r *fasthttp.RequestCtx) {
	f := time.Now()

	c.lastMu.Lock()
	w := c.last.Clone()
	c.lastMu.Unlock()

	h, ok := w.Upgrade()
	w.Release()
	c.metrics.WeakUpgrade(ok)
	if !ok {
		c.respondNotFound(errors.New("last stored resource is already gone"), r)
		return
	}
	c.metrics.HandleCloned()
	defer func() {
		h.Release()
		c.metrics.HandleReleased()
	}()

	res, err := h.Get()
	if err != nil {
		c.respondInternalError(err, r)
		return
	}

	r.Response.Header.SetContentType(res.ContentType())
	r.Response.Header.Add("Last-Modified", res.CreatedAt().Format(http.TimeFormat))
	r.Response.Header.Add("X-Use-Count", strconv.FormatInt(h.UseCount(), 10))
	if _, err = r.Write(res.Body()); err != nil {
		log.Err(err).Msg("[resource-controller] failed to write into *fasthttp.RequestCtx")
		return
	}

	c.reportDuration(f)
}

// Delete removes the entry, releasing the registry's reference. Whether the
// value dies here depends on readers still holding clones.
func (c *ResourceController) Delete(r *fasthttp.RequestCtx) {
	key, _ := r.UserValue("key").(string)

	if !c.store.Del(key) {
		c.respondNotFound(errors.New("resource is not registered: "+key), r)
		return
	}
	c.metrics.HandleReleased()

	c.writeJson(map[string]any{"key": key, "deleted": true}, r)
}

// Stat reports one entry's use count and weight.
func (c *ResourceController) Stat(r *fasthttp.RequestCtx) {
	key, _ := r.UserValue("key").(string)

	h, found := c.store.Get(key)
	if !found {
		c.respondNotFound(errors.New("resource is not registered: "+key), r)
		return
	}
	defer h.Release()

	res, err := h.Get()
	if err != nil {
		c.respondInternalError(err, r)
		return
	}

	c.writeJson(map[string]any{
		"key":      key,
		"useCount": h.UseCount() - 1, // minus the stat probe's own clone
		"weight":   res.Weight(),
	}, r)
}

// Stats reports registry-wide numbers.
func (c *ResourceController) Stats(r *fasthttp.RequestCtx) {
	used := c.arena.Used()
	c.writeJson(map[string]any{
		"entries":        c.store.Len(),
		"arenaUsedBytes": used,
		"arenaUsed":      utils.FmtMemory(used),
		"arenaLimit":     c.arena.Limit(),
	}, r)
}

func (c *ResourceController) writeJson(payload map[string]any, ctx *fasthttp.RequestCtx) {
	b, err := json.Marshal(payload)
	if err != nil {
		c.respondInternalError(err, ctx)
		return
	}
	if _, err = ctx.Write(b); err != nil {
		log.Err(err).Msg("[resource-controller] failed to write into *fasthttp.RequestCtx")
	}
}

func (c *ResourceController) respondNotFound(err error, ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusNotFound)
	if _, err = ctx.Write(c.resolveMessagePlaceholder(notFoundResponseBytes, err)); err != nil {
		log.Err(err).Msg("[resource-controller] failed to write into *fasthttp.RequestCtx")
	}
}

func (c *ResourceController) respondInsufficientStorage(err error, ctx *fasthttp.RequestCtx) {
	log.Err(err).Msg("[resource-controller] allocation was refused")

	ctx.SetStatusCode(fasthttp.StatusInsufficientStorage)
	if _, err = ctx.Write(c.resolveMessagePlaceholder(insufficientStorageResponseBytes, err)); err != nil {
		log.Err(err).Msg("[resource-controller] failed to write into *fasthttp.RequestCtx")
	}
}

func (c *ResourceController) respondInternalError(err error, ctx *fasthttp.RequestCtx) {
	log.Err(err).Msg("[resource-controller] error occurred while processing request")

	ctx.SetStatusCode(fasthttp.StatusInternalServerError)
	if _, err = ctx.Write(c.resolveMessagePlaceholder(internalErrorResponseBytes, err)); err != nil {
		log.Err(err).Msg("[resource-controller] failed to write into *fasthttp.RequestCtx")
	}
}

func (c *ResourceController) resolveMessagePlaceholder(msg []byte, err error) []byte {
	escaped, _ := json.Marshal(err.Error())
	return bytes.ReplaceAll(msg, messagePlaceholder, escaped[1:len(escaped)-1])
}

func (c *ResourceController) AddRoute(router *router.Router) {
	router.PUT(ResourcePath, c.Upsert)
	router.GET(ResourcePath, c.Read)
	router.DELETE(ResourcePath, c.Delete)
	router.GET(ResourceStatPath, c.Stat)
	router.GET(LastResourcePath, c.ReadLast)
	router.GET(StatsPath, c.Stats)
}

func (c *ResourceController) reportDuration(from time.Time) {
	if !c.cfg.IsDebugOn() {
		return
	}
	select {
	case durCh <- time.Since(from):
	default:
	}
}

type stat struct {
	label    string
	divider  int // in seconds
	tickerCh <-chan time.Time
	count    int
	total    time.Duration
}

func (c *ResourceController) runLogDebugInfo(ctx context.Context) {
	durCh = make(chan time.Duration, runtime.GOMAXPROCS(0))

	go func() {
		stats := []*stat{
			{label: "5s", divider: 5, tickerCh: utils.NewTicker(ctx, 5*time.Second)},
			{label: "1m", divider: 60, tickerCh: utils.NewTicker(ctx, time.Minute)},
			{label: "5m", divider: 300, tickerCh: utils.NewTicker(ctx, 5*time.Minute)},
			{label: "1h", divider: 3600, tickerCh: utils.NewTicker(ctx, time.Hour)},
		}

		for {
			select {
			case <-ctx.Done():
				return
			case dur := <-durCh:
				for _, s := range stats {
					s.count++
					s.total += dur
				}
			case <-stats[0].tickerCh:
				c.logAndReset(stats[0])
			case <-stats[1].tickerCh:
				c.logAndReset(stats[1])
			case <-stats[2].tickerCh:
				c.logAndReset(stats[2])
			case <-stats[3].tickerCh:
				c.logAndReset(stats[3])
			}
		}
	}()
}

func (c *ResourceController) logAndReset(s *stat) {
	var avg string
	if s.count > 0 {
		avg = (s.total / time.Duration(s.count)).String()
	} else {
		avg = zeroLiteral
	}
	log.Info().Msgf(
		"[stat] RPS: %d, total req: %d (%s), avg duration %s",
		s.count/s.divider, s.count, s.label, avg,
	)
	s.count = 0
	s.total = 0
}
