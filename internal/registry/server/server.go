package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/Borislavv/shared-handle/internal/registry/api"
	"github.com/Borislavv/shared-handle/internal/registry/config"
	"github.com/Borislavv/shared-handle/pkg/alloc"
	"github.com/Borislavv/shared-handle/pkg/liveness"
	"github.com/Borislavv/shared-handle/pkg/model"
	"github.com/Borislavv/shared-handle/pkg/prometheus/metrics"
	metricscontroller "github.com/Borislavv/shared-handle/pkg/prometheus/metrics/controller"
	metricsmiddleware "github.com/Borislavv/shared-handle/pkg/prometheus/metrics/middleware"
	"github.com/Borislavv/shared-handle/pkg/rate"
	storage "github.com/Borislavv/shared-handle/pkg/registry"
	httpserver "github.com/Borislavv/shared-handle/pkg/server"
	"github.com/Borislavv/shared-handle/pkg/server/controller"
	"github.com/Borislavv/shared-handle/pkg/server/middleware"
	"github.com/rs/zerolog/log"
)

// Error messages used for server and metrics initialization.
var (
	InitFailedErrorMessage        = "[server] init. failed"
	MetricsInitFailedErrorMessage = "[server] init. prometheus metrics failed"
)

// Http interface exposes methods for starting and liveness probing.
type Http interface {
	Start()
	IsAlive() bool
}

// HttpServer wraps all dependencies required for running the HTTP server.
type HttpServer struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg           *config.Config
	metrics       *metrics.Metrics
	server        *httpserver.HTTP
	isServerAlive *atomic.Bool
	store         *storage.Registry[model.Resource]
	arena         *alloc.Arena
}

// New creates a new HttpServer, initializing metrics and the server itself.
func New(
	ctx context.Context,
	cfg *config.Config,
	store *storage.Registry[model.Resource],
	arena *alloc.Arena,
	probe liveness.Prober,
) (*HttpServer, error) {
	var err error

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		if err != nil {
			cancel()
		}
	}()

	srv := &HttpServer{
		ctx:           ctx,
		cancel:        cancel,
		cfg:           cfg,
		store:         store,
		arena:         arena,
		isServerAlive: &atomic.Bool{},
	}

	if err = srv.initMetrics(); err != nil {
		log.Err(err).Msg(MetricsInitFailedErrorMessage)
		return nil, errors.New(MetricsInitFailedErrorMessage)
	}

	if err = srv.initServer(probe); err != nil {
		log.Err(err).Msg(InitFailedErrorMessage)
		return nil, errors.New(InitFailedErrorMessage)
	}

	return srv, nil
}

// Start runs the HTTP server in a goroutine and waits for it to finish.
func (s *HttpServer) Start() {
	defer s.stop()

	waitCh := make(chan struct{})

	go func() {
		defer close(waitCh)
		wg := &sync.WaitGroup{}
		defer wg.Wait()
		s.spawnServer(wg)
	}()

	<-waitCh
}

func (s *HttpServer) stop() {
	s.cancel()
}

// IsAlive returns true if the server is marked as alive.
func (s *HttpServer) IsAlive() bool {
	return s.isServerAlive.Load()
}

func (s *HttpServer) spawnServer(wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer func() {
			s.isServerAlive.Store(false)
			wg.Done()
		}()
		s.isServerAlive.Store(true)
		s.server.ListenAndServe()
	}()
}

// initMetrics initializes the prometheus meter and the gauges exposing
// arena usage and registry length.
func (s *HttpServer) initMetrics() error {
	m, err := metrics.New()
	if err != nil {
		return err
	}
	if err = metrics.RegisterArenaGauge(s.arena.Used); err != nil {
		return err
	}
	if err = metrics.RegisterRegistryGauge(s.store.Len); err != nil {
		return err
	}
	s.metrics = m
	return nil
}

// initServer composes the fasthttp server with controllers and middlewares.
func (s *HttpServer) initServer(probe liveness.Prober) error {
	server, err := httpserver.New(s.ctx, s.cfg, s.controllers(probe), s.middlewares())
	if err != nil {
		log.Err(err).Msg(InitFailedErrorMessage)
		return errors.New(InitFailedErrorMessage)
	}
	s.server = server
	return nil
}

// controllers returns all HTTP controllers for the server.
func (s *HttpServer) controllers(probe liveness.Prober) []controller.HttpController {
	controllers := []controller.HttpController{
		api.NewLivenessController(probe),
		api.NewResourceController(s.ctx, s.cfg, s.store, s.arena, s.metrics),
	}
	if s.cfg.IsPrometheusMetricsEnabled() {
		controllers = append(controllers, metricscontroller.NewPrometheusMetrics(s.ctx))
	}
	return controllers
}

// middlewares returns the request middlewares, executed in slice order.
func (s *HttpServer) middlewares() []middleware.HttpMiddleware {
	limiter := rate.NewLimiter(s.ctx, s.cfg.RateLimitPerSecond, s.cfg.RateLimitPerSecond)
	return []middleware.HttpMiddleware{
		/** exec 1st. */ middleware.NewApplicationJsonMiddleware(),
		/** exec 2nd. */ middleware.NewWatermarkMiddleware(s.ctx, s.cfg),
		/** exec 3rd. */ middleware.NewDuration(s.ctx, s.cfg),
		/** exec 4th. */ middleware.NewRateLimitMiddleware(s.ctx, limiter),
		/** exec 5th. */ metricsmiddleware.NewPrometheusMetrics(s.ctx, s.metrics),
	}
}
