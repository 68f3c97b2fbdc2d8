package registry

import (
	"context"

	"github.com/Borislavv/shared-handle/internal/registry/config"
	"github.com/Borislavv/shared-handle/internal/registry/server"
	"github.com/Borislavv/shared-handle/pkg/alloc"
	"github.com/Borislavv/shared-handle/pkg/liveness"
	"github.com/Borislavv/shared-handle/pkg/model"
	storage "github.com/Borislavv/shared-handle/pkg/registry"
	"github.com/Borislavv/shared-handle/pkg/shutdown"
	"github.com/rs/zerolog/log"
)

// App defines the registry application lifecycle interface.
type App interface {
	Start(gc shutdown.Gracefuller)
}

// Registry encapsulates the whole application state: handle storage, the
// arena backing managed values, config, probe and the HTTP server.
type Registry struct {
	cfg    *config.Config
	ctx    context.Context
	cancel context.CancelFunc
	probe  liveness.Prober
	server server.Http
}

// NewApp builds the registry app, wiring arena, handle storage and server.
func NewApp(ctx context.Context, cfg *config.Config, probe liveness.Prober) (*Registry, error) {
	ctx, cancel := context.WithCancel(ctx)

	arena := alloc.NewArena(cfg.MemoryLimit)
	store := storage.New[model.Resource](cfg.InitRegistryLengthPerShard)

	srv, err := server.New(ctx, cfg, store, arena, probe)
	if err != nil {
		cancel()
		return nil, err
	}

	return &Registry{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		probe:  probe,
		server: srv,
	}, nil
}

// Start runs the server and liveness probe, and handles graceful shutdown.
// The Gracefuller is expected to be Done() when shutdown is complete.
func (r *Registry) Start(gc shutdown.Gracefuller) {
	defer func() {
		r.stop()
		gc.Done()
	}()

	log.Info().Msg("starting registry app")

	waitCh := make(chan struct{})

	go func() {
		defer close(waitCh)
		r.probe.Watch(r.ctx, r) // does not block the green-thread
		r.server.Start() // blocks the green-thread
	}()

	log.Info().Msg("registry app has been started")

	<-waitCh // wait until the server exits
}

func (r *Registry) stop() {
	log.Info().Msg("stopping registry app")
	r.cancel()
	log.Info().Msg("registry app has been stopped")
}

// IsAlive is called by liveness probes to check app health.
func (r *Registry) IsAlive(_ context.Context) bool {
	if !r.server.IsAlive() {
		log.Info().Msg("http server has gone away")
		return false
	}
	return true
}
