package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// Gracefuller is the part of the coordinator handed to components: they
// register themselves with Add and report completion with Done.
type Gracefuller interface {
	Add(delta int)
	Done()
}

// Graceful cancels the root context on SIGINT/SIGTERM (or external cancel)
// and then waits for every registered component, up to the configured
// timeout.
type Graceful struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	timeout time.Duration
}

func NewGraceful(ctx context.Context, cancel context.CancelFunc) *Graceful {
	return &Graceful{ctx: ctx, cancel: cancel, timeout: 10 * time.Second}
}

func (g *Graceful) SetGracefulTimeout(timeout time.Duration) {
	g.timeout = timeout
}

func (g *Graceful) Add(delta int) {
	g.wg.Add(delta)
}

func (g *Graceful) Done() {
	g.wg.Done()
}

// ListenCancelAndAwait blocks until a termination signal arrives or the
// context is cancelled elsewhere, then awaits registered components.
func (g *Graceful) ListenCancelAndAwait() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Info().Msgf("[shutdown] caught %v signal", sig)
	case <-g.ctx.Done():
		log.Info().Msg("[shutdown] context was cancelled")
	}

	g.cancel()

	doneCh := make(chan struct{})
	go func() {
		defer close(doneCh)
		g.wg.Wait()
	}()

	select {
	case <-doneCh:
		return nil
	case <-time.After(g.timeout):
		return errors.New("[shutdown] graceful timeout exceeded, components are still running")
	}
}
