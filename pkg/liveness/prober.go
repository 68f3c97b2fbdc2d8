package liveness

import (
	"context"
	"sync/atomic"
	"time"
)

const watchInterval = time.Second

// Liver is anything able to report its own health.
type Liver interface {
	IsAlive(ctx context.Context) bool
}

// Prober aggregates health of watched components for the k8s probe
// endpoint.
type Prober interface {
	Watch(ctx context.Context, liver Liver)
	IsAlive() bool
}

// Probe marks the process not-alive only after a watched component keeps
// failing for longer than failedTimeout, so a single slow check does not
// flap the probe.
type Probe struct {
	alive         atomic.Bool
	interval      time.Duration
	failedTimeout time.Duration
}

func NewProbe(failedTimeout time.Duration) *Probe {
	if failedTimeout <= 0 {
		failedTimeout = 5 * time.Second
	}
	p := &Probe{interval: watchInterval, failedTimeout: failedTimeout}
	p.alive.Store(true)
	return p
}

// Watch polls the liver until ctx is cancelled. It does not block the
// calling goroutine.
func (p *Probe) Watch(ctx context.Context, liver Liver) {
	go func() {
		lastOK := time.Now()
		t := time.NewTicker(p.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}

			checkCtx, cancel := context.WithTimeout(ctx, p.failedTimeout)
			ok := liver.IsAlive(checkCtx)
			cancel()

			if ok {
				lastOK = time.Now()
				p.alive.Store(true)
				continue
			}
			if time.Since(lastOK) >= p.failedTimeout {
				p.alive.Store(false)
			}
		}
	}()
}

func (p *Probe) IsAlive() bool {
	return p.alive.Load()
}
