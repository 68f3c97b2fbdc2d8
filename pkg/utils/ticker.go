package utils

import (
	"context"
	"time"
)

// NewTicker returns a tick channel bound to ctx: it stops ticking and is
// garbage collected once ctx is done. Ticks are dropped, not buffered,
// when the consumer lags.
func NewTicker(ctx context.Context, interval time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case tm := <-t.C:
				select {
				case ch <- tm:
				default:
				}
			}
		}
	}()
	return ch
}
