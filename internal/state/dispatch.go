package state

import (
	"context"
	"log/slog"
	"sync"
)

// Dispatcher runs fire-and-forget work. Dispatched work outlives the
// caller's context cancellation, is never retried and has no ordering.
type Dispatcher struct {
	wg sync.WaitGroup
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Go runs fn in the background. A returned error is logged under name.
func (d *Dispatcher) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	d.wg.Go(func() {
		if err := fn(ctx); err != nil {
			slog.Warn("background work failed", "work", name, "error", err)
		}
	})
}

// Wait blocks until all dispatched work, including work dispatched by that
// work, has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
