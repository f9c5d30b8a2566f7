package state_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/msomdec/taskmate/internal/state"
)

func TestDispatcher_IgnoresCallerCancellation(t *testing.T) {
	d := state.NewDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ctxErr atomic.Value
	d.Go(ctx, "check", func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			ctxErr.Store(err)
		}
		return nil
	})
	d.Wait()

	if err := ctxErr.Load(); err != nil {
		t.Fatalf("dispatched work saw cancelled context: %v", err)
	}
}

func TestDispatcher_WaitCoversNestedWork(t *testing.T) {
	d := state.NewDispatcher()
	var ran atomic.Int32

	d.Go(context.Background(), "outer", func(ctx context.Context) error {
		d.Go(ctx, "inner", func(context.Context) error {
			ran.Add(1)
			return nil
		})
		ran.Add(1)
		return nil
	})
	d.Wait()

	if got := ran.Load(); got != 2 {
		t.Fatalf("expected 2 runs, got %d", got)
	}
}
