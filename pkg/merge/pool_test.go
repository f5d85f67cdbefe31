package merge

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestPoolRunsEveryJob(t *testing.T) {
	pool := NewPool(context.Background(), 3)
	pool.Start()

	var count atomic.Int64
	for i := 0; i < 50; i++ {
		if !pool.Submit(JobFunc(func(context.Context) { count.Add(1) })) {
			t.Fatal("Submit refused a job on a live pool")
		}
	}
	pool.Wait()

	if got := count.Load(); got != 50 {
		t.Errorf("ran %d jobs, want 50", got)
	}
}

func TestPoolStopsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1)
	pool.Start()

	var count atomic.Int64
	pool.Submit(JobFunc(func(context.Context) {
		count.Add(1)
		cancel()
	}))
	// the single worker is busy or gone; once ctx is done Submit must refuse
	for pool.Submit(JobFunc(func(context.Context) { count.Add(1) })) {
		if count.Load() > 2 {
			break
		}
	}
	pool.Wait()

	if ctx.Err() == nil {
		t.Fatal("context not cancelled")
	}
	if pool.Submit(JobFunc(func(context.Context) {})) {
		t.Error("Submit accepted a job after Wait")
	}
}

func TestPoolDefaultsToOneWorker(t *testing.T) {
	pool := NewPool(context.Background(), 0)
	if pool.workers != 1 {
		t.Errorf("workers = %d, want 1", pool.workers)
	}
	pool.Start()
	pool.Wait()
}
