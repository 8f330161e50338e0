// ABOUTME: Bounded pool that runs blocking jobs off the request goroutine.
// ABOUTME: Callers wait for the result or their context, whichever comes first.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harperreed/rocketry/internal/metrics"
	"golang.org/x/sync/semaphore"
)

// Pool limits how many blocking jobs run at once.
type Pool struct {
	sem  *semaphore.Weighted
	size int64
	wg   sync.WaitGroup
}

// NewPool creates a pool that runs at most size jobs concurrently.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: int64(size)}
}

// Size returns the concurrency limit.
func (p *Pool) Size() int {
	return int(p.size)
}

type result[T any] struct {
	val T
	err error
}

// Do runs fn on a pool goroutine and waits for it.
//
// If ctx ends first, Do returns ctx.Err() immediately. A job that has already
// started keeps running to completion and its result is discarded. Work the
// job committed before that point stays committed.
func Do[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	start := time.Now()
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, fmt.Errorf("wait for worker: %w", err)
	}
	metrics.WorkerWaitDuration.Observe(time.Since(start).Seconds())

	// The job must outlive an abandoned caller, so it gets a context that is
	// not cancelled with ctx but still carries its values.
	jobCtx := context.WithoutCancel(ctx)

	done := make(chan result[T], 1)
	p.wg.Add(1)
	metrics.TrackWorker(true)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer metrics.TrackWorker(false)

		val, err := runSafely(jobCtx, fn)
		done <- result[T]{val: val, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Wait blocks until every started job has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func runSafely[T any](ctx context.Context, fn func(context.Context) (T, error)) (val T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker job panicked: %v", r)
		}
	}()
	return fn(ctx)
}
