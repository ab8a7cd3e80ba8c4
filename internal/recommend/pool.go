// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package recommend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/shelfwise/internal/logging"
	"github.com/tomtom215/shelfwise/internal/metrics"
)

// job is one queued unit of CPU-bound work.
type job struct {
	ctx  context.Context
	task string
	run  func(context.Context)
}

// Pool runs CPU-bound work on a fixed set of workers fed by a bounded queue.
// Submissions never block: a full queue is rejected with ErrOverloaded so
// request latency stays bounded under load.
//
// Pool implements suture.Service. Jobs queued while the pool is not serving
// wait until the next Serve call.
type Pool struct {
	workers int
	jobs    chan job
	logger  zerolog.Logger
}

// NewPool creates a pool with the given worker count and queue capacity.
func NewPool(workers, queueDepth int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueDepth < 0 {
		queueDepth = 0
	}
	return &Pool{
		workers: workers,
		jobs:    make(chan job, queueDepth),
		logger:  logging.WithComponent("compute-pool"),
	}
}

// Serve implements suture.Service. It runs the workers until ctx is done.
func (p *Pool) Serve(ctx context.Context) error {
	p.logger.Info().Int("workers", p.workers).Int("queue_depth", cap(p.jobs)).Msg("Compute pool starting")

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx)
		}()
	}
	wg.Wait()

	p.logger.Info().Msg("Compute pool stopped")
	return ctx.Err()
}

// String implements fmt.Stringer for suture logging.
func (p *Pool) String() string {
	return "compute-pool"
}

func (p *Pool) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-p.jobs:
			metrics.ComputePoolQueueDepth.Set(float64(len(p.jobs)))
			p.execute(j)
		}
	}
}

func (p *Pool) execute(j job) {
	if j.ctx.Err() != nil {
		return
	}

	metrics.ComputePoolBusyWorkers.Inc()
	defer metrics.ComputePoolBusyWorkers.Dec()

	start := time.Now()
	defer func() {
		metrics.ComputeTaskDuration.WithLabelValues(j.task).Observe(time.Since(start).Seconds())
	}()
	j.run(j.ctx)
}

// Submit enqueues fn without blocking. It returns ErrOverloaded when the
// queue is full. fn is skipped if ctx is done before a worker picks it up.
func (p *Pool) Submit(ctx context.Context, task string, fn func(context.Context)) error {
	select {
	case p.jobs <- job{ctx: ctx, task: task, run: fn}:
		metrics.ComputePoolQueueDepth.Set(float64(len(p.jobs)))
		return nil
	default:
		metrics.ComputePoolRejected.Inc()
		logging.Ctx(ctx).Warn().Str("task", task).Int("queue_depth", cap(p.jobs)).
			Msg("Compute queue full, rejecting")
		return fmt.Errorf("%s: %w", task, ErrOverloaded)
	}
}

// Run submits fn to p and waits for its result or for ctx to be done.
// A nil pool runs fn on the calling goroutine.
func Run[T any](ctx context.Context, p *Pool, task string, fn func(context.Context) (T, error)) (T, error) {
	if p == nil {
		return fn(ctx)
	}

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)

	err := p.Submit(ctx, task, func(ctx context.Context) {
		v, err := fn(ctx)
		done <- outcome{val: v, err: err}
	})
	if err != nil {
		var zero T
		return zero, err
	}

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case o := <-done:
		return o.val, o.err
	}
}
