/************************************************************************************
 *
 * oxicord, a terminal client for Discord
 *
 * SPDX-License-Identifier: BSD-3-Clause
 *
 * Copyright 2026 oxicord contributors
 *
 * Licensed under the BSD 3-Clause License.
 * See the LICENSE file for details.
 *
 ************************************************************************************/

package imagecache

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Task is a unit of work submitted to a workerPool.
type Task func(ctx context.Context)

// workerPool bounds the number of concurrent image downloads. Unlike
// the teacher's elastic WorkerPool (workerpool.go, min/max workers
// that grow with queue pressure), image downloads have a fixed
// concurrency budget per spec §4.9 ("semaphore of permits, default
// 4") — there is no queue-depth signal worth growing against, so a
// weighted semaphore is the right-sized primitive instead of
// reimplementing dynamic worker spawn.
type workerPool struct {
	sem *semaphore.Weighted

	shutdownOnce atomic.Bool
}

// newWorkerPool builds a pool allowing up to permits concurrent tasks.
func newWorkerPool(permits int64) *workerPool {
	if permits <= 0 {
		permits = DefaultMaxConcurrentDownloads
	}
	return &workerPool{sem: semaphore.NewWeighted(permits)}
}

// Submit blocks until a permit is available (or ctx is done / the pool
// is shut down) then runs task in its own goroutine, returning once
// the permit has been acquired — not once task has finished.
func (p *workerPool) Submit(ctx context.Context, task Task) error {
	if p.shutdownOnce.Load() {
		return errPoolShutdown
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	go func() {
		defer p.sem.Release(1)
		task(ctx)
	}()
	return nil
}

// Shutdown marks the pool closed; in-flight tasks still run to
// completion, but Submit starts refusing new work immediately.
func (p *workerPool) Shutdown() {
	p.shutdownOnce.Store(true)
}
