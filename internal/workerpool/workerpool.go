// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

// Package workerpool provides a persistent worker pool for the row-parallel
// loops of the multigrid solver. Workers are spawned once and reused by every
// smoother pass and residual evaluation of a solve, so a cycle that visits a
// level dozens of times does not pay goroutine start-up per pass.
//
// Derived from the go-highway hwy/contrib/workerpool package. Unlike the
// upstream pool, every ParallelFor call names its own degree of parallelism.
// Callers pick a low degree for tiny grids where the fork-join overhead would
// dominate the work.
//
//	pool := workerpool.New(runtime.GOMAXPROCS(0))
//	defer pool.Close()
//
//	pool.ParallelFor(pool.NumWorkers(), rows, func(start, end int) {
//	    relaxRows(start, end)
//	})
package workerpool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a persistent worker pool. The zero value is not usable; use New.
type Pool struct {
	numWorkers int
	workC      chan workItem
	closeOnce  sync.Once
	closed     atomic.Bool
}

type workItem struct {
	fn      func()
	barrier *sync.WaitGroup
}

// New creates a pool with numWorkers persistent workers.
// If numWorkers <= 0, GOMAXPROCS is used.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		numWorkers: numWorkers,
		workC:      make(chan workItem, numWorkers*2),
	}

	for range numWorkers {
		go p.worker()
	}

	return p
}

func (p *Pool) worker() {
	for item := range p.workC {
		item.fn()
		item.barrier.Done()
	}
}

// NumWorkers returns the number of workers in the pool.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Close shuts down the pool. Pending work completes. Calling Close more than
// once is safe; a closed pool runs ParallelFor inline.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.workC)
	})
}

// ParallelFor splits [0, n) into at most workers contiguous chunks and runs
// fn(start, end) for each of them on the pool. It blocks until every chunk
// has returned, so consecutive calls form separate synchronized phases.
//
// workers is capped at the pool size and at n. A degree of 1 (or less) runs
// fn(0, n) on the calling goroutine.
func (p *Pool) ParallelFor(workers, n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}

	workers = min(workers, p.numWorkers, n)
	if workers <= 1 || p.closed.Load() {
		fn(0, n)
		return
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := range workers {
		start := i * chunkSize
		end := min(start+chunkSize, n)
		if start >= n {
			wg.Done()
			continue
		}

		p.workC <- workItem{
			fn: func() {
				fn(start, end)
			},
			barrier: &wg,
		}
	}

	wg.Wait()
}
