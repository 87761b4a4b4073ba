// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0
//
// Derived from hwy/contrib/workerpool/workerpool.go in
// github.com/ajroetker/go-highway. The loop helpers here also return the
// number of workers they used.

// Package workerpool runs index-space loops on a fixed set of persistent
// goroutines.
package workerpool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool keeps numWorkers goroutines alive between ParallelFor calls so a
// benchmark does not pay goroutine start-up on every run.
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

// New starts a pool. numWorkers <= 0 means runtime.GOMAXPROCS(0).
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

func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Close stops the workers. Later calls run inline on the caller.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.workC)
	})
}

// run hands fn to n workers and waits for all of them.
func (p *Pool) run(n int, fn func(worker int)) {
	var wg sync.WaitGroup
	wg.Add(n)
	for w := range n {
		p.workC <- workItem{fn: func() { fn(w) }, barrier: &wg}
	}
	wg.Wait()
}

// ParallelFor splits [0, n) into one contiguous chunk per worker. It returns
// the number of workers that received a chunk.
func (p *Pool) ParallelFor(n int, fn func(start, end int)) int {
	if n <= 0 {
		return 0
	}
	workers := min(p.numWorkers, n)
	if workers == 1 || p.closed.Load() {
		fn(0, n)
		return 1
	}

	chunkSize := (n + workers - 1) / workers
	// Ceiling division may leave trailing workers without work.
	workers = (n + chunkSize - 1) / chunkSize
	p.run(workers, func(w int) {
		start := w * chunkSize
		fn(start, min(start+chunkSize, n))
	})
	return workers
}

// ParallelForAtomicBatched hands out [start, end) batches of batchSize
// through a shared atomic counter, so faster workers claim more batches.
// It returns the number of workers that took part.
func (p *Pool) ParallelForAtomicBatched(n, batchSize int, fn func(start, end int)) int {
	if n <= 0 {
		return 0
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	numBatches := (n + batchSize - 1) / batchSize
	workers := min(p.numWorkers, numBatches)
	if workers == 1 || p.closed.Load() {
		fn(0, n)
		return 1
	}

	var nextBatch atomic.Int64
	p.run(workers, func(int) {
		for {
			start := int(nextBatch.Add(1)-1) * batchSize
			if start >= n {
				return
			}
			fn(start, min(start+batchSize, n))
		}
	})
	return workers
}

// Go runs fn once on each of n workers (n capped at the pool size) and waits.
// Workers coordinate through whatever fn closes over.
func (p *Pool) Go(n int, fn func(worker int)) int {
	if n <= 0 {
		return 0
	}
	n = min(n, p.numWorkers)
	if p.closed.Load() {
		for w := range n {
			fn(w)
		}
		return n
	}
	p.run(n, fn)
	return n
}
