// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package dispatch implements the work dispatcher the scheduler's phases
// 4-6 use for pool-chain and per-node fan-out: Run/Wait for ad-hoc
// submission, ParallelFor for bounded fixed-count fan-out, and
// WithScopedParallelism so no work forked during one schedule phase
// leaks into the next.
package dispatch

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// Dispatcher bounds concurrent work to a fixed worker count and exposes
// the collaborator surface spec.md's §6 "Work dispatcher" names.
type Dispatcher struct {
	workers  int
	queueCap int

	mu sync.Mutex
	eg *errgroup.Group
}

func newDispatcher(workers, queueCap int) *Dispatcher {
	if queueCap < 1 {
		queueCap = workers
	}
	return &Dispatcher{workers: workers, queueCap: queueCap}
}

func (d *Dispatcher) group() *errgroup.Group {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.eg == nil {
		eg := &errgroup.Group{}
		eg.SetLimit(d.workers)
		d.eg = eg
	}
	return d.eg
}

// Run submits fn for asynchronous execution, blocking only if every
// worker slot is already occupied.
func (d *Dispatcher) Run(fn func() error) {
	d.group().Go(fn)
}

// Wait blocks until every fn submitted to Run since the last Wait has
// returned, and reports the first non-nil error among them.
func (d *Dispatcher) Wait() error {
	d.mu.Lock()
	eg := d.eg
	d.eg = nil
	d.mu.Unlock()
	if eg == nil {
		return nil
	}
	return eg.Wait()
}

// ParallelFor runs fn(i) for each i in [0,n), bounded to the
// dispatcher's worker count, and returns the first non-nil error. The
// fixed task count is known upfront, so the batch is queued through
// taskQueue rather than errgroup's per-call goroutine spawn — the same
// SCQ algorithm the teacher uses for its bounded MPMC queue, adapted to
// carry invocation closures instead of a generic payload.
func (d *Dispatcher) ParallelFor(n int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}

	q := newTaskQueue(n)
	for i := 0; i < n; i++ {
		i := i
		q.enqueue(invocation{index: i, fn: func() error { return fn(i) }})
	}
	q.drain()

	workers := d.workers
	if workers > n {
		workers = n
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				inv, ok := q.dequeue()
				if !ok {
					return
				}
				if err := inv.fn(); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	return firstErr
}

// Scope collects work submitted during one WithScopedParallelism call.
type Scope struct {
	d *Dispatcher

	mu    sync.Mutex
	tasks []func() error
}

// Run defers fn to run as part of the enclosing scope's fan-out.
func (s *Scope) Run(fn func() error) {
	s.mu.Lock()
	s.tasks = append(s.tasks, fn)
	s.mu.Unlock()
}

// ParallelFor runs fn(i) immediately, bounded by the dispatcher's
// worker count, without waiting for the rest of the scope.
func (s *Scope) ParallelFor(n int, fn func(i int) error) error {
	return s.d.ParallelFor(n, fn)
}

// WithScopedParallelism runs fn with a Scope, then waits for every task
// the scope collected before returning — so work forked during one
// schedule phase never runs concurrently with the next (spec §5
// "scoped parallelism: no work leaks across phases").
func (d *Dispatcher) WithScopedParallelism(fn func(*Scope) error) error {
	s := &Scope{d: d, tasks: make([]func() error, 0, d.queueCap)}
	err := fn(s)

	s.mu.Lock()
	tasks := s.tasks
	s.mu.Unlock()

	if len(tasks) > 0 {
		perr := d.ParallelFor(len(tasks), func(i int) error { return tasks[i]() })
		if err == nil {
			err = perr
		}
	}
	return err
}
