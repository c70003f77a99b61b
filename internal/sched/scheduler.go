package sched

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Scheduler owns a fixed worker pool and the shared global FIFO
// queue every worker drains before stealing (spec.md §4.7: "a fixed
// pool of N worker OS threads (default: logical CPU count)").
type Scheduler struct {
	workers []*Worker
	global  *globalQueue

	group  *errgroup.Group
	cancel context.CancelFunc
}

// New starts n workers (n <= 0 means runtime.NumCPU()) and returns
// once every worker's run loop has been launched via
// golang.org/x/sync/errgroup, which also collects the first worker
// error (surfaced through Shutdown). A panic in a worker is not
// recovered by errgroup.
func New(n int) *Scheduler {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)

	s := &Scheduler{global: newGlobalQueue(), group: group, cancel: cancel}
	s.workers = make([]*Worker, n)
	for i := 0; i < n; i++ {
		w := &Worker{id: i, sched: s, local: newDeque()}
		s.workers[i] = w
		group.Go(func() error {
			w.run(gctx)
			return nil
		})
	}
	return s
}

// Spawn registers fn on barrier and pushes it to the global queue —
// the entry point for code running outside any worker (the compiler
// driver kicking off `main`'s top-level spawns). Code already running
// on a worker should prefer Worker.Spawn, which uses that worker's own
// deque instead of contending on the shared queue.
func (s *Scheduler) Spawn(fn func(*Worker), barrier *Barrier) *Task {
	barrier.add(1)
	t := newTask(fn, barrier)
	s.global.push(t)
	return t
}

// Join blocks the calling goroutine until barrier's task count drains
// to zero (spec.md §4.7's `join()`).
func (s *Scheduler) Join(barrier *Barrier) { barrier.Join() }

// Shutdown cancels every worker's run loop and waits for them to
// exit, returning the first worker error (workers never return a
// non-nil error today; the plumbing exists because errgroup is the
// idiomatic way to supervise a fixed goroutine pool and surface a
// panic-free worker's Go API, grounded on the teacher's own
// `Interpreter.stop()`/`done chan struct{}` shutdown signal).
func (s *Scheduler) Shutdown() error {
	s.cancel()
	s.global.close()
	return s.group.Wait()
}

// NumWorkers reports the pool size, mainly for tests and diagnostics.
func (s *Scheduler) NumWorkers() int { return len(s.workers) }
