package sched

import (
	"sync"
	"sync/atomic"
)

// Barrier is a spawn-group's outstanding-task counter: `join()` blocks
// until it reaches zero (spec.md §4.7). One Barrier is shared by every
// task spawned from the same lexical `spawn` scope.
type Barrier struct {
	outstanding int64
	once        sync.Once
	closed      chan struct{}
}

// NewBarrier returns a Barrier with no outstanding tasks yet; callers
// add() before each spawn so a task that finishes before a sibling is
// even pushed never closes the barrier early.
func NewBarrier() *Barrier {
	return &Barrier{closed: make(chan struct{})}
}

func (b *Barrier) add(n int64) {
	atomic.AddInt64(&b.outstanding, n)
}

func (b *Barrier) done() {
	if atomic.AddInt64(&b.outstanding, -1) == 0 {
		b.once.Do(func() { close(b.closed) })
	}
}

// Join blocks the calling goroutine until every task registered on b
// has completed. Per spec.md §5 ("mutex and channel operations block
// the underlying OS thread"), Join blocks its OS thread rather than
// stealing work while it waits — a worker that calls Join on its own
// spawn-group simply stops servicing its deque until the group drains.
func (b *Barrier) Join() {
	if atomic.LoadInt64(&b.outstanding) <= 0 {
		return // nothing was ever spawned on this barrier
	}
	<-b.closed
}
