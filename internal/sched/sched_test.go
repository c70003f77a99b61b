package sched

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSpawnJoinRunsEveryTask(t *testing.T) {
	s := New(4)
	defer s.Shutdown()

	var count int64
	b := NewBarrier()
	for i := 0; i < 100; i++ {
		s.Spawn(func(w *Worker) {
			atomic.AddInt64(&count, 1)
		}, b)
	}
	s.Join(b)

	require.EqualValues(t, 100, atomic.LoadInt64(&count))
}

func TestJoinOnEmptyBarrierReturnsImmediately(t *testing.T) {
	s := New(2)
	defer s.Shutdown()

	done := make(chan struct{})
	go func() {
		s.Join(NewBarrier())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Join on a barrier with nothing spawned should not block")
	}
}

func TestNestedSpawnFromWorker(t *testing.T) {
	s := New(4)
	defer s.Shutdown()

	var count int64
	outer := NewBarrier()
	s.Spawn(func(w *Worker) {
		inner := NewBarrier()
		for i := 0; i < 10; i++ {
			w.Spawn(func(w *Worker) {
				atomic.AddInt64(&count, 1)
			}, inner)
		}
		inner.Join()
	}, outer)
	s.Join(outer)

	require.EqualValues(t, 10, atomic.LoadInt64(&count))
}

func TestStealingDrainsAnOverloadedWorker(t *testing.T) {
	s := New(4)
	defer s.Shutdown()

	var count int64
	b := NewBarrier()
	// Push every task through Spawn (the global queue) so no single
	// worker's own deque is the only place work can come from; the
	// point of this test is that all work still completes under
	// contention, not that it is literally stolen.
	for i := 0; i < 500; i++ {
		s.Spawn(func(w *Worker) {
			atomic.AddInt64(&count, 1)
		}, b)
	}
	s.Join(b)

	require.EqualValues(t, 500, atomic.LoadInt64(&count))
}

func TestShutdownStopsWorkers(t *testing.T) {
	s := New(2)
	require.NoError(t, s.Shutdown())
}
