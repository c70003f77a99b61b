// Package sched implements naml's M:N work-stealing scheduler
// (spec.md §4.7): a fixed pool of OS-thread-backed workers, each with
// a local deque, draining a shared global FIFO queue and stealing from
// peers once both are empty. Grounded on the teacher's cancellation
// plumbing (interp/interp.go's `frame.id`/`runid`/`done
// reflect.SelectCase`, `Interpreter.done chan struct{}`/`stop()`)
// generalized from "cancel one interpreter run" into "shut down a
// worker pool" — naml's own task model otherwise has no cancellation
// (spec.md §4.7: "a task runs until its body returns or it throws").
package sched

import "github.com/google/uuid"

// Task is one unit of scheduled work: a closure plus the barrier it
// decrements on completion (spec.md §4.7's "a task is a closure value
// plus a parent-barrier reference").
type Task struct {
	ID      uuid.UUID
	Fn      func(*Worker)
	Barrier *Barrier
}

func newTask(fn func(*Worker), b *Barrier) *Task {
	return &Task{ID: uuid.New(), Fn: fn, Barrier: b}
}

// run executes t on w. Barrier.done is deferred so a panic unwinding
// through Fn (an unhandled naml exception reaches this layer as a Go
// panic) still counts the task done before propagating up w's
// goroutine and crashing the process, matching spec.md §4.7's
// "unhandled exception terminates the program".
func (t *Task) run(w *Worker) {
	defer t.Barrier.done()
	t.Fn(w)
}
