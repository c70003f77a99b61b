package sched

import "sync"

// deque is a worker's local task queue: push/pop at the bottom (LIFO,
// the owning worker's own traffic) and pop at the top (FIFO-ish,
// stealers). A mutex-guarded slice stands in for a lock-free
// Chase-Lev deque here — the same "get the shape right, skip the
// lock-free plumbing" tradeoff codegen's frame allocator makes,
// chosen because a design that can't be exercised by running it is
// not the place to debug lock-free memory ordering.
type deque struct {
	mu    sync.Mutex
	tasks []*Task
}

func newDeque() *deque { return &deque{} }

// pushBottom adds t to the owning worker's own end.
func (d *deque) pushBottom(t *Task) {
	d.mu.Lock()
	d.tasks = append(d.tasks, t)
	d.mu.Unlock()
}

// popBottom removes and returns the most recently pushed task, or nil
// if empty — the owning worker's normal (LIFO) drain order.
func (d *deque) popBottom() *Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.tasks)
	if n == 0 {
		return nil
	}
	t := d.tasks[n-1]
	d.tasks = d.tasks[:n-1]
	return t
}

// popTop removes and returns the oldest task, or nil if empty — the
// end a thief steals from, so a thief and the owner rarely contend
// for the same element.
func (d *deque) popTop() *Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.tasks) == 0 {
		return nil
	}
	t := d.tasks[0]
	d.tasks = d.tasks[1:]
	return t
}

func (d *deque) empty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tasks) == 0
}
