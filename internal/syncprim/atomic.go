package syncprim

import "sync/atomic"

// Atomic is the runtime value behind `atomic<T>` / `with_atomic(v)`
// for T in {int, uint, bool} (spec.md §4.8): a lock-free cell with
// sequentially consistent operations. naml represents all three
// scalar kinds as a single int64 word (bool as 0/1), the same
// representation codegen's comparison ops already produce via
// SETcc+movzx, so no conversion happens at the syncprim boundary.
type Atomic struct {
	v atomic.Int64
}

func NewAtomic(initial int64) *Atomic {
	a := &Atomic{}
	a.v.Store(initial)
	return a
}

func (a *Atomic) Load() int64 { return a.v.Load() }

func (a *Atomic) Store(v int64) { a.v.Store(v) }

// CAS succeeds iff the current value equals exp, per spec.md §4.8.
func (a *Atomic) CAS(exp, new int64) bool { return a.v.CompareAndSwap(exp, new) }
