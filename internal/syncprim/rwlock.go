package syncprim

import "sync"

// RwLock is the runtime value behind `rwlock<T>` / `with_rwlock(v)`
// (spec.md §4.8): `rlocked` acquires the shared (reader) side,
// `wlocked` the exclusive (writer) side. Grounded directly on the
// teacher's `frame.mutex sync.RWMutex` — naml's RwLock is that same
// type promoted to a first-class wrapped value instead of an
// interpreter-internal implementation detail.
type RwLock struct {
	mu    sync.RWMutex
	value interface{}
}

func NewRwLock(initial interface{}) *RwLock {
	return &RwLock{value: initial}
}

func (r *RwLock) RLock()   { r.mu.RLock() }
func (r *RwLock) RUnlock() { r.mu.RUnlock() }
func (r *RwLock) WLock()   { r.mu.Lock() }
func (r *RwLock) WUnlock() { r.mu.Unlock() }

// Read returns the current value; callers must hold either lock side.
func (r *RwLock) Read() interface{} { return r.value }

// Write stores v; callers must hold the write (exclusive) side.
func (r *RwLock) Write(v interface{}) { r.value = v }
