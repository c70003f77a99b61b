// Package syncprim implements naml's three wrapper-type concurrency
// primitives (spec.md §4.8): Mutex, RwLock, and Atomic, plus the
// bounded Channel. Each is the concrete Handle a heap.MutexPayload /
// heap.RwLockPayload / heap.AtomicPayload / heap.ChannelPayload
// carries, and each is grounded on the teacher's own use of
// `sync.RWMutex` guarding a `frame`'s mutable state
// (interp/interp.go's `frame.mutex sync.RWMutex` protecting
// concurrent access to `frame.data`) generalized from "protect one
// interpreter frame" to "protect one user-level wrapped value".
package syncprim

import "sync"

// Mutex is the runtime value behind `mutex<T>` / `with_mutex(v)`
// (spec.md §4.8): single-owner lock around one boxed value. The
// `locked (v in m) { ... }` construct lowers to Lock, Read (snapshot
// into the local binding), the body, Write (snapshot back), Unlock —
// exactly the OpMutexLock/OpMutexRead/.../OpMutexWrite/OpMutexUnlock
// sequence internal/ir's lowerer emits.
type Mutex struct {
	mu    sync.Mutex
	value interface{}
}

// NewMutex wraps initial as a fresh, unlocked Mutex.
func NewMutex(initial interface{}) *Mutex {
	return &Mutex{value: initial}
}

func (m *Mutex) Lock()   { m.mu.Lock() }
func (m *Mutex) Unlock() { m.mu.Unlock() }

// Read returns the value currently held; callers must hold the lock
// (naml's lowering always reads immediately after Lock, never bare).
func (m *Mutex) Read() interface{} { return m.value }

// Write stores v as the protected value; callers must hold the lock.
func (m *Mutex) Write(v interface{}) { m.value = v }
