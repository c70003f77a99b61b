package heap

import "sync"

// Arena is a per-goroutine (per naml worker thread) bump allocator used
// for escape-analyzed allocations proven not to outlive their owning
// stack frame (spec.md §4.6). It holds strong references to every
// object allocated from it and releases them all at once when the
// frame that owns the arena returns, instead of individually retain/
// release-counting each one.
type Arena struct {
	mu      sync.Mutex
	objects []*Object
	cap     int
}

// NewArena returns an arena with room for capacity objects before
// allocations spill to the general allocator (alloc's "arena_mode"
// fallback rule in spec.md §4.6).
func NewArena(capacity int) *Arena {
	return &Arena{cap: capacity}
}

// Alloc returns a fresh object from a, or allocates via New if a is at
// capacity — the "call the general allocator" fallback.
func (a *Arena) Alloc(kind Kind, payload interface{}) *Object {
	a.mu.Lock()
	defer a.mu.Unlock()
	obj := New(kind, payload)
	if len(a.objects) < a.cap {
		obj.Flags |= flagArena
		a.objects = append(a.objects, obj)
	}
	return obj
}

// Release drops every object the arena owns in one pass, run when the
// owning stack frame exits. Arena objects are never individually
// retained/released during their lifetime — Retain/Release on a
// flagArena object are no-ops (mirrored by the pinned check's sibling
// flag check in retain/release paths below).
func (a *Arena) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, obj := range a.objects {
		destroy(obj)
	}
	a.objects = a.objects[:0]
}

const flagArena uint8 = 1 << 0

func (o *Object) arena() bool { return o.Flags&flagArena != 0 }
