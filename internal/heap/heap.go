// Package heap implements naml's reference-counted value heap
// (spec.md §3.1, §4.6): an 8-byte header on every boxed object, atomic
// retain/release, and a per-thread bump arena for escape-analyzed
// allocations. Layout is new relative to the teacher — yaegi boxes
// every interpreted value in a reflect.Value riding on Go's GC
// (interp/interp.go's frame{data []reflect.Value}) — but the "root
// frame as the permanently-live scope" idea carries over directly into
// Pin/Unpin below.
package heap

import (
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
)

// Kind identifies the payload layout following a Header.
type Kind uint8

const (
	KindString Kind = iota
	KindBytes
	KindArray
	KindMap
	KindStruct
	KindEnum
	KindOption
	KindMutex
	KindRwLock
	KindAtomic
	KindChannel
	KindClosure
	KindException
)

// pinnedRC marks an object that is never freed (interned strings,
// module-level constants promoted to the heap, the universe's sentinel
// values) — spec.md §3.1's "rc == u32::MAX" pinned sentinel.
const pinnedRC = ^uint32(0)

// Header is the fixed 8-byte prefix of every boxed object (spec.md §3.1).
type Header struct {
	Kind     Kind
	Flags    uint8
	Reserved uint16
	RC       uint32
}

// Object is a boxed heap value: a Header plus an opaque Payload whose
// concrete shape is selected by Kind.
type Object struct {
	Header
	Payload interface{}
}

// Pin marks obj as permanently live; retain/release become no-ops.
func (o *Object) Pin() { atomic.StoreUint32(&o.RC, pinnedRC) }

func (o *Object) pinned() bool { return atomic.LoadUint32(&o.RC) == pinnedRC }

// StringPayload, BytesPayload, ArrayPayload, MapPayload, StructPayload,
// EnumPayload, OptionPayload mirror spec.md §3.1's payload kinds.
type StringPayload struct{ S string }
type BytesPayload struct{ B []byte }
type ArrayPayload struct{ Elems []*Object }
type MapPayload struct {
	Keys   []*Object
	Values []*Object
}
type StructPayload struct{ Fields map[string]*Object }
type EnumPayload struct {
	Tag     int
	Payload *Object
}
type OptionPayload struct{ Value *Object } // nil Value means none

// MutexPayload, RwLockPayload, AtomicPayload, ChannelPayload are
// implemented concretely in internal/syncprim; heap only stores the
// opaque handle so release() can find the right destructor.
type MutexPayload struct{ Handle interface{} }
type RwLockPayload struct{ Handle interface{} }
type AtomicPayload struct{ Handle interface{} }
type ChannelPayload struct{ Handle interface{} }

type ClosurePayload struct {
	FuncName string
	Captures []*Object
}

type ExceptionPayload struct {
	TypeName string
	Fields   map[string]*Object
}

// New allocates obj with rc == 1 via the general allocator (no arena).
func New(kind Kind, payload interface{}) *Object {
	return &Object{Header: Header{Kind: kind, RC: 1}, Payload: payload}
}

// Retain atomically increments obj's reference count, the mandatory
// pairing half of every mutable store of a boxed value into a slot
// (spec.md §4.6 invariant: "retain(new); release(old), in that order").
func Retain(obj *Object) {
	if obj == nil || obj.pinned() || obj.arena() {
		return
	}
	atomic.AddUint32(&obj.RC, 1)
	sanRecord(obj, "retain")
}

// Release atomically decrements obj's reference count and, on reaching
// zero, recursively releases owned children before the object becomes
// garbage for Go's own collector to reclaim. Release on an
// already-zero rc is a fatal error (spec.md §4.6 invariant).
func Release(obj *Object) error {
	if obj == nil || obj.pinned() || obj.arena() {
		return nil
	}
	for {
		old := atomic.LoadUint32(&obj.RC)
		if old == 0 {
			return errors.Errorf("heap: release of object with rc already zero (kind %d)", obj.Kind)
		}
		if atomic.CompareAndSwapUint32(&obj.RC, old, old-1) {
			sanRecord(obj, "release")
			if old == 1 {
				destroy(obj)
			}
			return nil
		}
	}
}

func destroy(obj *Object) {
	switch p := obj.Payload.(type) {
	case *ArrayPayload:
		for _, e := range p.Elems {
			Release(e)
		}
	case *MapPayload:
		for _, k := range p.Keys {
			Release(k)
		}
		for _, v := range p.Values {
			Release(v)
		}
	case *StructPayload:
		for _, f := range p.Fields {
			Release(f)
		}
	case *EnumPayload:
		Release(p.Payload)
	case *OptionPayload:
		Release(p.Value)
	case *ClosurePayload:
		for _, c := range p.Captures {
			Release(c)
		}
	case *ExceptionPayload:
		for _, f := range p.Fields {
			Release(f)
		}
	}
}

// RC returns obj's current reference count, for sanitizer-build
// assertions and tests.
func RC(obj *Object) uint32 { return atomic.LoadUint32(&obj.RC) }

// HeaderSize is the ABI-visible size codegen must reserve before every
// payload.
const HeaderSize = unsafe.Sizeof(Header{})
