// Package runtime implements naml's host-function table (spec.md
// §6.1): the Go-side implementations of every `naml_*` name codegen
// emits indirect calls to, bound into the `[]uintptr` table codegen's
// prologue loads into r15 (internal/codegen's hostTableReg), plus
// `extern fn` C-ABI symbol resolution via purego.
//
// Grounded on the teacher's `_bin`/`_val` host-call bridging in
// interp/run.go (yaegi's own "reach out of the interpreter into a
// real Go function" boundary for builtins), generalized from
// reflection-based dispatch (yaegi calls through reflect.Value since
// its caller is itself Go) to a raw C-ABI call table (naml's caller is
// JIT'd machine code).
package runtime

import (
	"sync"
	"unsafe"

	"github.com/naml-lang/naml/internal/heap"
)

// live pins every heap.Object whose address has been handed to JIT'd
// code as a raw uintptr, so Go's GC never reclaims it out from under
// machine code that has no way to report the reference back to the
// collector. Entries are removed by hostRelease (via unpin) once an
// object's refcount reaches zero.
var live sync.Map // uintptr -> *heap.Object

func pin(obj *heap.Object) uintptr {
	p := uintptr(unsafe.Pointer(obj))
	live.Store(p, obj)
	return p
}

func unpin(p uintptr) {
	live.Delete(p)
}

// toObject recovers the *heap.Object a host function's uintptr
// argument refers to. Panics on an unknown pointer — a call site
// passing garbage is a codegen or lowering bug, not a recoverable
// runtime condition.
func toObject(p uintptr) *heap.Object {
	v, ok := live.Load(p)
	if !ok {
		panic("runtime: unknown object pointer from JIT'd code")
	}
	return v.(*heap.Object)
}

func fromBool(b bool) uintptr {
	if b {
		return 1
	}
	return 0
}
