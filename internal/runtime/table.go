package runtime

import (
	"github.com/ebitengine/purego"
	"github.com/pkg/errors"

	"github.com/naml-lang/naml/internal/codegen"
)

// builtins maps every naml_* symbol internal/codegen's isa.go can emit
// a call to, to the Runtime method implementing it. purego.NewCallback
// takes a bound method value directly — no free-function indirection
// table is needed the way a C FFI binder would need one.
func (rt *Runtime) builtins() map[string]interface{} {
	return map[string]interface{}{
		"naml_alloc":          rt.hostAlloc,
		"naml_retain":         rt.hostRetain,
		"naml_release":        rt.hostRelease,
		"naml_const_string":   rt.hostConstString,
		"naml_field_get":      rt.hostFieldGet,
		"naml_field_set":      rt.hostFieldSet,
		"naml_index_get":      rt.hostIndexGet,
		"naml_index_set":      rt.hostIndexSet,
		"naml_array_len":      rt.hostArrayLen,
		"naml_enum_tag":       rt.hostEnumTag,
		"naml_enum_payload":   rt.hostEnumPayload,
		"naml_option_lift":    rt.hostOptionLift,
		"naml_option_unwrap":  rt.hostOptionUnwrap,
		"naml_make_closure":   rt.hostMakeClosure,
		"naml_mutex_lock":     rt.hostMutexLock,
		"naml_mutex_unlock":   rt.hostMutexUnlock,
		"naml_mutex_read":     rt.hostMutexRead,
		"naml_mutex_write":    rt.hostMutexWrite,
		"naml_rwlock_rlock":   rt.hostRwLockRLock,
		"naml_rwlock_wlock":   rt.hostRwLockWLock,
		"naml_rwlock_unlock":  rt.hostRwLockUnlock,
		"naml_atomic_load":    rt.hostAtomicLoad,
		"naml_atomic_store":   rt.hostAtomicStore,
		"naml_atomic_cas":     rt.hostAtomicCAS,
		"naml_channel_send":   rt.hostChannelSend,
		"naml_channel_recv":   rt.hostChannelRecv,
		"naml_sched_enqueue":  rt.hostSchedEnqueue,
		"naml_sched_wait_all": rt.hostSchedWaitAll,
		"naml_throw":          rt.hostThrow,
	}
}

// BuildHostTable resolves every symbol prog.HostSymbols names, in
// order, into a []uintptr suitable for codegen.Program.Finalize: each
// slot either a purego.NewCallback trampoline over one of rt's builtin
// methods, or (for `extern fn` declarations) a symbol address resolved
// from a dynamically loaded library by Externs.Resolve and found via
// externs.lookup. A name that is
// neither a known builtin nor a registered extern is a compiler bug —
// codegen should never have emitted a call to it.
func BuildHostTable(rt *Runtime, prog *codegen.Program, externs *Externs) ([]uintptr, error) {
	builtins := rt.builtins()
	table := make([]uintptr, len(prog.HostSymbols))
	for i, name := range prog.HostSymbols {
		if fn, ok := builtins[name]; ok {
			table[i] = purego.NewCallback(fn)
			continue
		}
		if externs != nil {
			if addr, ok := externs.lookup(name); ok {
				table[i] = addr
				continue
			}
		}
		return nil, errors.Errorf("runtime: no host binding for %q", name)
	}
	return table, nil
}
