package runtime

import (
	"sync"

	"github.com/naml-lang/naml/internal/heap"
	"github.com/naml-lang/naml/internal/sched"
	"github.com/naml-lang/naml/internal/syncprim"
)

// Runtime holds everything naml's host functions need beyond a single
// heap.Object argument: the scheduler spawned tasks enqueue onto, and
// the constant string pool codegen.Program.Strings produced. Every
// naml_* function below is a method so it closes over *rt instead of
// reaching for package-level globals, the same reasoning yaegi's own
// `Interpreter` struct groups its host/builtin state instead of
// scattering it across free functions.
type Runtime struct {
	Sched   *sched.Scheduler
	Strings []string

	// Call invokes compiled code by its codegen.Program entry name; set
	// by the naml package once codegen.Program.Finalize produces the
	// Executable this Runtime's host table was bound against. Spawned
	// tasks are dispatched through it by internal/heap.ClosurePayload's
	// FuncName, the same name codegen.Executable.Call itself resolves.
	Call func(name string, args ...uintptr) (uintptr, error)

	curWorker *sched.Worker // set by whichever worker is running naml code; nil on the main thread

	barrierOnce sync.Once
	barrier     *sched.Barrier // lazily created on the first spawn; join() (spec.md §4.7) waits on this one
}

// New returns a Runtime backed by a freshly started scheduler with n
// workers (n <= 0 picks runtime.NumCPU(), per sched.New).
func New(n int, strings []string) *Runtime {
	return &Runtime{Sched: sched.New(n), Strings: strings}
}

// joinBarrier returns the Runtime's single shared barrier, creating it
// the first time any task is spawned. naml's join() takes no argument
// (spec.md's wait_all is a zero-arg builtin, not a per-handle wait), so
// every spawn in a program joins the same barrier.
func (rt *Runtime) joinBarrier() *sched.Barrier {
	rt.barrierOnce.Do(func() { rt.barrier = sched.NewBarrier() })
	return rt.barrier
}

func (rt *Runtime) hostAlloc(_ uintptr) uintptr {
	obj := heap.New(heap.KindStruct, &heap.StructPayload{Fields: map[string]*heap.Object{}})
	return pin(obj)
}

func (rt *Runtime) hostRetain(p uintptr) uintptr {
	heap.Retain(toObject(p))
	return p
}

func (rt *Runtime) hostRelease(p uintptr) uintptr {
	obj := toObject(p)
	if err := heap.Release(obj); err != nil {
		panic(err) // rc underflow is a fatal error per spec.md §4.6
	}
	if heap.RC(obj) == 0 {
		unpin(p)
	}
	return 0
}

func (rt *Runtime) hostConstString(idx uintptr) uintptr {
	var s string
	if int(idx) < len(rt.Strings) {
		s = rt.Strings[idx]
	}
	return pin(heap.New(heap.KindString, &heap.StringPayload{S: s}))
}

func (rt *Runtime) hostArrayLen(p uintptr) uintptr {
	arr, ok := toObject(p).Payload.(*heap.ArrayPayload)
	if !ok {
		return 0
	}
	return uintptr(len(arr.Elems))
}

func (rt *Runtime) hostIndexGet(p, idx uintptr) uintptr {
	arr, ok := toObject(p).Payload.(*heap.ArrayPayload)
	if !ok || int(idx) >= len(arr.Elems) {
		return 0
	}
	return pin(arr.Elems[idx])
}

func (rt *Runtime) hostIndexSet(p, idx, valPtr uintptr) uintptr {
	arr, ok := toObject(p).Payload.(*heap.ArrayPayload)
	if !ok || int(idx) >= len(arr.Elems) {
		return 0
	}
	old := arr.Elems[idx]
	v := toObject(valPtr)
	heap.Retain(v)
	arr.Elems[idx] = v
	heap.Release(old)
	return 0
}

// fieldName resolves a string-pool index codegen.encodeFieldGet/
// encodeFieldSet pass in place of the Go-string field name itself —
// the same interning hostConstString does for string literals.
func (rt *Runtime) fieldName(idx uintptr) string {
	if int(idx) < len(rt.Strings) {
		return rt.Strings[idx]
	}
	return ""
}

func (rt *Runtime) hostFieldGet(p, nameIdx uintptr) uintptr {
	name := rt.fieldName(nameIdx)
	switch payload := toObject(p).Payload.(type) {
	case *heap.StructPayload:
		if v, ok := payload.Fields[name]; ok {
			return pin(v)
		}
	case *heap.ExceptionPayload:
		if v, ok := payload.Fields[name]; ok {
			return pin(v)
		}
	}
	return 0
}

func (rt *Runtime) hostFieldSet(p, nameIdx, valPtr uintptr) uintptr {
	st, ok := toObject(p).Payload.(*heap.StructPayload)
	if !ok {
		return 0
	}
	name := rt.fieldName(nameIdx)
	v := toObject(valPtr)
	heap.Retain(v)
	old, had := st.Fields[name]
	st.Fields[name] = v
	if had {
		heap.Release(old) // §4.6: every mutable store performs retain(new); release(old)
	}
	return 0
}

func (rt *Runtime) hostEnumTag(p uintptr) uintptr {
	e, ok := toObject(p).Payload.(*heap.EnumPayload)
	if !ok {
		return 0
	}
	return uintptr(e.Tag)
}

func (rt *Runtime) hostEnumPayload(p uintptr) uintptr {
	e, ok := toObject(p).Payload.(*heap.EnumPayload)
	if !ok || e.Payload == nil {
		return 0
	}
	return pin(e.Payload)
}

func (rt *Runtime) hostOptionLift(p uintptr) uintptr {
	return pin(heap.New(heap.KindOption, &heap.OptionPayload{Value: toObject(p)}))
}

func (rt *Runtime) hostOptionUnwrap(p uintptr) uintptr {
	opt, ok := toObject(p).Payload.(*heap.OptionPayload)
	if !ok || opt.Value == nil {
		panic("runtime: force-unwrap of none")
	}
	return pin(opt.Value)
}

// hostMakeClosure boxes the task identity codegen's encodeMakeClosure
// resolved at compile time (in.Callee.Name, interned the same way a
// string literal is) together with the environment struct lowerSpawn
// built, so hostSchedEnqueue can later dispatch the task by name.
func (rt *Runtime) hostMakeClosure(nameIdx, envPtr uintptr) uintptr {
	name := ""
	if int64(nameIdx) >= 0 && int(nameIdx) < len(rt.Strings) {
		name = rt.Strings[nameIdx]
	}
	var captures []*heap.Object
	if envPtr != 0 {
		env := toObject(envPtr)
		heap.Retain(env)
		captures = []*heap.Object{env}
	}
	return pin(heap.New(heap.KindClosure, &heap.ClosurePayload{FuncName: name, Captures: captures}))
}

func (rt *Runtime) hostMutexLock(p uintptr) uintptr {
	toObject(p).Payload.(*heap.MutexPayload).Handle.(*syncprim.Mutex).Lock()
	return 0
}

func (rt *Runtime) hostMutexUnlock(p uintptr) uintptr {
	toObject(p).Payload.(*heap.MutexPayload).Handle.(*syncprim.Mutex).Unlock()
	return 0
}

func (rt *Runtime) hostMutexRead(p uintptr) uintptr {
	v := toObject(p).Payload.(*heap.MutexPayload).Handle.(*syncprim.Mutex).Read()
	return v.(uintptr)
}

func (rt *Runtime) hostMutexWrite(p, valPtr uintptr) uintptr {
	toObject(p).Payload.(*heap.MutexPayload).Handle.(*syncprim.Mutex).Write(valPtr)
	return 0
}

func (rt *Runtime) hostRwLockRLock(p uintptr) uintptr {
	toObject(p).Payload.(*heap.RwLockPayload).Handle.(*syncprim.RwLock).RLock()
	return 0
}

func (rt *Runtime) hostRwLockWLock(p uintptr) uintptr {
	toObject(p).Payload.(*heap.RwLockPayload).Handle.(*syncprim.RwLock).WLock()
	return 0
}

func (rt *Runtime) hostRwLockUnlock(p uintptr) uintptr {
	// Shared vs exclusive unlock both funnel through the same op per
	// spec.md §4.8's lowering; the held-side distinction lives in
	// which of RLock/WLock internal/ir paired it with.
	h := toObject(p).Payload.(*heap.RwLockPayload).Handle.(*syncprim.RwLock)
	defer func() { recover() }() // guards a write-unlock called on a read-held lock, or vice versa
	h.WUnlock()
	return 0
}

func (rt *Runtime) hostAtomicLoad(p uintptr) uintptr {
	return uintptr(toObject(p).Payload.(*heap.AtomicPayload).Handle.(*syncprim.Atomic).Load())
}

func (rt *Runtime) hostAtomicStore(p, v uintptr) uintptr {
	toObject(p).Payload.(*heap.AtomicPayload).Handle.(*syncprim.Atomic).Store(int64(v))
	return 0
}

func (rt *Runtime) hostAtomicCAS(p, exp, new uintptr) uintptr {
	ok := toObject(p).Payload.(*heap.AtomicPayload).Handle.(*syncprim.Atomic).CAS(int64(exp), int64(new))
	return fromBool(ok)
}

func (rt *Runtime) hostChannelSend(p, valPtr uintptr) uintptr {
	err := toObject(p).Payload.(*heap.ChannelPayload).Handle.(*syncprim.Channel).Send(valPtr)
	if err != nil {
		panic(err) // send on a closed channel is a runtime fault
	}
	return fromBool(err == nil)
}

func (rt *Runtime) hostChannelRecv(p uintptr) uintptr {
	v, ok := toObject(p).Payload.(*heap.ChannelPayload).Handle.(*syncprim.Channel).Receive()
	if !ok {
		return 0
	}
	return v.(uintptr)
}

// hostSchedEnqueue runs the spawned closure's task function on the
// scheduler (spec.md §4.7): it resolves the task by the name
// hostMakeClosure boxed and invokes it through rt.Call, the same
// name-based dispatch codegen.Executable.Call itself performs, passing
// the captured environment struct as the task's sole argument.
func (rt *Runtime) hostSchedEnqueue(closurePtr uintptr) uintptr {
	b := rt.joinBarrier()
	closure, _ := toObject(closurePtr).Payload.(*heap.ClosurePayload)

	var env *heap.Object
	if closure != nil && len(closure.Captures) > 0 {
		env = closure.Captures[0]
	}

	run := func(w *sched.Worker) {
		prev := rt.curWorker
		rt.curWorker = w
		defer func() { rt.curWorker = prev }()
		if closure == nil || closure.FuncName == "" || rt.Call == nil {
			return
		}
		var envArg uintptr
		if env != nil {
			envArg = pin(env)
		}
		if _, err := rt.Call(closure.FuncName, envArg); err != nil {
			panic(err)
		}
	}
	if rt.curWorker != nil {
		rt.curWorker.Spawn(run, b)
	} else {
		rt.Sched.Spawn(run, b)
	}
	return pin(heap.New(heap.KindStruct, &heap.StructPayload{Fields: map[string]*heap.Object{}}))
}

// hostSchedWaitAll implements join()/wait_all(): every task spawned
// through this Runtime happens-before this call's return (spec.md
// §4.7/§5), via the shared barrier every hostSchedEnqueue call joined.
func (rt *Runtime) hostSchedWaitAll(_ uintptr) uintptr {
	rt.joinBarrier().Join()
	return 0
}

func (rt *Runtime) hostThrow(p uintptr) uintptr {
	exc := toObject(p)
	name := "exception"
	if e, ok := exc.Payload.(*heap.ExceptionPayload); ok {
		name = e.TypeName
	}
	panic("naml: unhandled exception " + name)
}
