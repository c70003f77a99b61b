package runtime

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/naml-lang/naml/internal/heap"
	"github.com/naml-lang/naml/internal/syncprim"
)

func newTestRuntime() *Runtime {
	return New(2, []string{"hello", "world"})
}

func TestHostAllocRetainReleasePins(t *testing.T) {
	rt := newTestRuntime()
	p := rt.hostAlloc(0)
	require.NotZero(t, p)

	obj := toObject(p)
	require.EqualValues(t, 1, heap.RC(obj))

	rt.hostRetain(p)
	require.EqualValues(t, 2, heap.RC(obj))

	rt.hostRelease(p)
	require.EqualValues(t, 1, heap.RC(obj))

	rt.hostRelease(p)
	require.Panics(t, func() { toObject(p) })
}

func TestHostConstStringIndexesPool(t *testing.T) {
	rt := newTestRuntime()
	p := rt.hostConstString(1)
	obj := toObject(p)
	require.Equal(t, "world", obj.Payload.(*heap.StringPayload).S)
}

func TestHostArrayIndexRoundTrip(t *testing.T) {
	rt := newTestRuntime()
	elem := heap.New(heap.KindString, &heap.StringPayload{S: "x"})
	arr := pin(heap.New(heap.KindArray, &heap.ArrayPayload{Elems: []*heap.Object{elem}}))

	require.EqualValues(t, 1, rt.hostArrayLen(arr))

	got := rt.hostIndexGet(arr, 0)
	require.Equal(t, "x", toObject(got).Payload.(*heap.StringPayload).S)

	repl := pin(heap.New(heap.KindString, &heap.StringPayload{S: "y"}))
	rt.hostIndexSet(arr, 0, repl)
	require.Equal(t, "y", toObject(rt.hostIndexGet(arr, 0)).Payload.(*heap.StringPayload).S)
}

func TestHostOptionLiftUnwrap(t *testing.T) {
	rt := newTestRuntime()
	inner := pin(heap.New(heap.KindString, &heap.StringPayload{S: "v"}))
	opt := rt.hostOptionLift(inner)
	require.Equal(t, "v", toObject(rt.hostOptionUnwrap(opt)).Payload.(*heap.StringPayload).S)
}

func TestHostAtomicLoadStoreCAS(t *testing.T) {
	rt := newTestRuntime()
	a := pin(heap.New(heap.KindAtomic, &heap.AtomicPayload{Handle: syncprim.NewAtomic(5)}))
	require.EqualValues(t, 5, rt.hostAtomicLoad(a))

	require.EqualValues(t, 1, rt.hostAtomicCAS(a, 5, 9))
	require.EqualValues(t, 9, rt.hostAtomicLoad(a))
	require.EqualValues(t, 0, rt.hostAtomicCAS(a, 5, 100))

	rt.hostAtomicStore(a, 42)
	require.EqualValues(t, 42, rt.hostAtomicLoad(a))
}

func TestHostChannelSendRecv(t *testing.T) {
	rt := newTestRuntime()
	c := pin(heap.New(heap.KindChannel, &heap.ChannelPayload{Handle: syncprim.NewChannel(1)}))
	require.EqualValues(t, 1, rt.hostChannelSend(c, 7))
	require.EqualValues(t, uintptr(7), rt.hostChannelRecv(c))
}

func TestHostSchedEnqueueRunsTask(t *testing.T) {
	rt := newTestRuntime()
	closure := pin(heap.New(heap.KindClosure, &heap.ClosurePayload{}))
	h := rt.hostSchedEnqueue(closure)
	require.NotZero(t, h)
}

func TestHostFieldGetSetRoundTripMultipleFields(t *testing.T) {
	rt := newTestRuntime()
	s := pin(heap.New(heap.KindStruct, &heap.StructPayload{Fields: map[string]*heap.Object{}}))

	xIdx, yIdx := uintptr(0), uintptr(1) // rt.Strings == {"hello", "world"}
	xv := pin(heap.New(heap.KindString, &heap.StringPayload{S: "x-val"}))
	yv := pin(heap.New(heap.KindString, &heap.StringPayload{S: "y-val"}))

	rt.hostFieldSet(s, xIdx, xv)
	rt.hostFieldSet(s, yIdx, yv)

	gotX := rt.hostFieldGet(s, xIdx)
	gotY := rt.hostFieldGet(s, yIdx)
	require.Equal(t, "x-val", toObject(gotX).Payload.(*heap.StringPayload).S)
	require.Equal(t, "y-val", toObject(gotY).Payload.(*heap.StringPayload).S)
}

func TestHostFieldSetReleasesPreviousOccupant(t *testing.T) {
	rt := newTestRuntime()
	s := pin(heap.New(heap.KindStruct, &heap.StructPayload{Fields: map[string]*heap.Object{}}))

	idx := uintptr(0)
	first := heap.New(heap.KindString, &heap.StringPayload{S: "first"})
	firstPtr := pin(first)
	rt.hostFieldSet(s, idx, firstPtr)
	require.EqualValues(t, 2, heap.RC(first), "hostFieldSet must retain the value it stores")

	second := pin(heap.New(heap.KindString, &heap.StringPayload{S: "second"}))
	rt.hostFieldSet(s, idx, second)

	require.EqualValues(t, 1, heap.RC(first), "overwriting a field must release the value it replaced")
}

func TestHostFieldGetOnExceptionPayload(t *testing.T) {
	rt := New(2, []string{"message"})
	msg := heap.New(heap.KindString, &heap.StringPayload{S: "boom"})
	exc := pin(heap.New(heap.KindException, &heap.ExceptionPayload{
		TypeName: "Error",
		Fields:   map[string]*heap.Object{"message": msg},
	}))

	got := rt.hostFieldGet(exc, 0)
	require.Equal(t, "boom", toObject(got).Payload.(*heap.StringPayload).S)
}

func TestHostSchedEnqueueDispatchesClosureByNameWithEnv(t *testing.T) {
	rt := newTestRuntime()

	var calls int64
	var gotName string
	var gotEnv uintptr
	rt.Call = func(name string, args ...uintptr) (uintptr, error) {
		atomic.AddInt64(&calls, 1)
		gotName = name
		if len(args) > 0 {
			gotEnv = args[0]
		}
		return 0, nil
	}

	env := pin(heap.New(heap.KindStruct, &heap.StructPayload{Fields: map[string]*heap.Object{}}))
	closure := pin(heap.New(heap.KindClosure, &heap.ClosurePayload{
		FuncName: "main$spawn0",
		Captures: []*heap.Object{toObject(env)},
	}))

	rt.hostSchedEnqueue(closure)
	rt.hostSchedWaitAll(0)

	require.EqualValues(t, 1, atomic.LoadInt64(&calls))
	require.Equal(t, "main$spawn0", gotName)
	require.Equal(t, toObject(env), toObject(gotEnv), "the env object passed to Call must be the captured one")
}

func TestHostSchedWaitAllBlocksUntilSpawnedTaskFinishes(t *testing.T) {
	rt := newTestRuntime()

	started := make(chan struct{})
	release := make(chan struct{})
	rt.Call = func(name string, args ...uintptr) (uintptr, error) {
		close(started)
		<-release
		return 0, nil
	}

	closure := pin(heap.New(heap.KindClosure, &heap.ClosurePayload{FuncName: "slow"}))
	rt.hostSchedEnqueue(closure)

	<-started // the task is running but has not returned yet

	done := make(chan struct{})
	go func() {
		rt.hostSchedWaitAll(0)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("hostSchedWaitAll returned before the spawned task finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hostSchedWaitAll never returned after the spawned task finished")
	}
}
