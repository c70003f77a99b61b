package heap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRetainRelease(t *testing.T) {
	obj := New(KindString, &StringPayload{S: "hi"})
	require.EqualValues(t, 1, RC(obj))

	Retain(obj)
	require.EqualValues(t, 2, RC(obj))

	require.NoError(t, Release(obj))
	require.EqualValues(t, 1, RC(obj))

	require.NoError(t, Release(obj))
	require.EqualValues(t, 0, RC(obj))
}

func TestReleaseUnderflowIsFatal(t *testing.T) {
	obj := New(KindString, &StringPayload{S: "x"})
	require.NoError(t, Release(obj))
	require.Error(t, Release(obj))
}

func TestPinnedObjectIgnoresRetainRelease(t *testing.T) {
	obj := New(KindString, &StringPayload{S: "interned"})
	obj.Pin()
	Retain(obj)
	require.NoError(t, Release(obj))
	require.NoError(t, Release(obj))
}

func TestDestroyReleasesChildren(t *testing.T) {
	child := New(KindString, &StringPayload{S: "child"})
	Retain(child) // simulate the array's own retain on insert
	arr := New(KindArray, &ArrayPayload{Elems: []*Object{child}})

	require.NoError(t, Release(arr))
	require.EqualValues(t, 1, RC(child))
	require.NoError(t, Release(child))
	require.EqualValues(t, 0, RC(child))
}

func TestArenaBulkRelease(t *testing.T) {
	a := NewArena(4)
	child := New(KindString, &StringPayload{S: "leaf"})
	obj := a.Alloc(KindArray, &ArrayPayload{Elems: []*Object{child}})
	require.True(t, obj.arena())

	// arena objects ignore individual retain/release traffic
	Retain(obj)
	require.NoError(t, Release(obj))
	require.EqualValues(t, 1, RC(obj))

	a.Release()
}

func TestArenaSpillsToGeneralAllocator(t *testing.T) {
	a := NewArena(1)
	first := a.Alloc(KindString, &StringPayload{S: "a"})
	second := a.Alloc(KindString, &StringPayload{S: "b"})
	require.True(t, first.arena())
	require.False(t, second.arena())
}
