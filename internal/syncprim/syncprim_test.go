package syncprim

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMutexLockedSnapshotRoundTrip(t *testing.T) {
	m := NewMutex(int64(1))
	m.Lock()
	v := m.Read().(int64)
	m.Write(v + 1)
	m.Unlock()

	m.Lock()
	defer m.Unlock()
	require.EqualValues(t, 2, m.Read())
}

func TestRwLockAllowsConcurrentReaders(t *testing.T) {
	r := NewRwLock(int64(5))
	r.RLock()
	defer r.RUnlock()
	r2 := r
	r2.RLock()
	defer r2.RUnlock()
	require.EqualValues(t, 5, r.Read())
}

func TestAtomicCAS(t *testing.T) {
	a := NewAtomic(10)
	require.True(t, a.CAS(10, 20))
	require.False(t, a.CAS(10, 30))
	require.EqualValues(t, 20, a.Load())
}

func TestChannelSendReceiveBounded(t *testing.T) {
	c := NewChannel(1)
	require.NoError(t, c.Send("a"))

	done := make(chan struct{})
	go func() {
		require.NoError(t, c.Send("b")) // blocks until the receive below
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	v, ok := c.Receive()
	require.True(t, ok)
	require.Equal(t, "a", v)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("blocked Send never unblocked after Receive freed capacity")
	}
}

func TestChannelCloseWakesReceivers(t *testing.T) {
	c := NewChannel(0)
	var wg sync.WaitGroup
	wg.Add(1)
	var ok bool
	go func() {
		defer wg.Done()
		_, ok = c.Receive()
	}()
	time.Sleep(10 * time.Millisecond)
	c.Close()
	wg.Wait()
	require.False(t, ok)
}

func TestChannelSendOnClosedErrors(t *testing.T) {
	c := NewChannel(1)
	c.Close()
	require.Error(t, c.Send("x"))
}
