package cache

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func copyFile(src, dst string) error {
	b, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, bytes.NewReader(b))
	return err
}

func TestKeyIsOrderIndependent(t *testing.T) {
	a := Key([][]byte{[]byte("fn main() {}"), []byte("fn helper() {}")}, "v0.1.0", "amd64-linux")
	b := Key([][]byte{[]byte("fn helper() {}"), []byte("fn main() {}")}, "v0.1.0", "amd64-linux")
	require.Equal(t, a, b)
}

func TestKeyChangesWithTarget(t *testing.T) {
	a := Key([][]byte{[]byte("fn main() {}")}, "v0.1.0", "amd64-linux")
	b := Key([][]byte{[]byte("fn main() {}")}, "v0.1.0", "arm64-darwin")
	require.NotEqual(t, a, b)
}

func TestStoreLoadRoundTrip(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)

	key := Key([][]byte{[]byte("fn main() {}")}, "v0.1.0", "amd64-linux")
	entry := Entry{Hash: key, MachineCode: []byte{0x90, 0x90, 0xC3}, DebugTable: []byte("debug")}
	require.NoError(t, c.Store(entry))

	got, ok, err := c.Load(key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, entry, *got)
}

func TestLoadMissReturnsFalseNotError(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)

	got, ok, err := c.Load("deadbeef")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, got)
}

func TestLoadRejectsTamperedHash(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	require.NoError(t, err)

	realKey := Key([][]byte{[]byte("fn main() {}")}, "v0.1.0", "amd64-linux")
	// Store an Entry under "wrong-hash", then copy that file onto
	// realKey's path — simulating a hand-edited or corrupted cache
	// file whose embedded Hash field disagrees with the key it's filed
	// under — and confirm Load refuses to trust it.
	require.NoError(t, c.Store(Entry{Hash: "wrong-hash", MachineCode: []byte{0xC3}}))
	require.NoError(t, copyFile(c.path("wrong-hash"), c.path(realKey)))

	_, ok, err := c.Load(realKey)
	require.Error(t, err)
	require.False(t, ok)
}
