// Package cache implements naml's content-addressed compile cache
// (spec.md §6.5): finalized Program blobs keyed by a hash of their
// sources, compiler version, and target triple, stored zstd-compressed
// on disk so a rebuild with unchanged inputs skips lexing through
// codegen entirely.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Entry is one cached compilation result.
type Entry struct {
	Hash        string
	MachineCode []byte
	DebugTable  []byte
}

// Key computes the cache key for a set of source files plus the
// compiler version and GOARCH/GOOS target triple (spec.md §6.5).
// Sources are sorted before hashing so key is independent of the
// order a caller happens to have read files in.
func Key(sources [][]byte, compilerVersion, target string) string {
	sorted := make([][]byte, len(sources))
	copy(sorted, sources)
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i], sorted[j]) < 0 })

	h := sha256.New()
	for _, s := range sorted {
		h.Write(s)
	}
	h.Write([]byte(compilerVersion))
	h.Write([]byte(target))
	return hex.EncodeToString(h.Sum(nil))
}

// Cache is a directory of zstd-compressed, gob-encoded Entry blobs,
// one file per cache key.
type Cache struct {
	dir string
}

// Open returns a Cache rooted at dir, creating it if necessary.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "cache: create %s", dir)
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".namlcache")
}

// Store compresses and persists an Entry under its own Hash.
func (c *Cache) Store(entry Entry) error {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(entry); err != nil {
		return errors.Wrap(err, "cache: encode entry")
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return errors.Wrap(err, "cache: create zstd encoder")
	}
	defer enc.Close()
	compressed := enc.EncodeAll(raw.Bytes(), nil)

	if err := os.WriteFile(c.path(entry.Hash), compressed, 0o644); err != nil {
		return errors.Wrapf(err, "cache: write entry %s", entry.Hash)
	}
	return nil
}

// Load reads back the Entry stored under key, re-validating that the
// decoded Entry.Hash still equals key before trusting MachineCode
// (spec.md §6.5: "Load validates the stored hash equals the
// recomputed one before trusting MachineCode") — guards against a
// corrupted or hand-edited cache file silently feeding stale machine
// code into Finalize. Returns (nil, false, nil) on a clean cache miss.
func (c *Cache) Load(key string) (*Entry, bool, error) {
	compressed, err := os.ReadFile(c.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "cache: read entry %s", key)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, false, errors.Wrap(err, "cache: create zstd decoder")
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, false, errors.Wrapf(err, "cache: decompress entry %s", key)
	}

	var entry Entry
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&entry); err != nil {
		return nil, false, errors.Wrapf(err, "cache: decode entry %s", key)
	}
	if entry.Hash != key {
		return nil, false, errors.Errorf("cache: entry %s has mismatched stored hash %s", key, entry.Hash)
	}
	return &entry, true, nil
}

// Remove deletes a cached entry, ignoring a clean miss.
func (c *Cache) Remove(key string) error {
	err := os.Remove(c.path(key))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "cache: remove entry %s", key)
	}
	return nil
}
