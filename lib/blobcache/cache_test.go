// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package blobcache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/ftl/lib/digest"
)

func openTestCache(t *testing.T, policy Policy) *Cache {
	t.Helper()
	cache, err := Open(Config{Dir: filepath.Join(t.TempDir(), "cache"), Policy: policy})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return cache
}

func TestPutGetEveryPolicy(t *testing.T) {
	inputs := map[string][]byte{
		"empty":  {},
		"text":   []byte(strings.Repeat("the quick brown fox ", 200)),
		"random": pseudoRandom(4096),
	}
	for _, policy := range []Policy{PolicyNone, PolicyLZ4, PolicyZstd, PolicyAuto} {
		for name, data := range inputs {
			t.Run(string(policy)+"/"+name, func(t *testing.T) {
				cache := openTestCache(t, policy)
				hash := digest.Content(data)

				written, err := cache.Put(hash, data)
				if err != nil {
					t.Fatalf("Put: %v", err)
				}
				if !written {
					t.Fatal("first Put reported no write")
				}
				got, err := cache.Get(hash)
				if err != nil {
					t.Fatalf("Get: %v", err)
				}
				if !bytes.Equal(got, data) {
					t.Fatalf("Get returned %d bytes, want %d", len(got), len(data))
				}
			})
		}
	}
}

func TestPutSkipsExistingBlob(t *testing.T) {
	cache := openTestCache(t, PolicyAuto)
	data := []byte("shared image bytes")
	hash := digest.Content(data)

	if _, err := cache.Put(hash, data); err != nil {
		t.Fatalf("Put: %v", err)
	}
	info, err := os.Stat(filepath.Join(cache.Dir(), hash.String()))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}

	written, err := cache.Put(hash, data)
	if err != nil {
		t.Fatalf("second Put: %v", err)
	}
	if written {
		t.Fatal("second Put rewrote an existing blob")
	}
	again, err := os.Stat(filepath.Join(cache.Dir(), hash.String()))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !again.ModTime().Equal(info.ModTime()) {
		t.Fatal("existing blob was modified")
	}

	stats, err := cache.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Blobs != 1 {
		t.Fatalf("Stats.Blobs = %d, want 1", stats.Blobs)
	}
}

func TestGetMissingBlob(t *testing.T) {
	cache := openTestCache(t, PolicyAuto)
	_, err := cache.Get(digest.Content([]byte("never stored")))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get error = %v, want ErrNotFound", err)
	}
}

func TestGetDetectsCorruption(t *testing.T) {
	cache := openTestCache(t, PolicyNone)
	data := []byte("original bytes")
	hash := digest.Content(data)
	if _, err := cache.Put(hash, data); err != nil {
		t.Fatalf("Put: %v", err)
	}

	path := filepath.Join(cache.Dir(), hash.String())
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	raw[len(raw)-1] ^= 0xff
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err = cache.Get(hash)
	var corrupt *CorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("Get error = %v, want *CorruptError", err)
	}
}

func TestListRemoveClear(t *testing.T) {
	cache := openTestCache(t, PolicyAuto)
	var hashes []digest.Hash
	for _, content := range []string{"a", "b", "c"} {
		hash := digest.Content([]byte(content))
		hashes = append(hashes, hash)
		if _, err := cache.Put(hash, []byte(content)); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	// A stray temp file is not a blob.
	if err := os.WriteFile(filepath.Join(cache.Dir(), "blob-123.tmp"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	listed, err := cache.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("List returned %d hashes, want 3", len(listed))
	}

	if err := cache.Remove(hashes[0]); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := cache.Remove(hashes[0]); err != nil {
		t.Fatalf("Remove of a missing blob: %v", err)
	}
	if cache.Contains(hashes[0]) {
		t.Fatal("removed blob still present")
	}

	removed, err := cache.Clear()
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 2 {
		t.Fatalf("Clear removed %d blobs, want 2", removed)
	}
	entries, err := os.ReadDir(cache.Dir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("cache directory still has %d entries", len(entries))
	}
}

func TestParsePolicy(t *testing.T) {
	if policy, err := ParsePolicy(""); err != nil || policy != PolicyAuto {
		t.Fatalf(`ParsePolicy("") = %q, %v`, policy, err)
	}
	if _, err := ParsePolicy("brotli"); err == nil {
		t.Fatal("ParsePolicy accepted an unknown policy")
	}
}

// pseudoRandom returns deterministic bytes that do not compress.
func pseudoRandom(n int) []byte {
	out := make([]byte, n)
	state := uint32(2463534242)
	for i := range out {
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		out[i] = byte(state)
	}
	return out
}
