// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package blobcache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/ftl/lib/digest"
)

const headerSize = 9

// ErrNotFound is returned by Get for a hash with no stored blob.
var ErrNotFound = errors.New("blobcache: blob not found")

// CorruptError reports a stored blob that does not decode to bytes
// with its content hash.
type CorruptError struct {
	Hash   digest.Hash
	Reason string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("blobcache: blob %s is corrupt: %s", e.Hash.Short(), e.Reason)
}

// Config holds the parameters for opening a cache.
type Config struct {
	// Dir is the cache directory. Created if missing.
	Dir string

	// Policy selects compression for new blobs. Default: auto.
	Policy Policy

	// Logger receives per-blob debug messages. If nil, a no-op logger
	// is used.
	Logger *slog.Logger
}

// Cache is a content-addressed blob directory. It is safe for
// concurrent use by multiple goroutines and processes.
type Cache struct {
	dir    string
	policy Policy
	logger *slog.Logger
}

// Stats summarises the cache contents.
type Stats struct {
	// Blobs is the number of stored blobs.
	Blobs int
	// Bytes is the on-disk size of all blobs.
	Bytes int64
}

// Open opens (and creates if needed) the cache at cfg.Dir.
func Open(cfg Config) (*Cache, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("blobcache: Dir is required")
	}
	policy, err := ParsePolicy(string(cfg.Policy))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("blobcache: creating %s: %w", cfg.Dir, err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{dir: cfg.Dir, policy: policy, logger: logger}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Put stores data under hash unless a blob for hash already exists.
// It reports whether a new blob was written. The caller guarantees
// hash == digest.Content(data).
func (c *Cache) Put(hash digest.Hash, data []byte) (bool, error) {
	finalPath := c.path(hash)
	if _, err := os.Stat(finalPath); err == nil {
		return false, nil
	}

	tag, payload, err := encode(data, c.policy)
	if err != nil {
		return false, fmt.Errorf("blobcache: encoding %s: %w", hash.Short(), err)
	}

	var header [headerSize]byte
	header[0] = byte(tag)
	binary.LittleEndian.PutUint64(header[1:], uint64(len(data)))

	tmpFile, err := os.CreateTemp(c.dir, "blob-*.tmp")
	if err != nil {
		return false, fmt.Errorf("blobcache: creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	_, writeErr := tmpFile.Write(header[:])
	if writeErr == nil {
		_, writeErr = tmpFile.Write(payload)
	}
	closeErr := tmpFile.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		os.Remove(tmpPath)
		return false, fmt.Errorf("blobcache: writing %s: %w", hash.Short(), err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return false, fmt.Errorf("blobcache: installing %s: %w", hash.Short(), err)
	}

	c.logger.Debug("blob stored",
		"hash", hash.Short(),
		"size", len(data),
		"stored", len(payload)+headerSize,
		"compression", tag.String(),
	)
	return true, nil
}

// Get returns the bytes stored under hash.
func (c *Cache) Get(hash digest.Hash) ([]byte, error) {
	raw, err := os.ReadFile(c.path(hash))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, hash)
		}
		return nil, fmt.Errorf("blobcache: reading %s: %w", hash.Short(), err)
	}
	if len(raw) < headerSize {
		return nil, &CorruptError{Hash: hash, Reason: "truncated header"}
	}
	size := binary.LittleEndian.Uint64(raw[1:headerSize])
	data, err := decode(raw[headerSize:], CompressionTag(raw[0]), int(size))
	if err != nil {
		return nil, &CorruptError{Hash: hash, Reason: err.Error()}
	}
	if digest.Content(data) != hash {
		return nil, &CorruptError{Hash: hash, Reason: "content hash mismatch"}
	}
	return data, nil
}

// Contains reports whether a blob for hash exists.
func (c *Cache) Contains(hash digest.Hash) bool {
	_, err := os.Stat(c.path(hash))
	return err == nil
}

// Remove deletes the blob for hash. Removing a missing blob is not an
// error.
func (c *Cache) Remove(hash digest.Hash) error {
	if err := os.Remove(c.path(hash)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("blobcache: removing %s: %w", hash.Short(), err)
	}
	return nil
}

// List returns the hash of every stored blob. Files whose names are
// not hashes (such as abandoned temp files) are skipped.
func (c *Cache) List() ([]digest.Hash, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("blobcache: listing %s: %w", c.dir, err)
	}
	hashes := make([]digest.Hash, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		hash, err := digest.Parse(entry.Name())
		if err != nil {
			continue
		}
		hashes = append(hashes, hash)
	}
	return hashes, nil
}

// Stats counts the stored blobs and their on-disk size.
func (c *Cache) Stats() (Stats, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return Stats{}, fmt.Errorf("blobcache: listing %s: %w", c.dir, err)
	}
	var stats Stats
	for _, entry := range entries {
		if _, err := digest.Parse(entry.Name()); err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.Blobs++
		stats.Bytes += info.Size()
	}
	return stats, nil
}

// Clear removes every file in the cache directory, including temp
// files, and reports how many blobs were removed.
func (c *Cache) Clear() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("blobcache: listing %s: %w", c.dir, err)
	}
	removed := 0
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(c.dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("blobcache: removing %s: %w", entry.Name(), err)
		}
		if _, err := digest.Parse(entry.Name()); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (c *Cache) path(hash digest.Hash) string {
	return filepath.Join(c.dir, hash.String())
}
