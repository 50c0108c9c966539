// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentstore

import (
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/bureau-foundation/ftl/lib/blobcache"
	"github.com/bureau-foundation/ftl/lib/digest"
	"github.com/bureau-foundation/ftl/lib/model"
)

// ContentErrorKind classifies a ContentError.
type ContentErrorKind int

const (
	// Unreadable means the file could not be read or cached.
	Unreadable ContentErrorKind = iota + 1
	// NotUTF8 means an inline file is not valid UTF-8 text.
	NotUTF8
)

func (k ContentErrorKind) String() string {
	switch k {
	case Unreadable:
		return "unreadable"
	case NotUTF8:
		return "not UTF-8"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ContentError reports a file whose content cannot be interned.
type ContentError struct {
	Path string
	Kind ContentErrorKind
	Err  error
}

func (e *ContentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("contentstore: %s: %s: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("contentstore: %s: %s", e.Path, e.Kind)
}

func (e *ContentError) Unwrap() error { return e.Err }

// Config holds the parameters of a Store.
type Config struct {
	// Cache holds out-of-line bytes. Required.
	Cache *blobcache.Cache

	// InlineExtensions lists extensions, without dots, whose content
	// is stored inline.
	InlineExtensions []string

	// Logger receives debug messages. If nil, a no-op logger is used.
	Logger *slog.Logger
}

// Store interns file content. It is safe for concurrent use.
type Store struct {
	cache  *blobcache.Cache
	inline map[string]bool
	logger *slog.Logger
}

// New returns a Store.
func New(cfg Config) (*Store, error) {
	if cfg.Cache == nil {
		return nil, fmt.Errorf("contentstore: Cache is required")
	}
	inline := make(map[string]bool, len(cfg.InlineExtensions))
	for _, extension := range cfg.InlineExtensions {
		inline[extension] = true
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{cache: cfg.Cache, inline: inline, logger: logger}, nil
}

// IsInline reports whether files with extension are stored inline.
func (s *Store) IsInline(extension string) bool {
	return s.inline[extension]
}

// Intern returns the input file for data found at path. path must be
// slash separated and relative to the source root.
func (s *Store) Intern(path string, data []byte) (model.InputFile, error) {
	contentHash := digest.Content(data)
	extension := model.Extension(path)
	file := model.InputFile{
		ID:          digest.File(contentHash, path),
		ContentHash: contentHash,
		Path:        path,
		Extension:   extension,
		Inline:      s.inline[extension],
	}

	if file.Inline {
		if !utf8.Valid(data) {
			return model.InputFile{}, &ContentError{Path: path, Kind: NotUTF8}
		}
		if len(data) > 0 {
			text := string(data)
			file.Content = &text
		}
		return file, nil
	}

	written, err := s.cache.Put(contentHash, data)
	if err != nil {
		return model.InputFile{}, &ContentError{Path: path, Kind: Unreadable, Err: err}
	}
	if written {
		s.logger.Debug("cached out-of-line content", "path", path, "hash", contentHash.Short())
	}
	return file, nil
}

// Read returns the bytes of file.
func (s *Store) Read(file model.InputFile) ([]byte, error) {
	if file.Inline {
		return []byte(file.Text()), nil
	}
	data, err := s.cache.Get(file.ContentHash)
	if err != nil {
		return nil, &ContentError{Path: file.Path, Kind: Unreadable, Err: err}
	}
	return data, nil
}

// Cache returns the blob cache backing the store.
func (s *Store) Cache() *blobcache.Cache {
	return s.cache
}
