// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package revision

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"zombiezen.com/go/sqlite"

	"github.com/bureau-foundation/ftl/lib/blobcache"
	"github.com/bureau-foundation/ftl/lib/contentstore"
	"github.com/bureau-foundation/ftl/lib/digest"
	"github.com/bureau-foundation/ftl/lib/model"
	"github.com/bureau-foundation/ftl/lib/store"
)

// MinPrefixLength is the shortest id prefix Resolve accepts.
const MinPrefixLength = 4

// Config holds the dependencies of a Manager.
type Config struct {
	Store   *store.Store
	Content *contentstore.Store

	// Logger receives operational messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// Manager performs revision lifecycle operations.
type Manager struct {
	store   *store.Store
	content *contentstore.Store
	cache   *blobcache.Cache
	logger  *slog.Logger
}

// New returns a Manager.
func New(cfg Config) (*Manager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("revision: Store is required")
	}
	if cfg.Content == nil {
		return nil, fmt.Errorf("revision: Content is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		store:   cfg.Store,
		content: cfg.Content,
		cache:   cfg.Content.Cache(),
		logger:  logger,
	}, nil
}

// List returns every revision, most recently built first.
func (m *Manager) List(ctx context.Context) ([]model.Revision, error) {
	var revisions []model.Revision
	err := m.store.Read(ctx, func(conn *sqlite.Conn) error {
		var err error
		revisions, err = store.Revisions(conn)
		return err
	})
	return revisions, err
}

// Resolve finds the revision a query names.
func (m *Manager) Resolve(ctx context.Context, query string) (model.Revision, error) {
	var revision model.Revision
	err := m.store.Read(ctx, func(conn *sqlite.Conn) error {
		var err error
		revision, err = resolve(conn, query)
		return err
	})
	return revision, err
}

func resolve(conn *sqlite.Conn, query string) (model.Revision, error) {
	if query == "" {
		return model.Revision{}, &RevisionNotFoundError{Query: query}
	}
	if id, err := digest.Parse(query); err == nil {
		revision, found, err := store.RevisionByID(conn, id)
		if err != nil {
			return model.Revision{}, err
		}
		if found {
			return revision, nil
		}
	}

	revision, found, err := store.RevisionByName(conn, query)
	if err != nil {
		return model.Revision{}, err
	}
	if found {
		return revision, nil
	}

	prefix := strings.ToLower(query)
	if len(prefix) < MinPrefixLength || strings.Trim(prefix, "0123456789abcdef") != "" {
		return model.Revision{}, &RevisionNotFoundError{Query: query}
	}
	matches, err := store.RevisionsByPrefix(conn, prefix)
	if err != nil {
		return model.Revision{}, err
	}
	switch len(matches) {
	case 0:
		return model.Revision{}, &RevisionNotFoundError{Query: query}
	case 1:
		return matches[0], nil
	default:
		return model.Revision{}, &AmbiguousRevisionError{Query: query, Matches: matches}
	}
}

// Details is everything recorded about one revision.
type Details struct {
	Revision  model.Revision
	Files     []model.InputFile
	Pages     []model.Page
	Templates []model.Template
	Routes    []model.Route
}

// Inspect returns the revision a query names together with its files,
// parsed pages, templates and routes.
func (m *Manager) Inspect(ctx context.Context, query string) (Details, error) {
	var details Details
	err := m.store.Read(ctx, func(conn *sqlite.Conn) error {
		revision, err := resolve(conn, query)
		if err != nil {
			return err
		}
		details.Revision = revision
		if details.Files, err = store.RevisionFiles(conn, revision.ID); err != nil {
			return err
		}
		if details.Pages, err = store.PagesInRevision(conn, revision.ID); err != nil {
			return err
		}
		if details.Templates, err = store.Templates(conn, revision.ID); err != nil {
			return err
		}
		details.Routes, err = store.Routes(conn, revision.ID)
		return err
	})
	return details, err
}

// Name gives the revision a query names the name. An empty name
// removes the current one.
func (m *Manager) Name(ctx context.Context, query, name string) (model.Revision, error) {
	var revision model.Revision
	err := m.store.Read(ctx, func(conn *sqlite.Conn) error {
		var err error
		revision, err = resolve(conn, query)
		if err != nil || name == "" {
			return err
		}
		holder, found, err := store.RevisionByName(conn, name)
		if err != nil {
			return err
		}
		if found && holder.ID != revision.ID {
			return &NameInUseError{Name: name, Holder: holder}
		}
		return nil
	})
	if err != nil {
		return model.Revision{}, err
	}
	if err := m.store.Apply("revision", store.SetRevisionName{Revision: revision.ID, Name: name}); err != nil {
		return model.Revision{}, fmt.Errorf("revision: naming %s: %w", revision.ID.Short(), err)
	}
	revision.Name = name
	m.logger.Info("revision named", "revision", revision.ID.Short(), "name", name)
	return revision, nil
}

// Pin protects the revision a query names from compression.
func (m *Manager) Pin(ctx context.Context, query string) (model.Revision, error) {
	return m.setPinned(ctx, query, true)
}

// Unpin removes the protection Pin adds.
func (m *Manager) Unpin(ctx context.Context, query string) (model.Revision, error) {
	return m.setPinned(ctx, query, false)
}

func (m *Manager) setPinned(ctx context.Context, query string, pinned bool) (model.Revision, error) {
	revision, err := m.Resolve(ctx, query)
	if err != nil {
		return model.Revision{}, err
	}
	if err := m.store.Apply("revision", store.SetRevisionPinned{Revision: revision.ID, Pinned: pinned}); err != nil {
		return model.Revision{}, fmt.Errorf("revision: pinning %s: %w", revision.ID.Short(), err)
	}
	revision.Pinned = pinned
	m.logger.Info("revision pin changed", "revision", revision.ID.Short(), "pinned", pinned)
	return revision, nil
}

// Stats describes the content database and blob cache.
type Stats struct {
	Revisions int
	Pinned    int
	Stable    int
	// Rows maps each table to its row count.
	Rows map[string]int64
	// DatabaseBytes is the size of the database file and its WAL.
	DatabaseBytes int64
	Blobs         blobcache.Stats
}

// Stat reports database and cache statistics.
func (m *Manager) Stat(ctx context.Context) (Stats, error) {
	var stats Stats
	err := m.store.Read(ctx, func(conn *sqlite.Conn) error {
		revisions, err := store.Revisions(conn)
		if err != nil {
			return err
		}
		stats.Revisions = len(revisions)
		for _, revision := range revisions {
			if revision.Pinned {
				stats.Pinned++
			}
			if revision.Stable {
				stats.Stable++
			}
		}
		stats.Rows, err = store.TableCounts(conn)
		return err
	})
	if err != nil {
		return Stats{}, err
	}

	for _, suffix := range []string{"", "-wal"} {
		if info, err := os.Stat(m.store.Path() + suffix); err == nil {
			stats.DatabaseBytes += info.Size()
		}
	}
	if stats.Blobs, err = m.cache.Stats(); err != nil {
		return Stats{}, fmt.Errorf("revision: cache stats: %w", err)
	}
	return stats, nil
}

// ClearResult reports what Clear removed.
type ClearResult struct {
	Rows  map[string]int64
	Blobs int
}

// Clear drops every row of every table and empties the blob cache,
// ignoring pins.
func (m *Manager) Clear(ctx context.Context) (ClearResult, error) {
	if err := ctx.Err(); err != nil {
		return ClearResult{}, err
	}
	w, err := m.store.NewWriter("clear")
	if err != nil {
		return ClearResult{}, err
	}
	var cleared store.ClearResult
	if err := sendAll(w, store.Clear{Result: &cleared}, store.Vacuum{}); err != nil {
		w.Finalize()
		return ClearResult{}, err
	}
	if err := store.Flush(w); err != nil {
		w.Finalize()
		return ClearResult{}, fmt.Errorf("revision: clearing database: %w", err)
	}

	// The writer stays open so no build in this process interns new
	// blobs while the cache is emptied.
	blobs, clearErr := m.cache.Clear()
	if err := w.Finalize(); err != nil {
		return ClearResult{}, fmt.Errorf("revision: clearing database: %w", err)
	}
	if clearErr != nil {
		return ClearResult{}, fmt.Errorf("revision: clearing blob cache: %w", clearErr)
	}
	m.logger.Info("content database cleared", "blobs", blobs)
	return ClearResult{Rows: cleared.Rows, Blobs: blobs}, nil
}
