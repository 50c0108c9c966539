// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/ftl/lib/blobcache"
	"github.com/bureau-foundation/ftl/lib/config"
	"github.com/bureau-foundation/ftl/lib/contentstore"
	"github.com/bureau-foundation/ftl/lib/revision"
	"github.com/bureau-foundation/ftl/lib/store"
)

// SiteParams is embedded in parameter structs of commands that work on
// a site's content database.
type SiteParams struct {
	Site       string `json:"-" flag:"site" desc:"site root directory" default:"."`
	ConfigFile string `json:"-" flag:"config" desc:"configuration file (default: ftl.yaml in the site root, or $FTL_CONFIG)"`
}

// Site is an opened site: its configuration, content database and
// content store.
type Site struct {
	Config  *config.Config
	Store   *store.Store
	Content *contentstore.Store
}

// Open loads the site configuration and opens its state, creating the
// state directories on first use. The caller must Close the site.
func (p SiteParams) Open(logger *slog.Logger) (*Site, error) {
	cfg, err := config.Load(p.Site, p.ConfigFile)
	if err != nil {
		return nil, Validation("%w", err)
	}
	if err := cfg.EnsureStateDirs(); err != nil {
		return nil, err
	}

	cache, err := blobcache.Open(blobcache.Config{
		Dir:    cfg.CacheDir(),
		Policy: blobcache.Policy(cfg.Content.Compression),
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	content, err := contentstore.New(contentstore.Config{
		Cache:            cache,
		InlineExtensions: cfg.Content.InlineExtensions,
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}
	s, err := store.Open(store.Config{
		Path:         cfg.DatabasePath(),
		ReadPoolSize: cfg.Database.ReadPoolSize,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", cfg.DatabasePath(), err)
	}
	logger.Debug("site opened", "site", cfg.Site, "state", cfg.Paths.State)
	return &Site{Config: cfg, Store: s, Content: content}, nil
}

// Revisions returns a revision manager for the site.
func (s *Site) Revisions(logger *slog.Logger) (*revision.Manager, error) {
	return revision.New(revision.Config{Store: s.Store, Content: s.Content, Logger: logger})
}

// Close closes the content database.
func (s *Site) Close() error {
	return s.Store.Close()
}

// CloseSite closes site and joins a close failure into err. Commands
// call it deferred.
func CloseSite(site *Site, err *error) {
	if closeErr := site.Close(); closeErr != nil {
		*err = errors.Join(*err, fmt.Errorf("closing site: %w", closeErr))
	}
}
