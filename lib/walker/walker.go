// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package walker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/ftl/lib/clock"
	"github.com/bureau-foundation/ftl/lib/contentstore"
	"github.com/bureau-foundation/ftl/lib/digest"
	"github.com/bureau-foundation/ftl/lib/model"
	"github.com/bureau-foundation/ftl/lib/store"
)

// WalkError reports one file or directory the walk had to skip.
type WalkError struct {
	// Path is slash separated and relative to the source root.
	Path string
	Err  error
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("walker: %s: %v", e.Path, e.Err)
}

func (e *WalkError) Unwrap() error { return e.Err }

// Config holds the parameters of a walk.
type Config struct {
	// Root is the source directory.
	Root string

	// Content interns file bytes. Required.
	Content *contentstore.Store

	// Writer receives the rows. Required.
	Writer *store.Writer

	// Workers bounds concurrent directory tasks. Default:
	// runtime.NumCPU().
	Workers int

	// Clock stamps the revision. Default: clock.Real().
	Clock clock.Clock

	// Logger receives progress messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// Result describes a finished walk.
type Result struct {
	// Revision is the identity of the walked input set.
	Revision digest.Hash
	// Files are the interned member files, ordered by path.
	Files []model.InputFile
	// Failures lists the files and directories left out.
	Failures []*WalkError
}

// Err joins the failures, or returns nil for a clean walk.
func (r Result) Err() error {
	errs := make([]error, len(r.Failures))
	for i, failure := range r.Failures {
		errs[i] = failure
	}
	return errors.Join(errs...)
}

type walk struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	total    digest.Accumulator
	files    []model.InputFile
	failures []*WalkError
}

// Walk traverses cfg.Root and records it as a revision. The returned
// error is non-nil only when the walk could not run at all (missing
// root, cancelled context, closed writer); per-file problems are in
// Result.Failures.
func Walk(ctx context.Context, cfg Config) (Result, error) {
	if cfg.Content == nil || cfg.Writer == nil {
		return Result{}, fmt.Errorf("walker: Content and Writer are required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	info, err := os.Stat(cfg.Root)
	if err != nil {
		return Result{}, fmt.Errorf("walker: source root: %w", err)
	}
	if !info.IsDir() {
		return Result{}, fmt.Errorf("walker: source root %s is not a directory", cfg.Root)
	}

	w := &walk{cfg: cfg, logger: logger}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(cfg.Workers)
	group.Go(func() error {
		return w.directory(groupCtx, group, "")
	})
	if err := group.Wait(); err != nil {
		return Result{}, err
	}

	slices.SortFunc(w.files, func(a, b model.InputFile) int {
		return strings.Compare(a.Path, b.Path)
	})
	slices.SortFunc(w.failures, func(a, b *WalkError) int {
		return strings.Compare(a.Path, b.Path)
	})

	result := Result{
		Revision: w.total.Revision(),
		Files:    w.files,
		Failures: w.failures,
	}
	if err := w.record(result); err != nil {
		return Result{}, err
	}

	logger.Info("walk complete",
		"revision", result.Revision.Short(),
		"files", len(result.Files),
		"failures", len(result.Failures),
	)
	return result, nil
}

// record sends the revision membership after traversal.
func (w *walk) record(result Result) error {
	messages := make([]store.Message, 0, len(result.Files)+2)
	messages = append(messages, store.CreateRevision{ID: result.Revision, At: w.cfg.Clock.Now()})
	for _, file := range result.Files {
		messages = append(messages, store.AddToRevision{Revision: result.Revision, File: file.ID})
	}
	messages = append(messages, store.CommitRevision{Revision: result.Revision})
	for _, message := range messages {
		if err := w.cfg.Writer.Send(message); err != nil {
			return fmt.Errorf("walker: recording revision: %w", err)
		}
	}
	return nil
}

// directory processes one directory. Subdirectories run as new group
// tasks when a worker slot is free and inline otherwise.
func (w *walk) directory(ctx context.Context, group *errgroup.Group, relative string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := os.ReadDir(filepath.Join(w.cfg.Root, filepath.FromSlash(relative)))
	if err != nil {
		w.fail(relative, err)
		return nil
	}

	var (
		local digest.Accumulator
		files []model.InputFile
	)
	for _, entry := range entries {
		child := path.Join(relative, entry.Name())
		switch {
		case entry.IsDir():
			task := func() error { return w.directory(ctx, group, child) }
			if !group.TryGo(task) {
				if err := task(); err != nil {
					return err
				}
			}
		case entry.Type().IsRegular():
			file, err := w.file(child)
			if err != nil {
				w.fail(child, err)
				continue
			}
			if err := w.cfg.Writer.Send(store.InsertInputFile{File: file}); err != nil {
				return fmt.Errorf("walker: sending %s: %w", child, err)
			}
			local.Add(file.ID)
			files = append(files, file)
		default:
			w.logger.Debug("skipping non-regular file", "path", child, "mode", entry.Type().String())
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.total.Merge(local)
	w.files = append(w.files, files...)
	return nil
}

func (w *walk) file(relative string) (model.InputFile, error) {
	data, err := os.ReadFile(filepath.Join(w.cfg.Root, filepath.FromSlash(relative)))
	if err != nil {
		return model.InputFile{}, &contentstore.ContentError{Path: relative, Kind: contentstore.Unreadable, Err: err}
	}
	return w.cfg.Content.Intern(relative, data)
}

func (w *walk) fail(relative string, err error) {
	w.logger.Warn("skipping unreadable input", "path", relative, "error", err)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failures = append(w.failures, &WalkError{Path: relative, Err: err})
}
