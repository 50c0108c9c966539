// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package revision

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"zombiezen.com/go/sqlite"

	"github.com/bureau-foundation/ftl/lib/model"
	"github.com/bureau-foundation/ftl/lib/store"
)

// ExportResult reports what Export wrote.
type ExportResult struct {
	Revision model.Revision
	Files    int
	Bytes    int64
}

// Export reconstructs the input tree of the revision a query names
// under dir. dir must not exist or be empty.
func (m *Manager) Export(ctx context.Context, query, dir string) (ExportResult, error) {
	var (
		revision model.Revision
		files    []model.InputFile
	)
	err := m.store.Read(ctx, func(conn *sqlite.Conn) error {
		var err error
		if revision, err = resolve(conn, query); err != nil {
			return err
		}
		files, err = store.RevisionFiles(conn, revision.ID)
		return err
	})
	if err != nil {
		return ExportResult{}, err
	}

	if err := prepareExportDir(dir); err != nil {
		return ExportResult{}, err
	}

	result := ExportResult{Revision: revision}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !filepath.IsLocal(filepath.FromSlash(file.Path)) {
			return result, fmt.Errorf("revision: refusing to export non-local path %q", file.Path)
		}
		data, err := m.content.Read(file)
		if err != nil {
			return result, fmt.Errorf("revision: exporting %s: %w", file.Path, err)
		}
		target := filepath.Join(dir, filepath.FromSlash(file.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return result, fmt.Errorf("revision: exporting %s: %w", file.Path, err)
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return result, fmt.Errorf("revision: exporting %s: %w", file.Path, err)
		}
		result.Files++
		result.Bytes += int64(len(data))
	}
	m.logger.Info("revision exported",
		"revision", revision.ID.Short(),
		"dir", dir,
		"files", result.Files,
	)
	return result, nil
}

func prepareExportDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return os.MkdirAll(dir, 0o755)
	}
	if err != nil {
		return fmt.Errorf("revision: export directory: %w", err)
	}
	if len(entries) > 0 {
		return fmt.Errorf("revision: export directory %s is not empty", dir)
	}
	return nil
}
