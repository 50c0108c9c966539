// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package revision

import (
	"context"
	"fmt"
	"strconv"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/ftl/lib/digest"
	"github.com/bureau-foundation/ftl/lib/model"
	"github.com/bureau-foundation/ftl/lib/store"
)

// CompressResult reports what Compress removed.
type CompressResult struct {
	// Kept lists the revision ids that survived.
	Kept []string
	// Rows maps each table to the number of rows deleted from it.
	Rows map[string]int64
	// Blobs is the number of cached blobs removed.
	Blobs int
}

// Compress deletes every revision that is neither pinned nor the most
// recent stable one, then everything only those revisions reached.
func (m *Manager) Compress(ctx context.Context) (CompressResult, error) {
	if err := ctx.Err(); err != nil {
		return CompressResult{}, err
	}
	w, err := m.store.NewWriter("compress")
	if err != nil {
		return CompressResult{}, err
	}
	result := CompressResult{Rows: make(map[string]int64)}
	if err := sendAll(w, sweepRows{result: &result}, store.Vacuum{}); err != nil {
		w.Finalize()
		return CompressResult{}, err
	}
	if err := store.Flush(w); err != nil {
		w.Finalize()
		return CompressResult{}, fmt.Errorf("revision: compressing database: %w", err)
	}

	// Blobs are swept with the writer still held so no build in this
	// process interns a blob between the reference query and removal.
	blobs, sweepErr := m.sweepBlobs(ctx)
	if err := w.Finalize(); err != nil {
		return CompressResult{}, fmt.Errorf("revision: compressing database: %w", err)
	}
	if sweepErr != nil {
		return CompressResult{}, fmt.Errorf("revision: sweeping blob cache: %w", sweepErr)
	}
	result.Blobs = blobs

	m.logger.Info("content database compressed",
		"kept", len(result.Kept),
		"revisions_removed", result.Rows["revisions"],
		"blobs_removed", blobs,
	)
	return result, nil
}

func (m *Manager) sweepBlobs(ctx context.Context) (int, error) {
	var referenced map[digest.Hash]struct{}
	err := m.store.Read(ctx, func(conn *sqlite.Conn) error {
		var err error
		referenced, err = store.ReferencedBlobs(conn)
		return err
	})
	if err != nil {
		return 0, err
	}

	cached, err := m.cache.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, hash := range cached {
		if _, ok := referenced[hash]; ok {
			continue
		}
		if err := m.cache.Remove(hash); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// sweepRows is the database half of Compress. It runs inside the
// writer's transaction so the kept set cannot change under it.
type sweepRows struct {
	result *CompressResult
}

// sweepStatements run in order. Each deletes rows no longer reachable
// from the rows the previous statements left.
var sweepStatements = []struct {
	table string
	query string
}{
	{"revision_files", `DELETE FROM revision_files WHERE revision_id NOT IN (SELECT id FROM temp.compress_keep)`},
	{"routes", `DELETE FROM routes WHERE revision_id NOT IN (SELECT id FROM temp.compress_keep)`},
	{"templates", `DELETE FROM templates WHERE revision_id NOT IN (SELECT id FROM temp.compress_keep)`},
	{"revisions", `DELETE FROM revisions WHERE id NOT IN (SELECT id FROM temp.compress_keep)`},
	{"input_files", `DELETE FROM input_files WHERE id NOT IN (SELECT file_id FROM revision_files)`},
	{"pages", `DELETE FROM pages WHERE id NOT IN (SELECT id FROM input_files)`},
	{"output", `DELETE FROM output WHERE id NOT IN (SELECT file_id FROM routes)`},
	// A render unit's edges go with its output: edges without output
	// classify the unit as current. Intertemplate edges hang off
	// template files, which have no route.
	{"dependencies", `DELETE FROM dependencies
		WHERE (relation != ` + strconv.Itoa(int(model.Intertemplate)) + ` AND parent NOT IN (SELECT file_id FROM routes))
		   OR (relation = ` + strconv.Itoa(int(model.Intertemplate)) + ` AND parent NOT IN (SELECT id FROM input_files))`},
}

func (m sweepRows) Apply(conn *sqlite.Conn) error {
	keep, err := keptRevisions(conn)
	if err != nil {
		return err
	}

	if err := sqlitex.ExecuteScript(conn, `
		CREATE TEMP TABLE IF NOT EXISTS compress_keep (id TEXT PRIMARY KEY);
		DELETE FROM temp.compress_keep;`, nil); err != nil {
		return fmt.Errorf("preparing kept set: %w", err)
	}
	for _, id := range keep {
		if err := sqlitex.Execute(conn, `INSERT INTO temp.compress_keep (id) VALUES (?)`,
			&sqlitex.ExecOptions{Args: []any{id}}); err != nil {
			return err
		}
	}

	for _, statement := range sweepStatements {
		if err := sqlitex.ExecuteTransient(conn, statement.query, nil); err != nil {
			return fmt.Errorf("sweeping %s: %w", statement.table, err)
		}
		m.result.Rows[statement.table] += int64(conn.Changes())
	}
	if err := sqlitex.ExecuteTransient(conn, `DROP TABLE temp.compress_keep`, nil); err != nil {
		return err
	}
	m.result.Kept = keep
	return nil
}

// keptRevisions returns the ids of every pinned revision plus the most
// recently built stable one, or the most recently built one when none
// is stable.
func keptRevisions(conn *sqlite.Conn) ([]string, error) {
	revisions, err := store.Revisions(conn)
	if err != nil {
		return nil, err
	}
	var latest, latestStable *model.Revision
	var keep []string
	for i := range revisions {
		revision := &revisions[i]
		if latest == nil {
			latest = revision
		}
		if latestStable == nil && revision.Stable {
			latestStable = revision
		}
		if revision.Pinned {
			keep = append(keep, revision.ID.String())
		}
	}
	current := latestStable
	if current == nil {
		current = latest
	}
	if current != nil && !current.Pinned {
		keep = append(keep, current.ID.String())
	}
	return keep, nil
}

func sendAll(w *store.Writer, messages ...store.Message) error {
	for _, message := range messages {
		if err := w.Send(message); err != nil {
			return err
		}
	}
	return nil
}
