// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/ftl/lib/codec"
	"github.com/bureau-foundation/ftl/lib/digest"
	"github.com/bureau-foundation/ftl/lib/model"
)

// Commit ends the writer's open transaction.
type Commit struct{}

func (Commit) Apply(*sqlite.Conn) error { return nil }

// Vacuum commits any open transaction and runs VACUUM outside it.
type Vacuum struct{}

func (Vacuum) Apply(conn *sqlite.Conn) error {
	return sqlitex.ExecuteTransient(conn, "VACUUM", nil)
}

// InsertInputFile records an interned file. Re-inserting an existing
// (content, path) pair is a no-op.
type InsertInputFile struct {
	File model.InputFile
}

func (m InsertInputFile) Apply(conn *sqlite.Conn) error {
	var content any
	if m.File.Content != nil {
		content = *m.File.Content
	}
	return sqlitex.Execute(conn,
		`INSERT OR IGNORE INTO input_files (id, content_hash, path, extension, is_inline, inline_content)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			m.File.ID.String(),
			m.File.ContentHash.String(),
			m.File.Path,
			nullable(m.File.Extension),
			boolInt(m.File.Inline),
			content,
		}})
}

// CreateRevision records a revision. For an existing revision only
// built_at moves.
type CreateRevision struct {
	ID digest.Hash
	At time.Time
}

func (m CreateRevision) Apply(conn *sqlite.Conn) error {
	return sqlitex.Execute(conn,
		`INSERT INTO revisions (id, created_at, built_at) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET built_at = excluded.built_at`,
		&sqlitex.ExecOptions{Args: []any{m.ID.String(), m.At.UnixNano(), m.At.UnixNano()}})
}

// AddToRevision records one member file of a revision.
type AddToRevision struct {
	Revision digest.Hash
	File     digest.Hash
}

func (m AddToRevision) Apply(conn *sqlite.Conn) error {
	return sqlitex.Execute(conn,
		`INSERT OR IGNORE INTO revision_files (revision_id, file_id) VALUES (?, ?)`,
		&sqlitex.ExecOptions{Args: []any{m.Revision.String(), m.File.String()}})
}

// CommitRevision marks the end of a revision's membership and commits
// the open transaction.
type CommitRevision struct {
	Revision digest.Hash
}

func (m CommitRevision) Apply(conn *sqlite.Conn) error {
	if exists, err := rowExists(conn, `SELECT 1 FROM revisions WHERE id = ?`, m.Revision.String()); err != nil {
		return err
	} else if !exists {
		return fmt.Errorf("revision %s was never created", m.Revision.Short())
	}
	return nil
}

// MarkStable records that every unit of a revision built cleanly.
type MarkStable struct {
	Revision digest.Hash
}

func (m MarkStable) Apply(conn *sqlite.Conn) error {
	return updateRevision(conn, m.Revision, `UPDATE revisions SET stable = 1 WHERE id = ?`, m.Revision.String())
}

// SetRevisionName names a revision. An empty name clears it.
type SetRevisionName struct {
	Revision digest.Hash
	Name     string
}

func (m SetRevisionName) Apply(conn *sqlite.Conn) error {
	return updateRevision(conn, m.Revision, `UPDATE revisions SET name = ? WHERE id = ?`,
		nullable(m.Name), m.Revision.String())
}

// SetRevisionPinned pins or unpins a revision.
type SetRevisionPinned struct {
	Revision digest.Hash
	Pinned   bool
}

func (m SetRevisionPinned) Apply(conn *sqlite.Conn) error {
	return updateRevision(conn, m.Revision, `UPDATE revisions SET pinned = ? WHERE id = ?`,
		boolInt(m.Pinned), m.Revision.String())
}

// InsertPage records or replaces the parsed frontmatter of a page.
type InsertPage struct {
	Page model.Page
}

func (m InsertPage) Apply(conn *sqlite.Conn) error {
	aliases, err := marshalStrings(m.Page.Aliases)
	if err != nil {
		return fmt.Errorf("encoding aliases of %s: %w", m.Page.Path, err)
	}
	tags, err := marshalStrings(m.Page.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags of %s: %w", m.Page.Path, err)
	}
	attributes, err := codec.MarshalAttributes(m.Page.Attributes)
	if err != nil {
		return fmt.Errorf("encoding attributes of %s: %w", m.Page.Path, err)
	}
	return sqlitex.Execute(conn,
		`INSERT OR REPLACE INTO pages (id, path, template, body_offset, title, draft, dynamic, aliases, tags, attributes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			m.Page.ID.String(),
			m.Page.Path,
			nullable(m.Page.Template),
			m.Page.Offset,
			nullable(m.Page.Title),
			boolInt(m.Page.Draft),
			boolInt(m.Page.Dynamic),
			aliases,
			tags,
			attributes,
		}})
}

// ReplaceTemplates sets the full template table of a revision.
type ReplaceTemplates struct {
	Revision  digest.Hash
	Templates []model.Template
}

func (m ReplaceTemplates) Apply(conn *sqlite.Conn) error {
	if err := sqlitex.Execute(conn, `DELETE FROM templates WHERE revision_id = ?`,
		&sqlitex.ExecOptions{Args: []any{m.Revision.String()}}); err != nil {
		return err
	}
	for _, template := range m.Templates {
		err := sqlitex.Execute(conn,
			`INSERT INTO templates (revision_id, name, file_id, templating_id) VALUES (?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				m.Revision.String(),
				template.Name,
				template.FileID.String(),
				template.TemplatingID.String(),
			}})
		if err != nil {
			return fmt.Errorf("template %s: %w", template.Name, err)
		}
	}
	return nil
}

// ReplaceOutput stores the latest render of a unit.
type ReplaceOutput struct {
	Output model.Output
}

func (m ReplaceOutput) Apply(conn *sqlite.Conn) error {
	return sqlitex.Execute(conn,
		`INSERT OR REPLACE INTO output (id, kind, content) VALUES (?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{m.Output.ID.String(), int(m.Output.Kind), m.Output.Content}})
}

// ReplaceRoutes sets the full route table of a revision.
type ReplaceRoutes struct {
	Revision digest.Hash
	Routes   []model.Route
}

func (m ReplaceRoutes) Apply(conn *sqlite.Conn) error {
	if err := sqlitex.Execute(conn, `DELETE FROM routes WHERE revision_id = ?`,
		&sqlitex.ExecOptions{Args: []any{m.Revision.String()}}); err != nil {
		return err
	}
	for _, route := range m.Routes {
		err := sqlitex.Execute(conn,
			`INSERT INTO routes (revision_id, file_id, route, parent_route, kind) VALUES (?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				m.Revision.String(),
				route.FileID.String(),
				route.Route,
				nullable(route.ParentRoute),
				int(route.Kind),
			}})
		if err != nil {
			return fmt.Errorf("route %q: %w", route.Route, err)
		}
	}
	return nil
}

// ClearResult reports what Clear removed.
type ClearResult struct {
	// Rows maps each table to the number of rows it held.
	Rows map[string]int64
}

// Clear drops and recreates every table. Result is filled in when the
// message is applied.
type Clear struct {
	Result *ClearResult
}

func (m Clear) Apply(conn *sqlite.Conn) error {
	counts, err := TableCounts(conn)
	if err != nil {
		return err
	}
	if err := dropSchema(conn); err != nil {
		return err
	}
	if err := Migrate(conn); err != nil {
		return err
	}
	if m.Result != nil {
		m.Result.Rows = counts
	}
	return nil
}

func updateRevision(conn *sqlite.Conn, revision digest.Hash, query string, args ...any) error {
	if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args}); err != nil {
		return err
	}
	if conn.Changes() == 0 {
		return fmt.Errorf("revision %s does not exist", revision.Short())
	}
	return nil
}

func rowExists(conn *sqlite.Conn, query string, args ...any) (bool, error) {
	found := false
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(*sqlite.Stmt) error {
			found = true
			return nil
		},
	})
	return found, err
}

func marshalStrings(values []string) ([]byte, error) {
	if len(values) == 0 {
		return nil, nil
	}
	return codec.Marshal(values)
}

// nullable binds the empty string as NULL.
func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
