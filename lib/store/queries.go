// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"fmt"
	"strings"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/ftl/lib/codec"
	"github.com/bureau-foundation/ftl/lib/digest"
	"github.com/bureau-foundation/ftl/lib/model"
)

const revisionColumns = `r.id, r.name, r.created_at, r.built_at, r.pinned, r.stable,
	(SELECT COUNT(*) FROM revision_files f WHERE f.revision_id = r.id)`

// Revisions lists every revision, most recently built first.
func Revisions(conn *sqlite.Conn) ([]model.Revision, error) {
	return queryRevisions(conn,
		`SELECT `+revisionColumns+` FROM revisions r ORDER BY r.built_at DESC, r.id`)
}

// RevisionByID returns the revision with the given id.
func RevisionByID(conn *sqlite.Conn, id digest.Hash) (model.Revision, bool, error) {
	return queryRevision(conn, `SELECT `+revisionColumns+` FROM revisions r WHERE r.id = ?`, id.String())
}

// RevisionByName returns the revision with the given name.
func RevisionByName(conn *sqlite.Conn, name string) (model.Revision, bool, error) {
	return queryRevision(conn, `SELECT `+revisionColumns+` FROM revisions r WHERE r.name = ?`, name)
}

// RevisionsByPrefix returns revisions whose hex id starts with prefix.
// prefix must be lowercase hex.
func RevisionsByPrefix(conn *sqlite.Conn, prefix string) ([]model.Revision, error) {
	if strings.Trim(prefix, "0123456789abcdef") != "" {
		return nil, fmt.Errorf("store: revision prefix %q is not lowercase hex", prefix)
	}
	return queryRevisions(conn,
		`SELECT `+revisionColumns+` FROM revisions r
		 WHERE substr(r.id, 1, ?) = ? ORDER BY r.built_at DESC, r.id`,
		len(prefix), prefix)
}

func queryRevision(conn *sqlite.Conn, query string, args ...any) (model.Revision, bool, error) {
	revisions, err := queryRevisions(conn, query, args...)
	if err != nil || len(revisions) == 0 {
		return model.Revision{}, false, err
	}
	return revisions[0], true, nil
}

func queryRevisions(conn *sqlite.Conn, query string, args ...any) ([]model.Revision, error) {
	var revisions []model.Revision
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			id, err := ColumnHash(stmt, 0)
			if err != nil {
				return err
			}
			revisions = append(revisions, model.Revision{
				ID:        id,
				Name:      stmt.ColumnText(1),
				CreatedAt: time.Unix(0, stmt.ColumnInt64(2)),
				BuiltAt:   time.Unix(0, stmt.ColumnInt64(3)),
				Pinned:    stmt.ColumnInt(4) != 0,
				Stable:    stmt.ColumnInt(5) != 0,
				Files:     stmt.ColumnInt(6),
			})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store: querying revisions: %w", err)
	}
	return revisions, nil
}

const inputFileColumns = `i.id, i.content_hash, i.path, i.extension, i.is_inline, i.inline_content`

// RevisionFiles returns the member files of a revision ordered by path.
func RevisionFiles(conn *sqlite.Conn, revision digest.Hash) ([]model.InputFile, error) {
	return queryInputFiles(conn,
		`SELECT `+inputFileColumns+` FROM revision_files f
		 JOIN input_files i ON i.id = f.file_id
		 WHERE f.revision_id = ? ORDER BY i.path`,
		revision.String())
}

// InputFile returns one input file by id.
func InputFile(conn *sqlite.Conn, id digest.Hash) (model.InputFile, bool, error) {
	files, err := queryInputFiles(conn, `SELECT `+inputFileColumns+` FROM input_files i WHERE i.id = ?`, id.String())
	if err != nil || len(files) == 0 {
		return model.InputFile{}, false, err
	}
	return files[0], true, nil
}

func queryInputFiles(conn *sqlite.Conn, query string, args ...any) ([]model.InputFile, error) {
	var files []model.InputFile
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			id, err := ColumnHash(stmt, 0)
			if err != nil {
				return err
			}
			contentHash, err := ColumnHash(stmt, 1)
			if err != nil {
				return err
			}
			file := model.InputFile{
				ID:          id,
				ContentHash: contentHash,
				Path:        stmt.ColumnText(2),
				Extension:   stmt.ColumnText(3),
				Inline:      stmt.ColumnInt(4) != 0,
			}
			if !stmt.ColumnIsNull(5) {
				content := stmt.ColumnText(5)
				file.Content = &content
			}
			files = append(files, file)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store: querying input files: %w", err)
	}
	return files, nil
}

const pageColumns = `p.id, p.path, p.template, p.body_offset, p.title, p.draft, p.dynamic, p.aliases, p.tags, p.attributes`

// PagesInRevision returns the parsed pages whose files are members of
// a revision, ordered by path.
func PagesInRevision(conn *sqlite.Conn, revision digest.Hash) ([]model.Page, error) {
	return queryPages(conn,
		`SELECT `+pageColumns+` FROM revision_files f
		 JOIN pages p ON p.id = f.file_id
		 WHERE f.revision_id = ? ORDER BY p.path`,
		revision.String())
}

func queryPages(conn *sqlite.Conn, query string, args ...any) ([]model.Page, error) {
	var pages []model.Page
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			id, err := ColumnHash(stmt, 0)
			if err != nil {
				return err
			}
			page := model.Page{
				ID:       id,
				Path:     stmt.ColumnText(1),
				Template: stmt.ColumnText(2),
				Offset:   stmt.ColumnInt(3),
				Title:    stmt.ColumnText(4),
				Draft:    stmt.ColumnInt(5) != 0,
				Dynamic:  stmt.ColumnInt(6) != 0,
			}
			if page.Aliases, err = columnStrings(stmt, 7); err != nil {
				return fmt.Errorf("aliases of %s: %w", page.Path, err)
			}
			if page.Tags, err = columnStrings(stmt, 8); err != nil {
				return fmt.Errorf("tags of %s: %w", page.Path, err)
			}
			if page.Attributes, err = codec.UnmarshalAttributes(columnBytes(stmt, 9)); err != nil {
				return fmt.Errorf("attributes of %s: %w", page.Path, err)
			}
			pages = append(pages, page)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store: querying pages: %w", err)
	}
	return pages, nil
}

// Templates returns the templates of a revision ordered by name.
func Templates(conn *sqlite.Conn, revision digest.Hash) ([]model.Template, error) {
	var templates []model.Template
	err := sqlitex.Execute(conn,
		`SELECT name, file_id, templating_id FROM templates WHERE revision_id = ? ORDER BY name`,
		&sqlitex.ExecOptions{
			Args: []any{revision.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				fileID, err := ColumnHash(stmt, 1)
				if err != nil {
					return err
				}
				templatingID, err := ColumnHash(stmt, 2)
				if err != nil {
					return err
				}
				templates = append(templates, model.Template{
					Revision:     revision,
					Name:         stmt.ColumnText(0),
					FileID:       fileID,
					TemplatingID: templatingID,
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("store: querying templates: %w", err)
	}
	return templates, nil
}

// Routes returns the routes of a revision ordered by route.
func Routes(conn *sqlite.Conn, revision digest.Hash) ([]model.Route, error) {
	var routes []model.Route
	err := sqlitex.Execute(conn,
		`SELECT file_id, route, parent_route, kind FROM routes WHERE revision_id = ? ORDER BY route`,
		&sqlitex.ExecOptions{
			Args: []any{revision.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				fileID, err := ColumnHash(stmt, 0)
				if err != nil {
					return err
				}
				routes = append(routes, model.Route{
					Revision:    revision,
					FileID:      fileID,
					Route:       stmt.ColumnText(1),
					ParentRoute: stmt.ColumnText(2),
					Kind:        model.RouteKind(stmt.ColumnInt(3)),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("store: querying routes: %w", err)
	}
	return routes, nil
}

// Output returns the last render of a unit.
func Output(conn *sqlite.Conn, id digest.Hash) (model.Output, bool, error) {
	var (
		output model.Output
		found  bool
	)
	err := sqlitex.Execute(conn, `SELECT kind, content FROM output WHERE id = ?`, &sqlitex.ExecOptions{
		Args: []any{id.String()},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			output = model.Output{
				ID:      id,
				Kind:    model.OutputKind(stmt.ColumnInt(0)),
				Content: stmt.ColumnText(1),
			}
			found = true
			return nil
		},
	})
	if err != nil {
		return model.Output{}, false, fmt.Errorf("store: querying output: %w", err)
	}
	return output, found, nil
}

// TableCounts returns the row count of every table.
func TableCounts(conn *sqlite.Conn) (map[string]int64, error) {
	counts := make(map[string]int64, len(Tables))
	for _, table := range Tables {
		err := sqlitex.ExecuteTransient(conn, "SELECT COUNT(*) FROM "+table, &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				counts[table] = stmt.ColumnInt64(0)
				return nil
			},
		})
		if err != nil {
			return nil, fmt.Errorf("store: counting %s: %w", table, err)
		}
	}
	return counts, nil
}

// ReferencedBlobs returns the content hashes of every out-of-line
// input file still in the database.
func ReferencedBlobs(conn *sqlite.Conn) (map[digest.Hash]struct{}, error) {
	referenced := make(map[digest.Hash]struct{})
	err := sqlitex.Execute(conn,
		`SELECT DISTINCT content_hash FROM input_files WHERE is_inline = 0`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				hash, err := ColumnHash(stmt, 0)
				if err != nil {
					return err
				}
				referenced[hash] = struct{}{}
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("store: querying blob references: %w", err)
	}
	return referenced, nil
}

// ColumnHash parses a hex identity column.
func ColumnHash(stmt *sqlite.Stmt, column int) (digest.Hash, error) {
	return digest.Parse(stmt.ColumnText(column))
}

func columnBytes(stmt *sqlite.Stmt, column int) []byte {
	if stmt.ColumnIsNull(column) {
		return nil
	}
	data := make([]byte, stmt.ColumnLen(column))
	stmt.ColumnBytes(column, data)
	return data
}

func columnStrings(stmt *sqlite.Stmt, column int) ([]string, error) {
	data := columnBytes(stmt, column)
	if len(data) == 0 {
		return nil, nil
	}
	var values []string
	if err := codec.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	return values, nil
}
