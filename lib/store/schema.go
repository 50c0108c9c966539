// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// SchemaVersion is written to PRAGMA user_version by Migrate.
const SchemaVersion = 1

// Tables lists every table Migrate creates, in creation order.
var Tables = []string{
	"input_files",
	"revisions",
	"revision_files",
	"dependencies",
	"pages",
	"templates",
	"output",
	"routes",
}

const schema = `
CREATE TABLE IF NOT EXISTS input_files (
	id             TEXT PRIMARY KEY,
	content_hash   TEXT NOT NULL,
	path           TEXT NOT NULL,
	extension      TEXT,
	is_inline      INTEGER NOT NULL,
	inline_content TEXT
) WITHOUT ROWID;
CREATE INDEX IF NOT EXISTS input_files_content_hash ON input_files (content_hash);

CREATE TABLE IF NOT EXISTS revisions (
	id         TEXT PRIMARY KEY,
	name       TEXT UNIQUE,
	created_at INTEGER NOT NULL,
	built_at   INTEGER NOT NULL,
	pinned     INTEGER NOT NULL DEFAULT 0,
	stable     INTEGER NOT NULL DEFAULT 0
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS revision_files (
	revision_id TEXT NOT NULL,
	file_id     TEXT NOT NULL,
	PRIMARY KEY (revision_id, file_id)
) WITHOUT ROWID;
CREATE INDEX IF NOT EXISTS revision_files_file ON revision_files (file_id);

CREATE TABLE IF NOT EXISTS dependencies (
	relation INTEGER NOT NULL,
	parent   TEXT NOT NULL,
	child    TEXT NOT NULL,
	PRIMARY KEY (parent, relation, child)
) WITHOUT ROWID;
CREATE INDEX IF NOT EXISTS dependencies_child ON dependencies (child);

CREATE TABLE IF NOT EXISTS pages (
	id          TEXT PRIMARY KEY,
	path        TEXT NOT NULL,
	template    TEXT,
	body_offset INTEGER NOT NULL,
	title       TEXT,
	draft       INTEGER NOT NULL DEFAULT 0,
	dynamic     INTEGER NOT NULL DEFAULT 0,
	aliases     BLOB,
	tags        BLOB,
	attributes  BLOB
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS templates (
	revision_id   TEXT NOT NULL,
	name          TEXT NOT NULL,
	file_id       TEXT NOT NULL,
	templating_id TEXT NOT NULL,
	PRIMARY KEY (revision_id, name)
) WITHOUT ROWID;
CREATE INDEX IF NOT EXISTS templates_templating_id ON templates (templating_id);

CREATE TABLE IF NOT EXISTS output (
	id      TEXT PRIMARY KEY,
	kind    INTEGER NOT NULL,
	content TEXT NOT NULL
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS routes (
	revision_id  TEXT NOT NULL,
	file_id      TEXT NOT NULL,
	route        TEXT NOT NULL,
	parent_route TEXT,
	kind         INTEGER NOT NULL,
	PRIMARY KEY (revision_id, route)
) WITHOUT ROWID;
`

// Migrate creates any missing tables and records the schema version.
// It is idempotent and is used as the OnConnect hook of the write
// connection.
func Migrate(conn *sqlite.Conn) error {
	version, err := userVersion(conn)
	if err != nil {
		return err
	}
	if version > SchemaVersion {
		return fmt.Errorf("store: database schema version %d is newer than supported version %d", version, SchemaVersion)
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("store: creating schema: %w", err)
	}
	if version < SchemaVersion {
		if err := sqlitex.ExecuteTransient(conn, fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion), nil); err != nil {
			return fmt.Errorf("store: recording schema version: %w", err)
		}
	}
	return nil
}

func userVersion(conn *sqlite.Conn) (int, error) {
	var version int
	err := sqlitex.ExecuteTransient(conn, "PRAGMA user_version", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			version = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("store: reading schema version: %w", err)
	}
	return version, nil
}

// dropSchema drops every table. Callers run Migrate afterwards.
func dropSchema(conn *sqlite.Conn) error {
	for _, table := range Tables {
		if err := sqlitex.ExecuteTransient(conn, "DROP TABLE IF EXISTS "+table, nil); err != nil {
			return fmt.Errorf("store: dropping %s: %w", table, err)
		}
	}
	return nil
}
