// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package staleness

import (
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/ftl/lib/digest"
	"github.com/bureau-foundation/ftl/lib/model"
	"github.com/bureau-foundation/ftl/lib/store"
)

// Reason says why a unit is stale.
type Reason int

const (
	// Current means the unit's output can be reused.
	Current Reason = iota
	// NeverBuilt means the unit has no output and no edges.
	NeverBuilt
	// ChangedDependency means an edge points outside the revision.
	ChangedDependency
	// Dynamic means the page asks to be rendered on every build.
	Dynamic
)

func (r Reason) String() string {
	switch r {
	case Current:
		return "current"
	case NeverBuilt:
		return "never built"
	case ChangedDependency:
		return "changed dependency"
	case Dynamic:
		return "dynamic"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// Unit is one render unit of a revision.
type Unit struct {
	ID     digest.Hash
	Route  string
	Kind   model.RouteKind
	Reason Reason
}

// Stale reports whether the unit must be rendered.
func (u Unit) Stale() bool {
	return u.Reason != Current
}

// Classify returns every render unit of revision with the reason it is
// stale, or Current. Units are ordered by route.
func Classify(conn *sqlite.Conn, revision digest.Hash) ([]Unit, error) {
	var units []Unit
	err := sqlitex.Execute(conn, `
		SELECT r.file_id, r.route, r.kind,
			EXISTS (SELECT 1 FROM output o WHERE o.id = r.file_id),
			EXISTS (SELECT 1 FROM dependencies d WHERE d.parent = r.file_id),
			EXISTS (SELECT 1 FROM dependencies d
				WHERE d.parent = r.file_id
				  AND d.child NOT IN (SELECT f.file_id FROM revision_files f WHERE f.revision_id = ?1)
				  AND d.child NOT IN (SELECT t.templating_id FROM templates t WHERE t.revision_id = ?1)),
			COALESCE((SELECT p.dynamic FROM pages p WHERE p.id = r.file_id), 0)
		FROM routes r
		WHERE r.revision_id = ?1 AND r.kind IN (?2, ?3)
		ORDER BY r.route`,
		&sqlitex.ExecOptions{
			Args: []any{revision.String(), int(model.RoutePage), int(model.RouteStylesheet)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				id, err := store.ColumnHash(stmt, 0)
				if err != nil {
					return err
				}
				unit := Unit{
					ID:    id,
					Route: stmt.ColumnText(1),
					Kind:  model.RouteKind(stmt.ColumnInt(2)),
				}
				hasOutput := stmt.ColumnInt(3) != 0
				hasEdges := stmt.ColumnInt(4) != 0
				switch {
				case !hasOutput && !hasEdges:
					unit.Reason = NeverBuilt
				case stmt.ColumnInt(5) != 0:
					unit.Reason = ChangedDependency
				case stmt.ColumnInt(6) != 0:
					unit.Reason = Dynamic
				}
				units = append(units, unit)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("staleness: classifying units of %s: %w", revision.Short(), err)
	}
	return units, nil
}

// UnitsNeedingRebuild returns the stale render units of revision,
// ordered by route.
func UnitsNeedingRebuild(conn *sqlite.Conn, revision digest.Hash) ([]Unit, error) {
	units, err := Classify(conn, revision)
	if err != nil {
		return nil, err
	}
	stale := units[:0]
	for _, unit := range units {
		if unit.Stale() {
			stale = append(stale, unit)
		}
	}
	return stale, nil
}
