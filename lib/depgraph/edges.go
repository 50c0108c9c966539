// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package depgraph

import (
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/ftl/lib/digest"
	"github.com/bureau-foundation/ftl/lib/model"
)

// RecordEdge inserts one edge. Recording an existing edge is a no-op.
type RecordEdge struct {
	Edge model.Edge
}

func (m RecordEdge) Apply(conn *sqlite.Conn) error {
	return insertEdge(conn, m.Edge)
}

// ClearEdgesFor removes every edge whose parent is Parent.
type ClearEdgesFor struct {
	Parent digest.Hash
}

func (m ClearEdgesFor) Apply(conn *sqlite.Conn) error {
	return sqlitex.Execute(conn, `DELETE FROM dependencies WHERE parent = ?`,
		&sqlitex.ExecOptions{Args: []any{m.Parent.String()}})
}

// ReplaceEdges sets the edges of Parent to exactly Edges. Edges whose
// parent differs from Parent are rejected.
type ReplaceEdges struct {
	Parent digest.Hash
	Edges  []model.Edge
}

func (m ReplaceEdges) Apply(conn *sqlite.Conn) error {
	for _, edge := range m.Edges {
		if edge.Parent != m.Parent {
			return &ForeignEdgeError{Parent: m.Parent, Edge: edge}
		}
	}
	if err := (ClearEdgesFor{Parent: m.Parent}).Apply(conn); err != nil {
		return err
	}
	for _, edge := range m.Edges {
		if err := insertEdge(conn, edge); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceRelation sets the edges of one relation for a group of
// parents at once. Every parent in Parents or named by an edge loses
// its previous edges of that relation. Used for Intertemplate edges,
// which are recomputed together.
type ReplaceRelation struct {
	Relation model.Relation
	Parents  []digest.Hash
	Edges    []model.Edge
}

func (m ReplaceRelation) Apply(conn *sqlite.Conn) error {
	parents := make(map[digest.Hash]bool)
	for _, parent := range m.Parents {
		parents[parent] = true
	}
	for _, edge := range m.Edges {
		parents[edge.Parent] = true
	}
	for parent := range parents {
		err := sqlitex.Execute(conn, `DELETE FROM dependencies WHERE parent = ? AND relation = ?`,
			&sqlitex.ExecOptions{Args: []any{parent.String(), int(m.Relation)}})
		if err != nil {
			return err
		}
	}
	for _, edge := range m.Edges {
		edge.Relation = m.Relation
		if err := insertEdge(conn, edge); err != nil {
			return err
		}
	}
	return nil
}

// ForeignEdgeError is returned by ReplaceEdges for an edge that does
// not belong to the parent being replaced.
type ForeignEdgeError struct {
	Parent digest.Hash
	Edge   model.Edge
}

func (e *ForeignEdgeError) Error() string {
	return "depgraph: edge " + e.Edge.Parent.Short() + " -> " + e.Edge.Child.Short() +
		" does not belong to parent " + e.Parent.Short()
}

func insertEdge(conn *sqlite.Conn, edge model.Edge) error {
	return sqlitex.Execute(conn,
		`INSERT OR IGNORE INTO dependencies (relation, parent, child) VALUES (?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{int(edge.Relation), edge.Parent.String(), edge.Child.String()}})
}
