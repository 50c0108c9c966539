// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package depgraph

import (
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/ftl/lib/digest"
	"github.com/bureau-foundation/ftl/lib/model"
	"github.com/bureau-foundation/ftl/lib/store"
)

// DirectDependentsOf returns every edge whose child is child: the
// artifacts built directly from it.
func DirectDependentsOf(conn *sqlite.Conn, child digest.Hash) ([]model.Edge, error) {
	return queryEdges(conn,
		`SELECT relation, parent, child FROM dependencies WHERE child = ? ORDER BY parent, relation`,
		child.String())
}

// DirectDependenciesOf returns every edge whose parent is parent.
func DirectDependenciesOf(conn *sqlite.Conn, parent digest.Hash) ([]model.Edge, error) {
	return queryEdges(conn,
		`SELECT relation, parent, child FROM dependencies WHERE parent = ? ORDER BY relation, child`,
		parent.String())
}

// TransitiveDependenciesOf returns every node reachable from unit by
// following edges from parent to child, breadth first, at most
// maxDepth steps deep. A PageTemplate edge ends at a templating ID;
// the walk steps from it to the template files recorded with that ID
// in any revision and continues along their Intertemplate edges. unit
// itself is not included unless a cycle leads back to it. maxDepth <= 0
// means DefaultMaxDepth.
func TransitiveDependenciesOf(conn *sqlite.Conn, unit digest.Hash, maxDepth int) ([]digest.Hash, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	seen := map[digest.Hash]bool{}
	var reached []digest.Hash
	frontier := []digest.Hash{unit}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []digest.Hash
		for _, node := range frontier {
			children, err := childrenOf(conn, node)
			if err != nil {
				return nil, err
			}
			for _, child := range children {
				if seen[child] {
					continue
				}
				seen[child] = true
				reached = append(reached, child)
				next = append(next, child)
			}
		}
		frontier = next
	}
	return reached, nil
}

// childrenOf returns the edge children of node followed by the
// template files whose templating ID is node.
func childrenOf(conn *sqlite.Conn, node digest.Hash) ([]digest.Hash, error) {
	edges, err := DirectDependenciesOf(conn, node)
	if err != nil {
		return nil, err
	}
	children := make([]digest.Hash, 0, len(edges))
	for _, edge := range edges {
		children = append(children, edge.Child)
	}
	err = sqlitex.Execute(conn,
		`SELECT DISTINCT file_id FROM templates WHERE templating_id = ? ORDER BY file_id`,
		&sqlitex.ExecOptions{
			Args: []any{node.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				file, err := store.ColumnHash(stmt, 0)
				if err != nil {
					return err
				}
				children = append(children, file)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("depgraph: template files of %s: %w", node.Short(), err)
	}
	return children, nil
}

func queryEdges(conn *sqlite.Conn, query string, args ...any) ([]model.Edge, error) {
	var edges []model.Edge
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			parent, err := store.ColumnHash(stmt, 1)
			if err != nil {
				return err
			}
			child, err := store.ColumnHash(stmt, 2)
			if err != nil {
				return err
			}
			edges = append(edges, model.Edge{
				Relation: model.Relation(stmt.ColumnInt(0)),
				Parent:   parent,
				Child:    child,
			})
			return nil
		},
	})
	return edges, err
}
