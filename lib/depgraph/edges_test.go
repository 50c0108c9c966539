// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package depgraph_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"zombiezen.com/go/sqlite"

	"github.com/bureau-foundation/ftl/lib/depgraph"
	"github.com/bureau-foundation/ftl/lib/digest"
	"github.com/bureau-foundation/ftl/lib/model"
	"github.com/bureau-foundation/ftl/lib/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.Config{Path: filepath.Join(t.TempDir(), "content.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func node(name string) digest.Hash {
	return digest.Content([]byte(name))
}

func edge(relation model.Relation, parent, child string) model.Edge {
	return model.Edge{Relation: relation, Parent: node(parent), Child: node(child)}
}

func read[T any](t *testing.T, s *store.Store, fn func(conn *sqlite.Conn) (T, error)) T {
	t.Helper()
	var result T
	err := s.Read(context.Background(), func(conn *sqlite.Conn) error {
		var err error
		result, err = fn(conn)
		return err
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	return result
}

func TestReplaceEdgesDropsStaleEdges(t *testing.T) {
	s := openTestStore(t)
	err := s.Apply("test",
		depgraph.ReplaceEdges{Parent: node("page"), Edges: []model.Edge{
			edge(model.PageAsset, "page", "old.png"),
			edge(model.PageTemplate, "page", "tmpl"),
		}},
		depgraph.ReplaceEdges{Parent: node("page"), Edges: []model.Edge{
			edge(model.PageAsset, "page", "new.png"),
			edge(model.PageTemplate, "page", "tmpl"),
		}},
	)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	got := read(t, s, func(conn *sqlite.Conn) ([]model.Edge, error) {
		return depgraph.DirectDependenciesOf(conn, node("page"))
	})
	want := []model.Edge{
		edge(model.PageAsset, "page", "new.png"),
		edge(model.PageTemplate, "page", "tmpl"),
	}
	if !slices.Equal(got, want) {
		t.Fatalf("dependencies = %v, want %v", got, want)
	}
}

func TestReplaceEdgesRejectsForeignEdge(t *testing.T) {
	s := openTestStore(t)
	err := s.Apply("test", depgraph.ReplaceEdges{
		Parent: node("page"),
		Edges:  []model.Edge{edge(model.PageAsset, "other", "x")},
	})
	var foreign *depgraph.ForeignEdgeError
	if !errors.As(err, &foreign) {
		t.Fatalf("Apply = %v, want ForeignEdgeError", err)
	}
}

func TestRecordAndClearEdges(t *testing.T) {
	s := openTestStore(t)
	err := s.Apply("test",
		depgraph.RecordEdge{Edge: edge(model.PageAsset, "a", "logo")},
		depgraph.RecordEdge{Edge: edge(model.PageAsset, "a", "logo")},
		depgraph.RecordEdge{Edge: edge(model.PageAsset, "b", "logo")},
	)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	dependents := read(t, s, func(conn *sqlite.Conn) ([]model.Edge, error) {
		return depgraph.DirectDependentsOf(conn, node("logo"))
	})
	if len(dependents) != 2 {
		t.Fatalf("dependents of logo = %v, want 2 edges", dependents)
	}

	if err := s.Apply("test", depgraph.ClearEdgesFor{Parent: node("a")}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	dependents = read(t, s, func(conn *sqlite.Conn) ([]model.Edge, error) {
		return depgraph.DirectDependentsOf(conn, node("logo"))
	})
	want := []model.Edge{edge(model.PageAsset, "b", "logo")}
	if !slices.Equal(dependents, want) {
		t.Fatalf("dependents after clear = %v, want %v", dependents, want)
	}
}

func TestReplaceRelationLeavesOtherRelations(t *testing.T) {
	s := openTestStore(t)
	err := s.Apply("test",
		depgraph.RecordEdge{Edge: edge(model.Intertemplate, "post", "base")},
		depgraph.RecordEdge{Edge: edge(model.PageAsset, "post", "img")},
		depgraph.ReplaceRelation{
			Relation: model.Intertemplate,
			Parents:  []digest.Hash{node("post")},
			Edges:    []model.Edge{edge(model.Intertemplate, "post", "layout")},
		},
	)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	got := read(t, s, func(conn *sqlite.Conn) ([]model.Edge, error) {
		return depgraph.DirectDependenciesOf(conn, node("post"))
	})
	want := []model.Edge{
		edge(model.Intertemplate, "post", "layout"),
		edge(model.PageAsset, "post", "img"),
	}
	if !slices.Equal(got, want) {
		t.Fatalf("dependencies = %v, want %v", got, want)
	}
}

func TestTransitiveDependencies(t *testing.T) {
	s := openTestStore(t)
	err := s.Apply("test",
		depgraph.RecordEdge{Edge: edge(model.Intertemplate, "post", "base")},
		depgraph.RecordEdge{Edge: edge(model.Intertemplate, "base", "nav")},
		depgraph.RecordEdge{Edge: edge(model.Intertemplate, "nav", "post")},
		depgraph.RecordEdge{Edge: edge(model.Intertemplate, "unrelated", "x")},
	)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	all := read(t, s, func(conn *sqlite.Conn) ([]digest.Hash, error) {
		return depgraph.TransitiveDependenciesOf(conn, node("post"), 0)
	})
	want := []digest.Hash{node("base"), node("nav"), node("post")}
	if !slices.Equal(all, want) {
		t.Fatalf("transitive = %v, want %v", all, want)
	}

	shallow := read(t, s, func(conn *sqlite.Conn) ([]digest.Hash, error) {
		return depgraph.TransitiveDependenciesOf(conn, node("post"), 1)
	})
	if !slices.Equal(shallow, []digest.Hash{node("base")}) {
		t.Fatalf("depth 1 = %v, want [base]", shallow)
	}
}

func TestTransitiveDependenciesFollowTemplatingIDs(t *testing.T) {
	s := openTestStore(t)
	revision := node("revision")
	err := s.Apply("test",
		depgraph.RecordEdge{Edge: edge(model.PageTemplate, "post", "page-templating")},
		depgraph.RecordEdge{Edge: edge(model.PageAsset, "post", "img")},
		store.ReplaceTemplates{Revision: revision, Templates: []model.Template{
			{Name: "page.html", FileID: node("page.html"), TemplatingID: node("page-templating")},
			{Name: "base.html", FileID: node("base.html"), TemplatingID: node("base-templating")},
		}},
		depgraph.RecordEdge{Edge: edge(model.Intertemplate, "page.html", "base.html")},
	)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	got := read(t, s, func(conn *sqlite.Conn) ([]digest.Hash, error) {
		return depgraph.TransitiveDependenciesOf(conn, node("post"), 0)
	})
	want := []digest.Hash{node("img"), node("page-templating"), node("page.html"), node("base.html")}
	if !slices.Equal(got, want) {
		t.Fatalf("transitive = %v, want %v", got, want)
	}
}
