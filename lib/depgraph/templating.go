// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package depgraph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bureau-foundation/ftl/lib/digest"
	"github.com/bureau-foundation/ftl/lib/model"
)

// DefaultMaxDepth bounds how many references deep a template's closure
// may reach.
const DefaultMaxDepth = 255

// TemplateSource is one template as seen by the graph: its name
// relative to the template root, its input file, and its text.
type TemplateSource struct {
	Name   string
	FileID digest.Hash
	Source string
}

// GraphErrorKind classifies a GraphError.
type GraphErrorKind int

const (
	// Cycle means the template reaches itself through references.
	Cycle GraphErrorKind = iota + 1
	// DepthExceeded means the reference chain is longer than the limit.
	DepthExceeded
	// MissingTemplate means a referenced template does not exist.
	MissingTemplate
)

func (k GraphErrorKind) String() string {
	switch k {
	case Cycle:
		return "cycle"
	case DepthExceeded:
		return "depth exceeded"
	case MissingTemplate:
		return "missing template"
	default:
		return fmt.Sprintf("graph error kind %d", int(k))
	}
}

// GraphError reports a template whose closure could not be resolved.
type GraphError struct {
	Template string
	Kind     GraphErrorKind
	// Chain is the reference path from Template to the failure.
	Chain []string
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("template %s: %s (%s)", e.Template, e.Kind, strings.Join(e.Chain, " -> "))
}

// Templating is the resolved closure of one template.
type Templating struct {
	Name   string
	FileID digest.Hash
	// ID fingerprints the template together with its closure.
	ID digest.Hash
	// Members are the file ids of every template reachable from this
	// one, excluding itself, sorted.
	Members []digest.Hash
	// Direct are the names this template references directly.
	Direct []string
}

// Graph is the outcome of ComputeTemplatingIDs.
type Graph struct {
	// Templates maps template name to its resolved closure. Templates
	// with a GraphError are absent.
	Templates map[string]Templating
	// Edges holds one Intertemplate edge per direct reference between
	// resolvable templates, sorted.
	Edges []model.Edge
	// Errors holds one error per unresolvable template, sorted by
	// template name.
	Errors []*GraphError
}

// ComputeTemplatingIDs resolves every template's closure and
// fingerprints it. maxDepth <= 0 means DefaultMaxDepth.
func ComputeTemplatingIDs(templates []TemplateSource, maxDepth int) Graph {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	resolver := &closureResolver{
		byName:   make(map[string]TemplateSource, len(templates)),
		direct:   make(map[string][]string, len(templates)),
		resolved: make(map[string][]string),
		height:   make(map[string]int),
		failed:   make(map[string]*GraphError),
		maxDepth: maxDepth,
	}
	for _, template := range templates {
		resolver.byName[template.Name] = template
		resolver.direct[template.Name] = ReferencedNames(template.Source)
	}

	graph := Graph{Templates: make(map[string]Templating, len(templates))}
	for _, template := range templates {
		closure, err := resolver.resolve(template.Name, nil)
		if err != nil {
			graph.Errors = append(graph.Errors, &GraphError{
				Template: template.Name,
				Kind:     err.Kind,
				Chain:    err.Chain,
			})
			continue
		}

		members := make([]digest.Hash, 0, len(closure))
		for _, name := range closure {
			members = append(members, resolver.byName[name].FileID)
		}
		slices.SortFunc(members, digest.Compare)
		members = slices.Compact(members)

		graph.Templates[template.Name] = Templating{
			Name:    template.Name,
			FileID:  template.FileID,
			ID:      digest.Templating(template.FileID, members),
			Members: members,
			Direct:  resolver.direct[template.Name],
		}
		for _, name := range resolver.direct[template.Name] {
			graph.Edges = append(graph.Edges, model.Edge{
				Relation: model.Intertemplate,
				Parent:   template.FileID,
				Child:    resolver.byName[name].FileID,
			})
		}
	}

	slices.SortFunc(graph.Errors, func(a, b *GraphError) int { return strings.Compare(a.Template, b.Template) })
	slices.SortFunc(graph.Edges, compareEdges)
	graph.Edges = slices.Compact(graph.Edges)
	return graph
}

type closureResolver struct {
	byName   map[string]TemplateSource
	direct   map[string][]string
	resolved map[string][]string
	// height is the longest reference chain below a resolved template.
	height   map[string]int
	failed   map[string]*GraphError
	maxDepth int
}

// resolve returns the sorted names reachable from name, excluding
// name itself. stack is the reference path that led here.
func (r *closureResolver) resolve(name string, stack []string) ([]string, *GraphError) {
	chain := append(slices.Clone(stack), name)
	if closure, ok := r.resolved[name]; ok {
		if len(stack)+r.height[name] > r.maxDepth {
			return nil, &GraphError{Template: chain[0], Kind: DepthExceeded, Chain: chain}
		}
		return closure, nil
	}
	if err, ok := r.failed[name]; ok {
		return nil, err
	}

	if slices.Contains(stack, name) {
		return nil, &GraphError{Template: chain[0], Kind: Cycle, Chain: chain}
	}
	if len(stack) > r.maxDepth {
		return nil, &GraphError{Template: chain[0], Kind: DepthExceeded, Chain: chain}
	}
	if _, ok := r.byName[name]; !ok {
		return nil, &GraphError{Template: chain[0], Kind: MissingTemplate, Chain: chain}
	}

	seen := make(map[string]bool)
	var closure []string
	height := 0
	for _, child := range r.direct[name] {
		childClosure, err := r.resolve(child, chain)
		if err != nil {
			// Failures are cached only at the top of a path so the
			// chain reported for other templates starts at them.
			if len(stack) == 0 {
				r.failed[name] = err
			}
			return nil, err
		}
		height = max(height, r.height[child]+1)
		for _, member := range append([]string{child}, childClosure...) {
			if !seen[member] {
				seen[member] = true
				closure = append(closure, member)
			}
		}
	}
	slices.Sort(closure)
	r.resolved[name] = closure
	r.height[name] = height
	return closure, nil
}

func compareEdges(a, b model.Edge) int {
	if c := digest.Compare(a.Parent, b.Parent); c != 0 {
		return c
	}
	if a.Relation != b.Relation {
		return int(a.Relation) - int(b.Relation)
	}
	return digest.Compare(a.Child, b.Child)
}
