// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/bureau-foundation/ftl/lib/digest"
)

// InputFile is one (content, path) pair found by a walk.
type InputFile struct {
	ID          digest.Hash
	ContentHash digest.Hash
	// Path is slash separated and relative to the source root.
	Path string
	// Extension has no leading dot. Empty when the file has none.
	Extension string
	// Inline is set for extensions whose content lives in the database.
	Inline bool
	// Content holds inline text. Nil for out-of-line files and for
	// inline files that are empty.
	Content *string
}

// Text returns the inline content, or "" when there is none.
func (f InputFile) Text() string {
	if f.Content == nil {
		return ""
	}
	return *f.Content
}

// Extension returns the extension of p without the leading dot.
func Extension(p string) string {
	return strings.TrimPrefix(path.Ext(p), ".")
}

// Revision is a named snapshot of a complete input set.
type Revision struct {
	ID        digest.Hash
	Name      string
	CreatedAt time.Time
	// BuiltAt is the last time this exact input set was built.
	BuiltAt time.Time
	Pinned  bool
	Stable  bool
	// Files is the number of member files. Filled by listing queries.
	Files int
}

// Label returns the revision name, or the short id when unnamed.
func (r Revision) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID.Short()
}

// Relation is the kind of a dependency edge.
type Relation int

const (
	// Intertemplate links a template file to a template file it
	// includes, imports or extends.
	Intertemplate Relation = 1
	// PageAsset links a render unit to an input file it read.
	PageAsset Relation = 2
	// PageTemplate links a page to the templating identity of the
	// template it was rendered with.
	PageTemplate Relation = 3
)

func (r Relation) String() string {
	switch r {
	case Intertemplate:
		return "intertemplate"
	case PageAsset:
		return "page-asset"
	case PageTemplate:
		return "page-template"
	default:
		return fmt.Sprintf("relation(%d)", int(r))
	}
}

// Edge is one dependency: Parent was built from Child.
type Edge struct {
	Relation Relation
	Parent   digest.Hash
	Child    digest.Hash
}

// Page is the parsed frontmatter of a markdown input file.
type Page struct {
	// ID is the input file id.
	ID   digest.Hash
	Path string
	// Template names the page template. Empty means the default.
	Template string
	// Offset is the byte offset at which the body starts.
	Offset  int
	Title   string
	Draft   bool
	Dynamic bool
	Aliases []string
	Tags    []string
	// Attributes holds frontmatter keys the engine does not interpret.
	Attributes map[string]any
}

// Template is one template visible in a revision.
type Template struct {
	Revision     digest.Hash
	Name         string
	FileID       digest.Hash
	TemplatingID digest.Hash
}

// OutputKind is the kind of a rendered artifact.
type OutputKind int

const (
	OutputPage       OutputKind = 1
	OutputStylesheet OutputKind = 2
)

func (k OutputKind) String() string {
	switch k {
	case OutputPage:
		return "page"
	case OutputStylesheet:
		return "stylesheet"
	default:
		return fmt.Sprintf("output(%d)", int(k))
	}
}

// Output is the last successful render of a unit.
type Output struct {
	ID      digest.Hash
	Kind    OutputKind
	Content string
}

// RouteKind is the kind of a route.
type RouteKind int

const (
	RouteAsset        RouteKind = 1
	RouteHook         RouteKind = 2
	RoutePage         RouteKind = 3
	RouteStylesheet   RouteKind = 4
	RouteRedirectPage RouteKind = 5
)

func (k RouteKind) String() string {
	switch k {
	case RouteAsset:
		return "asset"
	case RouteHook:
		return "hook"
	case RoutePage:
		return "page"
	case RouteStylesheet:
		return "stylesheet"
	case RouteRedirectPage:
		return "redirect"
	default:
		return fmt.Sprintf("route(%d)", int(k))
	}
}

// Renders reports whether routes of this kind are render units.
func (k RouteKind) Renders() bool {
	return k == RoutePage || k == RouteStylesheet
}

// OutputKind returns the output kind produced by a render unit route.
func (k RouteKind) OutputKind() OutputKind {
	if k == RouteStylesheet {
		return OutputStylesheet
	}
	return OutputPage
}

// Route maps a URL path to the file or unit that serves it.
type Route struct {
	Revision digest.Hash
	// FileID is an input file id, or a unit id for stylesheets.
	FileID digest.Hash
	Route  string
	// ParentRoute is the first path segment of a nested route, used
	// for listings. For redirects it is the target route.
	ParentRoute string
	Kind        RouteKind
}
