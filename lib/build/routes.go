// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/bureau-foundation/ftl/lib/digest"
	"github.com/bureau-foundation/ftl/lib/model"
)

// RouteConflict reports a file whose route is already taken by another
// file of the same revision. The first claim wins, in the order
// stylesheet, pages, assets, redirects, and by path within each.
type RouteConflict struct {
	Route    string
	Path     string
	Existing string
}

func (e *RouteConflict) Error() string {
	return fmt.Sprintf("build: route %q of %s is already served by %s", e.Route, e.Path, e.Existing)
}

type routeTable struct {
	revision  digest.Hash
	routes    []model.Route
	owners    map[string]string
	conflicts []*RouteConflict
}

func (t *routeTable) claim(owner string, route model.Route) {
	if existing, taken := t.owners[route.Route]; taken {
		t.conflicts = append(t.conflicts, &RouteConflict{Route: route.Route, Path: owner, Existing: existing})
		return
	}
	route.Revision = t.revision
	t.owners[route.Route] = owner
	t.routes = append(t.routes, route)
}

// deriveRoutes maps the files of a revision to routes. files must be
// ordered by path and pages must hold only successfully parsed pages.
// stylesheet is the stylesheet unit id, zero when there is none.
func deriveRoutes(revision digest.Hash, files []model.InputFile, pages []model.Page, stylesheet digest.Hash, stylesheetRoute string) ([]model.Route, []*RouteConflict) {
	table := &routeTable{revision: revision, owners: make(map[string]string)}

	if !stylesheet.IsZero() {
		table.claim(stylesDir, model.Route{FileID: stylesheet, Route: stylesheetRoute, Kind: model.RouteStylesheet})
	}

	published := make(map[digest.Hash]string, len(pages))
	for _, page := range pages {
		if page.Draft {
			continue
		}
		route := PageRoute(page.Path)
		published[page.ID] = route
		table.claim(page.Path, model.Route{
			FileID:      page.ID,
			Route:       route,
			ParentRoute: parentRoute(route),
			Kind:        model.RoutePage,
		})
	}

	for _, file := range files {
		if file.Inline && !strings.HasPrefix(file.Path, assetsDir) {
			continue
		}
		table.claim(file.Path, model.Route{
			FileID:      file.ID,
			Route:       AssetRoute(file.Path),
			ParentRoute: parentRoute(AssetRoute(file.Path)),
			Kind:        model.RouteAsset,
		})
	}

	for _, page := range pages {
		target, ok := published[page.ID]
		if !ok {
			continue
		}
		for _, alias := range page.Aliases {
			route := cleanRoute(alias)
			if route == target {
				continue
			}
			table.claim(page.Path, model.Route{
				FileID:      page.ID,
				Route:       route,
				ParentRoute: target,
				Kind:        model.RouteRedirectPage,
			})
		}
	}
	return table.routes, table.conflicts
}

// PageRoute returns the route of the page at p: the path below
// content/ without its extension or a trailing index segment, with the
// last segment slugified. The site index has the empty route.
func PageRoute(p string) string {
	relative := strings.TrimPrefix(p, contentDir)
	relative = strings.TrimSuffix(relative, path.Ext(relative))
	segments := strings.Split(relative, "/")
	if segments[len(segments)-1] == "index" {
		segments = segments[:len(segments)-1]
	}
	if len(segments) == 0 {
		return ""
	}
	segments[len(segments)-1] = Slugify(segments[len(segments)-1])
	return strings.Join(segments, "/")
}

// AssetRoute returns the route of the asset at p: its path with a
// leading assets/ or content/ directory removed.
func AssetRoute(p string) string {
	for _, prefix := range []string{assetsDir, contentDir} {
		if trimmed, found := strings.CutPrefix(p, prefix); found {
			return trimmed
		}
	}
	return p
}

// Slugify lowercases s and joins its runs of letters and digits with
// single hyphens.
func Slugify(s string) string {
	var builder strings.Builder
	pendingHyphen := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && builder.Len() > 0 {
				builder.WriteByte('-')
			}
			pendingHyphen = false
			builder.WriteRune(unicode.ToLower(r))
			continue
		}
		pendingHyphen = true
	}
	return builder.String()
}

func cleanRoute(route string) string {
	return strings.Trim(path.Clean("/"+route), "/")
}

// parentRoute is the first segment of a route with more than one.
func parentRoute(route string) string {
	first, _, nested := strings.Cut(route, "/")
	if !nested {
		return ""
	}
	return first
}
