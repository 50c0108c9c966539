// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package build_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"zombiezen.com/go/sqlite"

	"github.com/bureau-foundation/ftl/lib/blobcache"
	"github.com/bureau-foundation/ftl/lib/build"
	"github.com/bureau-foundation/ftl/lib/buildmetrics"
	"github.com/bureau-foundation/ftl/lib/clock"
	"github.com/bureau-foundation/ftl/lib/config"
	"github.com/bureau-foundation/ftl/lib/contentstore"
	"github.com/bureau-foundation/ftl/lib/digest"
	"github.com/bureau-foundation/ftl/lib/model"
	"github.com/bureau-foundation/ftl/lib/render"
	"github.com/bureau-foundation/ftl/lib/revision"
	"github.com/bureau-foundation/ftl/lib/store"
	"github.com/bureau-foundation/ftl/lib/testutil"
)

// recordingRenderer remembers which units it was asked to render.
type recordingRenderer struct {
	inner *render.Renderer

	mu          sync.Mutex
	pages       []string
	stylesheets int
}

func (r *recordingRenderer) RenderPage(ctx context.Context, request render.PageRequest) (render.Result, error) {
	r.mu.Lock()
	r.pages = append(r.pages, request.Page.Path)
	r.mu.Unlock()
	return r.inner.RenderPage(ctx, request)
}

func (r *recordingRenderer) RenderStylesheet(ctx context.Context, request render.StylesheetRequest) (render.Result, error) {
	r.mu.Lock()
	r.stylesheets++
	r.mu.Unlock()
	return r.inner.RenderStylesheet(ctx, request)
}

// take returns the rendered page paths, sorted, and the stylesheet
// count since the last call, and resets both.
func (r *recordingRenderer) take() ([]string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pages, stylesheets := r.pages, r.stylesheets
	r.pages, r.stylesheets = nil, 0
	slices.Sort(pages)
	return pages, stylesheets
}

type fixture struct {
	source   string
	store    *store.Store
	content  *contentstore.Store
	clock    *clock.FakeClock
	metrics  *buildmetrics.Recorder
	renderer *recordingRenderer
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	root := t.TempDir()
	source := filepath.Join(root, "src")
	testutil.WriteTree(t, source, files)

	s, err := store.Open(store.Config{Path: filepath.Join(root, "content.db")})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	cache, err := blobcache.Open(blobcache.Config{Dir: filepath.Join(root, "cache")})
	if err != nil {
		t.Fatalf("blobcache.Open: %v", err)
	}
	content, err := contentstore.New(contentstore.Config{
		Cache:            cache,
		InlineExtensions: config.DefaultInlineExtensions,
	})
	if err != nil {
		t.Fatalf("contentstore.New: %v", err)
	}
	inner, err := render.New(render.Config{})
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	return &fixture{
		source:   source,
		store:    s,
		content:  content,
		clock:    clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		metrics:  buildmetrics.New(),
		renderer: &recordingRenderer{inner: inner},
	}
}

func (f *fixture) config() build.Config {
	return build.Config{
		Source:   f.source,
		Store:    f.store,
		Content:  f.content,
		Renderer: f.renderer,
		Workers:  4,
		Clock:    f.clock,
		Metrics:  f.metrics,
	}
}

func (f *fixture) build(t *testing.T) build.Report {
	t.Helper()
	f.clock.Advance(time.Minute)
	report, err := build.Build(context.Background(), f.config())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return report
}

func (f *fixture) write(t *testing.T, files map[string]string) {
	t.Helper()
	testutil.WriteTree(t, f.source, files)
}

func (f *fixture) revision(t *testing.T, id digest.Hash) model.Revision {
	t.Helper()
	var revision model.Revision
	err := f.store.Read(context.Background(), func(conn *sqlite.Conn) error {
		var found bool
		var err error
		revision, found, err = store.RevisionByID(conn, id)
		if err == nil && !found {
			err = errors.New("not found")
		}
		return err
	})
	if err != nil {
		t.Fatalf("revision %s: %v", id.Short(), err)
	}
	return revision
}

// output returns the stored output of the page at path in revision.
func (f *fixture) output(t *testing.T, revision digest.Hash, route string) string {
	t.Helper()
	var content string
	err := f.store.Read(context.Background(), func(conn *sqlite.Conn) error {
		routes, err := store.Routes(conn, revision)
		if err != nil {
			return err
		}
		for _, candidate := range routes {
			if candidate.Route != route || !candidate.Kind.Renders() {
				continue
			}
			output, found, err := store.Output(conn, candidate.FileID)
			if err != nil {
				return err
			}
			if !found {
				return errors.New("no output")
			}
			content = output.Content
			return nil
		}
		return errors.New("no such route")
	})
	if err != nil {
		t.Fatalf("output of %q: %v", route, err)
	}
	return content
}

func (f *fixture) routes(t *testing.T, revision digest.Hash) map[string]model.RouteKind {
	t.Helper()
	result := make(map[string]model.RouteKind)
	err := f.store.Read(context.Background(), func(conn *sqlite.Conn) error {
		routes, err := store.Routes(conn, revision)
		for _, route := range routes {
			result[route.Route] = route.Kind
		}
		return err
	})
	if err != nil {
		t.Fatalf("Routes: %v", err)
	}
	return result
}

func baseSite() map[string]string {
	return map[string]string{
		"content/a.md":                 "---\ntitle: Alpha\n---\n# A\n",
		"content/b.md":                 "---\ntitle: Beta\n---\n# B\n",
		"templates/page.html":          `<html><head><title>{{ title }}</title>{% include "partials/head.html" %}</head><body>{{ content }}</body></html>`,
		"templates/partials/head.html": `<link rel="stylesheet" href="/style.css">`,
		"styles/site.css":              "body { margin: 0 }\n",
		"assets/logo.png":              "\x89PNG\r\n\x1a\n",
	}
}

func TestIncrementalBuild(t *testing.T) {
	f := newFixture(t, baseSite())

	first := f.build(t)
	if err := first.Err(); err != nil {
		t.Fatalf("first build failed: %v", err)
	}
	if first.Units != 3 || first.Stale != 3 || first.Rendered != 3 || !first.Stable {
		t.Fatalf("first build = %+v, want 3 units all rendered and stable", first)
	}
	pages, stylesheets := f.renderer.take()
	if !slices.Equal(pages, []string{"content/a.md", "content/b.md"}) || stylesheets != 1 {
		t.Fatalf("first build rendered %v and %d stylesheets", pages, stylesheets)
	}
	if !f.revision(t, first.Revision).Stable {
		t.Fatal("first revision not marked stable")
	}
	if got := f.output(t, first.Revision, "a"); !strings.Contains(got, "<title>Alpha</title>") ||
		!strings.Contains(got, `href="/style.css"`) {
		t.Fatalf("output of a = %q", got)
	}

	t.Run("unchanged tree renders nothing", func(t *testing.T) {
		report := f.build(t)
		if report.Revision != first.Revision {
			t.Fatalf("revision moved from %s to %s without changes", first.Revision.Short(), report.Revision.Short())
		}
		if report.Stale != 0 || report.Rendered != 0 || !report.Stable {
			t.Fatalf("report = %+v, want nothing stale", report)
		}
		if pages, stylesheets := f.renderer.take(); len(pages) != 0 || stylesheets != 0 {
			t.Fatalf("rendered %v and %d stylesheets", pages, stylesheets)
		}
	})

	t.Run("edited page renders alone", func(t *testing.T) {
		f.write(t, map[string]string{"content/a.md": "---\ntitle: Alpha two\n---\n# A\n"})
		report := f.build(t)
		if report.Revision == first.Revision {
			t.Fatal("edit did not change the revision")
		}
		if report.Stale != 1 || report.Rendered != 1 {
			t.Fatalf("report = %+v, want one unit rendered", report)
		}
		if pages, stylesheets := f.renderer.take(); !slices.Equal(pages, []string{"content/a.md"}) || stylesheets != 0 {
			t.Fatalf("rendered %v and %d stylesheets", pages, stylesheets)
		}
		if got := f.output(t, report.Revision, "a"); !strings.Contains(got, "<title>Alpha two</title>") {
			t.Fatalf("output of a = %q", got)
		}
	})

	t.Run("reverted page reuses earlier output", func(t *testing.T) {
		f.write(t, map[string]string{"content/a.md": "---\ntitle: Alpha\n---\n# A\n"})
		report := f.build(t)
		if report.Revision != first.Revision {
			t.Fatalf("reverted tree has revision %s, want %s", report.Revision.Short(), first.Revision.Short())
		}
		if report.Stale != 0 {
			t.Fatalf("report = %+v, want nothing stale", report)
		}
		if pages, _ := f.renderer.take(); len(pages) != 0 {
			t.Fatalf("rendered %v", pages)
		}
	})

	t.Run("included partial makes every page stale", func(t *testing.T) {
		f.write(t, map[string]string{"templates/partials/head.html": `<link rel="stylesheet" href="/site.css">`})
		report := f.build(t)
		if report.Stale != 2 || report.Rendered != 2 {
			t.Fatalf("report = %+v, want both pages rendered", report)
		}
		if pages, stylesheets := f.renderer.take(); !slices.Equal(pages, []string{"content/a.md", "content/b.md"}) || stylesheets != 0 {
			t.Fatalf("rendered %v and %d stylesheets", pages, stylesheets)
		}
		if got := f.output(t, report.Revision, "b"); !strings.Contains(got, `href="/site.css"`) {
			t.Fatalf("output of b = %q", got)
		}
	})

	t.Run("stylesheet source renders the stylesheet alone", func(t *testing.T) {
		f.write(t, map[string]string{"styles/site.css": "body { margin: 1em }\n"})
		report := f.build(t)
		if report.Stale != 1 {
			t.Fatalf("report = %+v, want only the stylesheet stale", report)
		}
		if pages, stylesheets := f.renderer.take(); len(pages) != 0 || stylesheets != 1 {
			t.Fatalf("rendered %v and %d stylesheets", pages, stylesheets)
		}
		if got := f.output(t, report.Revision, "style.css"); !strings.Contains(got, "margin: 1em") {
			t.Fatalf("stylesheet = %q", got)
		}
	})
}

func TestRoutesOfBuild(t *testing.T) {
	files := baseSite()
	files["content/index.md"] = "# Home\n"
	files["content/blog/Hello World.md"] = "---\naliases: [/old/hello]\n---\n# Hello\n"
	files["content/blog/draft.md"] = "---\ndraft: true\n---\n# Soon\n"
	files["content/blog/photo.jpg"] = "jpeg bytes"
	f := newFixture(t, files)

	report := f.build(t)
	if err := report.Err(); err != nil {
		t.Fatalf("build failed: %v", err)
	}
	want := map[string]model.RouteKind{
		"":                 model.RoutePage,
		"a":                model.RoutePage,
		"b":                model.RoutePage,
		"blog/hello-world": model.RoutePage,
		"old/hello":        model.RouteRedirectPage,
		"blog/photo.jpg":   model.RouteAsset,
		"logo.png":         model.RouteAsset,
		"style.css":        model.RouteStylesheet,
	}
	got := f.routes(t, report.Revision)
	if len(got) != len(want) {
		t.Fatalf("routes = %v, want %v", got, want)
	}
	for route, kind := range want {
		if got[route] != kind {
			t.Errorf("route %q = %v, want %v", route, got[route], kind)
		}
	}
	// Drafts and redirects are not render units.
	if report.Units != 5 {
		t.Fatalf("units = %d, want 5", report.Units)
	}
}

func TestFailedRenderLeavesRevisionUnstable(t *testing.T) {
	files := baseSite()
	files["content/c.md"] = "---\ntemplate: missing.html\n---\n# C\n"
	f := newFixture(t, files)

	report := f.build(t)
	if report.Stable || f.revision(t, report.Revision).Stable {
		t.Fatal("revision with a failed unit marked stable")
	}
	if len(report.RenderFailures) != 1 || report.RenderFailures[0].Route != "c" {
		t.Fatalf("render failures = %v", report.RenderFailures)
	}
	var renderErr *render.Error
	if !errors.As(report.Err(), &renderErr) {
		t.Fatalf("Err() = %v, want a *render.Error inside", report.Err())
	}
	if report.Rendered != 3 {
		t.Fatalf("rendered = %d, want the 3 healthy units", report.Rendered)
	}
	f.renderer.take()

	// The failed unit stays stale; the others are reused.
	f.write(t, map[string]string{"templates/missing.html": "<main>{{ content }}</main>"})
	fixed := f.build(t)
	if !fixed.Stable || fixed.Err() != nil {
		t.Fatalf("fixed build = %+v, err %v", fixed, fixed.Err())
	}
	if pages, _ := f.renderer.take(); !slices.Equal(pages, []string{"content/c.md"}) {
		t.Fatalf("rendered %v, want only content/c.md", pages)
	}
}

func TestParseFailureSkipsPage(t *testing.T) {
	files := baseSite()
	files["content/broken.md"] = "---\ntitle: [unterminated\n---\n# Broken\n"
	f := newFixture(t, files)

	report := f.build(t)
	if len(report.ParseFailures) != 1 || report.ParseFailures[0].Path != "content/broken.md" {
		t.Fatalf("parse failures = %v", report.ParseFailures)
	}
	if report.Stable {
		t.Fatal("revision with a parse failure marked stable")
	}
	if _, routed := f.routes(t, report.Revision)["broken"]; routed {
		t.Fatal("unparseable page has a route")
	}
	if report.Units != 3 || report.Rendered != 3 {
		t.Fatalf("report = %+v, want the 3 healthy units rendered", report)
	}
}

func TestDynamicPageRendersEveryBuild(t *testing.T) {
	files := baseSite()
	files["content/now.md"] = "---\ndynamic: true\n---\n# Now\n"
	f := newFixture(t, files)

	f.build(t)
	f.renderer.take()

	report := f.build(t)
	if report.Stale != 1 {
		t.Fatalf("stale = %d, want only the dynamic page", report.Stale)
	}
	if pages, _ := f.renderer.take(); !slices.Equal(pages, []string{"content/now.md"}) {
		t.Fatalf("rendered %v", pages)
	}
	if !report.Stable {
		t.Fatal("dynamic page kept the revision unstable")
	}
}

func TestRouteConflictIsReported(t *testing.T) {
	files := baseSite()
	files["content/post.md"] = "# Post\n"
	files["content/post/index.md"] = "# Post index\n"
	f := newFixture(t, files)

	report := f.build(t)
	if len(report.RouteConflicts) != 1 {
		t.Fatalf("route conflicts = %v", report.RouteConflicts)
	}
	conflict := report.RouteConflicts[0]
	if conflict.Route != "post" || conflict.Path != "content/post/index.md" || conflict.Existing != "content/post.md" {
		t.Fatalf("conflict = %+v", conflict)
	}
	if report.Stable {
		t.Fatal("revision with a route conflict marked stable")
	}
}

func TestRebuildAfterCompressRendersSweptUnit(t *testing.T) {
	f := newFixture(t, baseSite())
	manager, err := revision.New(revision.Config{Store: f.store, Content: f.content})
	if err != nil {
		t.Fatalf("revision.New: %v", err)
	}
	if report := f.build(t); !report.Stable {
		t.Fatalf("first build not stable: %v", report.Err())
	}

	// content/A.md takes route "a" from content/a.md, so the pinned
	// revision keeps a.md as a member without routing it.
	f.write(t, map[string]string{"content/A.md": "# Upper\n"})
	shadowed := f.build(t)
	if len(shadowed.RouteConflicts) != 1 {
		t.Fatalf("route conflicts = %v, want a.md shadowed", shadowed.RouteConflicts)
	}
	if _, err := manager.Pin(context.Background(), shadowed.Revision.String()); err != nil {
		t.Fatalf("Pin: %v", err)
	}
	testutil.RemoveFile(t, f.source, "content/A.md")
	testutil.RemoveFile(t, f.source, "content/a.md")
	if report := f.build(t); !report.Stable {
		t.Fatalf("build without a.md not stable: %v", report.Err())
	}

	result, err := manager.Compress(context.Background())
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if result.Rows["output"] == 0 || result.Rows["dependencies"] == 0 {
		t.Fatalf("compress removed %v, want a.md's output and its edges", result.Rows)
	}
	f.renderer.take()

	f.write(t, map[string]string{"content/a.md": baseSite()["content/a.md"]})
	restored := f.build(t)
	if !restored.Stable {
		t.Fatalf("restored build not stable: %v", restored.Err())
	}
	if pages, _ := f.renderer.take(); !slices.Equal(pages, []string{"content/a.md"}) {
		t.Fatalf("rendered %v, want content/a.md", pages)
	}
	if got := f.output(t, restored.Revision, "a"); !strings.Contains(got, "Alpha") {
		t.Fatalf("output of a = %q", got)
	}
}

func TestBuildRefusesSecondWriter(t *testing.T) {
	f := newFixture(t, baseSite())
	w, err := f.store.NewWriter("holder")
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	defer w.Finalize()

	_, err = build.Build(context.Background(), f.config())
	if !errors.Is(err, store.ErrWriterBusy) {
		t.Fatalf("Build error = %v, want ErrWriterBusy", err)
	}
}

func TestBuildMissingSource(t *testing.T) {
	f := newFixture(t, baseSite())
	cfg := f.config()
	cfg.Source = filepath.Join(t.TempDir(), "absent")
	if _, err := build.Build(context.Background(), cfg); err == nil {
		t.Fatal("Build of a missing source succeeded")
	}
}

func TestBuildRecordsMetrics(t *testing.T) {
	f := newFixture(t, baseSite())
	f.build(t)

	families, err := f.metrics.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	values := make(map[string]float64)
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			if counter := metric.GetCounter(); counter != nil {
				values[family.GetName()] += counter.GetValue()
			}
		}
	}
	want := map[string]float64{
		"ftl_files_walked_total":   6,
		"ftl_units_stale_total":    3,
		"ftl_units_rendered_total": 3,
	}
	for name, value := range want {
		if values[name] != value {
			t.Errorf("%s = %v, want %v", name, values[name], value)
		}
	}
}
