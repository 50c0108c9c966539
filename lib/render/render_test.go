// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/bureau-foundation/ftl/lib/depgraph"
	"github.com/bureau-foundation/ftl/lib/digest"
	"github.com/bureau-foundation/ftl/lib/model"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func file(path, content string) model.InputFile {
	contentHash := digest.Content([]byte(content))
	return model.InputFile{ID: digest.File(contentHash, path), ContentHash: contentHash, Path: path}
}

// templates builds the template map the build would pass, with
// templating ids computed from the sources.
func templates(t *testing.T, sources map[string]string) map[string]Template {
	t.Helper()
	var inputs []depgraph.TemplateSource
	for name, source := range sources {
		inputs = append(inputs, depgraph.TemplateSource{
			Name:   name,
			FileID: file("templates/"+name, source).ID,
			Source: source,
		})
	}
	graph := depgraph.ComputeTemplatingIDs(inputs, 0)
	result := make(map[string]Template, len(inputs))
	for _, input := range inputs {
		result[input.Name] = Template{
			Name:         input.Name,
			FileID:       input.FileID,
			TemplatingID: graph.Templates[input.Name].ID,
			Source:       input.Source,
		}
	}
	return result
}

func TestRenderPageThroughTemplateChain(t *testing.T) {
	r := newTestRenderer(t)
	pageFile := file("content/posts/hello.md", "body")
	logo := file("assets/img/logo.png", "png")
	other := file("content/posts/other.md", "other")
	available := templates(t, map[string]string{
		"base.html":         `<html><title>{{ title }}</title>{% include "partials/nav.html" %}<body>{{ content }}</body></html>`,
		"post.html":         `{% extends "base.html" %}{% import "macros.html" as m %}<article data-author="{{ author }}">{{ content }}</article>`,
		"partials/nav.html": `<nav>{{ path }}</nav>`,
		"macros.html":       `unused`,
	})

	result, err := r.RenderPage(context.Background(), PageRequest{
		Page: model.Page{
			ID:         pageFile.ID,
			Path:       pageFile.Path,
			Title:      "Hello & welcome",
			Attributes: map[string]any{"author": "Ada"},
		},
		Body:      "# Hi\n\n![logo](/img/logo.png) and [the other](other.md) and [web](https://example.com/x.png)\n",
		Template:  "post.html",
		Templates: available,
		Files: map[string]model.InputFile{
			logo.Path:  logo,
			other.Path: other,
		},
	})
	if err != nil {
		t.Fatalf("RenderPage: %v", err)
	}

	for _, fragment := range []string{
		"<title>Hello &amp; welcome</title>",
		"<nav>content/posts/hello.md</nav>",
		`<body><article data-author="Ada"><h1>Hi</h1>`,
		`<img src="/img/logo.png" alt="logo">`,
		"</article></body></html>",
	} {
		if !strings.Contains(result.Content, fragment) {
			t.Errorf("output lacks %q:\n%s", fragment, result.Content)
		}
	}
	if strings.Contains(result.Content, "{%") {
		t.Errorf("directive left in output:\n%s", result.Content)
	}

	want := []model.Edge{
		{Relation: model.PageAsset, Parent: pageFile.ID, Child: pageFile.ID},
		{Relation: model.PageTemplate, Parent: pageFile.ID, Child: available["post.html"].TemplatingID},
		{Relation: model.PageAsset, Parent: pageFile.ID, Child: logo.ID},
		{Relation: model.PageAsset, Parent: pageFile.ID, Child: other.ID},
	}
	if !slices.Equal(result.Edges, want) {
		t.Fatalf("edges = %v, want %v", result.Edges, want)
	}
}

func TestContentIsNotRescanned(t *testing.T) {
	r := newTestRenderer(t)
	pageFile := file("content/a.md", "x")
	result, err := r.RenderPage(context.Background(), PageRequest{
		Page:      model.Page{ID: pageFile.ID, Path: pageFile.Path, Title: "T"},
		Body:      "Use `{{ title }}` in templates.\n",
		Template:  "page.html",
		Templates: templates(t, map[string]string{"page.html": "<main>{{ content }}</main>"}),
	})
	if err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	if !strings.Contains(result.Content, "<code>{{ title }}</code>") {
		t.Fatalf("template syntax inside content was substituted:\n%s", result.Content)
	}
}

func TestFencedCodeIsHighlighted(t *testing.T) {
	r := newTestRenderer(t)
	pageFile := file("content/code.md", "x")
	result, err := r.RenderPage(context.Background(), PageRequest{
		Page:      model.Page{ID: pageFile.ID, Path: pageFile.Path},
		Body:      "```go\nfunc main() {}\n```\n\n```unknown-language\n<raw>\n```\n",
		Template:  "page.html",
		Templates: templates(t, map[string]string{"page.html": "{{ content }}"}),
	})
	if err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	if !strings.Contains(result.Content, `class="chroma"`) {
		t.Errorf("no chroma markup:\n%s", result.Content)
	}
	if strings.Contains(result.Content, "<raw>") {
		t.Errorf("code block content was not escaped:\n%s", result.Content)
	}
}

func TestRenderPageErrors(t *testing.T) {
	r := newTestRenderer(t)
	pageFile := file("content/a.md", "x")
	tests := []struct {
		name      string
		template  string
		templates map[string]string
	}{
		{"missing template", "gone.html", map[string]string{"page.html": "{{ content }}"}},
		{"extends cycle", "a.html", map[string]string{
			"a.html": `{% extends "b.html" %}`,
			"b.html": `{% extends "a.html" %}`,
		}},
		{"missing include", "page.html", map[string]string{"page.html": `{% include "nav.html" %}`}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			available := templates(t, test.templates)
			// A cycle has no templating id; give one so the composer is
			// what reports the failure.
			for name, template := range available {
				if template.TemplatingID.IsZero() {
					template.TemplatingID = digest.Content([]byte(name))
					available[name] = template
				}
			}
			_, err := r.RenderPage(context.Background(), PageRequest{
				Page:      model.Page{ID: pageFile.ID, Path: pageFile.Path},
				Body:      "text",
				Template:  test.template,
				Templates: available,
			})
			var renderErr *Error
			if !errors.As(err, &renderErr) || renderErr.Unit != pageFile.Path {
				t.Fatalf("RenderPage = %v, want *Error for %s", err, pageFile.Path)
			}
		})
	}
}

func TestRenderPageRejectsTemplateWithoutID(t *testing.T) {
	r := newTestRenderer(t)
	pageFile := file("content/a.md", "x")
	_, err := r.RenderPage(context.Background(), PageRequest{
		Page:      model.Page{ID: pageFile.ID, Path: pageFile.Path},
		Template:  "page.html",
		Templates: map[string]Template{"page.html": {Name: "page.html", Source: "{{ content }}"}},
	})
	if err == nil {
		t.Fatal("rendering with an unfingerprinted template succeeded")
	}
}

func TestRenderStylesheet(t *testing.T) {
	r := newTestRenderer(t)
	base := file("styles/base.css", "body { margin: 0 }")
	theme := file("styles/theme.scss", "a { color: red }\n")
	unit := digest.Unit("stylesheet", []digest.Hash{base.ID, theme.ID})

	result, err := r.RenderStylesheet(context.Background(), StylesheetRequest{
		Unit:  unit,
		Route: "style.css",
		Sources: []StylesheetSource{
			{File: base, Text: "body { margin: 0 }"},
			{File: theme, Text: "a { color: red }\n"},
		},
	})
	if err != nil {
		t.Fatalf("RenderStylesheet: %v", err)
	}
	baseAt := strings.Index(result.Content, "body { margin: 0 }")
	themeAt := strings.Index(result.Content, "a { color: red }")
	if baseAt < 0 || themeAt < baseAt {
		t.Errorf("sources missing or out of order:\n%s", result.Content)
	}
	if !strings.Contains(result.Content, ".chroma") {
		t.Errorf("highlight CSS missing")
	}
	want := []model.Edge{
		{Relation: model.PageAsset, Parent: unit, Child: base.ID},
		{Relation: model.PageAsset, Parent: unit, Child: theme.ID},
	}
	if !slices.Equal(result.Edges, want) {
		t.Fatalf("edges = %v, want %v", result.Edges, want)
	}
}

func TestUnknownHighlightStyle(t *testing.T) {
	if _, err := New(Config{HighlightStyle: "no-such-style"}); err == nil {
		t.Fatal("New accepted an unknown style")
	}
}

func TestCandidatePaths(t *testing.T) {
	tests := []struct {
		page, destination string
		want              []string
	}{
		{"content/a/b.md", "c.png", []string{"content/a/c.png", "assets/content/a/c.png"}},
		{"content/a/b.md", "/img/x.png?v=1#top", []string{"img/x.png", "assets/img/x.png", "content/img/x.png"}},
		{"content/b.md", "../../outside.png", nil},
		{"content/b.md", "https://example.com/x.png", nil},
		{"content/b.md", "#section", nil},
	}
	for _, test := range tests {
		got := candidatePaths(test.page, test.destination)
		if !slices.Equal(got, test.want) {
			t.Errorf("candidatePaths(%q, %q) = %v, want %v", test.page, test.destination, got, test.want)
		}
	}
}
