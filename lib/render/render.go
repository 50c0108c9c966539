// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/bureau-foundation/ftl/lib/depgraph"
	"github.com/bureau-foundation/ftl/lib/digest"
	"github.com/bureau-foundation/ftl/lib/model"
)

// DefaultHighlightStyle is the chroma style used when none is
// configured.
const DefaultHighlightStyle = "github"

// Error reports a unit that could not be rendered.
type Error struct {
	// Unit is the page path or stylesheet route.
	Unit string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render: %s: %v", e.Unit, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Config holds the parameters of a Renderer.
type Config struct {
	// HighlightStyle names the chroma style for code blocks. Default:
	// DefaultHighlightStyle.
	HighlightStyle string

	// MaxDepth bounds extends and include nesting. Default:
	// depgraph.DefaultMaxDepth.
	MaxDepth int

	// Logger receives debug messages. If nil, a no-op logger is used.
	Logger *slog.Logger
}

// Renderer renders pages and stylesheets.
type Renderer struct {
	markdown  goldmark.Markdown
	formatter *chromahtml.Formatter
	style     *chroma.Style
	maxDepth  int
	logger    *slog.Logger
}

// New returns a Renderer.
func New(cfg Config) (*Renderer, error) {
	styleName := cfg.HighlightStyle
	if styleName == "" {
		styleName = DefaultHighlightStyle
	}
	style, ok := styles.Registry[styleName]
	if !ok {
		return nil, fmt.Errorf("render: unknown highlight style %q", styleName)
	}
	maxDepth := cfg.MaxDepth
	if maxDepth <= 0 {
		maxDepth = depgraph.DefaultMaxDepth
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	formatter := chromahtml.New(chromahtml.WithClasses(true))
	r := &Renderer{
		formatter: formatter,
		style:     style,
		maxDepth:  maxDepth,
		logger:    logger,
	}
	r.markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
			renderer.WithNodeRenderers(util.Prioritized(&codeBlockRenderer{formatter: formatter, style: style}, 100)),
		),
	)
	return r, nil
}

// Template is one template available to a page.
type Template struct {
	Name         string
	FileID       digest.Hash
	TemplatingID digest.Hash
	Source       string
}

// PageRequest is everything needed to render one page.
type PageRequest struct {
	Page model.Page
	// Body is the markdown after the frontmatter.
	Body string
	// Template names the template to render with.
	Template string
	// Templates holds every template of the revision by name.
	Templates map[string]Template
	// Files holds every file of the revision by path, for resolving
	// link and image targets.
	Files map[string]model.InputFile
}

// StylesheetSource is one stylesheet input.
type StylesheetSource struct {
	File model.InputFile
	Text string
}

// StylesheetRequest is everything needed to render the stylesheet unit.
type StylesheetRequest struct {
	// Unit is the stylesheet unit id.
	Unit  digest.Hash
	Route string
	// Sources are concatenated in the order given.
	Sources []StylesheetSource
}

// Result is a rendered unit and the edges it was built from.
type Result struct {
	Content string
	Edges   []model.Edge
}

// RenderPage renders a page into its template.
func (r *Renderer) RenderPage(ctx context.Context, request PageRequest) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	page := request.Page
	template, ok := request.Templates[request.Template]
	if !ok {
		return Result{}, &Error{Unit: page.Path, Err: fmt.Errorf("template %q does not exist", request.Template)}
	}
	if template.TemplatingID.IsZero() {
		return Result{}, &Error{Unit: page.Path, Err: fmt.Errorf("template %q has no templating id", request.Template)}
	}

	source := []byte(request.Body)
	document := r.markdown.Parser().Parse(text.NewReader(source))
	assets := linkedFiles(document, source, page.Path, request.Files)

	var body bytes.Buffer
	if err := r.markdown.Renderer().Render(&body, source, document); err != nil {
		return Result{}, &Error{Unit: page.Path, Err: fmt.Errorf("rendering markdown: %w", err)}
	}

	c := composer{templates: request.Templates, maxDepth: r.maxDepth, variables: pageVariables(page)}
	content, err := c.compose(request.Template, body.String())
	if err != nil {
		return Result{}, &Error{Unit: page.Path, Err: err}
	}

	edges := []model.Edge{
		{Relation: model.PageAsset, Parent: page.ID, Child: page.ID},
		{Relation: model.PageTemplate, Parent: page.ID, Child: template.TemplatingID},
	}
	for _, asset := range assets {
		if asset.ID != page.ID {
			edges = append(edges, model.Edge{Relation: model.PageAsset, Parent: page.ID, Child: asset.ID})
		}
	}
	r.logger.Debug("page rendered", "path", page.Path, "template", request.Template, "assets", len(assets))
	return Result{Content: content, Edges: edges}, nil
}

// RenderStylesheet concatenates the stylesheet sources and appends the
// highlight style's CSS.
func (r *Renderer) RenderStylesheet(ctx context.Context, request StylesheetRequest) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	var content bytes.Buffer
	edges := make([]model.Edge, 0, len(request.Sources))
	for _, source := range request.Sources {
		fmt.Fprintf(&content, "/* %s */\n%s", source.File.Path, source.Text)
		if n := len(source.Text); n > 0 && source.Text[n-1] != '\n' {
			content.WriteByte('\n')
		}
		edges = append(edges, model.Edge{Relation: model.PageAsset, Parent: request.Unit, Child: source.File.ID})
	}
	content.WriteString("/* syntax highlighting */\n")
	if err := r.formatter.WriteCSS(&content, r.style); err != nil {
		return Result{}, &Error{Unit: request.Route, Err: fmt.Errorf("writing highlight CSS: %w", err)}
	}
	return Result{Content: content.String(), Edges: edges}, nil
}
