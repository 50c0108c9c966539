// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/bureau-foundation/ftl/lib/buildmetrics"
	"github.com/bureau-foundation/ftl/lib/clock"
	"github.com/bureau-foundation/ftl/lib/contentstore"
	"github.com/bureau-foundation/ftl/lib/depgraph"
	"github.com/bureau-foundation/ftl/lib/digest"
	"github.com/bureau-foundation/ftl/lib/frontmatter"
	"github.com/bureau-foundation/ftl/lib/model"
	"github.com/bureau-foundation/ftl/lib/render"
	"github.com/bureau-foundation/ftl/lib/store"
	"github.com/bureau-foundation/ftl/lib/walker"
)

// DefaultTemplate is the page template used when neither the page nor
// the configuration names one.
const DefaultTemplate = "page.html"

// DefaultStylesheetRoute is the route of the stylesheet unit when none
// is configured.
const DefaultStylesheetRoute = "style.css"

// Parser extracts a page from a markdown input file.
type Parser interface {
	ParsePage(file model.InputFile, content string) (model.Page, error)
}

// Renderer produces the output of render units.
type Renderer interface {
	RenderPage(ctx context.Context, request render.PageRequest) (render.Result, error)
	RenderStylesheet(ctx context.Context, request render.StylesheetRequest) (render.Result, error)
}

// Config holds the parameters of a build.
type Config struct {
	// Source is the site source directory.
	Source string

	// Store is the content database. Required.
	Store *store.Store

	// Content interns file bytes. Required.
	Content *contentstore.Store

	// Parser parses page frontmatter. Default: frontmatter.Parser.
	Parser Parser

	// Renderer renders units. Default: a render.Renderer with the
	// default highlight style and TemplateDepth.
	Renderer Renderer

	// Workers bounds the walk, parse and render fan-out. Default:
	// runtime.NumCPU().
	Workers int

	// TemplateDepth caps template inclusion chains. Default:
	// depgraph.DefaultMaxDepth.
	TemplateDepth int

	// DefaultTemplate is used for pages that name no template.
	// Default: DefaultTemplate.
	DefaultTemplate string

	// StylesheetRoute is the route of the stylesheet unit. Default:
	// DefaultStylesheetRoute.
	StylesheetRoute string

	// Clock stamps the revision and times the build. Default:
	// clock.Real().
	Clock clock.Clock

	// Metrics receives build counters. May be nil.
	Metrics *buildmetrics.Recorder

	// Logger receives progress messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// UnitError reports a render unit that failed to render.
type UnitError struct {
	Route string
	Kind  model.RouteKind
	Err   error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("build: %s %q: %v", e.Kind, e.Route, e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }

// Report describes a finished build.
type Report struct {
	Revision digest.Hash
	// Files is the number of files in the revision.
	Files int
	// Units is the number of render units in the revision.
	Units int
	// Stale is the number of units that could not reuse their output.
	Stale int
	// Rendered is the number of stale units rendered successfully.
	Rendered int
	// Stable is set when the revision was marked stable.
	Stable   bool
	Duration time.Duration

	WalkFailures   []*walker.WalkError
	ParseFailures  []*frontmatter.Error
	GraphErrors    []*depgraph.GraphError
	RouteConflicts []*RouteConflict
	RenderFailures []*UnitError
}

// Err joins every failure of the build, or returns nil for a clean
// build.
func (r Report) Err() error {
	var errs []error
	for _, failure := range r.WalkFailures {
		errs = append(errs, failure)
	}
	for _, failure := range r.ParseFailures {
		errs = append(errs, failure)
	}
	for _, failure := range r.GraphErrors {
		errs = append(errs, failure)
	}
	for _, failure := range r.RouteConflicts {
		errs = append(errs, failure)
	}
	for _, failure := range r.RenderFailures {
		errs = append(errs, failure)
	}
	return errors.Join(errs...)
}

// Build runs one incremental build. The returned error is non-nil only
// when the build could not run to the end (missing source, cancelled
// context, database failure); failures of individual files, templates
// and units are in the Report.
func Build(ctx context.Context, cfg Config) (report Report, err error) {
	if cfg.Store == nil || cfg.Content == nil {
		return Report{}, fmt.Errorf("build: Store and Content are required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.TemplateDepth <= 0 {
		cfg.TemplateDepth = depgraph.DefaultMaxDepth
	}
	if cfg.DefaultTemplate == "" {
		cfg.DefaultTemplate = DefaultTemplate
	}
	if cfg.StylesheetRoute == "" {
		cfg.StylesheetRoute = DefaultStylesheetRoute
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Parser == nil {
		cfg.Parser = frontmatter.Parser{}
	}
	if cfg.Renderer == nil {
		renderer, err := render.New(render.Config{MaxDepth: cfg.TemplateDepth, Logger: logger})
		if err != nil {
			return Report{}, fmt.Errorf("build: %w", err)
		}
		cfg.Renderer = renderer
	}

	start := cfg.Clock.Now()
	w, err := cfg.Store.NewWriter("build")
	if err != nil {
		return Report{}, fmt.Errorf("build: %w", err)
	}
	defer func() {
		if finalizeErr := w.Finalize(); finalizeErr != nil && err == nil {
			err = fmt.Errorf("build: writing: %w", finalizeErr)
		}
	}()

	b := &builder{cfg: cfg, writer: w, logger: logger}
	if err := b.run(ctx, &report); err != nil {
		return report, err
	}

	report.Duration = cfg.Clock.Since(start)
	cfg.Metrics.Finished(report.Duration)
	logger.Info("build complete",
		"revision", report.Revision.Short(),
		"files", report.Files,
		"units", report.Units,
		"stale", report.Stale,
		"rendered", report.Rendered,
		"stable", report.Stable,
		"duration", report.Duration,
	)
	return report, nil
}

type builder struct {
	cfg    Config
	writer *store.Writer
	logger *slog.Logger
}

func (b *builder) run(ctx context.Context, report *Report) error {
	walked, err := walker.Walk(ctx, walker.Config{
		Root:    b.cfg.Source,
		Content: b.cfg.Content,
		Writer:  b.writer,
		Workers: b.cfg.Workers,
		Clock:   b.cfg.Clock,
		Logger:  b.logger,
	})
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	report.Revision = walked.Revision
	report.Files = len(walked.Files)
	report.WalkFailures = walked.Failures
	b.cfg.Metrics.Walked(len(walked.Files), len(walked.Failures))

	site, err := b.parse(ctx, walked)
	if err != nil {
		return err
	}
	report.ParseFailures = site.parseFailures
	report.GraphErrors = site.graph.Errors
	report.RouteConflicts = site.conflicts

	// Staleness reads the database, so the parse phase commits here.
	if err := store.Flush(b.writer); err != nil {
		return fmt.Errorf("build: recording %s: %w", walked.Revision.Short(), err)
	}
	if err := b.renderStale(ctx, site, report); err != nil {
		return err
	}

	if report.Err() == nil {
		if err := b.writer.Send(store.MarkStable{Revision: walked.Revision}); err != nil {
			return fmt.Errorf("build: marking %s stable: %w", walked.Revision.Short(), err)
		}
		report.Stable = true
	}
	if err := b.writer.Send(store.Commit{}); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	return nil
}

// text returns the content of file, reading out-of-line files from the
// blob cache.
func (b *builder) text(file model.InputFile) (string, error) {
	if file.Inline {
		return file.Text(), nil
	}
	data, err := b.cfg.Content.Read(file)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
