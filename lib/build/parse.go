// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/ftl/lib/depgraph"
	"github.com/bureau-foundation/ftl/lib/digest"
	"github.com/bureau-foundation/ftl/lib/frontmatter"
	"github.com/bureau-foundation/ftl/lib/model"
	"github.com/bureau-foundation/ftl/lib/render"
	"github.com/bureau-foundation/ftl/lib/store"
	"github.com/bureau-foundation/ftl/lib/walker"
)

// Source tree layout.
const (
	contentDir   = "content/"
	templatesDir = "templates/"
	stylesDir    = "styles/"
	assetsDir    = "assets/"
)

// stylesheetUnitName seeds the identity of the stylesheet unit.
const stylesheetUnitName = "stylesheet"

// site is a revision after the parse phase.
type site struct {
	revision digest.Hash
	// files holds every member file by path.
	files map[string]model.InputFile
	// pages holds every parsed page by file id.
	pages map[digest.Hash]model.Page
	// bodies holds the markdown after the frontmatter by page id.
	bodies    map[digest.Hash]string
	templates map[string]render.Template
	graph     depgraph.Graph
	// stylesheet is the stylesheet unit. Unit is zero when the site
	// has no stylesheet sources.
	stylesheet render.StylesheetRequest
	routes     []model.Route

	parseFailures []*frontmatter.Error
	conflicts     []*RouteConflict
}

func isPage(file model.InputFile) bool {
	return strings.HasPrefix(file.Path, contentDir) && file.Extension == "md"
}

func isTemplate(file model.InputFile) bool {
	return strings.HasPrefix(file.Path, templatesDir)
}

func isStylesheetSource(file model.InputFile) bool {
	return strings.HasPrefix(file.Path, stylesDir) && (file.Extension == "css" || file.Extension == "scss")
}

// parse runs the parse phase: pages, template fingerprints with their
// Intertemplate edges, and routes. Rows are sent to the writer but not
// flushed.
func (b *builder) parse(ctx context.Context, walked walker.Result) (*site, error) {
	s := &site{
		revision:  walked.Revision,
		files:     make(map[string]model.InputFile, len(walked.Files)),
		pages:     make(map[digest.Hash]model.Page),
		bodies:    make(map[digest.Hash]string),
		templates: make(map[string]render.Template),
	}

	var pageFiles, templateFiles, stylesheetFiles []model.InputFile
	for _, file := range walked.Files {
		s.files[file.Path] = file
		switch {
		case isPage(file):
			pageFiles = append(pageFiles, file)
		case isTemplate(file):
			templateFiles = append(templateFiles, file)
		case isStylesheetSource(file):
			stylesheetFiles = append(stylesheetFiles, file)
		}
	}

	if err := b.parsePages(ctx, s, pageFiles); err != nil {
		return nil, err
	}
	if err := b.fingerprintTemplates(s, templateFiles); err != nil {
		return nil, err
	}
	if err := b.collectStylesheet(s, stylesheetFiles); err != nil {
		return nil, err
	}

	var pages []model.Page
	for _, file := range pageFiles {
		if page, ok := s.pages[file.ID]; ok {
			pages = append(pages, page)
		}
	}
	s.routes, s.conflicts = deriveRoutes(walked.Revision, walked.Files, pages, s.stylesheet.Unit, b.cfg.StylesheetRoute)
	for _, conflict := range s.conflicts {
		b.logger.Warn("route conflict", "route", conflict.Route, "path", conflict.Path, "served_by", conflict.Existing)
	}
	if err := b.writer.Send(store.ReplaceRoutes{Revision: walked.Revision, Routes: s.routes}); err != nil {
		return nil, fmt.Errorf("build: sending routes: %w", err)
	}
	return s, nil
}

// parsePages parses frontmatter in parallel and sends the pages in path
// order.
func (b *builder) parsePages(ctx context.Context, s *site, files []model.InputFile) error {
	type parsed struct {
		page    model.Page
		content string
		err     error
	}
	results := make([]parsed, len(files))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(b.cfg.Workers)
	for i, file := range files {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			content, err := b.text(file)
			if err != nil {
				return fmt.Errorf("build: reading %s: %w", file.Path, err)
			}
			page, err := b.cfg.Parser.ParsePage(file, content)
			results[i] = parsed{page: page, content: content, err: err}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	for i, result := range results {
		file := files[i]
		if result.err != nil {
			var parseErr *frontmatter.Error
			if !errors.As(result.err, &parseErr) {
				parseErr = &frontmatter.Error{Path: file.Path, Err: result.err}
			}
			b.logger.Warn("skipping page", "path", file.Path, "error", result.err)
			s.parseFailures = append(s.parseFailures, parseErr)
			continue
		}
		page := result.page
		page.ID = file.ID
		page.Path = file.Path
		s.pages[file.ID] = page
		s.bodies[file.ID] = frontmatter.Body(page, result.content)
		if err := b.writer.Send(store.InsertPage{Page: page}); err != nil {
			return fmt.Errorf("build: sending page %s: %w", file.Path, err)
		}
	}
	return nil
}

// fingerprintTemplates computes templating ids and replaces the
// revision's templates and the Intertemplate edges among them.
func (b *builder) fingerprintTemplates(s *site, files []model.InputFile) error {
	sources := make([]depgraph.TemplateSource, 0, len(files))
	parents := make([]digest.Hash, 0, len(files))
	for _, file := range files {
		text, err := b.text(file)
		if err != nil {
			return fmt.Errorf("build: reading template %s: %w", file.Path, err)
		}
		sources = append(sources, depgraph.TemplateSource{
			Name:   strings.TrimPrefix(file.Path, templatesDir),
			FileID: file.ID,
			Source: text,
		})
		parents = append(parents, file.ID)
	}

	s.graph = depgraph.ComputeTemplatingIDs(sources, b.cfg.TemplateDepth)
	for _, graphErr := range s.graph.Errors {
		b.logger.Warn("unresolvable template", "template", graphErr.Template, "error", graphErr)
	}

	var rows []model.Template
	for _, source := range sources {
		template := render.Template{Name: source.Name, FileID: source.FileID, Source: source.Source}
		if templating, ok := s.graph.Templates[source.Name]; ok {
			template.TemplatingID = templating.ID
			rows = append(rows, model.Template{
				Revision:     s.revision,
				Name:         source.Name,
				FileID:       source.FileID,
				TemplatingID: templating.ID,
			})
		}
		s.templates[source.Name] = template
	}

	messages := []store.Message{
		store.ReplaceTemplates{Revision: s.revision, Templates: rows},
		depgraph.ReplaceRelation{Relation: model.Intertemplate, Parents: parents, Edges: s.graph.Edges},
	}
	for _, message := range messages {
		if err := b.writer.Send(message); err != nil {
			return fmt.Errorf("build: sending templates: %w", err)
		}
	}
	return nil
}

// collectStylesheet assembles the stylesheet unit from its sources in
// path order.
func (b *builder) collectStylesheet(s *site, files []model.InputFile) error {
	if len(files) == 0 {
		return nil
	}
	ids := make([]digest.Hash, 0, len(files))
	sources := make([]render.StylesheetSource, 0, len(files))
	for _, file := range files {
		text, err := b.text(file)
		if err != nil {
			return fmt.Errorf("build: reading stylesheet %s: %w", file.Path, err)
		}
		ids = append(ids, file.ID)
		sources = append(sources, render.StylesheetSource{File: file, Text: text})
	}
	s.stylesheet = render.StylesheetRequest{
		Unit:    digest.Unit(stylesheetUnitName, ids),
		Route:   b.cfg.StylesheetRoute,
		Sources: sources,
	}
	return nil
}
