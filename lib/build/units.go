// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"zombiezen.com/go/sqlite"

	"github.com/bureau-foundation/ftl/lib/depgraph"
	"github.com/bureau-foundation/ftl/lib/model"
	"github.com/bureau-foundation/ftl/lib/render"
	"github.com/bureau-foundation/ftl/lib/staleness"
	"github.com/bureau-foundation/ftl/lib/store"
)

// recordRender stores a unit's output and its observed edges in one
// transaction, so a unit never has output without the edges that
// decide whether the output is current.
type recordRender struct {
	output model.Output
	edges  []model.Edge
}

func (m recordRender) Apply(conn *sqlite.Conn) error {
	if err := (depgraph.ReplaceEdges{Parent: m.output.ID, Edges: m.edges}).Apply(conn); err != nil {
		return err
	}
	return store.ReplaceOutput{Output: m.output}.Apply(conn)
}

// renderStale classifies the revision's units and renders the stale
// ones in parallel.
func (b *builder) renderStale(ctx context.Context, s *site, report *Report) error {
	var units []staleness.Unit
	err := b.cfg.Store.Read(ctx, func(conn *sqlite.Conn) error {
		var err error
		units, err = staleness.Classify(conn, s.revision)
		return err
	})
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}

	tracker := staleness.NewTracker()
	if err := tracker.Resolve(units); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	report.Units = len(units)

	var stale []staleness.Unit
	for _, unit := range units {
		if unit.Stale() {
			stale = append(stale, unit)
			b.cfg.Metrics.Stale(unit.Kind)
			b.logger.Debug("unit is stale", "route", unit.Route, "kind", unit.Kind, "reason", unit.Reason)
		}
	}
	report.Stale = len(stale)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(b.cfg.Workers)
	for _, unit := range stale {
		group.Go(func() error {
			if err := tracker.Begin(unit.ID); err != nil {
				return err
			}
			result, renderErr := b.renderUnit(groupCtx, s, unit)
			if renderErr != nil {
				if err := groupCtx.Err(); err != nil {
					return err
				}
				b.cfg.Metrics.RenderFailed(unit.Kind)
				b.logger.Warn("render failed", "route", unit.Route, "kind", unit.Kind, "error", renderErr)
				return tracker.Fail(unit.ID, renderErr)
			}
			err := b.writer.Send(recordRender{
				output: model.Output{ID: unit.ID, Kind: unit.Kind.OutputKind(), Content: result.Content},
				edges:  result.Edges,
			})
			if err != nil {
				return fmt.Errorf("build: sending output of %q: %w", unit.Route, err)
			}
			b.cfg.Metrics.Rendered(unit.Kind)
			return tracker.Succeed(unit.ID)
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	failures := tracker.Failures()
	for _, unit := range stale {
		if cause, failed := failures[unit.ID]; failed {
			report.RenderFailures = append(report.RenderFailures, &UnitError{Route: unit.Route, Kind: unit.Kind, Err: cause})
		} else {
			report.Rendered++
		}
	}
	return nil
}

func (b *builder) renderUnit(ctx context.Context, s *site, unit staleness.Unit) (render.Result, error) {
	switch unit.Kind {
	case model.RoutePage:
		page, ok := s.pages[unit.ID]
		if !ok {
			return render.Result{}, fmt.Errorf("no page with id %s", unit.ID.Short())
		}
		template := page.Template
		if template == "" {
			template = b.cfg.DefaultTemplate
		}
		return b.cfg.Renderer.RenderPage(ctx, render.PageRequest{
			Page:      page,
			Body:      s.bodies[unit.ID],
			Template:  template,
			Templates: s.templates,
			Files:     s.files,
		})
	case model.RouteStylesheet:
		if s.stylesheet.Unit != unit.ID {
			return render.Result{}, fmt.Errorf("no stylesheet with id %s", unit.ID.Short())
		}
		return b.cfg.Renderer.RenderStylesheet(ctx, s.stylesheet)
	default:
		return render.Result{}, fmt.Errorf("%s routes are not render units", unit.Kind)
	}
}
