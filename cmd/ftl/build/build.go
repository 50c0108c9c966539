// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package build implements "ftl build".
package build

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ftl/cmd/ftl/cli"
	libbuild "github.com/bureau-foundation/ftl/lib/build"
	"github.com/bureau-foundation/ftl/lib/buildmetrics"
	"github.com/bureau-foundation/ftl/lib/render"
)

type buildParams struct {
	cli.SiteParams
	cli.JSONOutput
	MetricsFile string `json:"-" flag:"metrics-file" desc:"write build metrics in Prometheus text format to this file"`
	Workers     int    `json:"-" flag:"workers,j" desc:"override build.workers from the configuration"`
}

// report is the --json form of a build report.
type report struct {
	Revision string  `json:"revision"`
	Files    int     `json:"files"`
	Units    int     `json:"units"`
	Stale    int     `json:"stale"`
	Rendered int     `json:"rendered"`
	Stable   bool    `json:"stable"`
	Seconds  float64 `json:"seconds"`
	// Failures holds one message per walk, parse, template, route or
	// render failure.
	Failures []string `json:"failures"`
}

func newReport(r libbuild.Report) report {
	result := report{
		Revision: r.Revision.String(),
		Files:    r.Files,
		Units:    r.Units,
		Stale:    r.Stale,
		Rendered: r.Rendered,
		Stable:   r.Stable,
		Seconds:  r.Duration.Seconds(),
		Failures: []string{},
	}
	for _, failure := range r.WalkFailures {
		result.Failures = append(result.Failures, failure.Error())
	}
	for _, failure := range r.ParseFailures {
		result.Failures = append(result.Failures, failure.Error())
	}
	for _, failure := range r.GraphErrors {
		result.Failures = append(result.Failures, failure.Error())
	}
	for _, failure := range r.RouteConflicts {
		result.Failures = append(result.Failures, failure.Error())
	}
	for _, failure := range r.RenderFailures {
		result.Failures = append(result.Failures, failure.Error())
	}
	return result
}

// Command returns the "build" command. Output goes to out.
func Command(out io.Writer) *cli.Command {
	var params buildParams

	return &cli.Command{
		Name:    "build",
		Summary: "Build the site incrementally",
		Description: `Walk the source tree into a revision and render every page and
stylesheet whose inputs changed since it was last rendered.

Output of units whose inputs are unchanged is reused from the content
database. The revision is marked stable when every file parsed, every
template resolved and every unit rendered. The command exits with
status 1 when any of those failed; the failures are listed.`,
		Usage: "ftl build [flags]",
		Examples: []cli.Example{
			{
				Description: "Build the site in the current directory",
				Command:     "ftl build",
			},
			{
				Description: "Build another site and export metrics for node_exporter",
				Command:     "ftl build --site ~/blog --metrics-file /var/lib/node_exporter/ftl.prom",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("build", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) (err error) {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			if params.Workers < 0 {
				return cli.Validation("--workers must not be negative, got %d", params.Workers)
			}

			site, err := params.Open(logger)
			if err != nil {
				return err
			}
			defer cli.CloseSite(site, &err)

			cfg := site.Config
			workers := cfg.Build.Workers
			if params.Workers > 0 {
				workers = params.Workers
			}
			renderer, err := render.New(render.Config{
				HighlightStyle: cfg.Render.HighlightStyle,
				MaxDepth:       cfg.Build.TemplateDepth,
				Logger:         logger,
			})
			if err != nil {
				return cli.Validation("%w", err)
			}

			metrics := buildmetrics.New()
			result, err := libbuild.Build(ctx, libbuild.Config{
				Source:          cfg.Paths.Source,
				Store:           site.Store,
				Content:         site.Content,
				Renderer:        renderer,
				Workers:         workers,
				TemplateDepth:   cfg.Build.TemplateDepth,
				DefaultTemplate: cfg.Build.DefaultTemplate,
				StylesheetRoute: cfg.Render.StylesheetRoute,
				Metrics:         metrics,
				Logger:          logger,
			})
			if err != nil {
				return cli.Categorize(err)
			}
			if params.MetricsFile != "" {
				if err := metrics.WriteTextfile(params.MetricsFile); err != nil {
					return fmt.Errorf("writing metrics: %w", err)
				}
			}

			summary := newReport(result)
			if done, err := params.EmitJSON(out, summary); done {
				if err != nil {
					return err
				}
			} else {
				printReport(out, summary)
			}
			if len(summary.Failures) > 0 {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

func printReport(out io.Writer, r report) {
	state := "stable"
	if !r.Stable {
		state = "not stable"
	}
	fmt.Fprintf(out, "revision %s (%s)\n", r.Revision[:12], state)
	fmt.Fprintf(out, "  %d files, %d units, %d stale, %d rendered in %s\n",
		r.Files, r.Units, r.Stale, r.Rendered, time.Duration(r.Seconds*float64(time.Second)).Round(time.Millisecond))
	if len(r.Failures) > 0 {
		fmt.Fprintf(out, "%d failures:\n", len(r.Failures))
		for _, failure := range r.Failures {
			fmt.Fprintf(out, "  %s\n", failure)
		}
	}
}
