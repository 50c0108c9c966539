// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package revision

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ftl/cmd/ftl/cli"
)

type inspectParams struct {
	cli.SiteParams
	cli.JSONOutput
}

type fileView struct {
	ID      string `json:"id"`
	Path    string `json:"path"`
	Content string `json:"content_hash"`
	Inline  bool   `json:"inline"`
}

type pageView struct {
	Path     string   `json:"path"`
	Title    string   `json:"title,omitempty"`
	Template string   `json:"template,omitempty"`
	Draft    bool     `json:"draft"`
	Dynamic  bool     `json:"dynamic"`
	Aliases  []string `json:"aliases,omitempty"`
}

type templateView struct {
	Name         string `json:"name"`
	FileID       string `json:"file_id"`
	TemplatingID string `json:"templating_id"`
}

type routeView struct {
	Route  string `json:"route"`
	Kind   string `json:"kind"`
	FileID string `json:"file_id"`
	Parent string `json:"parent,omitempty"`
}

type detailsView struct {
	Revision  revisionView   `json:"revision"`
	Files     []fileView     `json:"files"`
	Pages     []pageView     `json:"pages"`
	Templates []templateView `json:"templates"`
	Routes    []routeView    `json:"routes"`
}

func inspectCommand(out io.Writer) *cli.Command {
	var params inspectParams
	const usage = "ftl revision inspect <revision> [flags]"

	return &cli.Command{
		Name:    "inspect",
		Summary: "Show the files, templates and routes of a revision",
		Usage:   usage,
		Examples: []cli.Example{
			{
				Description: "Inspect the revision named release",
				Command:     "ftl revision inspect release",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("inspect", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) (err error) {
			query, err := singleArgument(args, "revision", usage)
			if err != nil {
				return err
			}
			site, err := params.Open(logger)
			if err != nil {
				return err
			}
			defer cli.CloseSite(site, &err)
			manager, err := site.Revisions(logger)
			if err != nil {
				return err
			}

			details, err := manager.Inspect(ctx, query)
			if err != nil {
				return cli.Categorize(err)
			}
			view := detailsView{
				Revision:  newRevisionView(details.Revision),
				Files:     make([]fileView, len(details.Files)),
				Pages:     make([]pageView, len(details.Pages)),
				Templates: make([]templateView, len(details.Templates)),
				Routes:    make([]routeView, len(details.Routes)),
			}
			view.Revision.Files = len(details.Files)
			for i, file := range details.Files {
				view.Files[i] = fileView{ID: file.ID.String(), Path: file.Path, Content: file.ContentHash.String(), Inline: file.Inline}
			}
			for i, page := range details.Pages {
				view.Pages[i] = pageView{
					Path:     page.Path,
					Title:    page.Title,
					Template: page.Template,
					Draft:    page.Draft,
					Dynamic:  page.Dynamic,
					Aliases:  page.Aliases,
				}
			}
			for i, template := range details.Templates {
				view.Templates[i] = templateView{
					Name:         template.Name,
					FileID:       template.FileID.String(),
					TemplatingID: template.TemplatingID.String(),
				}
			}
			for i, route := range details.Routes {
				view.Routes[i] = routeView{Route: route.Route, Kind: route.Kind.String(), FileID: route.FileID.String(), Parent: route.ParentRoute}
			}
			if done, err := params.EmitJSON(out, view); done {
				return err
			}

			r := details.Revision
			fmt.Fprintf(out, "revision %s\n", r.ID)
			if r.Name != "" {
				fmt.Fprintf(out, "name     %s\n", r.Name)
			}
			fmt.Fprintf(out, "created  %s\n", r.CreatedAt.UTC().Format("2006-01-02 15:04:05 MST"))
			fmt.Fprintf(out, "built    %s\n", r.BuiltAt.UTC().Format("2006-01-02 15:04:05 MST"))
			fmt.Fprintf(out, "flags    %s\n", flags(r))

			tw := tabwriter.NewWriter(out, 2, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "\nFiles (%d):\n", len(details.Files))
			for _, file := range details.Files {
				storage := "inline"
				if !file.Inline {
					storage = "cached"
				}
				fmt.Fprintf(tw, "  %s\t%s\t%s\n", file.ID.Short(), storage, file.Path)
			}
			fmt.Fprintf(tw, "\nPages (%d):\n", len(details.Pages))
			for _, page := range details.Pages {
				var markers []string
				if page.Draft {
					markers = append(markers, "draft")
				}
				if page.Dynamic {
					markers = append(markers, "dynamic")
				}
				fmt.Fprintf(tw, "  %s\t%s\t%s\n", page.Path, page.Title, strings.Join(markers, ","))
			}
			fmt.Fprintf(tw, "\nTemplates (%d):\n", len(details.Templates))
			for _, template := range details.Templates {
				fmt.Fprintf(tw, "  %s\t%s\n", template.TemplatingID.Short(), template.Name)
			}
			fmt.Fprintf(tw, "\nRoutes (%d):\n", len(details.Routes))
			for _, route := range details.Routes {
				fmt.Fprintf(tw, "  %s\t%s\t/%s\n", route.FileID.Short(), route.Kind, route.Route)
			}
			return tw.Flush()
		},
	}
}
