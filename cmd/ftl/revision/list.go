// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package revision

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ftl/cmd/ftl/cli"
)

type listParams struct {
	cli.SiteParams
	cli.JSONOutput
}

func listCommand(out io.Writer) *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Summary: "List revisions, most recently built first",
		Usage:   "ftl revision list [flags]",
		Examples: []cli.Example{
			{
				Description: "List revisions as JSON",
				Command:     "ftl revision list --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) (err error) {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
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

			revisions, err := manager.List(ctx)
			if err != nil {
				return err
			}
			views := make([]revisionView, len(revisions))
			for i, r := range revisions {
				views[i] = newRevisionView(r)
			}
			if done, err := params.EmitJSON(out, views); done {
				return err
			}

			if len(revisions) == 0 {
				fmt.Fprintln(out, "No revisions. Run 'ftl build' to record one.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 2, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "REVISION\tNAME\tFILES\tBUILT\tFLAGS")
			for _, r := range revisions {
				name := r.Name
				if name == "" {
					name = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", r.ID.Short(), name, r.Files, humanize.Time(r.BuiltAt), flags(r))
			}
			return tw.Flush()
		},
	}
}
