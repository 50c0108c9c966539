// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package db implements "ftl db": statistics and garbage collection
// of a site's content database and blob cache.
package db

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ftl/cmd/ftl/cli"
)

// Command returns the "db" command group. Output goes to out.
func Command(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "db",
		Summary: "Inspect and shrink the content database",
		Subcommands: []*cli.Command{
			statCommand(out),
			compressCommand(out),
			clearCommand(out),
		},
	}
}

type statParams struct {
	cli.SiteParams
	cli.JSONOutput
}

type statView struct {
	Revisions     int              `json:"revisions"`
	Pinned        int              `json:"pinned"`
	Stable        int              `json:"stable"`
	Rows          map[string]int64 `json:"rows"`
	DatabaseBytes int64            `json:"database_bytes"`
	Blobs         int              `json:"blobs"`
	BlobBytes     int64            `json:"blob_bytes"`
}

func statCommand(out io.Writer) *cli.Command {
	var params statParams

	return &cli.Command{
		Name:    "stat",
		Summary: "Show row counts and storage use",
		Usage:   "ftl db stat [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("stat", &params)
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

			stats, err := manager.Stat(ctx)
			if err != nil {
				return err
			}
			view := statView{
				Revisions:     stats.Revisions,
				Pinned:        stats.Pinned,
				Stable:        stats.Stable,
				Rows:          stats.Rows,
				DatabaseBytes: stats.DatabaseBytes,
				Blobs:         stats.Blobs.Blobs,
				BlobBytes:     stats.Blobs.Bytes,
			}
			if done, err := params.EmitJSON(out, view); done {
				return err
			}

			fmt.Fprintf(out, "revisions  %d (%d pinned, %d stable)\n", stats.Revisions, stats.Pinned, stats.Stable)
			fmt.Fprintf(out, "database   %s\n", humanize.IBytes(uint64(stats.DatabaseBytes)))
			fmt.Fprintf(out, "blobs      %s in %s\n", humanize.Comma(int64(stats.Blobs.Blobs)), humanize.IBytes(uint64(stats.Blobs.Bytes)))
			return printRows(out, "\nRows:", stats.Rows)
		},
	}
}

type compressParams struct {
	cli.SiteParams
	cli.JSONOutput
}

type removedView struct {
	Kept  []string         `json:"kept,omitempty"`
	Rows  map[string]int64 `json:"rows"`
	Blobs int              `json:"blobs"`
}

func compressCommand(out io.Writer) *cli.Command {
	var params compressParams

	return &cli.Command{
		Name:    "compress",
		Summary: "Delete old revisions and everything only they use",
		Description: `Delete every revision except the most recent stable one and the
pinned ones. Files, outputs, templates, routes and dependency edges
no remaining revision reaches are deleted with them, and cached blobs
no remaining file references are removed. The database is vacuumed
afterwards.`,
		Usage: "ftl db compress [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("compress", &params)
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

			result, err := manager.Compress(ctx)
			if err != nil {
				return cli.Categorize(err)
			}
			view := removedView{Kept: result.Kept, Rows: result.Rows, Blobs: result.Blobs}
			if done, err := params.EmitJSON(out, view); done {
				return err
			}
			fmt.Fprintf(out, "kept %d revisions, removed %s blobs\n", len(result.Kept), humanize.Comma(int64(result.Blobs)))
			return printRows(out, "Deleted rows:", result.Rows)
		},
	}
}

type clearParams struct {
	cli.SiteParams
	cli.JSONOutput
	Yes bool `json:"-" flag:"yes,y" desc:"confirm deleting every revision, including pinned ones"`
}

func clearCommand(out io.Writer) *cli.Command {
	var params clearParams

	return &cli.Command{
		Name:    "clear",
		Summary: "Delete everything in the content database",
		Description: `Delete every revision, pinned or not, with all files, outputs and
edges, and empty the blob cache. The next build renders every unit.
Requires --yes.`,
		Usage: "ftl db clear --yes [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("clear", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) (err error) {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			if !params.Yes {
				return cli.Validation("clear deletes every revision including pinned ones; pass --yes to confirm")
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

			result, err := manager.Clear(ctx)
			if err != nil {
				return cli.Categorize(err)
			}
			if done, err := params.EmitJSON(out, removedView{Rows: result.Rows, Blobs: result.Blobs}); done {
				return err
			}
			fmt.Fprintf(out, "cleared, removed %s blobs\n", humanize.Comma(int64(result.Blobs)))
			return printRows(out, "Deleted rows:", result.Rows)
		},
	}
}

// printRows writes a table-to-count map sorted by table name.
func printRows(out io.Writer, heading string, rows map[string]int64) error {
	tables := make([]string, 0, len(rows))
	for table := range rows {
		tables = append(tables, table)
	}
	slices.Sort(tables)

	fmt.Fprintln(out, heading)
	tw := tabwriter.NewWriter(out, 2, 0, 2, ' ', 0)
	for _, table := range tables {
		fmt.Fprintf(tw, "  %s\t%s\n", table, humanize.Comma(rows[table]))
	}
	return tw.Flush()
}
