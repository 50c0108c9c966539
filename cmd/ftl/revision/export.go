// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package revision

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ftl/cmd/ftl/cli"
)

type exportParams struct {
	cli.SiteParams
	cli.JSONOutput
}

type exportView struct {
	Revision revisionView `json:"revision"`
	Dir      string       `json:"dir"`
	Files    int          `json:"files"`
	Bytes    int64        `json:"bytes"`
}

func exportCommand(out io.Writer) *cli.Command {
	var params exportParams
	const usage = "ftl revision export <revision> <dir> [flags]"

	return &cli.Command{
		Name:    "export",
		Summary: "Write the input files of a revision to a directory",
		Description: `Reconstruct the source tree recorded in a revision. The target
directory must not exist or must be empty.`,
		Usage: usage,
		Examples: []cli.Example{
			{
				Description: "Recover the sources of the release revision",
				Command:     "ftl revision export release /tmp/release-src",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("export", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) (err error) {
			if len(args) != 2 {
				return cli.Validation("expected a revision and a directory\n\nUsage: %s", usage)
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

			result, err := manager.Export(ctx, args[0], args[1])
			if err != nil {
				return cli.Categorize(err)
			}
			view := exportView{
				Revision: newRevisionView(result.Revision),
				Dir:      args[1],
				Files:    result.Files,
				Bytes:    result.Bytes,
			}
			if done, err := params.EmitJSON(out, view); done {
				return err
			}
			fmt.Fprintf(out, "exported %d files (%s) of revision %s to %s\n",
				result.Files, humanize.IBytes(uint64(result.Bytes)), result.Revision.Label(), args[1])
			return nil
		},
	}
}
