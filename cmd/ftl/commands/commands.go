// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the ftl command tree.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	buildcmd "github.com/bureau-foundation/ftl/cmd/ftl/build"
	"github.com/bureau-foundation/ftl/cmd/ftl/cli"
	dbcmd "github.com/bureau-foundation/ftl/cmd/ftl/db"
	revisioncmd "github.com/bureau-foundation/ftl/cmd/ftl/revision"
	"github.com/bureau-foundation/ftl/lib/version"
)

// Root builds the complete command tree. Command output goes to out;
// logs and help go to stderr.
func Root(out io.Writer) *cli.Command {
	return &cli.Command{
		Name: "ftl",
		Description: `ftl: an incremental static site generator.

Every build records the source tree as a revision in a content
database and renders only the pages and stylesheets whose inputs
changed since they were last rendered.`,
		Subcommands: []*cli.Command{
			buildcmd.Command(out),
			revisioncmd.Command(out),
			dbcmd.Command(out),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					if len(args) > 0 {
						return cli.Validation("unexpected argument: %s", args[0])
					}
					fmt.Fprintf(out, "ftl %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Build the site in the current directory",
				Command:     "ftl build",
			},
			{
				Description: "List recorded revisions",
				Command:     "ftl revision list",
			},
			{
				Description: "Keep the current revision through compression",
				Command:     "ftl revision pin 3fa9",
			},
			{
				Description: "Drop old revisions and unreferenced blobs",
				Command:     "ftl db compress",
			},
		},
	}
}
