// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package revision

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ftl/cmd/ftl/cli"
	"github.com/bureau-foundation/ftl/lib/model"
)

type nameParams struct {
	cli.SiteParams
	cli.JSONOutput
	Clear bool `json:"-" flag:"clear" desc:"remove the revision's name"`
}

func nameCommand(out io.Writer) *cli.Command {
	var params nameParams
	const usage = "ftl revision name <revision> <name> | --clear <revision>"

	return &cli.Command{
		Name:    "name",
		Summary: "Name a revision, or clear its name",
		Description: `Give a revision a name that other revision commands accept in place
of its id. Names are unique: naming a second revision with a name in
use fails.`,
		Usage: usage,
		Examples: []cli.Example{
			{
				Description: "Name the revision with id prefix 3fa9 release",
				Command:     "ftl revision name 3fa9 release",
			},
			{
				Description: "Remove the name again",
				Command:     "ftl revision name --clear release",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("name", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) (err error) {
			var query, name string
			switch {
			case params.Clear && len(args) == 1:
				query = args[0]
			case !params.Clear && len(args) == 2:
				query, name = args[0], args[1]
				if name == "" {
					return cli.Validation("name must not be empty; use --clear to remove a name")
				}
			default:
				return cli.Validation("wrong number of arguments\n\nUsage: %s", usage)
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

			revision, err := manager.Name(ctx, query, name)
			if err != nil {
				return cli.Categorize(err)
			}
			if done, err := params.EmitJSON(out, newRevisionView(revision)); done {
				return err
			}
			if name == "" {
				fmt.Fprintf(out, "revision %s is unnamed\n", revision.ID.Short())
			} else {
				fmt.Fprintf(out, "revision %s is named %s\n", revision.ID.Short(), name)
			}
			return nil
		},
	}
}

type pinParams struct {
	cli.SiteParams
	cli.JSONOutput
}

// pinCommand returns "pin" when pin is true and "unpin" otherwise.
func pinCommand(out io.Writer, pin bool) *cli.Command {
	var params pinParams
	name, summary := "pin", "Protect a revision from compression"
	if !pin {
		name, summary = "unpin", "Allow compression to remove a revision"
	}
	usage := fmt.Sprintf("ftl revision %s <revision> [flags]", name)

	return &cli.Command{
		Name:    name,
		Summary: summary,
		Usage:   usage,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams(name, &params)
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

			var revision model.Revision
			if pin {
				revision, err = manager.Pin(ctx, query)
			} else {
				revision, err = manager.Unpin(ctx, query)
			}
			if err != nil {
				return cli.Categorize(err)
			}
			if done, err := params.EmitJSON(out, newRevisionView(revision)); done {
				return err
			}
			fmt.Fprintf(out, "revision %s %sned\n", revision.Label(), name)
			return nil
		},
	}
}
