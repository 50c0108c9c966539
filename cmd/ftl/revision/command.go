// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package revision implements "ftl revision": listing, inspecting,
// naming, pinning and exporting the revisions of a site.
package revision

import (
	"io"
	"strings"
	"time"

	"github.com/bureau-foundation/ftl/cmd/ftl/cli"
	"github.com/bureau-foundation/ftl/lib/model"
)

// Command returns the "revision" command group. Output goes to out.
func Command(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "revision",
		Summary: "List, name, pin and export revisions",
		Description: `Manage the revisions recorded by "ftl build".

A revision is named on the command line by its full id, its name, or
a unique prefix of its id of at least four hex characters.`,
		Subcommands: []*cli.Command{
			listCommand(out),
			inspectCommand(out),
			nameCommand(out),
			pinCommand(out, true),
			pinCommand(out, false),
			exportCommand(out),
		},
	}
}

// revisionView is the --json form of a revision.
type revisionView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	BuiltAt   time.Time `json:"built_at"`
	Pinned    bool      `json:"pinned"`
	Stable    bool      `json:"stable"`
	Files     int       `json:"files"`
}

func newRevisionView(r model.Revision) revisionView {
	return revisionView{
		ID:        r.ID.String(),
		Name:      r.Name,
		CreatedAt: r.CreatedAt.UTC(),
		BuiltAt:   r.BuiltAt.UTC(),
		Pinned:    r.Pinned,
		Stable:    r.Stable,
		Files:     r.Files,
	}
}

// flags renders the pinned and stable markers of a revision.
func flags(r model.Revision) string {
	var markers []string
	if r.Pinned {
		markers = append(markers, "pinned")
	}
	if r.Stable {
		markers = append(markers, "stable")
	}
	if len(markers) == 0 {
		return "-"
	}
	return strings.Join(markers, ",")
}

// singleArgument returns the only positional argument or a validation
// error naming usage.
func singleArgument(args []string, what, usage string) (string, error) {
	switch len(args) {
	case 0:
		return "", cli.Validation("%s is required\n\nUsage: %s", what, usage)
	case 1:
		return args[0], nil
	default:
		return "", cli.Validation("unexpected argument: %s", args[1])
	}
}
