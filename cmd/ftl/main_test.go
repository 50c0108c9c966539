// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"
	"slices"
	"strings"
	"testing"

	"github.com/bureau-foundation/ftl/cmd/ftl/cli"
	"github.com/bureau-foundation/ftl/cmd/ftl/commands"
)

// TestCommandTree walks the production command tree and checks that
// every command is documented and every leaf can run. Building each
// flag set also catches malformed params tags, which panic.
func TestCommandTree(t *testing.T) {
	walkCommands(commands.Root(io.Discard), nil, func(command *cli.Command, path []string) {
		name := strings.Join(path, " ")
		if len(path) > 1 && command.Summary == "" {
			t.Errorf("%s: missing Summary", name)
		}
		if len(command.Subcommands) == 0 && command.Run == nil {
			t.Errorf("%s: leaf command without Run", name)
		}
		if command.Flags != nil {
			command.Flags()
		}
	})
}

func walkCommands(command *cli.Command, path []string, visit func(*cli.Command, []string)) {
	current := append(slices.Clone(path), command.Name)
	visit(command, current)
	for _, sub := range command.Subcommands {
		walkCommands(sub, current, visit)
	}
}

func TestExtractVerbose(t *testing.T) {
	tests := []struct {
		args        []string
		wantArgs    []string
		wantVerbose bool
	}{
		{[]string{"build"}, []string{"build"}, false},
		{[]string{"-v", "build"}, []string{"build"}, true},
		{[]string{"--verbose", "db", "stat"}, []string{"db", "stat"}, true},
		{[]string{"build", "-v"}, []string{"build", "-v"}, false},
		{nil, nil, false},
	}
	for _, test := range tests {
		args, verbose := extractVerbose(test.args)
		if !slices.Equal(args, test.wantArgs) || verbose != test.wantVerbose {
			t.Errorf("extractVerbose(%q) = %q, %v; want %q, %v", test.args, args, verbose, test.wantArgs, test.wantVerbose)
		}
	}
}
