// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command ftl builds static sites incrementally.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/ftl/cmd/ftl/cli"
	"github.com/bureau-foundation/ftl/cmd/ftl/commands"
	"github.com/bureau-foundation/ftl/lib/process"
)

func main() {
	process.Exit(run())
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args, verbose := extractVerbose(os.Args[1:])
	if !verbose {
		verbose = os.Getenv("FTL_VERBOSE") != ""
	}
	return commands.Root(os.Stdout).Execute(ctx, args, cli.NewCommandLogger(verbose))
}

// extractVerbose removes a leading -v or --verbose from args. The flag
// belongs to the binary rather than to any one command.
func extractVerbose(args []string) ([]string, bool) {
	if len(args) > 0 && (args[0] == "-v" || args[0] == "--verbose") {
		return args[1:], true
	}
	return args, false
}
