// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for ftl.
//
// The central type is [Command], a named subcommand with optional
// nested [Command.Subcommands], a [pflag.FlagSet] factory, and a Run
// function. The tree is assembled in cmd/ftl/commands and dispatched
// via [Command.Execute], which handles flag parsing, subcommand routing
// and help output with examples.
//
// Unknown subcommands and flags are answered with the closest known
// name by Levenshtein distance (at most 3).
//
// Parameter structs bind their flags from struct tags with
// [FlagsFromParams]. Embedding [JSONOutput] adds --json, and embedding
// [SiteParams] adds --site and --config together with [SiteParams.Open],
// which loads the site configuration and opens its content database.
package cli
