// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the build configuration for a site.
//
// The configuration file is chosen in this order:
//
//  1. an explicit path (the --config flag),
//  2. the FTL_CONFIG environment variable,
//  3. ftl.yaml in the site root, if it exists.
//
// If none applies, [Default] is used unchanged. File values are
// merged over the defaults, so a configuration file only needs the
// keys it changes.
//
// A site may also carry a .env file next to ftl.yaml. Its FTL_*
// entries override file values (see [Overrides] for the recognised
// keys). The .env file is parsed with godotenv.Read and never touches
// the process environment.
//
// After loading, ${SITE} and ${HOME} (and ${VAR:-default} patterns)
// are expanded in path fields. Relative paths are resolved against
// the site root.
package config
