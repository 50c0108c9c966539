// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package build runs one incremental build of a site.
//
// A build walks the source tree into a revision, parses page
// frontmatter, fingerprints templates, derives routes, and then asks
// the staleness resolver which render units (pages and the stylesheet)
// cannot reuse their previous output. Only those are rendered. Each
// render stores its output together with the edges it observed, in one
// transaction, so the next build can decide staleness from the
// dependency graph alone.
//
// The revision is marked stable when every phase finished without a
// failure. A build with failures still records everything that
// succeeded; the previous stable revision stays the one compression
// keeps.
//
// Parsing and rendering are collaborators behind the [Parser] and
// [Renderer] interfaces. The defaults are frontmatter.Parser and
// render.Renderer.
package build
