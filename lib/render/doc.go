// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package render turns pages and stylesheets into output, reporting the
// dependency edges each render observed.
//
// A page is rendered in three steps. The markdown body is converted to
// HTML with goldmark (GitHub flavoured), with fenced code highlighted by
// chroma using CSS classes rather than inline styles. Links and images
// whose targets are files of the revision become PageAsset edges. The
// HTML is then placed into the page's template by the composer, which
// follows {% extends %} chains through {{ content }}, inlines
// {% include %} and drops {% import %} and {% from %} lines. The page
// gets a PageTemplate edge to the template's templating id, so any edit
// in the template's closure makes it stale.
//
// The stylesheet unit concatenates every stylesheet source in path
// order, followed by the CSS for the configured highlight style.
//
// A Renderer holds no per-render state and is safe for concurrent use.
package render
