// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package staleness decides which render units of a revision must be
// rebuilt.
//
// A render unit is a Page or Stylesheet route. Its output is keyed by
// the route's file id, and the dependency edges recorded when it was
// last rendered have that id as their parent. A unit is stale when:
//
//   - it has neither output nor edges (never built),
//   - one of its edges points at something that is neither a member
//     file of the revision nor a templating id of the revision's
//     templates, or
//   - it is a page marked dynamic.
//
// Everything else is fresh and its stored output is reused. Because
// ids are content addressed, an edit anywhere changes the id the edge
// would need, which is the only signal the resolver relies on.
//
// [Tracker] follows units through a build: Unseen, Stale, Rendering,
// and Fresh. A failed render returns the unit to Stale and leaves its
// previous output untouched.
package staleness
