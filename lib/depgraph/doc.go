// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package depgraph records what each derived artifact was built from
// and fingerprints templates by everything they pull in.
//
// # Edges
//
// An edge (relation, parent, child) says parent was built from child.
// Three relations exist (see model.Relation). Edges carry no revision:
// they describe how an artifact was built, and the staleness resolver
// checks them against whichever revision is being built.
//
// Edges for a parent are replaced as a whole with [ReplaceEdges], so a
// parent never keeps an edge from a previous build that no longer
// applies. [RecordEdge] and [ClearEdgesFor] exist for callers that build
// the set incrementally.
//
// # Templating identities
//
// Templates refer to each other with four directives:
//
//	{% include "partials/nav.html" %}
//	{% import "macros.html" as m %}
//	{% from "macros.html" import button %}
//	{% extends "base.html" %}
//
// [ParseDirectives] extracts the referenced names. [ComputeTemplatingIDs]
// resolves every template's transitive closure over those references in
// memory and fingerprints it with digest.Templating. Editing any
// template in the closure changes the fingerprint of every template
// that reaches it, which is how a change to base.html reaches every
// page rendered with post.html.
//
// A template whose closure contains a cycle, exceeds the depth limit,
// or names a template that does not exist gets a [GraphError] and no
// fingerprint. Other templates are unaffected.
package depgraph
