// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package frontmatter parses the metadata block at the top of a
// markdown page.
//
// Two forms are recognised. YAML frontmatter sits between two lines
// holding only "---" (the closing line may also be "..."):
//
//	---
//	title: Hello
//	tags: [intro]
//	---
//	Body text.
//
// JSON frontmatter is an object that opens on the first line. Comments
// and trailing commas are allowed, as in JSONC files elsewhere:
//
//	{
//	  "title": "Hello", // shown in the page header
//	}
//	Body text.
//
// A page with neither has empty frontmatter and its body starts at
// offset 0. The keys template, title, draft, dynamic, aliases and tags
// fill the matching model.Page fields; every other key is kept in
// Page.Attributes for templates to use.
package frontmatter
