// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireClosed] and [RequireOpen] wrap the select with a timeout
// that channel-based tests need. They are the only
// place in the test suite that waits on wall-clock time.
//
// [WriteTree] materialises a source tree from a map of slash-separated
// paths to contents, and [RemoveFile] and [ReadTree] edit and inspect
// one between builds.
//
// All helpers call t.Fatalf on failure.
package testutil
