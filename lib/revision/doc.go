// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package revision manages the lifecycle of revisions in the content
// database: listing, naming, pinning, export, compression and clearing.
//
// Revisions are addressed by a query string resolved in order as an
// exact id, an exact name, or a unique id prefix of at least
// [MinPrefixLength] hex characters.
//
// [Manager.Compress] is mark and sweep. The most recently built stable
// revision (or the most recent revision if none is stable) and every
// pinned revision are kept. Everything else goes, along with input
// files, pages, output, dependency edges and cached blobs that no kept
// revision reaches. [Manager.Clear] empties the database and the blob
// cache regardless of pins.
//
// All mutations go through the store's serial writer, so a Manager
// fails with store.ErrWriterBusy while a build in the same process
// holds the writer.
package revision
