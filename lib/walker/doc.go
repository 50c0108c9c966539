// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package walker traverses a source tree and turns it into a revision.
//
// [Walk] visits directories in parallel. Each regular file is read,
// interned through the content store, and sent to the serial writer
// as an input file row. Symlinks, devices and sockets are skipped and
// never followed.
//
// The revision identity is the order-independent fold of every file
// identity (see digest.Accumulator). Each directory task folds its own
// files into a local accumulator and merges it into the walk total
// once, so the result is the same however the scheduler interleaves
// the directories.
//
// When traversal finishes the walker sends, in order, CreateRevision,
// one AddToRevision per file, and CommitRevision. A file that cannot
// be read or interned is reported as a [WalkError] and left out of the
// revision; the walk still produces a well-formed revision of the
// files that did succeed.
package walker
