// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest defines the identities used by the build engine.
//
// Every identity is a 32-byte BLAKE3 keyed hash. Each kind of identity
// has its own domain key so that the same bytes hashed for different
// purposes never collide:
//
//   - [Content] hashes the raw bytes of an input file. Two files with
//     identical bytes share a content hash and share one cached blob.
//   - [File] hashes a content hash together with the source-relative
//     path. Identical bytes at two paths are two input files.
//   - [Accumulator] folds the file identities of a walk into a
//     revision identity. Folding is addition modulo 2^256, so the
//     result does not depend on discovery order, and a repeated file
//     identity changes the sum instead of cancelling out.
//   - [Templating] hashes a template's own file identity together with
//     the identities of every template it transitively pulls in. Any
//     change anywhere in the inclusion closure changes the result.
//   - [Unit] names a derived artifact that is built from several files
//     at once, such as the site stylesheet.
//
// Hashes are stored and displayed as lowercase hex. [Hash.Short]
// gives the 12-character prefix used in logs and CLI tables.
package digest
