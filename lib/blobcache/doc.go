// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package blobcache stores out-of-line input bytes on disk, addressed
// by content hash.
//
// Each blob lives in one file named by the lowercase hex content hash.
// Identical bytes found at several paths, or in several revisions,
// occupy one file. A blob that already exists is never rewritten, and
// new blobs are written to a temporary file and renamed into place so
// a reader never sees a partial blob.
//
// # Blob format
//
//	offset 0: compression tag (1 byte, see [CompressionTag])
//	offset 1: uncompressed length (8 bytes, little endian)
//	offset 9: payload
//
// The payload is compressed according to the cache [Policy]. If
// compression does not shrink the bytes, the payload is stored raw
// with [CompressionNone]. Get verifies the content hash of every blob
// it returns.
package blobcache
