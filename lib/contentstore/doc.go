// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package contentstore turns raw file bytes into input file rows.
//
// [Store.Intern] hashes the bytes, derives the file identity from the
// content hash and the path, and decides where the bytes live:
//
//   - Inline extensions (markdown, templates, stylesheets, data files)
//     keep their text in the database row. The text must be valid
//     UTF-8. Empty text is stored as no content.
//   - Everything else is written once to the blob cache under its
//     content hash, and the row carries no content.
//
// Intern does not write database rows; the caller sends the returned
// [model.InputFile] to the serial writer. [Store.Read] is the inverse:
// it returns the bytes of any input file from the row or the cache.
package contentstore
