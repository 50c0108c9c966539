// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration used for structured
// columns in the content database.
//
// Page attributes (the frontmatter keys the engine does not interpret
// itself) are stored as a CBOR blob. Encoding uses Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items. The same attributes always
// produce the same bytes, so re-parsing an unchanged page never
// produces a different row.
//
//	data, err := codec.Marshal(attributes)
//	err = codec.Unmarshal(data, &attributes)
//
// Decoding into an any-typed target yields map[string]any rather than
// map[any]any so decoded values can be handed straight to templates
// and encoding/json.
package codec
