// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package model defines the rows of the content database.
//
// The types here are plain values. They carry no database handles and
// no behaviour beyond small helpers; lib/store reads and writes them
// and the build phases pass them between each other.
//
// Identities are [digest.Hash] values. In the database they are stored
// as lowercase hex TEXT so rows can be inspected with the sqlite3
// shell and matched by prefix.
package model
