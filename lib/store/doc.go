// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package store owns the content database: its schema, the messages
// that mutate it, and the queries that read it.
//
// # Connections
//
// A [Store] holds a pool of read-only connections for queries
// ([Store.Read]) and hands out at most one writer at a time
// ([Store.NewWriter]). The writer owns the only read-write connection
// for its lifetime; asking for a second writer while one is active
// fails with [ErrWriterBusy]. Finalizing the writer closes its
// connection and frees the slot.
//
// # Messages
//
// Every mutation is a [Message] sent to the writer. The writer's
// handler applies messages in arrival order inside an IMMEDIATE
// transaction that it opens lazily. The transaction commits only when
// the handler reaches a [Commit] or [CommitRevision] marker, or when the
// writer is finalized. Producers place the markers at phase boundaries,
// so how quickly they send never splits a phase across transactions.
// [Flush] sends a Commit and waits, making everything sent before it
// visible to readers. If a message fails, the open transaction rolls
// back, the writer records the error and discards the rest of the
// queue.
//
// Other packages define their own messages by implementing Message;
// lib/depgraph does this for dependency edges and lib/revision for
// compression.
//
// # Schema
//
// Identities are stored as lowercase hex TEXT. Timestamps are Unix
// nanoseconds. The schema version is kept in PRAGMA user_version;
// [Migrate] creates missing tables and [Clear] drops and recreates
// all of them.
package store
