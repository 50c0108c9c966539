// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package writer serialises writes from many goroutines onto one
// handler goroutine.
//
// The content database has a single writer. Walk, parse and render
// workers all produce rows concurrently; they [Writer.Send] them to a
// Writer, whose handler goroutine applies them in arrival order on the
// one write connection.
//
// # Queue
//
// The queue is unbounded. Send appends and returns at once; it never
// blocks on handler progress. The only time Send blocks is while a
// Flush or Finalize holds the send gate.
//
// # Flush
//
// [Writer.Flush] is a barrier. It closes the send gate, then waits on
// a condition variable until every message sent before the call has
// been applied by the handler. A build phase that must read what it
// just wrote calls Flush first. Flush does not poll.
//
// A message counts as applied once the handler asks the [Receiver]
// for more work after taking it. Handlers that batch (for example in
// one database transaction) therefore commit before asking for the
// next batch, and a Flush returns only after the commit.
//
// # Failure
//
// If the handler returns an error, the writer records it and discards
// whatever is still queued. Later sends are accepted and dropped so
// producers do not need to check the handler's health on every send.
// [Writer.Flush] and [Writer.Finalize] report the recorded error.
//
// # Shutdown
//
// [Writer.Finalize] flushes, closes the queue so the handler's
// receive loop ends, waits for the handler to return, and returns its
// error. Sends after Finalize fail with [ErrClosed].
package writer
