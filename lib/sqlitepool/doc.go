// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens SQLite connections for the content
// database with a fixed set of pragmas.
//
// The content database has exactly one writer and any number of
// readers. [OpenConn] opens the single read-write connection that the
// serial writer owns for the lifetime of a build phase. [Open] opens a
// pool of connections for queries; with Config.ReadOnly set, pool
// connections are opened read-only so a stray write from a reader
// fails instead of contending with the writer.
//
// # Pragmas
//
//   - journal_mode=WAL (read-write connections only): readers never
//     block the writer and the writer never blocks readers.
//   - synchronous=NORMAL: committed builds survive a process crash.
//     A lost build after a power failure is rebuilt from source.
//   - busy_timeout=5000: wait for locks instead of failing with
//     SQLITE_BUSY.
//   - foreign_keys=OFF: the engine deletes by explicit mark and sweep.
//   - cache_size=-8192: 8 MB page cache per connection.
//   - mmap_size=268435456: 256 MB memory-mapped reads.
//   - temp_store=MEMORY: temporary tables in memory.
//
// # Usage
//
//	conn, err := sqlitepool.OpenConn(sqlitepool.Config{
//	    Path:      filepath.Join(site, ".ftl", "content.db"),
//	    OnConnect: store.Migrate,
//	})
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:     filepath.Join(site, ".ftl", "content.db"),
//	    ReadOnly: true,
//	})
//	conn, err := pool.Take(ctx)
//	defer pool.Put(conn)
package sqlitepool
