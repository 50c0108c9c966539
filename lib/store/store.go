// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/ftl/lib/sqlitepool"
	"github.com/bureau-foundation/ftl/lib/writer"
)

// ErrWriterBusy is returned by NewWriter while another writer is
// active.
var ErrWriterBusy = errors.New("store: a writer is already active")

// WriterError is a failed transaction on a writer. The open batch was
// rolled back; batches committed before it remain, and the writer
// discards every later message.
type WriterError struct {
	// Writer is the name passed to NewWriter.
	Writer string
	// Op is the step that failed, such as "applying store.InsertPage".
	Op  string
	Err error
}

func (e *WriterError) Error() string {
	return fmt.Sprintf("store: writer %s: %s: %v", e.Writer, e.Op, e.Err)
}

func (e *WriterError) Unwrap() error { return e.Err }

// Message is one mutation applied by the writer. Apply runs on the
// write connection inside the writer's open transaction.
type Message interface {
	Apply(conn *sqlite.Conn) error
}

// Writer is the serial writer for the content database.
type Writer = writer.Writer[Message]

// Config holds the parameters for opening a Store.
type Config struct {
	// Path is the database file. Its directory must exist.
	Path string

	// ReadPoolSize is the number of read-only connections. Defaults
	// to the sqlitepool default.
	ReadPoolSize int

	// Logger receives operational messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// Store is the content database.
type Store struct {
	path         string
	reads        *sqlitepool.Pool
	logger       *slog.Logger
	writerActive atomic.Bool
}

// Open opens the database at cfg.Path, creating and migrating it if
// needed.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store: Path is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// The schema must exist before read-only connections can open.
	conn, err := sqlitepool.OpenConn(sqlitepool.Config{
		Path:      cfg.Path,
		Logger:    logger,
		OnConnect: Migrate,
	})
	if err != nil {
		return nil, err
	}
	if err := conn.Close(); err != nil {
		return nil, fmt.Errorf("store: closing migration connection: %w", err)
	}

	reads, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: cfg.ReadPoolSize,
		ReadOnly: true,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	return &Store{
		path:   cfg.Path,
		reads:  reads,
		logger: logger,
	}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the read pool. Any writer must be finalized first.
func (s *Store) Close() error {
	if s.writerActive.Load() {
		return fmt.Errorf("store: closing with an active writer")
	}
	return s.reads.Close()
}

// Read runs fn on a read-only connection.
func (s *Store) Read(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	conn, err := s.reads.Take(ctx)
	if err != nil {
		return err
	}
	defer s.reads.Put(conn)
	return fn(conn)
}

// NewWriter opens the write connection and starts a serial writer on
// it. The caller must Finalize the writer.
func (s *Store) NewWriter(name string) (*Writer, error) {
	if !s.writerActive.CompareAndSwap(false, true) {
		return nil, ErrWriterBusy
	}
	conn, err := sqlitepool.OpenConn(sqlitepool.Config{
		Path:      s.path,
		Logger:    s.logger,
		OnConnect: Migrate,
	})
	if err != nil {
		s.writerActive.Store(false)
		return nil, err
	}
	s.logger.Debug("writer started", "writer", name)
	return writer.Spawn(writer.Config{Name: name, Logger: s.logger}, s.handler(name, conn)), nil
}

// Apply sends messages to a fresh writer and finalizes it.
func (s *Store) Apply(name string, messages ...Message) error {
	w, err := s.NewWriter(name)
	if err != nil {
		return err
	}
	for _, message := range messages {
		if err := w.Send(message); err != nil {
			break
		}
	}
	return w.Finalize()
}

// Flush commits everything sent to w so far and waits until it is
// visible to readers. A plain [writer.Writer.Flush] only waits for the
// messages to be applied inside the open transaction.
func Flush(w *Writer) error {
	if err := w.Send(Commit{}); err != nil {
		return err
	}
	return w.Flush()
}

func (s *Store) handler(name string, conn *sqlite.Conn) writer.Handler[Message] {
	return func(receiver *writer.Receiver[Message]) (err error) {
		var endTransaction func(*error)
		defer func() {
			if endTransaction != nil {
				endTransaction(&err)
			}
			if closeErr := conn.Close(); closeErr != nil && err == nil {
				err = &WriterError{Writer: name, Op: "closing write connection", Err: closeErr}
			}
			s.writerActive.Store(false)
		}()

		commit := func() error {
			if endTransaction == nil {
				return nil
			}
			var commitErr error
			endTransaction(&commitErr)
			endTransaction = nil
			if commitErr != nil {
				return &WriterError{Writer: name, Op: "committing", Err: commitErr}
			}
			return nil
		}

		for {
			batch, ok := receiver.Batch()
			if !ok {
				return commit()
			}
			for _, message := range batch {
				if _, standalone := message.(Vacuum); standalone {
					if err := commit(); err != nil {
						return err
					}
					if err := message.Apply(conn); err != nil {
						return &WriterError{Writer: name, Op: fmt.Sprintf("applying %T", message), Err: err}
					}
					continue
				}

				if endTransaction == nil {
					endTransaction, err = sqlitex.ImmediateTransaction(conn)
					if err != nil {
						endTransaction = nil
						return &WriterError{Writer: name, Op: "beginning transaction", Err: err}
					}
				}
				if err := message.Apply(conn); err != nil {
					return &WriterError{Writer: name, Op: fmt.Sprintf("applying %T", message), Err: err}
				}
				switch message.(type) {
				case Commit, CommitRevision:
					if err := commit(); err != nil {
						return err
					}
				}
			}
		}
	}
}
