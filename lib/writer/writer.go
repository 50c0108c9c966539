// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package writer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrClosed is returned by Send after Finalize.
var ErrClosed = errors.New("writer: closed")

// Config holds the optional parameters of a Writer.
type Config struct {
	// Name identifies the writer in log messages and errors.
	Name string

	// Logger receives lifecycle messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// Handler drains a Receiver until it reports the queue closed. A
// non-nil return marks the writer failed.
type Handler[T any] func(*Receiver[T]) error

// Writer is a single-consumer, multi-producer message queue with a
// flush barrier. All methods are safe for concurrent use.
type Writer[T any] struct {
	name   string
	logger *slog.Logger

	// gate is held shared by Send and exclusively by Flush and
	// Finalize, so no message can slip in behind a barrier.
	gate sync.RWMutex

	mu        sync.Mutex
	cond      *sync.Cond
	// queue holds messages not yet taken by the handler.
	queue     []T
	// pending counts messages sent but not yet applied.
	pending   int
	// closed is set by Finalize. The handler drains queue and stops.
	closed    bool
	// dead is set when the handler returns.
	dead      bool
	err       error
	discarded int

	done chan struct{}
}

// Spawn starts handler on its own goroutine and returns the writer
// that feeds it.
func Spawn[T any](cfg Config, handler Handler[T]) *Writer[T] {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	name := cfg.Name
	if name == "" {
		name = "writer"
	}

	w := &Writer[T]{
		name:   name,
		logger: logger,
		done:   make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.mu)

	go w.run(handler)
	return w
}

// SpawnEach starts a writer whose handler calls apply once per
// message, in order.
func SpawnEach[T any](cfg Config, apply func(T) error) *Writer[T] {
	return Spawn(cfg, func(receiver *Receiver[T]) error {
		for {
			message, ok := receiver.Next()
			if !ok {
				return nil
			}
			if err := apply(message); err != nil {
				return err
			}
		}
	})
}

func (w *Writer[T]) run(handler Handler[T]) {
	defer close(w.done)

	err := handler(&Receiver[T]{writer: w})

	w.mu.Lock()
	defer w.mu.Unlock()
	w.dead = true
	if err == nil && !w.closed {
		err = errors.New("handler returned before the writer was finalized")
	}
	if err != nil {
		w.err = fmt.Errorf("%s: %w", w.name, err)
		w.discarded += len(w.queue)
		w.logger.Error("writer handler failed",
			"writer", w.name,
			"error", err,
			"discarded", len(w.queue),
		)
	}
	w.queue = nil
	w.pending = 0
	w.cond.Broadcast()
}

// Send enqueues message. It does not wait for the handler.
func (w *Writer[T]) Send(message T) error {
	w.gate.RLock()
	defer w.gate.RUnlock()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.dead {
		w.discarded++
		return nil
	}
	w.queue = append(w.queue, message)
	w.pending++
	w.cond.Broadcast()
	return nil
}

// Flush blocks until every message sent before the call has been
// applied. Sends from other goroutines wait until Flush returns. It
// returns the handler's error if the handler has failed.
func (w *Writer[T]) Flush() error {
	w.gate.Lock()
	defer w.gate.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.waitApplied()
	return w.err
}

// Finalize flushes, stops the handler, and returns its error.
// Calling Finalize again returns the same result.
func (w *Writer[T]) Finalize() error {
	w.gate.Lock()
	w.mu.Lock()
	w.waitApplied()
	w.closed = true
	w.cond.Broadcast()
	w.mu.Unlock()
	w.gate.Unlock()

	<-w.done

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.discarded > 0 {
		w.logger.Warn("writer discarded messages after failure",
			"writer", w.name,
			"discarded", w.discarded,
		)
	}
	return w.err
}

// Err returns the handler's error, or nil while it is healthy.
func (w *Writer[T]) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// waitApplied blocks until nothing is pending. Caller holds w.mu.
func (w *Writer[T]) waitApplied() {
	for w.pending > 0 && !w.dead {
		w.cond.Wait()
	}
}

// Receiver is the handler's side of a Writer. It must only be used by
// the handler goroutine.
type Receiver[T any] struct {
	writer *Writer[T]
	// taken counts messages handed out by the previous call.
	taken int
}

// Next returns the next message. It marks everything returned by the
// previous Next or Batch call as applied. ok is false once the writer
// is finalized and the queue is empty.
func (r *Receiver[T]) Next() (message T, ok bool) {
	batch, ok := r.take(1)
	if !ok {
		return message, false
	}
	return batch[0], true
}

// Batch returns every queued message, blocking until there is at
// least one. It marks everything returned by the previous call as
// applied. ok is false once the writer is finalized and the queue is
// empty.
func (r *Receiver[T]) Batch() ([]T, bool) {
	return r.take(0)
}

// take hands out up to limit messages, or all of them when limit is 0.
func (r *Receiver[T]) take(limit int) ([]T, bool) {
	w := r.writer
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending -= r.taken
	r.taken = 0
	w.cond.Broadcast()

	for len(w.queue) == 0 && !w.closed {
		w.cond.Wait()
	}
	if len(w.queue) == 0 {
		return nil, false
	}

	count := len(w.queue)
	if limit > 0 && limit < count {
		count = limit
	}
	batch := make([]T, count)
	copy(batch, w.queue)
	w.queue = w.queue[count:]
	if len(w.queue) == 0 {
		w.queue = nil
	}
	r.taken = count
	return batch, true
}
