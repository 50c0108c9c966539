// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package writer_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/ftl/lib/testutil"
	"github.com/bureau-foundation/ftl/lib/writer"
)

func TestAppliesInSendOrder(t *testing.T) {
	var applied []int
	w := writer.SpawnEach(writer.Config{Name: "order"}, func(n int) error {
		applied = append(applied, n)
		return nil
	})

	for i := range 1000 {
		if err := w.Send(i); err != nil {
			t.Fatalf("Send(%d): %v", i, err)
		}
	}
	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if len(applied) != 1000 {
		t.Fatalf("applied %d messages, want 1000", len(applied))
	}
	for i, n := range applied {
		if n != i {
			t.Fatalf("applied[%d] = %d, messages reordered", i, n)
		}
	}
}

func TestFlushWaitsForApply(t *testing.T) {
	var mu sync.Mutex
	applied := 0
	w := writer.SpawnEach(writer.Config{}, func(int) error {
		time.Sleep(time.Millisecond)
		mu.Lock()
		applied++
		mu.Unlock()
		return nil
	})
	defer w.Finalize()

	for i := range 20 {
		if err := w.Send(i); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if applied != 20 {
		t.Fatalf("after Flush, %d of 20 messages applied", applied)
	}
}

func TestFlushWaitsForBatchCompletion(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	committed := 0
	w := writer.Spawn(writer.Config{}, func(receiver *writer.Receiver[string]) error {
		first := true
		for {
			batch, ok := receiver.Batch()
			if !ok {
				return nil
			}
			if first {
				first = false
				close(started)
				<-release
			}
			committed += len(batch)
		}
	})

	if err := w.Send("a"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	testutil.RequireClosed(t, started, 5*time.Second, "handler took the first batch")

	flushed := make(chan struct{})
	go func() {
		if err := w.Flush(); err != nil {
			t.Errorf("Flush: %v", err)
		}
		close(flushed)
	}()
	testutil.RequireOpen(t, flushed, 50*time.Millisecond, "Flush returned while a batch was in progress")

	close(release)
	testutil.RequireClosed(t, flushed, 5*time.Second, "Flush after the batch completed")
	if committed != 1 {
		t.Fatalf("committed = %d, want 1", committed)
	}
	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
}

func TestHandlerErrorPropagates(t *testing.T) {
	failure := errors.New("disk full")
	var applied []int
	w := writer.SpawnEach(writer.Config{Name: "failing"}, func(n int) error {
		if n == 3 {
			return failure
		}
		applied = append(applied, n)
		return nil
	})

	for i := range 10 {
		if err := w.Send(i); err != nil {
			t.Fatalf("Send(%d) after handler failure: %v", i, err)
		}
	}
	if err := w.Flush(); !errors.Is(err, failure) {
		t.Fatalf("Flush error = %v, want %v", err, failure)
	}
	// Sends after a failure are accepted and dropped.
	if err := w.Send(99); err != nil {
		t.Fatalf("Send after failure: %v", err)
	}

	err := w.Finalize()
	if !errors.Is(err, failure) {
		t.Fatalf("Finalize error = %v, want %v", err, failure)
	}
	if len(applied) != 3 {
		t.Fatalf("applied = %v, want [0 1 2]", applied)
	}
	if again := w.Finalize(); !errors.Is(again, failure) {
		t.Fatalf("second Finalize error = %v, want %v", again, failure)
	}
}

func TestSendAfterFinalize(t *testing.T) {
	w := writer.SpawnEach(writer.Config{}, func(int) error { return nil })
	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if err := w.Send(1); !errors.Is(err, writer.ErrClosed) {
		t.Fatalf("Send after Finalize = %v, want ErrClosed", err)
	}
}

func TestConcurrentSenders(t *testing.T) {
	seen := make(map[int]bool)
	w := writer.SpawnEach(writer.Config{}, func(n int) error {
		if seen[n] {
			return errors.New("duplicate message")
		}
		seen[n] = true
		return nil
	})

	var waitGroup sync.WaitGroup
	for sender := range 8 {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			for i := range 100 {
				if err := w.Send(sender*100 + i); err != nil {
					t.Errorf("Send: %v", err)
					return
				}
				if i == 50 {
					if err := w.Flush(); err != nil {
						t.Errorf("Flush: %v", err)
						return
					}
				}
			}
		}()
	}
	waitGroup.Wait()

	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(seen) != 800 {
		t.Fatalf("applied %d distinct messages, want 800", len(seen))
	}
}

func TestHandlerReturningEarlyIsAnError(t *testing.T) {
	w := writer.Spawn(writer.Config{}, func(receiver *writer.Receiver[int]) error {
		receiver.Next()
		return nil
	})
	if err := w.Send(1); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := w.Finalize(); err == nil {
		t.Fatal("Finalize succeeded although the handler stopped draining")
	}
}
