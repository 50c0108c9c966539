// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package staleness

import (
	"errors"
	"testing"

	"github.com/bureau-foundation/ftl/lib/digest"
)

func TestTrackerLifecycle(t *testing.T) {
	stale := Unit{ID: digest.Content([]byte("a")), Route: "a", Reason: NeverBuilt}
	current := Unit{ID: digest.Content([]byte("b")), Route: "b"}

	tracker := NewTracker()
	if state := tracker.State(stale.ID); state != StateUnseen {
		t.Fatalf("initial state = %v, want unseen", state)
	}
	if err := tracker.Resolve([]Unit{stale, current}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tracker.State(stale.ID) != StateStale || tracker.State(current.ID) != StateFresh {
		t.Fatalf("after resolve: %v, %v", tracker.State(stale.ID), tracker.State(current.ID))
	}

	if err := tracker.Begin(stale.ID); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := tracker.Resolve([]Unit{stale}); err == nil {
		t.Fatal("Resolve while rendering succeeded")
	}
	cause := errors.New("template exploded")
	if err := tracker.Fail(stale.ID, cause); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if tracker.State(stale.ID) != StateStale {
		t.Fatalf("after failure: %v, want stale", tracker.State(stale.ID))
	}
	if got := tracker.Failures()[stale.ID]; got != cause {
		t.Fatalf("recorded failure = %v", got)
	}
	if tracker.AllFresh() {
		t.Fatal("AllFresh with a stale unit")
	}

	if err := tracker.Begin(stale.ID); err != nil {
		t.Fatalf("Begin after failure: %v", err)
	}
	if err := tracker.Succeed(stale.ID); err != nil {
		t.Fatalf("Succeed: %v", err)
	}
	if len(tracker.Failures()) != 0 {
		t.Fatal("success did not clear the failure")
	}
	if !tracker.AllFresh() {
		t.Fatalf("counts = %v, want all fresh", tracker.Counts())
	}
}

func TestTrackerRejectsInvalidTransitions(t *testing.T) {
	id := digest.Content([]byte("unit"))
	tests := []struct {
		name string
		run  func(*Tracker) error
	}{
		{"begin unseen", func(tr *Tracker) error { return tr.Begin(id) }},
		{"succeed unseen", func(tr *Tracker) error { return tr.Succeed(id) }},
		{"fail stale", func(tr *Tracker) error {
			tr.Resolve([]Unit{{ID: id, Reason: Dynamic}})
			return tr.Fail(id, errors.New("x"))
		}},
		{"begin fresh", func(tr *Tracker) error {
			tr.Resolve([]Unit{{ID: id}})
			return tr.Begin(id)
		}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var transition *TransitionError
			if err := test.run(NewTracker()); !errors.As(err, &transition) {
				t.Fatalf("error = %v, want TransitionError", err)
			}
		})
	}
}
