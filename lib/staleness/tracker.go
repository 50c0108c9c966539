// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package staleness

import (
	"fmt"
	"maps"
	"sync"

	"github.com/bureau-foundation/ftl/lib/digest"
)

// State is where a unit is in a build.
type State int

const (
	StateUnseen State = iota
	StateStale
	StateRendering
	StateFresh
)

func (s State) String() string {
	switch s {
	case StateUnseen:
		return "unseen"
	case StateStale:
		return "stale"
	case StateRendering:
		return "rendering"
	case StateFresh:
		return "fresh"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TransitionError reports a state change the tracker does not allow.
type TransitionError struct {
	Unit digest.Hash
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("staleness: unit %s cannot move from %s to %s", e.Unit.Short(), e.From, e.To)
}

// Tracker records the state of every unit during one build. It is safe
// for concurrent use by render workers.
type Tracker struct {
	mu       sync.Mutex
	states   map[digest.Hash]State
	failures map[digest.Hash]error
}

// NewTracker returns a tracker with every unit unseen.
func NewTracker() *Tracker {
	return &Tracker{
		states:   make(map[digest.Hash]State),
		failures: make(map[digest.Hash]error),
	}
}

// Resolve applies a resolution: stale units become StateStale, the
// rest StateFresh. It fails without changing anything if a unit is
// being rendered.
func (t *Tracker) Resolve(units []Unit) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, unit := range units {
		if state := t.states[unit.ID]; state == StateRendering {
			to := StateFresh
			if unit.Stale() {
				to = StateStale
			}
			return &TransitionError{Unit: unit.ID, From: state, To: to}
		}
	}
	for _, unit := range units {
		if unit.Stale() {
			t.states[unit.ID] = StateStale
		} else {
			t.states[unit.ID] = StateFresh
		}
	}
	return nil
}

// Begin moves a stale unit to StateRendering.
func (t *Tracker) Begin(id digest.Hash) error {
	return t.move(id, StateStale, StateRendering, nil)
}

// Succeed moves a rendering unit to StateFresh and forgets any
// earlier failure.
func (t *Tracker) Succeed(id digest.Hash) error {
	return t.move(id, StateRendering, StateFresh, nil)
}

// Fail moves a rendering unit back to StateStale and records why.
func (t *Tracker) Fail(id digest.Hash, cause error) error {
	return t.move(id, StateRendering, StateStale, cause)
}

func (t *Tracker) move(id digest.Hash, from, to State, cause error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if current := t.states[id]; current != from {
		return &TransitionError{Unit: id, From: current, To: to}
	}
	t.states[id] = to
	if cause != nil {
		t.failures[id] = cause
	} else {
		delete(t.failures, id)
	}
	return nil
}

// State returns the state of a unit.
func (t *Tracker) State(id digest.Hash) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[id]
}

// Counts returns how many units are in each state.
func (t *Tracker) Counts() map[State]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	counts := make(map[State]int)
	for _, state := range t.states {
		counts[state]++
	}
	return counts
}

// Failures returns the recorded cause for every unit whose last render
// failed.
func (t *Tracker) Failures() map[digest.Hash]error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return maps.Clone(t.failures)
}

// AllFresh reports whether every tracked unit is fresh.
func (t *Tracker) AllFresh() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, state := range t.states {
		if state != StateFresh {
			return false
		}
	}
	return true
}
