// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"testing"

	"pgregory.net/rapid"
)

func genHash(t *rapid.T) Hash {
	var hash Hash
	copy(hash[:], rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "hashBytes"))
	return hash
}

func TestAccumulatorIsOrderIndependent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ids := rapid.SliceOf(rapid.Custom(genHash)).Draw(t, "ids")
		permutation := rapid.Permutation(ids).Draw(t, "permutation")

		var forward, shuffled Accumulator
		for _, id := range ids {
			forward.Add(id)
		}
		for _, id := range permutation {
			shuffled.Add(id)
		}
		if forward.Revision() != shuffled.Revision() {
			t.Fatalf("revision depends on discovery order")
		}
	})
}

func TestAccumulatorMergeMatchesSequentialAdd(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ids := rapid.SliceOf(rapid.Custom(genHash)).Draw(t, "ids")
		split := rapid.IntRange(0, len(ids)).Draw(t, "split")

		var whole, left, right Accumulator
		for _, id := range ids {
			whole.Add(id)
		}
		for _, id := range ids[:split] {
			left.Add(id)
		}
		for _, id := range ids[split:] {
			right.Add(id)
		}
		right.Merge(left)
		if right.Revision() != whole.Revision() || right.Count() != whole.Count() {
			t.Fatalf("merged accumulator differs from sequential accumulator")
		}
	})
}

func TestAccumulatorRepeatedIdentityDoesNotCancel(t *testing.T) {
	a := Content([]byte("a"))
	b := Content([]byte("b"))

	var single, doubled Accumulator
	single.Add(b)
	doubled.Add(a)
	doubled.Add(a)
	doubled.Add(b)
	if single.Revision() == doubled.Revision() {
		t.Fatal("adding the same identity twice cancelled out")
	}
}

func TestAccumulatorEmptyIsStable(t *testing.T) {
	var first, second Accumulator
	if first.Revision() != second.Revision() {
		t.Fatal("empty accumulators disagree")
	}
	var one Accumulator
	one.Add(Zero)
	if one.Revision() == first.Revision() {
		t.Fatal("adding the zero hash was indistinguishable from adding nothing")
	}
}
