// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"encoding/binary"
	"math/bits"
)

// Accumulator folds file identities into a revision identity. The
// zero value is an empty accumulator. Add and Merge commute, so
// parallel walkers may each keep a local Accumulator and merge them in
// any order.
//
// Accumulator is not safe for concurrent use.
type Accumulator struct {
	// limbs holds the running sum modulo 2^256, least significant
	// limb first.
	limbs [4]uint64
	count uint64
}

// Add folds one file identity into the accumulator.
func (a *Accumulator) Add(id Hash) {
	a.addLimbs(toLimbs(id))
	a.count++
}

// Merge folds every identity already added to other into a.
func (a *Accumulator) Merge(other Accumulator) {
	a.addLimbs(other.limbs)
	a.count += other.count
}

// Count returns the number of identities added.
func (a *Accumulator) Count() uint64 {
	return a.count
}

// Revision returns the revision identity for the folded set.
func (a *Accumulator) Revision() Hash {
	var buffer [40]byte
	for i, limb := range a.limbs {
		binary.LittleEndian.PutUint64(buffer[i*8:], limb)
	}
	binary.LittleEndian.PutUint64(buffer[32:], a.count)
	return keyedHash(revisionDomainKey, buffer[:])
}

func (a *Accumulator) addLimbs(other [4]uint64) {
	var carry uint64
	for i := range a.limbs {
		a.limbs[i], carry = bits.Add64(a.limbs[i], other[i], carry)
	}
}

func toLimbs(id Hash) [4]uint64 {
	var limbs [4]uint64
	for i := range limbs {
		limbs[i] = binary.LittleEndian.Uint64(id[i*8:])
	}
	return limbs
}
