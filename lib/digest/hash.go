// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"encoding/hex"
	"fmt"
	"slices"
	"strings"

	"github.com/zeebo/blake3"
)

// Hash is a 32-byte BLAKE3 digest.
type Hash [32]byte

// Zero is the all-zero hash. No real identity takes this value.
var Zero Hash

// domainKey is a 32-byte BLAKE3 key. The bytes are the ASCII domain
// name, zero-padded. Changing a key invalidates every stored identity
// in that domain.
type domainKey [32]byte

func newDomainKey(name string) domainKey {
	if len(name) > 32 {
		panic("digest: domain name longer than 32 bytes: " + name)
	}
	var key domainKey
	copy(key[:], name)
	return key
}

var (
	contentDomainKey    = newDomainKey("ftl.input.content")
	fileDomainKey       = newDomainKey("ftl.input.file")
	revisionDomainKey   = newDomainKey("ftl.revision")
	templatingDomainKey = newDomainKey("ftl.templating")
	unitDomainKey       = newDomainKey("ftl.unit")
)

// Content returns the content hash of data.
func Content(data []byte) Hash {
	return keyedHash(contentDomainKey, data)
}

// File returns the input file identity for content stored at path.
// The path must already be normalized to slash-separated,
// source-root-relative form.
func File(contentHash Hash, path string) Hash {
	hasher := newHasher(fileDomainKey)
	hasher.Write(contentHash[:])
	hasher.Write([]byte(path))
	return sum(hasher)
}

// Templating returns the templating identity of a template whose own
// file identity is own and whose transitive inclusion closure is
// members. Order and duplicates in members do not matter. own is
// ignored if it also appears in members.
func Templating(own Hash, members []Hash) Hash {
	return foldSet(templatingDomainKey, own, members)
}

// Unit returns the identity of a derived artifact assembled from the
// given files. Order and duplicates do not matter.
func Unit(name string, members []Hash) Hash {
	return foldSet(unitDomainKey, keyedHash(unitDomainKey, []byte(name)), members)
}

func foldSet(key domainKey, own Hash, members []Hash) Hash {
	sorted := make([]Hash, 0, len(members))
	for _, member := range members {
		if member != own {
			sorted = append(sorted, member)
		}
	}
	slices.SortFunc(sorted, Compare)
	sorted = slices.Compact(sorted)

	hasher := newHasher(key)
	hasher.Write(own[:])
	for _, member := range sorted {
		hasher.Write(member[:])
	}
	return sum(hasher)
}

// Compare orders hashes bytewise.
func Compare(a, b Hash) int {
	return strings.Compare(string(a[:]), string(b[:]))
}

// String returns the lowercase hex form of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the first 12 hex characters.
func (h Hash) Short() string {
	return hex.EncodeToString(h[:6])
}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == Zero
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Parse parses a 64-character hex string.
func Parse(hexString string) (Hash, error) {
	var hash Hash
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return hash, fmt.Errorf("digest: parsing hash %q: %w", hexString, err)
	}
	if len(decoded) != len(hash) {
		return hash, fmt.Errorf("digest: hash is %d bytes, want %d", len(decoded), len(hash))
	}
	copy(hash[:], decoded)
	return hash, nil
}

// MustParse is Parse for constants in tests. It panics on error.
func MustParse(hexString string) Hash {
	hash, err := Parse(hexString)
	if err != nil {
		panic(err)
	}
	return hash
}

func newHasher(key domainKey) *blake3.Hasher {
	// NewKeyed only fails for a key that is not 32 bytes.
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("digest: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return hasher
}

func sum(hasher *blake3.Hasher) Hash {
	var hash Hash
	copy(hash[:], hasher.Sum(nil))
	return hash
}

func keyedHash(key domainKey, data []byte) Hash {
	hasher := newHasher(key)
	hasher.Write(data)
	return sum(hasher)
}
