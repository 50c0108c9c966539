// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
)

func TestAttributesDeterministic(t *testing.T) {
	// Two maps with the same content built in different insertion
	// orders must encode identically.
	first := map[string]any{"author": "ana", "weight": 3, "tags": []any{"x", "y"}}
	second := map[string]any{}
	second["tags"] = []any{"x", "y"}
	second["weight"] = 3
	second["author"] = "ana"

	firstData, err := MarshalAttributes(first)
	if err != nil {
		t.Fatalf("MarshalAttributes: %v", err)
	}
	secondData, err := MarshalAttributes(second)
	if err != nil {
		t.Fatalf("MarshalAttributes: %v", err)
	}
	if !bytes.Equal(firstData, secondData) {
		t.Fatalf("encoding depends on insertion order: %x != %x", firstData, secondData)
	}
}

func TestAttributesRoundtrip(t *testing.T) {
	original := map[string]any{"author": "ana", "nested": map[string]any{"k": "v"}}

	data, err := MarshalAttributes(original)
	if err != nil {
		t.Fatalf("MarshalAttributes: %v", err)
	}
	decoded, err := UnmarshalAttributes(data)
	if err != nil {
		t.Fatalf("UnmarshalAttributes: %v", err)
	}
	if decoded["author"] != "ana" {
		t.Errorf("author = %v, want ana", decoded["author"])
	}
	nested, ok := decoded["nested"].(map[string]any)
	if !ok {
		t.Fatalf("nested decoded as %T, want map[string]any", decoded["nested"])
	}
	if nested["k"] != "v" {
		t.Errorf("nested.k = %v, want v", nested["k"])
	}
}

func TestEmptyAttributesAreNull(t *testing.T) {
	data, err := MarshalAttributes(map[string]any{})
	if err != nil {
		t.Fatalf("MarshalAttributes: %v", err)
	}
	if data != nil {
		t.Fatalf("empty attributes encoded to %x, want nil", data)
	}
	decoded, err := UnmarshalAttributes(nil)
	if err != nil {
		t.Fatalf("UnmarshalAttributes(nil): %v", err)
	}
	if decoded != nil {
		t.Fatalf("UnmarshalAttributes(nil) = %v, want nil", decoded)
	}
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal(map[string]any{"title": "Hello"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	text, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(text, `"title"`) {
		t.Errorf("Diagnose = %q, want it to mention the title key", text)
	}
}
