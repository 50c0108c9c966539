// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// Hashes and times serialize through MarshalText.
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// MarshalAttributes encodes a page attribute map. A nil or empty map
// encodes to nil so the column stays NULL.
func MarshalAttributes(attributes map[string]any) ([]byte, error) {
	if len(attributes) == 0 {
		return nil, nil
	}
	return encMode.Marshal(attributes)
}

// UnmarshalAttributes decodes a page attribute column. NULL or empty
// input yields a nil map.
func UnmarshalAttributes(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var attributes map[string]any
	if err := decMode.Unmarshal(data, &attributes); err != nil {
		return nil, err
	}
	return attributes, nil
}

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) for
// data. Used when printing stored attributes.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
