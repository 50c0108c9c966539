// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package blobcache

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionTag identifies the payload encoding of a stored blob.
// Tags are written to disk; changing them breaks existing caches.
type CompressionTag uint8

const (
	CompressionNone CompressionTag = 0
	CompressionLZ4  CompressionTag = 1
	CompressionZstd CompressionTag = 2
)

// String returns the name of a compression tag.
func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}

// Policy selects the compression applied to new blobs.
type Policy string

const (
	PolicyNone Policy = "none"
	PolicyLZ4  Policy = "lz4"
	PolicyZstd Policy = "zstd"
	// PolicyAuto probes with zstd and picks zstd, lz4 or none by the
	// achieved ratio.
	PolicyAuto Policy = "auto"
)

// ParsePolicy parses a policy name. The empty string means auto.
func ParsePolicy(name string) (Policy, error) {
	switch Policy(name) {
	case "":
		return PolicyAuto, nil
	case PolicyNone, PolicyLZ4, PolicyZstd, PolicyAuto:
		return Policy(name), nil
	default:
		return "", fmt.Errorf("blobcache: unknown compression policy %q", name)
	}
}

// errIncompressible means the compressed form was not smaller.
var errIncompressible = errors.New("blobcache: data is incompressible")

// zstd encoders and decoders are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("blobcache: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("blobcache: zstd decoder initialization failed: " + err.Error())
	}
}

// encode compresses data under policy and returns the tag actually
// used. It falls back to CompressionNone when compression does not
// help.
func encode(data []byte, policy Policy) (CompressionTag, []byte, error) {
	tag := selectTag(data, policy)
	var (
		payload []byte
		err     error
	)
	switch tag {
	case CompressionNone:
		return CompressionNone, data, nil
	case CompressionLZ4:
		payload, err = compressLZ4(data)
	case CompressionZstd:
		payload, err = compressZstd(data)
	}
	if errors.Is(err, errIncompressible) {
		return CompressionNone, data, nil
	}
	if err != nil {
		return 0, nil, err
	}
	return tag, payload, nil
}

func decode(payload []byte, tag CompressionTag, size int) ([]byte, error) {
	switch tag {
	case CompressionNone:
		if len(payload) != size {
			return nil, fmt.Errorf("raw blob: size %d does not match header %d", len(payload), size)
		}
		return payload, nil
	case CompressionLZ4:
		return decompressLZ4(payload, size)
	case CompressionZstd:
		return decompressZstd(payload, size)
	default:
		return nil, fmt.Errorf("unsupported compression tag %s", tag)
	}
}

func selectTag(data []byte, policy Policy) CompressionTag {
	if len(data) == 0 {
		return CompressionNone
	}
	switch policy {
	case PolicyNone:
		return CompressionNone
	case PolicyLZ4:
		return CompressionLZ4
	case PolicyZstd:
		return CompressionZstd
	}

	compressed := zstdEncoder.EncodeAll(data, nil)
	ratio := float64(len(data)) / float64(max(len(compressed), 1))
	switch {
	case ratio >= 1.5:
		return CompressionZstd
	case ratio >= 1.1:
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock returns 0 for incompressible input.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(compressed []byte, size int) ([]byte, error) {
	destination := make([]byte, size)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if read != size {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, size)
	}
	return destination, nil
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

func decompressZstd(compressed []byte, size int) ([]byte, error) {
	result, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, size))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(result) != size {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), size)
	}
	return result, nil
}
