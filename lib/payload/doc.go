// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package payload encodes object contents for storage in the object
// store, optionally compressed, and describes the encoding in the
// object's metadata.
//
// The metadata is a small CBOR map ([Header]) naming the compression,
// the uncompressed size, and an optional content type. Objects with
// empty metadata are treated as raw bytes, so objects written by
// other producers decode unchanged.
//
// Compression is block-mode LZ4 for speed or zstd for ratio. Data
// that does not shrink is stored uncompressed regardless of the
// requested compression.
package payload
