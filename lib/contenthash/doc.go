// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package contenthash computes the digest a client attaches to an
// object when it seals it.
//
// The digest covers the object's data bytes followed by its metadata
// bytes, using BLAKE3 in keyed mode with a fixed key (the key plays the
// role of a hash seed). Objects whose data is at least [ParallelThreshold]
// bytes are hashed in parallel: the data is split into [Workers]
// block-aligned chunks plus one remainder chunk, each chunk is hashed
// on its own goroutine, and the final digest is taken over the
// concatenated chunk digests followed by the metadata.
//
// The parallel and sequential paths deliberately produce different
// digests for the same bytes. Which path applies is a pure function of
// the data length, so every client computes the same digest for the
// same object.
package contenthash
