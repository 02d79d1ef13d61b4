// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package client is the client side of the shared-memory object store.
//
// A [Client] talks to the store process over a Unix socket (see
// lib/protocol for the messages and lib/fdconn for the transport).
// Objects live in memory-mapped files owned by the store; the store
// passes the client a descriptor for each file, and the client maps it
// once and shares the mapping between every object in that file.
//
// The client keeps three pieces of per-connection state:
//
//   - the region table: which store files are mapped and how many
//     tracked objects use each one. A file is unmapped exactly when the
//     last object in it is released.
//   - the object table: every object this client holds, with its
//     location, sealed flag, and local reference count. Bytes held
//     across all objects are summed in [Client.InUseBytes].
//   - the release history: recent [Client.Release] calls not yet sent
//     to the store. Releases are sent only once the history grows past
//     Options.ReleaseDelay entries or the held bytes exceed a cache
//     budget, so an object fetched and released in a tight loop costs
//     no round trips after the first.
//
// Object lifecycle for the creating client:
//
//	buffer, err := c.Create(id, dataSize, metadata) // two references
//	copy(buffer.Data(), payload)
//	err = c.Seal(id)                                 // drops one reference
//	err = buffer.Release()                           // drops the other
//
// Other clients call [Client.Get] and release each returned buffer.
// Every reference taken by Create (two) or Get (one per buffer) must be
// paired with one release.
//
// # Errors and panics
//
// Failures the store reports (object missing, out of memory, already
// exists) and transport failures are returned as errors; compare with
// errors.Is against the sentinels in this package. Violations of the
// client contract panic: sealing an object the client does not hold,
// releasing more references than it took, a reply of the wrong type,
// or a create reply without a region descriptor. These indicate the
// client and store have lost agreement about shared memory, and
// continuing would risk reading or writing the wrong bytes.
//
// A Client serializes its own operations with a mutex, so it may be
// shared between goroutines, but every operation is a blocking
// request/reply exchange and they do not overlap.
package client
