// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for the object store
// packages.
//
// [SocketDir] creates a short temporary directory for Unix domain
// sockets, which have a 108-byte path limit that t.TempDir() paths can
// exceed.
//
// [RequireReceive] reads from a channel with a timeout safety valve so
// that a hung store goroutine fails the test instead of hanging it.
//
// [TempRegion] creates a sized temporary file and returns an open
// descriptor to it, standing in for a store-owned shared memory file.
//
// All helpers call t.Fatalf on failure rather than returning errors.
package testutil
