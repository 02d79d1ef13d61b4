// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package objectid defines the fixed-width identifier that names an
// object in the shared-memory store.
//
// An [ID] is 20 opaque bytes. It has equality and hashing (it is a Go
// array, so it works directly as a map key) but no ordering. IDs
// travel on the wire as CBOR byte strings and on the command line as
// 40-character lowercase hex.
package objectid
