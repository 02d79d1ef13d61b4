// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration shared by the
// object store wire protocol.
//
// Every message body exchanged with the store (create, get, seal,
// wait, and the rest) and every notification pushed over a
// subscription socket is a single CBOR item. The framing around those
// items lives in lib/protocol; this package only owns how a Go value
// becomes bytes and back. Object metadata written by lib/payload uses
// the same modes so that metadata produced by one client decodes in
// any other.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2):
// sorted map keys, smallest integer encoding, no indefinite-length
// items. Fixed-size identifiers (object IDs, digests) implement
// cbor.Marshaler themselves and encode as CBOR byte strings.
//
//	data, err := codec.Marshal(request)
//	err = codec.Unmarshal(data, &reply)
//
// Wire structs use `cbor` struct tags. Unknown fields are ignored on
// decode so a newer store can add reply fields without breaking older
// clients.
package codec
