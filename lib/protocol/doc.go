// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol defines the messages exchanged between an object
// store client and the store (and the optional manager), and the
// framing that carries them over a Unix stream socket.
//
// Every message is a 24-byte little-endian header followed by a CBOR
// body:
//
//	| version uint64 | type uint64 | length uint64 | body [length]byte |
//
// Requests and replies alternate strictly: one reply per request, in
// request order. Some messages are one-way (release, seal, subscribe,
// fetch, data). File descriptors that accompany a reply (a mapped
// region for each create or found get result) are transferred with
// SCM_RIGHTS after the reply frame, in the order the reply lists them;
// see lib/fdconn.
//
// Notifications pushed over a subscription socket use a shorter frame,
// a little-endian uint64 length followed by a CBOR [ObjectInfo].
package protocol
