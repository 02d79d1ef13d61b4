// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package storeview is a live terminal dashboard of object store
// activity, built on bubbletea.
//
// The dashboard consumes the store's notification stream: every seal
// and deletion appears at the top of an event list and glows briefly
// before fading, and a capacity bar tracks the bytes sealed since the
// dashboard started against the store's capacity. Objects that were
// already in the store when the dashboard started are not counted,
// because the protocol has no usage query; their deletions show in the
// event list without moving the bar.
//
// Key exports:
//
//   - [Model] -- the bubbletea model, created with [NewModel]
//   - [Theme] and [DefaultTheme] -- the color palette
//   - [KeyMap] and [DefaultKeyMap] -- the key bindings
package storeview
