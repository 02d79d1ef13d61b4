// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package storetest runs an in-process object store and manager that
// speak the real wire protocol, for testing code built on lib/client.
//
// The fake store keeps objects in temporary files ("regions") that
// are truncated to size and handed to clients by descriptor, so client
// tests exercise real descriptor passing and real shared mappings. It
// allocates with a bump pointer, never reuses space, and tracks which
// connections hold each object the way a real store does: a
// connection holds an object from the first Get or Create until it
// sends a release, regardless of how many local references it keeps.
//
// The manager side answers status and wait requests from the store's
// own sealed objects plus statuses injected with [Server.SetStatus],
// and records fetch and transfer requests for inspection.
//
// [Start] runs a server for the life of a test:
//
//	server := storetest.Start(t, storetest.Config{})
//	c, err := client.Connect(ctx, client.DefaultOptions(server.StoreSocket()))
package storetest
