// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"log/slog"
	"time"

	"github.com/bureau-foundation/objstore/lib/clock"
)

const (
	// DefaultReleaseDelay is the number of releases held back before
	// the oldest is sent to the store.
	DefaultReleaseDelay = 64

	// DefaultCacheBudget caps the bytes a client keeps mapped through
	// deferred releases, before the store-capacity limit applies.
	DefaultCacheBudget int64 = 100_000_000

	// DefaultConnectRetries is the number of extra attempts Connect
	// makes while the store socket is not yet listening.
	DefaultConnectRetries = 50

	// DefaultConnectRetryDelay is the pause between connect attempts.
	DefaultConnectRetryDelay = 100 * time.Millisecond
)

// Options configures Connect.
type Options struct {
	// StoreSocket is the path of the store's Unix socket. Required.
	StoreSocket string

	// ManagerSocket is the path of the manager's Unix socket. Empty
	// means no manager: Fetch, Transfer, Wait and Info return
	// ErrNoManager.
	ManagerSocket string

	// ReleaseDelay is the number of releases kept in the release
	// history before the oldest is sent to the store. Zero sends
	// releases immediately (subject to the byte budget never holding
	// them back).
	ReleaseDelay int

	// CacheBudget bounds the bytes of released-but-unsent objects, in
	// combination with one percent of the store's capacity (the
	// smaller wins). Zero or negative means DefaultCacheBudget.
	CacheBudget int64

	// ConnectRetries and ConnectRetryDelay govern how long Connect
	// waits for the store (and manager) socket to appear.
	ConnectRetries    int
	ConnectRetryDelay time.Duration

	// Logger receives debug traces of protocol exchanges and warnings
	// about degraded releases. Nil means slog.Default().
	Logger *slog.Logger

	// Clock paces connect retries. Nil means clock.Real().
	Clock clock.Clock
}

// DefaultOptions returns Options for the store at storeSocket with
// every other field at its default.
func DefaultOptions(storeSocket string) Options {
	return Options{
		StoreSocket:       storeSocket,
		ReleaseDelay:      DefaultReleaseDelay,
		CacheBudget:       DefaultCacheBudget,
		ConnectRetries:    DefaultConnectRetries,
		ConnectRetryDelay: DefaultConnectRetryDelay,
	}
}

func (o Options) withDefaults() Options {
	if o.CacheBudget <= 0 {
		o.CacheBudget = DefaultCacheBudget
	}
	if o.ReleaseDelay < 0 {
		o.ReleaseDelay = 0
	}
	if o.ConnectRetries < 0 {
		o.ConnectRetries = 0
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	return o
}
