// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts the few time operations the object store
// client and its test store need: reading the time, waiting for a
// deadline, and sleeping between connection attempts.
//
// Production code injects [Real]. Tests inject [Fake] so that connect
// retry back-off and blocking get timeouts run without wall-clock
// delays.
package clock
