// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fdconn is the Unix stream socket transport between an object
// store client and the store process.
//
// A [Conn] carries protocol frames (it is an io.ReadWriter) and, out of
// band, file descriptors. The store hands the client a descriptor for
// each mapped region it replies with; the client hands the store the
// write end of a notification socket when it subscribes. Descriptors
// travel as SCM_RIGHTS control messages attached to a single
// placeholder byte, so they stay ordered with respect to the frames
// around them.
//
// [Dial] retries a bounded number of times, because a client commonly
// starts alongside the store and races its listener. [Pair] creates a
// connected socketpair for the notification channel.
package fdconn
