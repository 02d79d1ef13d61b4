// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for object store
// clients.
//
// Configuration is loaded from a single file specified by either the
// OBJSTORE_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks and no automatic file
// search. Fields missing from the file keep the values from [Default].
//
// Socket paths support ${VAR} and ${VAR:-default} expansion after
// loading, so one file can serve every user on a machine:
//
//	store_socket: ${XDG_RUNTIME_DIR:-/run}/objstore/store.sock
//
// Key exports:
//
//   - [Config] -- the client connection and release settings
//   - [Default] -- returns a Config with the client defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [Config.ClientOptions] -- converts to lib/client options
package config
