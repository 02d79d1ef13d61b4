// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for objstore
// commands. main() calls run() and hands any error to [Fatal], which
// reports it on stderr before the structured logger is available and
// exits with code 1, or with the code carried by an [ExitError].
package process
