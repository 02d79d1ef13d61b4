// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"testing"

	"golang.org/x/sys/unix"
)

// SocketDir creates a temporary directory directly in /tmp, short
// enough for Unix socket paths. It is removed when the test completes.
func SocketDir(t *testing.T) string {
	t.Helper()
	directory, err := os.MkdirTemp("/tmp", "objstore-test-*")
	if err != nil {
		t.Fatalf("creating socket directory: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(directory)
	})
	return directory
}

// TempRegion creates a file of the given size in a test temp directory
// and returns a fresh read-write descriptor to it. Each call to the
// returned open function yields a new descriptor for the same file, the
// way a store hands out a new descriptor per reply for one region.
// Descriptors handed out are the caller's to close.
func TempRegion(t *testing.T, size int64) (open func() int) {
	t.Helper()
	file, err := os.CreateTemp(t.TempDir(), "region-*")
	if err != nil {
		t.Fatalf("creating region file: %v", err)
	}
	path := file.Name()
	if err := file.Truncate(size); err != nil {
		t.Fatalf("sizing region file: %v", err)
	}
	file.Close()

	return func() int {
		t.Helper()
		fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
		if err != nil {
			t.Fatalf("opening region file: %v", err)
		}
		return fd
	}
}
