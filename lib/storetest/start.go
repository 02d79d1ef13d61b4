// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package storetest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/objstore/lib/testutil"
)

// Start runs a Server for the duration of the test. Empty socket paths
// in config are filled with paths in a fresh socket directory; set
// ManagerSocket to "-" to run without a manager. The server is shut
// down, and Serve's error checked, in t.Cleanup.
func Start(t *testing.T, config Config) *Server {
	t.Helper()

	directory := testutil.SocketDir(t)
	if config.StoreSocket == "" {
		config.StoreSocket = filepath.Join(directory, "store.sock")
	}
	switch config.ManagerSocket {
	case "":
		config.ManagerSocket = filepath.Join(directory, "manager.sock")
	case "-":
		config.ManagerSocket = ""
	}
	if config.Directory == "" {
		config.Directory = t.TempDir()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	}

	server, err := NewServer(config)
	if err != nil {
		t.Fatalf("creating fake store: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var serveErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		serveErr = server.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
		if serveErr != nil {
			t.Errorf("fake store Serve: %v", serveErr)
		}
	})

	testutil.RequireClosed(t, server.Ready(), 5*time.Second, "fake store listening on %s", config.StoreSocket)
	return server
}
