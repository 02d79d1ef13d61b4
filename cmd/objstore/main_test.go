// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/objstore/lib/objectid"
	"github.com/bureau-foundation/objstore/lib/process"
	"github.com/bureau-foundation/objstore/lib/protocol"
	"github.com/bureau-foundation/objstore/lib/storetest"
)

// invoke runs the CLI against server and returns stdout.
func invoke(t *testing.T, server *storetest.Server, stdin string, args ...string) (string, error) {
	t.Helper()
	global := []string{"--store-socket", server.StoreSocket(), "--log-level", "error"}
	if server.ManagerSocket() != "" {
		global = append(global, "--manager-socket", server.ManagerSocket())
	}
	var stdout bytes.Buffer
	err := run(context.Background(), append(global, args...), strings.NewReader(stdin), &stdout)
	return stdout.String(), err
}

func requireExitCode(t *testing.T, err error, want int) {
	t.Helper()
	var exitErr *process.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %v, want exit code %d", err, want)
	}
	if exitErr.Code != want {
		t.Fatalf("exit code = %d (%v), want %d", exitErr.Code, exitErr.Err, want)
	}
}

// eventually polls condition until it holds. Each CLI invocation uses
// its own connection, so the store may still be handling the previous
// one when the next command runs.
func eventually(t *testing.T, description string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", description)
		}
		time.Sleep(time.Millisecond)
	}
}

func putText(t *testing.T, server *storetest.Server, text string, flags ...string) objectid.ID {
	t.Helper()
	output, err := invoke(t, server, text, append(append([]string{"put"}, flags...), "-")...)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	id, err := objectid.Parse(strings.TrimSpace(output))
	if err != nil {
		t.Fatalf("put printed %q: %v", output, err)
	}
	return id
}

func TestPutGet(t *testing.T) {
	server := storetest.Start(t, storetest.Config{})
	text := strings.Repeat("the quick brown fox jumps over the lazy dog\n", 500)

	for _, compression := range []string{"none", "lz4", "zstd", "auto"} {
		t.Run(compression, func(t *testing.T) {
			id := putText(t, server, text, "--compression", compression, "--content-type", "text/plain")

			output, err := invoke(t, server, "", "get", id.String())
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if output != text {
				t.Errorf("get returned %d bytes, want the %d bytes that were put", len(output), len(text))
			}
		})
	}
}

func TestPutWithExplicitID(t *testing.T) {
	server := storetest.Start(t, storetest.Config{})
	id := objectid.Random()

	got := putText(t, server, "payload", "--id", id.String())
	if got != id {
		t.Errorf("put printed %s, want %s", got, id)
	}

	_, err := invoke(t, server, "again", "put", "--id", id.String(), "-")
	if err == nil || !strings.Contains(err.Error(), "exists") {
		t.Errorf("second put with the same id: error = %v, want an object exists error", err)
	}
}

func TestPutFromFileGetToFile(t *testing.T) {
	server := storetest.Start(t, storetest.Config{})
	directory := t.TempDir()
	input := filepath.Join(directory, "input.bin")
	content := bytes.Repeat([]byte{0x00, 0xff, 0x10}, 4096)
	if err := os.WriteFile(input, content, 0644); err != nil {
		t.Fatal(err)
	}

	output, err := invoke(t, server, "", "put", input)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	id := strings.TrimSpace(output)

	outputPath := filepath.Join(directory, "output.bin")
	if _, err := invoke(t, server, "", "get", "--output", outputPath, id); err != nil {
		t.Fatalf("get: %v", err)
	}
	written, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(written, content) {
		t.Errorf("output file holds %d bytes, want the %d input bytes", len(written), len(content))
	}
}

func TestGetRaw(t *testing.T) {
	server := storetest.Start(t, storetest.Config{})
	text := strings.Repeat("abcd", 4096)
	id := putText(t, server, text, "--compression", "zstd")

	output, err := invoke(t, server, "", "get", "--raw", id.String())
	if err != nil {
		t.Fatalf("get --raw: %v", err)
	}
	if output == text || len(output) >= len(text) {
		t.Errorf("get --raw returned %d bytes, want the smaller compressed form", len(output))
	}
}

func TestGetMissing(t *testing.T) {
	server := storetest.Start(t, storetest.Config{})

	_, err := invoke(t, server, "", "get", objectid.Random().String())
	requireExitCode(t, err, 1)
}

func TestContains(t *testing.T) {
	server := storetest.Start(t, storetest.Config{})
	id := putText(t, server, "present")

	output, err := invoke(t, server, "", "contains", id.String())
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if strings.TrimSpace(output) != "true" {
		t.Errorf("contains printed %q, want true", output)
	}

	output, err = invoke(t, server, "", "contains", objectid.Random().String())
	requireExitCode(t, err, 1)
	if strings.TrimSpace(output) != "false" {
		t.Errorf("contains printed %q, want false", output)
	}
}

func TestHash(t *testing.T) {
	server := storetest.Start(t, storetest.Config{})
	id := putText(t, server, "hash me", "--compression", "none")

	output, err := invoke(t, server, "", "hash", id.String())
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	digest, ok := server.Digest(id)
	if !ok {
		t.Fatal("store has no digest for the object")
	}
	if strings.TrimSpace(output) != digest.String() {
		t.Errorf("hash printed %q, want %s", output, digest)
	}
}

func TestEvict(t *testing.T) {
	server := storetest.Start(t, storetest.Config{})
	id := putText(t, server, strings.Repeat("x", 3000), "--compression", "none")
	eventually(t, "put session to end", func() bool { return server.Holders(id) == 0 })

	output, err := invoke(t, server, "", "evict", "1KiB")
	if err != nil {
		t.Fatalf("evict: %v", err)
	}
	if !strings.HasPrefix(output, "evicted ") {
		t.Errorf("evict printed %q", output)
	}
	if server.Used() != 0 {
		t.Errorf("store still uses %d bytes after evicting the only object", server.Used())
	}
}

func TestStatus(t *testing.T) {
	server := storetest.Start(t, storetest.Config{Capacity: 8 << 20})

	output, err := invoke(t, server, "", "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"8.0 MiB", server.StoreSocket(), server.ManagerSocket()} {
		if !strings.Contains(output, want) {
			t.Errorf("status output missing %q:\n%s", want, output)
		}
	}
}

func TestWatch(t *testing.T) {
	server := storetest.Start(t, storetest.Config{})

	done := make(chan struct{})
	var output string
	var watchErr error
	go func() {
		defer close(done)
		output, watchErr = invoke(t, server, "", "watch", "--count", "1")
	}()

	// The subscription is registered once the store has received the
	// descriptor; wait for it before sealing.
	eventually(t, "subscription", func() bool {
		select {
		case <-done:
			t.Fatalf("watch exited early: %v", watchErr)
		default:
		}
		return server.Subscribers() > 0
	})
	id := putText(t, server, "watched", "--compression", "none")

	<-done
	if watchErr != nil {
		t.Fatalf("watch: %v", watchErr)
	}
	if !strings.Contains(output, "sealed") || !strings.Contains(output, id.String()) {
		t.Errorf("watch printed %q, want a seal notification for %s", output, id)
	}
}

func TestWait(t *testing.T) {
	server := storetest.Start(t, storetest.Config{})
	present := putText(t, server, "here")
	missing := objectid.Random()

	output, err := invoke(t, server, "", "wait", "--num", "1", "--timeout", "0", present.String(), missing.String())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !strings.Contains(output, "1 of 2 ready") {
		t.Errorf("wait printed %q", output)
	}

	_, err = invoke(t, server, "", "wait", "--timeout", "0", present.String(), missing.String())
	requireExitCode(t, err, 1)

	_, err = invoke(t, server, "", "wait", "--num", "3", present.String(), missing.String())
	requireExitCode(t, err, 2)
}

func TestManagerCommands(t *testing.T) {
	server := storetest.Start(t, storetest.Config{})
	remote := objectid.Random()
	server.SetStatus(remote, protocol.StatusRemote)

	output, err := invoke(t, server, "", "info", remote.String())
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if !strings.Contains(output, protocol.StatusRemote.String()) {
		t.Errorf("info printed %q, want status %s", output, protocol.StatusRemote)
	}

	if _, err := invoke(t, server, "", "fetch", remote.String()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, err := invoke(t, server, "", "transfer", "10.0.0.2", "7000", remote.String()); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	eventually(t, "fetch and transfer requests", func() bool {
		return len(server.Fetched()) > 0 && len(server.Transfers()) > 0
	})
	if fetched := server.Fetched(); len(fetched) != 1 || fetched[0] != remote {
		t.Errorf("fetched = %v, want [%s]", fetched, remote)
	}
	transfers := server.Transfers()
	if len(transfers) != 1 || transfers[0].Address != "10.0.0.2" || transfers[0].Port != 7000 {
		t.Errorf("transfers = %+v, want one to 10.0.0.2:7000", transfers)
	}

	_, err = invoke(t, server, "", "transfer", "10.0.0.2", "port", remote.String())
	requireExitCode(t, err, 2)
}

func TestUsageErrors(t *testing.T) {
	server := storetest.Start(t, storetest.Config{})

	tests := []struct {
		name string
		args []string
	}{
		{"unknown command", []string{"frobnicate"}},
		{"bad id", []string{"contains", "not-hex"}},
		{"missing argument", []string{"hash"}},
		{"bad size", []string{"evict", "lots"}},
		{"bad compression", []string{"put", "--compression", "brotli", "-"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := invoke(t, server, "", test.args...)
			requireExitCode(t, err, 2)
		})
	}
}

func TestVersion(t *testing.T) {
	var stdout bytes.Buffer
	if err := run(context.Background(), []string{"--version"}, strings.NewReader(""), &stdout); err != nil {
		t.Fatalf("--version: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "objstore ") {
		t.Errorf("--version printed %q", stdout.String())
	}
}
