// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bureau-foundation/objstore/lib/client"
	"github.com/bureau-foundation/objstore/lib/process"
	"github.com/bureau-foundation/objstore/lib/protocol"
)

func runWait(ctx context.Context, session *session, args []string) error {
	flagSet := newFlagSet("wait")
	numRequired := flagSet.Int("num", 0, "number of objects that must be ready (default: all)")
	timeout := flagSet.Duration("timeout", 10*time.Second, "how long the manager waits (negative: forever)")
	local := flagSet.Bool("local", false, "count only objects in the local store")
	positional, err := parseArgs(flagSet, args, "wait [flags] ID...", 1, -1)
	if err != nil {
		return err
	}
	ids, err := parseIDs(positional)
	if err != nil {
		return err
	}
	if *numRequired == 0 {
		*numRequired = len(ids)
	}
	if *numRequired < 1 || *numRequired > len(ids) {
		return process.Exit(2, fmt.Errorf("--num must be between 1 and %d", len(ids)))
	}

	query := protocol.QueryAnywhere
	if *local {
		query = protocol.QueryLocal
	}
	requests := make([]client.ObjectRequest, len(ids))
	for i, id := range ids {
		requests[i] = client.ObjectRequest{ObjectID: id, Type: query}
	}

	c, err := session.connect(ctx)
	if err != nil {
		return err
	}
	ready, err := c.Wait(requests, *numRequired, *timeout)
	if err != nil {
		return err
	}
	for _, request := range requests {
		fmt.Fprintf(session.stdout, "%s %s\n", request.ObjectID, request.Status)
	}
	fmt.Fprintf(session.stdout, "%d of %d ready\n", ready, len(requests))
	if ready < *numRequired {
		return process.Exit(1, nil)
	}
	return nil
}

func runFetch(ctx context.Context, session *session, args []string) error {
	positional, err := parseArgs(newFlagSet("fetch"), args, "fetch ID...", 1, -1)
	if err != nil {
		return err
	}
	ids, err := parseIDs(positional)
	if err != nil {
		return err
	}
	c, err := session.connect(ctx)
	if err != nil {
		return err
	}
	return c.Fetch(ids)
}

func runTransfer(ctx context.Context, session *session, args []string) error {
	positional, err := parseArgs(newFlagSet("transfer"), args, "transfer ADDRESS PORT ID", 3, 3)
	if err != nil {
		return err
	}
	port, err := strconv.Atoi(positional[1])
	if err != nil || port <= 0 || port > 65535 {
		return process.Exit(2, fmt.Errorf("invalid port %q", positional[1]))
	}
	ids, err := parseIDs(positional[2:])
	if err != nil {
		return err
	}
	c, err := session.connect(ctx)
	if err != nil {
		return err
	}
	return c.Transfer(positional[0], port, ids[0])
}

func runInfo(ctx context.Context, session *session, args []string) error {
	positional, err := parseArgs(newFlagSet("info"), args, "info ID...", 1, -1)
	if err != nil {
		return err
	}
	ids, err := parseIDs(positional)
	if err != nil {
		return err
	}
	c, err := session.connect(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		status, err := c.Info(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(session.stdout, "%s %s\n", id, status)
	}
	return nil
}
