// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"fmt"
	"time"

	"github.com/bureau-foundation/objstore/lib/objectid"
	"github.com/bureau-foundation/objstore/lib/protocol"
)

// Get returns one buffer per ID, in order. A nil entry means the object
// was not sealed in the store before timeout elapsed. A timeout of zero
// does not wait at all; a negative timeout waits until every object is
// available.
//
// When every ID is already held by this client the buffers are served
// without contacting the store. Otherwise all IDs go to the store in
// one request. Every buffer returned carries one reference that must
// be released.
//
// Getting an object this client created but has not sealed panics.
func (c *Client) Get(ids []objectid.ID, timeout time.Duration) ([]*ObjectBuffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.get(ids, timeout)
}

func (c *Client) get(ids []objectid.ID, timeout time.Duration) ([]*ObjectBuffer, error) {
	store, err := c.storeConn()
	if err != nil {
		return nil, err
	}

	buffers := make([]*ObjectBuffer, len(ids))
	allLocal := true
	for _, id := range ids {
		record := c.objects.get(id)
		if record == nil {
			allLocal = false
			continue
		}
		if !record.sealed {
			panic(fmt.Sprintf("client: get of object %s that this client has not sealed", id))
		}
	}
	if allLocal {
		for i, id := range ids {
			record := c.objects.get(id)
			c.objects.retain(record)
			buffers[i] = c.newBuffer(record)
		}
		return buffers, nil
	}

	request := protocol.GetRequest{ObjectIDs: ids, TimeoutMs: timeoutMillis(timeout)}
	var reply protocol.GetReply
	if err := c.call(store, protocol.MessageGetRequest, request, protocol.MessageGetReply, &reply); err != nil {
		return nil, fmt.Errorf("getting %d objects: %w", len(ids), err)
	}
	if len(reply.ObjectIDs) != len(ids) || len(reply.Objects) != len(ids) {
		panic(fmt.Sprintf("client: get reply lists %d ids and %d objects for %d requested",
			len(reply.ObjectIDs), len(reply.Objects), len(ids)))
	}

	// Every found object is followed by a descriptor, including objects
	// already held. Receive them all before touching the tables so a
	// transport failure midway leaves the tables unchanged.
	fds := make([]int, len(ids))
	for i, object := range reply.Objects {
		fds[i] = -1
		if reply.ObjectIDs[i] != ids[i] {
			panic(fmt.Sprintf("client: get reply entry %d is %s, requested %s", i, reply.ObjectIDs[i], ids[i]))
		}
		if object.DataSize == -1 {
			if c.objects.get(ids[i]) != nil {
				closeDescriptors(fds[:i])
				panic(fmt.Sprintf("client: store reported %s missing while this client holds it", ids[i]))
			}
			continue
		}
		fd, err := store.RecvFD()
		if err != nil {
			closeDescriptors(fds[:i])
			// The store sent descriptors this client never read; the
			// connection can no longer be trusted to line up.
			c.storeLost = true
			return nil, fmt.Errorf("getting %s: %w", ids[i], err)
		}
		fds[i] = fd
	}

	for i, object := range reply.Objects {
		if fds[i] < 0 {
			continue
		}
		// acquire closes the descriptor when the region is already
		// mapped, and track folds the reference into an existing record
		// for an object this client already holds.
		c.regions.acquire(fds[i], object.StoreFD, object.MapSize)
		record := c.objects.track(ids[i], object, true)
		buffers[i] = c.newBuffer(record)
	}

	c.logger.Debug("got objects", "requested", len(ids), "timeout", timeout)
	return buffers, nil
}

// timeoutMillis converts a Go timeout to the wire convention, where
// any negative value means forever.
func timeoutMillis(timeout time.Duration) int64 {
	if timeout < 0 {
		return -1
	}
	return timeout.Milliseconds()
}
