// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"fmt"

	"github.com/bureau-foundation/objstore/lib/objectid"
	"github.com/bureau-foundation/objstore/lib/protocol"
)

// Delete is not supported: the store reclaims unreferenced objects
// through its eviction policy. It always returns ErrNotImplemented and
// changes nothing.
func (c *Client) Delete(id objectid.ID) error {
	return fmt.Errorf("deleting %s: %w", id, ErrNotImplemented)
}

// Evict asks the store to free at least numBytes and returns how many
// bytes it actually freed, which may be less.
func (c *Client) Evict(numBytes int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	store, err := c.storeConn()
	if err != nil {
		return 0, err
	}
	var reply protocol.EvictReply
	if err := c.call(store, protocol.MessageEvictRequest, protocol.EvictRequest{NumBytes: numBytes}, protocol.MessageEvictReply, &reply); err != nil {
		return 0, fmt.Errorf("evicting %d bytes: %w", numBytes, err)
	}
	c.logger.Debug("evicted", "requested_bytes", numBytes, "evicted_bytes", reply.NumBytes)
	return reply.NumBytes, nil
}

// Contains reports whether the store has a sealed object with the
// given ID. An object this client holds answers true without a round
// trip.
func (c *Client) Contains(id objectid.ID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	store, err := c.storeConn()
	if err != nil {
		return false, err
	}
	if c.objects.get(id) != nil {
		return true, nil
	}
	var reply protocol.ContainsReply
	if err := c.call(store, protocol.MessageContainsRequest, protocol.ContainsRequest{ObjectID: id}, protocol.MessageContainsReply, &reply); err != nil {
		return false, fmt.Errorf("checking for %s: %w", id, err)
	}
	if reply.ObjectID != id {
		panic(fmt.Sprintf("client: contains reply for %s, requested %s", reply.ObjectID, id))
	}
	return reply.HasObject, nil
}
