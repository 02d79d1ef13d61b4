// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"fmt"

	"github.com/bureau-foundation/objstore/lib/objectid"
	"github.com/bureau-foundation/objstore/lib/protocol"
)

// releaseHistory is a FIFO of Release calls not yet applied. An ID
// appears once per call, so a hot object may appear many times.
type releaseHistory struct {
	entries []objectid.ID
}

func (h *releaseHistory) push(id objectid.ID) {
	h.entries = append(h.entries, id)
}

// popOldest removes and returns the least recent entry.
func (h *releaseHistory) popOldest() objectid.ID {
	oldest := h.entries[0]
	h.entries[0] = objectid.Nil
	h.entries = h.entries[1:]
	return oldest
}

func (h *releaseHistory) len() int {
	return len(h.entries)
}

// Release gives back one reference to id, taken by Create or Get.
//
// The release is deferred: it joins the release history, and the
// oldest entries are applied while the history holds more than
// Options.ReleaseDelay entries or the client pins more bytes than its
// cache budget. Applying an entry drops one local reference; only when
// an object's last local reference goes is a release message sent to
// the store and the object's region reference dropped.
//
// Release never fails because of the connection. Once the client is
// disconnected, or the store connection has broken, nothing is sent:
// the store reclaims everything a client held when it sees the
// connection close. The local reference is dropped at once, unmapping
// the region with the last one; releasing an object that is not held
// is then ignored.
//
// Releasing more references than the client holds panics.
func (c *Client) Release(id objectid.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.release(id)
	return nil
}

func (c *Client) release(id objectid.ID) {
	if !c.connected() {
		if record := c.objects.get(id); record != nil && record.refs > record.pending {
			c.objects.drop(id)
		}
		return
	}

	record := c.objects.get(id)
	if record == nil || record.pending >= record.refs {
		panic(fmt.Sprintf("client: release of object %s that is not held", id))
	}
	record.pending++
	c.history.push(id)

	budget := c.releaseBudget()
	for c.history.len() > 0 && (c.objects.inUseBytes > budget || c.history.len() > c.releaseDelay) {
		c.applyRelease(c.history.popOldest())
		if !c.connected() {
			return
		}
	}
}

// releaseBudget is the byte threshold above which deferred releases
// are flushed: the configured cache budget or one percent of the
// store's capacity, whichever is smaller.
func (c *Client) releaseBudget() int64 {
	return min(c.cacheBudget, c.storeCapacity/100)
}

// applyRelease drops the local reference behind one history entry and,
// if it was the last, tells the store.
func (c *Client) applyRelease(id objectid.ID) {
	record := c.objects.get(id)
	if record == nil {
		// Already dropped by an earlier entry.
		return
	}
	record.pending--
	if !c.objects.drop(id) {
		return
	}

	if err := protocol.WriteMessage(c.store, protocol.MessageReleaseRequest, protocol.ReleaseRequest{ObjectID: id}); err != nil {
		c.logger.Warn("store connection lost while releasing; further releases are no-ops",
			"object_id", id,
			"error", err,
		)
		c.storeLost = true
		return
	}
	c.logger.Debug("released object to store", "object_id", id)
}

// FlushReleases applies every entry in the release history now,
// regardless of the delay and budget. Use it before handing an object
// ID to a process that expects the store to see it released.
func (c *Client) FlushReleases() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.connected() && c.history.len() > 0 {
		c.applyRelease(c.history.popOldest())
	}
}
