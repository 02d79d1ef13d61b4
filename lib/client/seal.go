// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"fmt"

	"github.com/bureau-foundation/objstore/lib/contenthash"
	"github.com/bureau-foundation/objstore/lib/objectid"
	"github.com/bureau-foundation/objstore/lib/protocol"
)

// Seal makes an object created by this client immutable and visible to
// other clients. It hashes the data and metadata, sends the digest to
// the store, and releases the reference Create held for the writer.
// The buffer returned by Create still holds its own reference.
//
// Sealing an object this client does not hold, or one already sealed,
// panics.
func (c *Client) Seal(id objectid.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	store, err := c.storeConn()
	if err != nil {
		return err
	}

	record := c.objects.get(id)
	if record == nil {
		panic(fmt.Sprintf("client: seal of object %s that is not held", id))
	}
	if record.sealed {
		panic(fmt.Sprintf("client: seal of object %s that is already sealed", id))
	}

	digest := contenthash.Sum(record.data, record.metadata)
	if err := c.send(store, protocol.MessageSealRequest, protocol.SealRequest{ObjectID: id, Digest: digest}); err != nil {
		return fmt.Errorf("sealing %s: %w", id, err)
	}
	record.sealed = true
	c.logger.Debug("sealed object", "object_id", id, "digest", digest)

	c.release(id)
	return nil
}

// Hash returns the content digest of a sealed object, fetching it from
// the store without waiting. Returns ErrObjectNonexistent if the store
// does not have it.
func (c *Client) Hash(id objectid.ID) (contenthash.Digest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	buffers, err := c.get([]objectid.ID{id}, 0)
	if err != nil {
		return contenthash.Digest{}, err
	}
	if buffers[0] == nil {
		return contenthash.Digest{}, fmt.Errorf("hashing %s: %w", id, ErrObjectNonexistent)
	}

	buffer := buffers[0]
	digest := contenthash.Sum(buffer.data, buffer.metadata)
	c.release(id)
	return digest, nil
}
