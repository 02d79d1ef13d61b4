// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import "github.com/bureau-foundation/objstore/lib/objectid"

// ObjectBuffer is one reference to an object, returned by Create and
// Get. Data and Metadata are views directly into the store's shared
// memory; they are valid until the buffer is released and the client
// drops its last reference. Disconnect does not invalidate them.
//
// A buffer returned by Create is writable until Seal. Buffers returned
// by Get must be treated as read-only: other processes map the same
// bytes.
type ObjectBuffer struct {
	id       objectid.ID
	data     []byte
	metadata []byte
	client   *Client
	released bool
}

// ID returns the object's identifier.
func (b *ObjectBuffer) ID() objectid.ID { return b.id }

// Data returns the object's data bytes.
func (b *ObjectBuffer) Data() []byte { return b.data }

// Metadata returns the object's metadata bytes, which sit immediately
// after the data in the store file.
func (b *ObjectBuffer) Metadata() []byte { return b.metadata }

// Release gives back the reference this buffer represents. Calling it
// more than once has no further effect.
func (b *ObjectBuffer) Release() error {
	b.client.mu.Lock()
	defer b.client.mu.Unlock()
	if b.released {
		return nil
	}
	b.released = true
	b.client.release(b.id)
	return nil
}

func (c *Client) newBuffer(record *objectRecord) *ObjectBuffer {
	return &ObjectBuffer{
		id:       record.id,
		data:     record.data,
		metadata: record.metadata,
		client:   c,
	}
}
