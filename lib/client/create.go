// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/objstore/lib/fdconn"
	"github.com/bureau-foundation/objstore/lib/objectid"
	"github.com/bureau-foundation/objstore/lib/protocol"
)

// Create allocates a new object of dataSize data bytes in the store,
// copies metadata directly after the data, and returns a writable
// buffer over the data.
//
// Create takes two references: one belongs to the returned buffer, the
// other is held until Seal so that a buffer still being written cannot
// be released out from under its writer. After Seal and one Release
// the object is no longer pinned by this client.
//
// A store that has the ID already or cannot make room returns a
// *StoreError matching ErrObjectExists or ErrOutOfMemory.
func (c *Client) Create(id objectid.ID, dataSize int64, metadata []byte) (*ObjectBuffer, error) {
	if dataSize < 0 {
		panic(fmt.Sprintf("client: create of %s with negative data size %d", id, dataSize))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	store, err := c.storeConn()
	if err != nil {
		return nil, err
	}

	metadataSize := int64(len(metadata))
	request := protocol.CreateRequest{ObjectID: id, DataSize: dataSize, MetadataSize: metadataSize}
	var reply protocol.CreateReply
	if err := c.call(store, protocol.MessageCreateRequest, request, protocol.MessageCreateReply, &reply); err != nil {
		return nil, fmt.Errorf("creating %s: %w", id, err)
	}
	if reply.Error != protocol.ErrorOK {
		return nil, &StoreError{Op: "create " + id.String(), Code: reply.Error}
	}

	fd, err := store.RecvFD()
	if errors.Is(err, fdconn.ErrNoDescriptor) {
		panic(fmt.Sprintf("client: create reply for %s carried no region descriptor", id))
	}
	if err != nil {
		c.storeLost = true
		return nil, fmt.Errorf("creating %s: %w", id, err)
	}

	object := reply.Object
	if object.DataSize != dataSize || object.MetadataSize != metadataSize {
		panic(fmt.Sprintf("client: store created %s with sizes (%d, %d), requested (%d, %d)",
			id, object.DataSize, object.MetadataSize, dataSize, metadataSize))
	}
	if object.MetadataOffset != object.DataOffset+object.DataSize {
		panic(fmt.Sprintf("client: store placed metadata of %s at %d, expected %d",
			id, object.MetadataOffset, object.DataOffset+object.DataSize))
	}

	c.regions.acquire(fd, object.StoreFD, object.MapSize)
	record := c.objects.track(id, object, false)
	copy(record.metadata, metadata)
	c.objects.retain(record)

	c.logger.Debug("created object",
		"object_id", id,
		"data_size", dataSize,
		"metadata_size", metadataSize,
		"store_fd", object.StoreFD,
	)
	return c.newBuffer(record), nil
}
