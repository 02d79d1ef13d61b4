// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"fmt"

	"github.com/bureau-foundation/objstore/lib/objectid"
	"github.com/bureau-foundation/objstore/lib/protocol"
)

// objectRecord is an object this client holds at least one reference
// to.
type objectRecord struct {
	id     objectid.ID
	object protocol.PlasmaObject

	// data and metadata are views into the region mapping.
	data     []byte
	metadata []byte

	// sealed is false only between this client's Create and Seal.
	sealed bool

	// refs is the number of Create/Get references not yet released to
	// the store. pending is how many of those have been handed to
	// Release and are waiting in the release history.
	refs    int
	pending int
}

func (r *objectRecord) size() int64 {
	return r.object.DataSize + r.object.MetadataSize
}

// objectTable tracks held objects and the bytes they pin.
type objectTable struct {
	records    map[objectid.ID]*objectRecord
	regions    *regionTable
	inUseBytes int64
}

func newObjectTable(regions *regionTable) *objectTable {
	return &objectTable{
		records: make(map[objectid.ID]*objectRecord),
		regions: regions,
	}
}

func (t *objectTable) get(id objectid.ID) *objectRecord {
	return t.records[id]
}

// track records one reference to id. The caller must already hold a
// region reference (from regionTable.acquire) for object's region: a
// new record takes ownership of it, while an existing record already
// owns one, so the caller's is dropped.
func (t *objectTable) track(id objectid.ID, object protocol.PlasmaObject, sealed bool) *objectRecord {
	if record, ok := t.records[id]; ok {
		t.regions.release(object.StoreFD)
		record.refs++
		return record
	}

	mapping := t.regions.lookup(object.StoreFD)
	record := &objectRecord{
		id:       id,
		object:   object,
		data:     view(mapping, object.DataOffset, object.DataSize),
		metadata: view(mapping, object.MetadataOffset, object.MetadataSize),
		sealed:   sealed,
		refs:     1,
	}
	t.records[id] = record
	t.inUseBytes += record.size()
	return record
}

// retain records one more reference to an already-tracked object.
func (t *objectTable) retain(record *objectRecord) {
	if record.refs <= 0 {
		panic(fmt.Sprintf("client: retain of untracked object %s", record.id))
	}
	record.refs++
}

// drop removes one reference from id. When the last reference goes,
// the record is removed, its bytes are subtracted from inUseBytes and
// its region reference is released. Reports whether the record was
// removed.
func (t *objectTable) drop(id objectid.ID) bool {
	record, ok := t.records[id]
	if !ok {
		panic(fmt.Sprintf("client: drop of untracked object %s", id))
	}
	record.refs--
	if record.refs > 0 {
		return false
	}

	t.regions.release(record.object.StoreFD)
	t.inUseBytes -= record.size()
	if t.inUseBytes < 0 {
		panic(fmt.Sprintf("client: in-use bytes went negative (%d) dropping %s", t.inUseBytes, id))
	}
	delete(t.records, id)
	return true
}

func (t *objectTable) len() int {
	return len(t.records)
}

// unsealed returns the IDs of records not yet sealed.
func (t *objectTable) unsealed() []objectid.ID {
	var ids []objectid.ID
	for id, record := range t.records {
		if !record.sealed {
			ids = append(ids, id)
		}
	}
	return ids
}
