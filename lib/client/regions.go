// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package client

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// region is one store file mapped into this process. refs counts the
// tracked objects that live in it; the region exists in the table only
// while refs > 0.
type region struct {
	storeFD int
	mapping []byte
	refs    int
}

// regionTable maps store file identities to mappings. Identities are
// the store's descriptor numbers, which stay stable for the life of
// the store file and are unrelated to descriptor numbers in this
// process.
type regionTable struct {
	regions map[int]*region
}

func newRegionTable() *regionTable {
	return &regionTable{regions: make(map[int]*region)}
}

// acquire takes one reference on the region identified by storeFD and
// returns its mapping. If the region is not mapped yet, fd is mapped
// for mapSize bytes. fd is always closed: a mapping outlives its
// descriptor, and a duplicate descriptor for an already-mapped region
// carries nothing new.
//
// A failed mmap panics. The store has already counted this client as
// a user of the object, and there is no safe way to continue without
// the memory.
func (t *regionTable) acquire(fd, storeFD int, mapSize int64) []byte {
	if existing, ok := t.regions[storeFD]; ok {
		unix.Close(fd)
		existing.refs++
		return existing.mapping
	}

	mapping, err := unix.Mmap(fd, 0, int(mapSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	unix.Close(fd)
	if err != nil {
		panic(fmt.Sprintf("client: mmap of store region %d (%d bytes) failed: %v", storeFD, mapSize, err))
	}

	t.regions[storeFD] = &region{storeFD: storeFD, mapping: mapping, refs: 1}
	return mapping
}

// release drops one reference on the region and unmaps it when none
// remain.
func (t *regionTable) release(storeFD int) {
	entry, ok := t.regions[storeFD]
	if !ok {
		panic(fmt.Sprintf("client: release of unmapped store region %d", storeFD))
	}
	entry.refs--
	if entry.refs > 0 {
		return
	}
	unix.Munmap(entry.mapping)
	delete(t.regions, storeFD)
}

// lookup returns the mapping of a region known to be mapped. Calling
// it for an unmapped identity is a bookkeeping bug and panics.
func (t *regionTable) lookup(storeFD int) []byte {
	entry, ok := t.regions[storeFD]
	if !ok {
		panic(fmt.Sprintf("client: lookup of unmapped store region %d", storeFD))
	}
	return entry.mapping
}

// refs returns the live reference count of a region, zero if unmapped.
func (t *regionTable) refs(storeFD int) int {
	if entry, ok := t.regions[storeFD]; ok {
		return entry.refs
	}
	return 0
}

func (t *regionTable) len() int {
	return len(t.regions)
}

// closeDescriptors closes received region descriptors that will not be
// mapped. Negative entries are placeholders for objects that arrived
// without one.
func closeDescriptors(fds []int) {
	for _, fd := range fds {
		if fd >= 0 {
			unix.Close(fd)
		}
	}
}

// view returns the length-bounded window [offset, offset+size) of a
// mapping. A window outside the mapping means the store described an
// object that does not fit in its own file; that is a protocol
// violation and panics rather than exposing unrelated memory.
func view(mapping []byte, offset, size int64) []byte {
	if offset < 0 || size < 0 || offset+size > int64(len(mapping)) {
		panic(fmt.Sprintf("client: object window [%d, %d) exceeds region of %d bytes",
			offset, offset+size, len(mapping)))
	}
	end := offset + size
	return mapping[offset:end:end]
}
