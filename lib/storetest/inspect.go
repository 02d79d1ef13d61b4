// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package storetest

import (
	"slices"

	"github.com/bureau-foundation/objstore/lib/contenthash"
	"github.com/bureau-foundation/objstore/lib/objectid"
	"github.com/bureau-foundation/objstore/lib/protocol"
)

// SetStatus makes the manager report status for id while the object is
// not sealed in this store. Blocked waits are re-evaluated.
func (s *Server) SetStatus(id objectid.ID, status protocol.ObjectStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[id] = status
	s.broadcastLocked()
}

// Holders returns how many connections currently hold id.
func (s *Server) Holders(id objectid.ID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stored, ok := s.objects[id]; ok {
		return len(stored.holders)
	}
	return 0
}

// Releases returns how many release requests the store has received
// for id.
func (s *Server) Releases(id objectid.ID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releases[id]
}

// Digest returns the digest id was sealed with, and whether it is
// sealed.
func (s *Server) Digest(id objectid.ID) (contenthash.Digest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.objects[id]
	if !ok || !stored.sealed {
		return contenthash.Digest{}, false
	}
	return stored.digest, true
}

// Used returns the bytes of data and metadata currently stored.
func (s *Server) Used() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used
}

// Regions returns how many region files the store has created.
func (s *Server) Regions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.regions)
}

// Fetched returns every ID named in a fetch request, in arrival order.
func (s *Server) Fetched() []objectid.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.fetched)
}

// Transfers returns every transfer request received, in arrival order.
func (s *Server) Transfers() []protocol.DataRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.transfers)
}

// Subscribers returns the number of live notification subscribers.
func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}
