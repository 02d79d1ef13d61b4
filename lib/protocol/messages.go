// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"fmt"

	"github.com/bureau-foundation/objstore/lib/contenthash"
	"github.com/bureau-foundation/objstore/lib/objectid"
)

// MessageType tags the body that follows a frame header. Values are
// protocol constants.
type MessageType uint64

const (
	MessageConnectRequest MessageType = iota + 1
	MessageConnectReply
	MessageCreateRequest
	MessageCreateReply
	MessageGetRequest
	MessageGetReply
	MessageReleaseRequest
	MessageSealRequest
	MessageContainsRequest
	MessageContainsReply
	MessageEvictRequest
	MessageEvictReply
	MessageSubscribeRequest
	MessageStatusRequest
	MessageStatusReply
	MessageWaitRequest
	MessageWaitReply
	MessageDataRequest
	MessageFetchRequest
)

var messageTypeNames = map[MessageType]string{
	MessageConnectRequest:   "connect_request",
	MessageConnectReply:     "connect_reply",
	MessageCreateRequest:    "create_request",
	MessageCreateReply:      "create_reply",
	MessageGetRequest:       "get_request",
	MessageGetReply:         "get_reply",
	MessageReleaseRequest:   "release_request",
	MessageSealRequest:      "seal_request",
	MessageContainsRequest:  "contains_request",
	MessageContainsReply:    "contains_reply",
	MessageEvictRequest:     "evict_request",
	MessageEvictReply:       "evict_reply",
	MessageSubscribeRequest: "subscribe_request",
	MessageStatusRequest:    "status_request",
	MessageStatusReply:      "status_reply",
	MessageWaitRequest:      "wait_request",
	MessageWaitReply:        "wait_reply",
	MessageDataRequest:      "data_request",
	MessageFetchRequest:     "fetch_request",
}

// String returns the snake_case name of the message type.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint64(t))
}

// ErrorCode is the store's verdict on a create or get request.
type ErrorCode int

const (
	ErrorOK ErrorCode = iota
	ErrorObjectExists
	ErrorObjectNonexistent
	ErrorOutOfMemory
)

// String returns a human-readable name for the code.
func (c ErrorCode) String() string {
	switch c {
	case ErrorOK:
		return "ok"
	case ErrorObjectExists:
		return "object already exists"
	case ErrorObjectNonexistent:
		return "object does not exist"
	case ErrorOutOfMemory:
		return "store out of memory"
	default:
		return fmt.Sprintf("unknown error code %d", int(c))
	}
}

// ObjectStatus is where the manager believes an object lives.
type ObjectStatus int

const (
	StatusNonexistent ObjectStatus = iota
	StatusLocal
	StatusRemote
	StatusTransfer
)

// String returns the lowercase name of the status.
func (s ObjectStatus) String() string {
	switch s {
	case StatusNonexistent:
		return "nonexistent"
	case StatusLocal:
		return "local"
	case StatusRemote:
		return "remote"
	case StatusTransfer:
		return "transfer"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// QueryType is the locality class a wait request is satisfied by.
type QueryType int

const (
	// QueryLocal is satisfied only by an object sealed in the local
	// store.
	QueryLocal QueryType = iota + 1
	// QueryAnywhere is satisfied by an object that is local or known
	// to exist on a remote store.
	QueryAnywhere
)

// String returns the lowercase name of the query type.
func (q QueryType) String() string {
	switch q {
	case QueryLocal:
		return "local"
	case QueryAnywhere:
		return "anywhere"
	default:
		return fmt.Sprintf("unknown(%d)", int(q))
	}
}

// PlasmaObject locates an object inside a store-owned mapped region.
// StoreFD is the store's identity for the region (the descriptor
// number in the store process), not a descriptor valid in the client.
type PlasmaObject struct {
	StoreFD        int   `cbor:"store_fd"`
	MapSize        int64 `cbor:"map_size"`
	DataOffset     int64 `cbor:"data_offset"`
	MetadataOffset int64 `cbor:"metadata_offset"`
	DataSize       int64 `cbor:"data_size"`
	MetadataSize   int64 `cbor:"metadata_size"`
}

type ConnectRequest struct{}

type ConnectReply struct {
	MemoryCapacity int64 `cbor:"memory_capacity"`
}

type CreateRequest struct {
	ObjectID     objectid.ID `cbor:"object_id"`
	DataSize     int64       `cbor:"data_size"`
	MetadataSize int64       `cbor:"metadata_size"`
}

// CreateReply carries the new object's location. A region descriptor
// follows the frame only when Error is ErrorOK.
type CreateReply struct {
	ObjectID objectid.ID  `cbor:"object_id"`
	Object   PlasmaObject `cbor:"object"`
	Error    ErrorCode    `cbor:"error,omitempty"`
}

type GetRequest struct {
	ObjectIDs []objectid.ID `cbor:"object_ids"`
	// TimeoutMs bounds how long the store waits for missing objects
	// to be sealed. Zero returns immediately, negative waits forever.
	TimeoutMs int64 `cbor:"timeout_ms"`
}

// GetReply lists one entry per requested ID, in request order. An
// entry with DataSize -1 was not found; every other entry is followed
// by one region descriptor.
type GetReply struct {
	ObjectIDs []objectid.ID  `cbor:"object_ids"`
	Objects   []PlasmaObject `cbor:"objects"`
}

type ReleaseRequest struct {
	ObjectID objectid.ID `cbor:"object_id"`
}

type SealRequest struct {
	ObjectID objectid.ID        `cbor:"object_id"`
	Digest   contenthash.Digest `cbor:"digest"`
}

type ContainsRequest struct {
	ObjectID objectid.ID `cbor:"object_id"`
}

type ContainsReply struct {
	ObjectID  objectid.ID `cbor:"object_id"`
	HasObject bool        `cbor:"has_object"`
}

type EvictRequest struct {
	NumBytes int64 `cbor:"num_bytes"`
}

type EvictReply struct {
	NumBytes int64 `cbor:"num_bytes"`
}

// SubscribeRequest is followed by the descriptor of the socket the
// store should push notifications to.
type SubscribeRequest struct{}

type StatusRequest struct {
	ObjectIDs []objectid.ID `cbor:"object_ids"`
}

type StatusReply struct {
	ObjectIDs []objectid.ID  `cbor:"object_ids"`
	Statuses  []ObjectStatus `cbor:"statuses"`
}

// ObjectRequest is one entry of a wait request. The manager fills in
// Status in the reply.
type ObjectRequest struct {
	ObjectID objectid.ID  `cbor:"object_id"`
	Type     QueryType    `cbor:"type"`
	Status   ObjectStatus `cbor:"status"`
}

type WaitRequest struct {
	ObjectRequests []ObjectRequest `cbor:"object_requests"`
	NumReady       int             `cbor:"num_ready_objects"`
	TimeoutMs      int64           `cbor:"timeout_ms"`
}

type WaitReply struct {
	ObjectRequests []ObjectRequest `cbor:"object_requests"`
	NumReady       int             `cbor:"num_ready_objects"`
}

// DataRequest asks the manager to push an object to the manager at
// Address:Port.
type DataRequest struct {
	ObjectID objectid.ID `cbor:"object_id"`
	Address  string      `cbor:"address"`
	Port     int         `cbor:"port"`
}

type FetchRequest struct {
	ObjectIDs []objectid.ID `cbor:"object_ids"`
}

// ObjectInfo is the body of a subscription notification.
type ObjectInfo struct {
	ObjectID     objectid.ID `cbor:"object_id"`
	DataSize     int64       `cbor:"data_size"`
	MetadataSize int64       `cbor:"metadata_size"`
	IsDeletion   bool        `cbor:"is_deletion,omitempty"`
}
