// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"fmt"
	"time"

	"github.com/bureau-foundation/objstore/lib/objectid"
	"github.com/bureau-foundation/objstore/lib/protocol"
)

// ObjectRequest is one entry of a Wait call: the object, the locality
// that satisfies it, and (after Wait returns) the status the manager
// reported.
type ObjectRequest = protocol.ObjectRequest

// Fetch asks the manager to pull the given objects into the local
// store from wherever they live. It returns once the request is sent;
// use Wait or Get to learn when they arrive.
func (c *Client) Fetch(ids []objectid.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	manager, err := c.managerConn()
	if err != nil {
		return err
	}
	if err := c.send(manager, protocol.MessageFetchRequest, protocol.FetchRequest{ObjectIDs: ids}); err != nil {
		return fmt.Errorf("fetching %d objects: %w", len(ids), err)
	}
	c.logger.Debug("requested fetch", "objects", len(ids))
	return nil
}

// Transfer asks the manager to push object id to the manager listening
// at address:port. The address is passed through unchanged; how the
// manager resolves it is its own concern.
func (c *Client) Transfer(address string, port int, id objectid.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	manager, err := c.managerConn()
	if err != nil {
		return err
	}
	request := protocol.DataRequest{ObjectID: id, Address: address, Port: port}
	if err := c.send(manager, protocol.MessageDataRequest, request); err != nil {
		return fmt.Errorf("transferring %s to %s:%d: %w", id, address, port, err)
	}
	c.logger.Debug("requested transfer", "object_id", id, "address", address, "port", port)
	return nil
}

// Wait blocks on the manager until at least numRequired of requests
// are satisfied or timeout elapses, and returns how many are
// satisfied. Each request's Status is updated from the reply. A
// QueryLocal request is satisfied by a local object, a QueryAnywhere
// request by a local or remote one. A negative timeout waits forever.
//
// Wait panics on an empty request list, a numRequired outside
// [1, len(requests)], an unknown query type, or a status the manager
// should never report.
func (c *Client) Wait(requests []ObjectRequest, numRequired int, timeout time.Duration) (int, error) {
	if len(requests) == 0 {
		panic("client: wait with no object requests")
	}
	if numRequired < 1 || numRequired > len(requests) {
		panic(fmt.Sprintf("client: wait for %d of %d objects", numRequired, len(requests)))
	}
	for _, request := range requests {
		if request.Type != protocol.QueryLocal && request.Type != protocol.QueryAnywhere {
			panic(fmt.Sprintf("client: wait on %s with query type %s", request.ObjectID, request.Type))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	manager, err := c.managerConn()
	if err != nil {
		return 0, err
	}

	request := protocol.WaitRequest{
		ObjectRequests: requests,
		NumReady:       numRequired,
		TimeoutMs:      timeoutMillis(timeout),
	}
	var reply protocol.WaitReply
	if err := c.call(manager, protocol.MessageWaitRequest, request, protocol.MessageWaitReply, &reply); err != nil {
		return 0, fmt.Errorf("waiting on %d objects: %w", len(requests), err)
	}
	if len(reply.ObjectRequests) != len(requests) {
		panic(fmt.Sprintf("client: wait reply has %d entries for %d requests",
			len(reply.ObjectRequests), len(requests)))
	}

	ready := 0
	for i := range requests {
		status := reply.ObjectRequests[i].Status
		requests[i].Status = status
		if isReady(requests[i].Type, status) {
			ready++
		}
	}
	c.logger.Debug("wait returned", "requested", len(requests), "required", numRequired, "ready", ready)
	return ready, nil
}

// isReady classifies one wait status. An anywhere query that is
// neither found nor nonexistent means the manager and client disagree
// on the protocol, and panics.
func isReady(query protocol.QueryType, status protocol.ObjectStatus) bool {
	switch query {
	case protocol.QueryLocal:
		switch status {
		case protocol.StatusLocal:
			return true
		case protocol.StatusNonexistent, protocol.StatusRemote, protocol.StatusTransfer:
			return false
		}
	case protocol.QueryAnywhere:
		switch status {
		case protocol.StatusLocal, protocol.StatusRemote:
			return true
		case protocol.StatusNonexistent:
			return false
		}
	}
	panic(fmt.Sprintf("client: manager reported status %s for query type %s", status, query))
}

// Info asks the manager where a single object lives.
func (c *Client) Info(id objectid.ID) (protocol.ObjectStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	manager, err := c.managerConn()
	if err != nil {
		return protocol.StatusNonexistent, err
	}
	request := protocol.StatusRequest{ObjectIDs: []objectid.ID{id}}
	var reply protocol.StatusReply
	if err := c.call(manager, protocol.MessageStatusRequest, request, protocol.MessageStatusReply, &reply); err != nil {
		return protocol.StatusNonexistent, fmt.Errorf("querying status of %s: %w", id, err)
	}
	if len(reply.Statuses) != 1 {
		panic(fmt.Sprintf("client: status reply has %d entries for 1 request", len(reply.Statuses)))
	}
	return reply.Statuses[0], nil
}
