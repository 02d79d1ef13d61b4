// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package storetest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/bureau-foundation/objstore/lib/objectid"
	"github.com/bureau-foundation/objstore/lib/protocol"
)

// serveManager handles one manager connection until it closes.
func (s *Server) serveManager(ctx context.Context, session *clientSession) {
	for {
		messageType, body, err := protocol.ReadMessage(session.conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug("manager connection ended", "session", session.id, "error", err)
			}
			return
		}

		switch messageType {
		case protocol.MessageStatusRequest:
			err = s.handleStatus(session, body)
		case protocol.MessageWaitRequest:
			err = s.handleWait(ctx, session, body)
		case protocol.MessageFetchRequest:
			err = s.handleFetch(body)
		case protocol.MessageDataRequest:
			err = s.handleTransfer(body)
		default:
			err = fmt.Errorf("unexpected %s on manager connection", messageType)
		}
		if err != nil {
			s.logger.Warn("dropping manager connection", "session", session.id, "message", messageType, "error", err)
			return
		}
	}
}

// statusLocked reports where an object lives: local once sealed in
// this store, otherwise whatever SetStatus injected.
func (s *Server) statusLocked(id objectid.ID) protocol.ObjectStatus {
	if stored, ok := s.objects[id]; ok && stored.sealed {
		return protocol.StatusLocal
	}
	if status, ok := s.statuses[id]; ok {
		return status
	}
	return protocol.StatusNonexistent
}

func (s *Server) handleStatus(session *clientSession, body []byte) error {
	var request protocol.StatusRequest
	if err := protocol.Decode(body, &request); err != nil {
		return err
	}
	s.mu.Lock()
	reply := protocol.StatusReply{
		ObjectIDs: request.ObjectIDs,
		Statuses:  make([]protocol.ObjectStatus, len(request.ObjectIDs)),
	}
	for i, id := range request.ObjectIDs {
		reply.Statuses[i] = s.statusLocked(id)
	}
	s.mu.Unlock()
	return protocol.WriteMessage(session.conn, protocol.MessageStatusReply, reply)
}

func (s *Server) handleWait(ctx context.Context, session *clientSession, body []byte) error {
	var request protocol.WaitRequest
	if err := protocol.Decode(body, &request); err != nil {
		return err
	}

	var deadline <-chan time.Time
	if request.TimeoutMs > 0 {
		deadline = s.clock.After(time.Duration(request.TimeoutMs) * time.Millisecond)
	}

	s.mu.Lock()
	ready := s.fillStatusesLocked(request.ObjectRequests)
	for request.TimeoutMs != 0 && ready < request.NumReady {
		changed := s.changed
		s.mu.Unlock()
		select {
		case <-changed:
		case <-deadline:
			request.TimeoutMs = 0
		case <-ctx.Done():
			return ctx.Err()
		}
		s.mu.Lock()
		ready = s.fillStatusesLocked(request.ObjectRequests)
	}
	s.mu.Unlock()

	return protocol.WriteMessage(session.conn, protocol.MessageWaitReply, protocol.WaitReply{
		ObjectRequests: request.ObjectRequests,
		NumReady:       ready,
	})
}

// fillStatusesLocked sets each request's status and counts those that
// satisfy their query type.
func (s *Server) fillStatusesLocked(requests []protocol.ObjectRequest) int {
	ready := 0
	for i := range requests {
		status := s.statusLocked(requests[i].ObjectID)
		requests[i].Status = status
		switch {
		case status == protocol.StatusLocal:
			ready++
		case status == protocol.StatusRemote && requests[i].Type == protocol.QueryAnywhere:
			ready++
		}
	}
	return ready
}

func (s *Server) handleFetch(body []byte) error {
	var request protocol.FetchRequest
	if err := protocol.Decode(body, &request); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetched = append(s.fetched, request.ObjectIDs...)
	return nil
}

func (s *Server) handleTransfer(body []byte) error {
	var request protocol.DataRequest
	if err := protocol.Decode(body, &request); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transfers = append(s.transfers, request)
	return nil
}
