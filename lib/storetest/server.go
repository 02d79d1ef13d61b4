// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package storetest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/objstore/lib/clock"
	"github.com/bureau-foundation/objstore/lib/contenthash"
	"github.com/bureau-foundation/objstore/lib/fdconn"
	"github.com/bureau-foundation/objstore/lib/objectid"
	"github.com/bureau-foundation/objstore/lib/protocol"
)

const (
	// DefaultCapacity is the store capacity when Config.Capacity is
	// zero.
	DefaultCapacity int64 = 64 << 20

	// alignment of every object's data offset within its region.
	alignment = 64

	// notifyTimeout bounds a write to a subscriber. A subscriber that
	// cannot keep up is dropped.
	notifyTimeout = time.Second
)

// Config configures a Server.
type Config struct {
	// StoreSocket is the path the store listens on. Required.
	StoreSocket string

	// ManagerSocket is the path the manager listens on. Empty runs no
	// manager.
	ManagerSocket string

	// Capacity is the total bytes of data and metadata the store
	// accepts before replying out of memory.
	Capacity int64

	// RegionSize is the size of each region file. Objects that do not
	// fit in the current region start a new one. Zero means a single
	// region of Capacity bytes.
	RegionSize int64

	// Directory holds the region files. Empty means os.TempDir().
	Directory string

	Logger *slog.Logger

	// Clock times blocking get and wait requests. Nil means
	// clock.Real().
	Clock clock.Clock
}

// Server is a fake object store and manager.
type Server struct {
	config Config
	logger *slog.Logger
	clock  clock.Clock
	ready  chan struct{}

	// connections tracks live session goroutines for shutdown.
	connections sync.WaitGroup

	mu          sync.Mutex
	regions     []*region
	used        int64
	objects     map[objectid.ID]*storedObject
	order       []objectid.ID
	sessions    map[*clientSession]struct{}
	subscribers []*fdconn.Conn
	statuses    map[objectid.ID]protocol.ObjectStatus
	releases    map[objectid.ID]int
	fetched     []objectid.ID
	transfers   []protocol.DataRequest
	nextSession int

	// changed is closed and replaced whenever an object is sealed or a
	// status changes, waking blocked get and wait requests.
	changed chan struct{}
}

// region is one store file.
type region struct {
	file *os.File
	fd   int
	size int64
	next int64
}

type storedObject struct {
	id      objectid.ID
	region  *region
	object  protocol.PlasmaObject
	sealed  bool
	digest  contenthash.Digest
	holders map[*clientSession]struct{}
}

type clientSession struct {
	id   int
	conn *fdconn.Conn
}

// NewServer validates config and returns an unstarted Server.
func NewServer(config Config) (*Server, error) {
	if config.StoreSocket == "" {
		return nil, errors.New("storetest: StoreSocket is required")
	}
	if config.Capacity <= 0 {
		config.Capacity = DefaultCapacity
	}
	if config.RegionSize <= 0 {
		config.RegionSize = config.Capacity
	}
	if config.Directory == "" {
		config.Directory = os.TempDir()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	return &Server{
		config:   config,
		logger:   config.Logger,
		clock:    config.Clock,
		ready:    make(chan struct{}),
		objects:  make(map[objectid.ID]*storedObject),
		sessions: make(map[*clientSession]struct{}),
		statuses: make(map[objectid.ID]protocol.ObjectStatus),
		releases: make(map[objectid.ID]int),
		changed:  make(chan struct{}),
	}, nil
}

// StoreSocket returns the store's socket path.
func (s *Server) StoreSocket() string { return s.config.StoreSocket }

// ManagerSocket returns the manager's socket path, empty if none.
func (s *Server) ManagerSocket() string { return s.config.ManagerSocket }

// Ready is closed once both sockets are listening.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Serve listens on the configured sockets and serves connections until
// ctx is cancelled. It then closes every connection, waits for their
// goroutines, and removes the sockets and region files.
func (s *Server) Serve(ctx context.Context) error {
	storeListener, err := listen(s.config.StoreSocket)
	if err != nil {
		return err
	}
	listeners := []net.Listener{storeListener}

	var managerListener net.Listener
	if s.config.ManagerSocket != "" {
		managerListener, err = listen(s.config.ManagerSocket)
		if err != nil {
			storeListener.Close()
			return err
		}
		listeners = append(listeners, managerListener)
	}

	var accepting sync.WaitGroup
	accepting.Add(1)
	go func() {
		defer accepting.Done()
		s.acceptLoop(ctx, storeListener, s.serveStore)
	}()
	if managerListener != nil {
		accepting.Add(1)
		go func() {
			defer accepting.Done()
			s.acceptLoop(ctx, managerListener, s.serveManager)
		}()
	}

	s.logger.Info("fake object store listening",
		"store_socket", s.config.StoreSocket,
		"manager_socket", s.config.ManagerSocket,
		"capacity", s.config.Capacity,
	)
	close(s.ready)

	<-ctx.Done()
	for _, listener := range listeners {
		listener.Close()
	}
	accepting.Wait()

	s.mu.Lock()
	for session := range s.sessions {
		session.conn.Close()
	}
	for _, subscriber := range s.subscribers {
		subscriber.Close()
	}
	s.subscribers = nil
	s.broadcastLocked()
	s.mu.Unlock()

	s.connections.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.regions {
		entry.file.Close()
		os.Remove(entry.file.Name())
	}
	s.regions = nil
	os.Remove(s.config.StoreSocket)
	if s.config.ManagerSocket != "" {
		os.Remove(s.config.ManagerSocket)
	}
	return nil
}

func listen(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing stale socket %s: %w", path, err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", path, err)
	}
	return listener, nil
}

func (s *Server) acceptLoop(ctx context.Context, listener net.Listener, serve func(ctx context.Context, session *clientSession)) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.mu.Lock()
		s.nextSession++
		session := &clientSession{id: s.nextSession, conn: &fdconn.Conn{UnixConn: conn.(*net.UnixConn)}}
		s.sessions[session] = struct{}{}
		s.mu.Unlock()

		s.connections.Add(1)
		go func() {
			defer s.connections.Done()
			defer s.endSession(session)
			serve(ctx, session)
		}()
	}
}

// endSession closes the connection and drops every object reference
// it held, as a store does when a client goes away.
func (s *Server) endSession(session *clientSession) {
	session.conn.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, session)
	for _, stored := range s.objects {
		delete(stored.holders, session)
	}
}

// serveStore handles one store connection until it closes.
func (s *Server) serveStore(ctx context.Context, session *clientSession) {
	for {
		messageType, body, err := protocol.ReadMessage(session.conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug("store connection ended", "session", session.id, "error", err)
			}
			return
		}

		switch messageType {
		case protocol.MessageConnectRequest:
			err = protocol.WriteMessage(session.conn, protocol.MessageConnectReply,
				protocol.ConnectReply{MemoryCapacity: s.config.Capacity})
		case protocol.MessageCreateRequest:
			err = s.handleCreate(session, body)
		case protocol.MessageGetRequest:
			err = s.handleGet(ctx, session, body)
		case protocol.MessageReleaseRequest:
			err = s.handleRelease(session, body)
		case protocol.MessageSealRequest:
			err = s.handleSeal(body)
		case protocol.MessageContainsRequest:
			err = s.handleContains(session, body)
		case protocol.MessageEvictRequest:
			err = s.handleEvict(session, body)
		case protocol.MessageSubscribeRequest:
			err = s.handleSubscribe(session)
		default:
			err = fmt.Errorf("unexpected %s on store connection", messageType)
		}
		if err != nil {
			s.logger.Warn("dropping store connection", "session", session.id, "message", messageType, "error", err)
			return
		}
	}
}

func (s *Server) handleCreate(session *clientSession, body []byte) error {
	var request protocol.CreateRequest
	if err := protocol.Decode(body, &request); err != nil {
		return err
	}

	s.mu.Lock()
	reply := protocol.CreateReply{ObjectID: request.ObjectID}
	var fd int
	if _, exists := s.objects[request.ObjectID]; exists {
		reply.Error = protocol.ErrorObjectExists
	} else if stored, err := s.allocateLocked(request); err != nil {
		s.mu.Unlock()
		return err
	} else if stored == nil {
		reply.Error = protocol.ErrorOutOfMemory
	} else {
		stored.holders[session] = struct{}{}
		reply.Object = stored.object
		fd = stored.region.fd
	}
	s.mu.Unlock()

	if err := protocol.WriteMessage(session.conn, protocol.MessageCreateReply, reply); err != nil {
		return err
	}
	if reply.Error != protocol.ErrorOK {
		return nil
	}
	return session.conn.SendFD(fd)
}

// allocateLocked places a new object, returning nil when the store is
// out of capacity.
func (s *Server) allocateLocked(request protocol.CreateRequest) (*storedObject, error) {
	size := request.DataSize + request.MetadataSize
	if request.DataSize < 0 || request.MetadataSize < 0 {
		return nil, fmt.Errorf("create of %s with negative size", request.ObjectID)
	}
	if s.used+size > s.config.Capacity {
		return nil, nil
	}

	var target *region
	if len(s.regions) > 0 {
		last := s.regions[len(s.regions)-1]
		if last.next+size <= last.size {
			target = last
		}
	}
	if target == nil {
		created, err := s.newRegionLocked(max(s.config.RegionSize, size, 1))
		if err != nil {
			return nil, err
		}
		target = created
	}

	offset := target.next
	target.next = alignUp(offset + size)
	s.used += size

	stored := &storedObject{
		id:     request.ObjectID,
		region: target,
		object: protocol.PlasmaObject{
			StoreFD:        target.fd,
			MapSize:        target.size,
			DataOffset:     offset,
			MetadataOffset: offset + request.DataSize,
			DataSize:       request.DataSize,
			MetadataSize:   request.MetadataSize,
		},
		holders: make(map[*clientSession]struct{}),
	}
	s.objects[request.ObjectID] = stored
	s.order = append(s.order, request.ObjectID)
	return stored, nil
}

func (s *Server) newRegionLocked(size int64) (*region, error) {
	file, err := os.CreateTemp(s.config.Directory, "objstore-region-*")
	if err != nil {
		return nil, fmt.Errorf("creating region file: %w", err)
	}
	fd := int(file.Fd())
	if err := unix.Ftruncate(fd, size); err != nil {
		file.Close()
		os.Remove(file.Name())
		return nil, fmt.Errorf("sizing region file: %w", err)
	}
	entry := &region{file: file, fd: fd, size: size}
	s.regions = append(s.regions, entry)
	s.logger.Debug("created region", "store_fd", fd, "size", size)
	return entry, nil
}

func alignUp(offset int64) int64 {
	return (offset + alignment - 1) &^ (alignment - 1)
}

func (s *Server) handleGet(ctx context.Context, session *clientSession, body []byte) error {
	var request protocol.GetRequest
	if err := protocol.Decode(body, &request); err != nil {
		return err
	}

	var deadline <-chan time.Time
	if request.TimeoutMs > 0 {
		deadline = s.clock.After(time.Duration(request.TimeoutMs) * time.Millisecond)
	}

	s.mu.Lock()
	for request.TimeoutMs != 0 && !s.allSealedLocked(request.ObjectIDs) {
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
	}

	reply := protocol.GetReply{
		ObjectIDs: request.ObjectIDs,
		Objects:   make([]protocol.PlasmaObject, len(request.ObjectIDs)),
	}
	var fds []int
	for i, id := range request.ObjectIDs {
		stored, ok := s.objects[id]
		if !ok || !stored.sealed {
			reply.Objects[i] = protocol.PlasmaObject{DataSize: -1, MetadataSize: -1}
			continue
		}
		stored.holders[session] = struct{}{}
		reply.Objects[i] = stored.object
		fds = append(fds, stored.region.fd)
	}
	s.mu.Unlock()

	if err := protocol.WriteMessage(session.conn, protocol.MessageGetReply, reply); err != nil {
		return err
	}
	for _, fd := range fds {
		if err := session.conn.SendFD(fd); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) allSealedLocked(ids []objectid.ID) bool {
	for _, id := range ids {
		stored, ok := s.objects[id]
		if !ok || !stored.sealed {
			return false
		}
	}
	return true
}

func (s *Server) handleRelease(session *clientSession, body []byte) error {
	var request protocol.ReleaseRequest
	if err := protocol.Decode(body, &request); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.releases[request.ObjectID]++
	if stored, ok := s.objects[request.ObjectID]; ok {
		delete(stored.holders, session)
	}
	return nil
}

func (s *Server) handleSeal(body []byte) error {
	var request protocol.SealRequest
	if err := protocol.Decode(body, &request); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.objects[request.ObjectID]
	if !ok {
		return fmt.Errorf("seal of unknown object %s", request.ObjectID)
	}
	if stored.sealed {
		return fmt.Errorf("seal of sealed object %s", request.ObjectID)
	}
	stored.sealed = true
	stored.digest = request.Digest
	s.notifyLocked(protocol.ObjectInfo{
		ObjectID:     stored.id,
		DataSize:     stored.object.DataSize,
		MetadataSize: stored.object.MetadataSize,
	})
	s.broadcastLocked()
	return nil
}

func (s *Server) handleContains(session *clientSession, body []byte) error {
	var request protocol.ContainsRequest
	if err := protocol.Decode(body, &request); err != nil {
		return err
	}
	s.mu.Lock()
	stored, ok := s.objects[request.ObjectID]
	hasObject := ok && stored.sealed
	s.mu.Unlock()

	return protocol.WriteMessage(session.conn, protocol.MessageContainsReply,
		protocol.ContainsReply{ObjectID: request.ObjectID, HasObject: hasObject})
}

// handleEvict deletes sealed objects no connection holds, oldest
// first, until at least the requested bytes are freed. Space is not
// reused; eviction only lowers the used total.
func (s *Server) handleEvict(session *clientSession, body []byte) error {
	var request protocol.EvictRequest
	if err := protocol.Decode(body, &request); err != nil {
		return err
	}

	s.mu.Lock()
	var freed int64
	remaining := s.order[:0]
	for _, id := range s.order {
		stored := s.objects[id]
		if freed >= request.NumBytes || !stored.sealed || len(stored.holders) > 0 {
			remaining = append(remaining, id)
			continue
		}
		size := stored.object.DataSize + stored.object.MetadataSize
		freed += size
		s.used -= size
		delete(s.objects, id)
		s.notifyLocked(protocol.ObjectInfo{ObjectID: id, DataSize: -1, MetadataSize: -1, IsDeletion: true})
	}
	s.order = remaining
	s.mu.Unlock()

	return protocol.WriteMessage(session.conn, protocol.MessageEvictReply, protocol.EvictReply{NumBytes: freed})
}

func (s *Server) handleSubscribe(session *clientSession) error {
	fd, err := session.conn.RecvFD()
	if err != nil {
		return fmt.Errorf("receiving subscriber descriptor: %w", err)
	}
	subscriber, err := fdconn.FromFile(fd, "subscriber")
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.subscribers = append(s.subscribers, subscriber)
	s.mu.Unlock()
	s.logger.Debug("added subscriber", "session", session.id)
	return nil
}

// notifyLocked pushes info to every subscriber, dropping any that
// cannot take it.
func (s *Server) notifyLocked(info protocol.ObjectInfo) {
	kept := s.subscribers[:0]
	for _, subscriber := range s.subscribers {
		subscriber.SetWriteDeadline(time.Now().Add(notifyTimeout))
		if err := protocol.WriteNotification(subscriber, info); err != nil {
			s.logger.Debug("dropping subscriber", "error", err)
			subscriber.Close()
			continue
		}
		kept = append(kept, subscriber)
	}
	s.subscribers = kept
}

func (s *Server) broadcastLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}
