// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/objstore/lib/codec"
	"github.com/bureau-foundation/objstore/lib/fdconn"
	"github.com/bureau-foundation/objstore/lib/protocol"
)

// Client is a connection to an object store (and optionally its
// manager) together with the per-connection region table, object
// table, and release history. Construct with Connect.
type Client struct {
	mu sync.Mutex

	store   *fdconn.Conn
	manager *fdconn.Conn

	// storeLost is set when a write on the store connection failed
	// during a release. The connection stays open until Disconnect but
	// is treated as gone.
	storeLost bool

	logger        *slog.Logger
	releaseDelay  int
	cacheBudget   int64
	storeCapacity int64

	regions *regionTable
	objects *objectTable
	history releaseHistory
}

// Connect dials the store (and the manager, when configured), asks the
// store for its capacity, and returns a ready Client.
func Connect(ctx context.Context, options Options) (*Client, error) {
	if options.StoreSocket == "" {
		return nil, errors.New("connecting to store: no store socket configured")
	}
	options = options.withDefaults()

	dialOptions := fdconn.DialOptions{
		Retries:    options.ConnectRetries,
		RetryDelay: options.ConnectRetryDelay,
		Clock:      options.Clock,
	}
	store, err := fdconn.Dial(ctx, options.StoreSocket, dialOptions)
	if err != nil {
		return nil, fmt.Errorf("connecting to store: %w", err)
	}

	var manager *fdconn.Conn
	if options.ManagerSocket != "" {
		manager, err = fdconn.Dial(ctx, options.ManagerSocket, dialOptions)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("connecting to manager: %w", err)
		}
	}

	regions := newRegionTable()
	client := &Client{
		store:        store,
		manager:      manager,
		logger:       options.Logger,
		releaseDelay: options.ReleaseDelay,
		cacheBudget:  options.CacheBudget,
		regions:      regions,
		objects:      newObjectTable(regions),
	}

	var reply protocol.ConnectReply
	if err := client.call(store, protocol.MessageConnectRequest, protocol.ConnectRequest{}, protocol.MessageConnectReply, &reply); err != nil {
		client.closeConnections()
		return nil, err
	}
	client.storeCapacity = reply.MemoryCapacity

	client.logger.Debug("connected to object store",
		"store_socket", options.StoreSocket,
		"manager_socket", options.ManagerSocket,
		"memory_capacity", reply.MemoryCapacity,
		"release_delay", options.ReleaseDelay,
	)
	return client, nil
}

// Disconnect closes the store and manager connections. Pending
// deferred releases are not sent; the store releases everything this
// client held when it sees the connection close. Disconnect is
// idempotent.
//
// Buffers the caller has not released stay valid: their regions remain
// mapped until each buffer is released, which after Disconnect only
// drops the local reference. Everything else is unmapped here.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	err := c.closeConnections()
	c.dropLocalReferences()
	return err
}

// dropLocalReferences drops, without telling the store, every
// reference that no buffer stands for: deferred releases and the seal
// pins of objects that can no longer be sealed.
func (c *Client) dropLocalReferences() {
	for c.history.len() > 0 {
		id := c.history.popOldest()
		if record := c.objects.get(id); record != nil {
			record.pending--
			c.objects.drop(id)
		}
	}
	for _, id := range c.objects.unsealed() {
		c.objects.drop(id)
	}
}

func (c *Client) closeConnections() error {
	var errs []error
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing store connection: %w", err))
		}
		c.store = nil
	}
	if c.manager != nil {
		if err := c.manager.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing manager connection: %w", err))
		}
		c.manager = nil
	}
	return errors.Join(errs...)
}

// connected reports whether the store connection is usable.
func (c *Client) connected() bool {
	return c.store != nil && !c.storeLost
}

// storeConn returns the store connection or ErrDisconnected.
func (c *Client) storeConn() (*fdconn.Conn, error) {
	if !c.connected() {
		return nil, ErrDisconnected
	}
	return c.store, nil
}

// managerConn returns the manager connection, ErrDisconnected, or
// ErrNoManager.
func (c *Client) managerConn() (*fdconn.Conn, error) {
	if c.store == nil {
		return nil, ErrDisconnected
	}
	if c.manager == nil {
		return nil, ErrNoManager
	}
	return c.manager, nil
}

// send writes one request frame.
func (c *Client) send(conn *fdconn.Conn, messageType protocol.MessageType, body any) error {
	if err := protocol.WriteMessage(conn, messageType, body); err != nil {
		c.lose(conn)
		return err
	}
	return nil
}

// receive reads one reply frame and decodes it into reply. A reply of
// a different type than expected means the client and store disagree
// about the conversation, which panics.
func (c *Client) receive(conn *fdconn.Conn, expected protocol.MessageType, reply any) error {
	messageType, body, err := protocol.ReadMessage(conn)
	if err != nil {
		c.lose(conn)
		return fmt.Errorf("reading %s: %w", expected, err)
	}
	if messageType != expected {
		notation, _ := codec.Diagnose(body)
		panic(fmt.Sprintf("client: expected %s, received %s: %s", expected, messageType, notation))
	}
	if err := protocol.Decode(body, reply); err != nil {
		c.lose(conn)
		return fmt.Errorf("decoding %s: %w", expected, err)
	}
	return nil
}

// lose marks the store connection unusable after a transport failure
// on it. Any frame or descriptor still in flight would otherwise be
// read as the answer to a later request.
func (c *Client) lose(conn *fdconn.Conn) {
	if conn == c.store && !c.storeLost {
		c.storeLost = true
		c.logger.Warn("store connection out of step; further requests fail with ErrDisconnected")
	}
}

// call sends a request and waits for its reply.
func (c *Client) call(conn *fdconn.Conn, requestType protocol.MessageType, request any, replyType protocol.MessageType, reply any) error {
	if err := c.send(conn, requestType, request); err != nil {
		return err
	}
	return c.receive(conn, replyType, reply)
}

// StoreCapacity returns the store's total memory capacity as reported
// at connect time.
func (c *Client) StoreCapacity() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.storeCapacity
}

// InUseBytes returns the data and metadata bytes of every object this
// client currently holds a reference to, including references waiting
// in the release history.
func (c *Client) InUseBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.objects.inUseBytes
}

// HasManager reports whether the client has a manager connection.
func (c *Client) HasManager() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.manager != nil
}

// Connected reports whether the store connection is usable.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected()
}
