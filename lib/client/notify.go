// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package client

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/objstore/lib/fdconn"
	"github.com/bureau-foundation/objstore/lib/objectid"
	"github.com/bureau-foundation/objstore/lib/protocol"
)

// Notification reports that an object was sealed or deleted in the
// store. A deletion has Deleted set and both sizes -1.
type Notification struct {
	ID           objectid.ID
	DataSize     int64
	MetadataSize int64
	Deleted      bool
}

// Subscription is the receiving end of the store's notification
// stream. It is independent of the client's store connection: reading
// from it does not take the client lock, and it stays open after
// Disconnect until closed.
type Subscription struct {
	conn *fdconn.Conn
}

// Subscribe asks the store to push a notification for every object
// sealed or deleted from now on. The store writes to its end of a
// socketpair without blocking, so a subscriber that falls behind loses
// its subscription rather than stalling the store.
func (c *Client) Subscribe() (*Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	store, err := c.storeConn()
	if err != nil {
		return nil, err
	}

	local, remote, err := fdconn.Pair(true)
	if err != nil {
		return nil, fmt.Errorf("subscribing: %w", err)
	}
	// The store holds its own copy once the descriptor is transferred.
	defer unix.Close(remote)

	if err := c.send(store, protocol.MessageSubscribeRequest, protocol.SubscribeRequest{}); err != nil {
		local.Close()
		return nil, fmt.Errorf("subscribing: %w", err)
	}
	if err := store.SendFD(remote); err != nil {
		local.Close()
		return nil, fmt.Errorf("subscribing: %w", err)
	}

	c.logger.Debug("subscribed to store notifications")
	return &Subscription{conn: local}, nil
}

// GetNotification reads the next notification from subscription,
// blocking until one arrives.
func (c *Client) GetNotification(subscription *Subscription) (Notification, error) {
	return subscription.Next()
}

// Next blocks until the store pushes a notification. It returns io.EOF
// once the store closes its end.
func (s *Subscription) Next() (Notification, error) {
	info, err := protocol.ReadNotification(s.conn)
	if err != nil {
		return Notification{}, err
	}
	notification := Notification{
		ID:           info.ObjectID,
		DataSize:     info.DataSize,
		MetadataSize: info.MetadataSize,
		Deleted:      info.IsDeletion,
	}
	if notification.Deleted {
		notification.DataSize = -1
		notification.MetadataSize = -1
	}
	return notification, nil
}

// SetDeadline bounds how long Next may block. A zero time removes the
// deadline.
func (s *Subscription) SetDeadline(deadline time.Time) error {
	return s.conn.SetReadDeadline(deadline)
}

// Close closes the subscription. The store drops it on its next push.
func (s *Subscription) Close() error {
	return s.conn.Close()
}
