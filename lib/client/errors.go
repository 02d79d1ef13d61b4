// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/objstore/lib/protocol"
)

var (
	// ErrObjectExists is returned by Create when the ID is taken.
	ErrObjectExists = errors.New("object already exists")

	// ErrObjectNonexistent is returned when the store does not have
	// the requested object.
	ErrObjectNonexistent = errors.New("object does not exist")

	// ErrOutOfMemory is returned by Create when the store cannot make
	// room for the object.
	ErrOutOfMemory = errors.New("store out of memory")

	// ErrNotImplemented is returned by operations this client does not
	// support.
	ErrNotImplemented = errors.New("not implemented")

	// ErrDisconnected is returned by every operation other than
	// Release after Disconnect, or after the store connection failed.
	ErrDisconnected = errors.New("client is disconnected from the store")

	// ErrNoManager is returned by manager operations when the client
	// was connected without a manager socket.
	ErrNoManager = errors.New("client has no manager connection")
)

// StoreError is a failure reported by the store in a reply. Its Is
// method matches the sentinel error for its code, so callers can use
// errors.Is(err, ErrOutOfMemory) without unwrapping.
type StoreError struct {
	Op   string
	Code protocol.ErrorCode
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store rejected %s: %s", e.Op, e.Code)
}

// Is reports whether target is the sentinel for e.Code.
func (e *StoreError) Is(target error) bool {
	switch e.Code {
	case protocol.ErrorObjectExists:
		return target == ErrObjectExists
	case protocol.ErrorObjectNonexistent:
		return target == ErrObjectNonexistent
	case protocol.ErrorOutOfMemory:
		return target == ErrOutOfMemory
	}
	return false
}
