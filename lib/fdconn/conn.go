// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package fdconn

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/objstore/lib/clock"
)

// Conn is a connected Unix stream socket that can also transfer file
// descriptors.
type Conn struct {
	*net.UnixConn
}

// DialOptions controls connection retry.
type DialOptions struct {
	// Retries is the number of additional attempts after the first
	// connect fails. Zero tries exactly once.
	Retries int

	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration

	// Clock paces retries. Nil means clock.Real().
	Clock clock.Clock
}

// Dial connects to the Unix socket at path, retrying per options.
// Returns the last connect error once retries are exhausted.
func Dial(ctx context.Context, path string, options DialOptions) (*Conn, error) {
	pace := options.Clock
	if pace == nil {
		pace = clock.Real()
	}

	var dialer net.Dialer
	var lastErr error
	for attempt := 0; attempt <= options.Retries; attempt++ {
		if attempt > 0 {
			pace.Sleep(options.RetryDelay)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		conn, err := dialer.DialContext(ctx, "unix", path)
		if err == nil {
			return &Conn{UnixConn: conn.(*net.UnixConn)}, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("connecting to %s after %d attempts: %w", path, options.Retries+1, lastErr)
}

// FromFile wraps a socket descriptor (for example one end of a
// socketpair) as a Conn. FromFile takes ownership of fd: it is closed
// before FromFile returns, whether or not wrapping succeeds, and the
// Conn holds its own duplicate.
func FromFile(fd int, name string) (*Conn, error) {
	file := os.NewFile(uintptr(fd), name)
	conn, err := net.FileConn(file)
	file.Close()
	if err != nil {
		return nil, fmt.Errorf("wrapping descriptor %d: %w", fd, err)
	}
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("descriptor %d is not a Unix socket", fd)
	}
	return &Conn{UnixConn: unixConn}, nil
}

// SendFD transfers fd to the peer. The caller keeps its own copy of
// the descriptor and remains responsible for closing it.
func (c *Conn) SendFD(fd int) error {
	rights := unix.UnixRights(fd)
	written, oobWritten, err := c.WriteMsgUnix([]byte{0}, rights, nil)
	if err != nil {
		return fmt.Errorf("sending descriptor: %w", err)
	}
	if written != 1 || oobWritten != len(rights) {
		return fmt.Errorf("sending descriptor: short write (%d, %d)", written, oobWritten)
	}
	return nil
}

// ErrNoDescriptor is returned by RecvFD when the peer sent the
// placeholder byte without a descriptor attached.
var ErrNoDescriptor = errors.New("fdconn: message carried no descriptor")

// RecvFD receives one descriptor transferred by the peer's SendFD. The
// returned descriptor is owned by the caller.
func (c *Conn) RecvFD() (int, error) {
	placeholder := make([]byte, 1)
	oob := make([]byte, unix.CmsgSpace(4))

	_, oobRead, flags, _, err := c.ReadMsgUnix(placeholder, oob)
	if err != nil {
		return -1, fmt.Errorf("receiving descriptor: %w", err)
	}
	if flags&unix.MSG_CTRUNC != 0 {
		return -1, fmt.Errorf("receiving descriptor: control message truncated")
	}

	messages, err := unix.ParseSocketControlMessage(oob[:oobRead])
	if err != nil {
		return -1, fmt.Errorf("parsing control message: %w", err)
	}
	if len(messages) == 0 {
		return -1, ErrNoDescriptor
	}
	fds, err := unix.ParseUnixRights(&messages[0])
	if err != nil {
		return -1, fmt.Errorf("parsing descriptor rights: %w", err)
	}
	if len(fds) == 0 {
		return -1, ErrNoDescriptor
	}
	for _, extra := range fds[1:] {
		unix.Close(extra)
	}
	return fds[0], nil
}

// Pair creates a connected socketpair. The first end is returned as a
// Conn for this process; the second is returned as a raw descriptor
// meant to be sent to a peer with SendFD and then closed. When
// nonblockingRemote is set the remote end is put in non-blocking mode,
// so a slow reader cannot stall the peer that writes to it.
func Pair(nonblockingRemote bool) (*Conn, int, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, -1, fmt.Errorf("creating socketpair: %w", err)
	}
	local, remote := fds[0], fds[1]

	if nonblockingRemote {
		if err := unix.SetNonblock(remote, true); err != nil {
			unix.Close(local)
			unix.Close(remote)
			return nil, -1, fmt.Errorf("setting socketpair non-blocking: %w", err)
		}
	}

	conn, err := FromFile(local, "socketpair")
	if err != nil {
		unix.Close(remote)
		return nil, -1, err
	}
	return conn, remote, nil
}
