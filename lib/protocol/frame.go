// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/bureau-foundation/objstore/lib/codec"
)

// Version is written into every frame header. A peer speaking another
// version is rejected on the first read.
const Version = 1

// MaxMessageSize bounds a single frame body. Get and wait replies grow
// with the number of requested objects; 64 MiB is far beyond any
// realistic batch.
const MaxMessageSize = 64 << 20

const headerSize = 24

// ErrMessageTooLarge is returned when a frame header announces a body
// larger than MaxMessageSize.
var ErrMessageTooLarge = errors.New("protocol: message exceeds maximum size")

// WriteMessage encodes body as CBOR and writes one frame. The header
// and body go out in a single Write so a frame is never interleaved
// with a descriptor transfer.
func WriteMessage(w io.Writer, messageType MessageType, body any) error {
	payload, err := codec.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", messageType, err)
	}
	if len(payload) > MaxMessageSize {
		return fmt.Errorf("encoding %s: %w", messageType, ErrMessageTooLarge)
	}

	frame := make([]byte, headerSize+len(payload))
	binary.LittleEndian.PutUint64(frame[0:8], Version)
	binary.LittleEndian.PutUint64(frame[8:16], uint64(messageType))
	binary.LittleEndian.PutUint64(frame[16:24], uint64(len(payload)))
	copy(frame[headerSize:], payload)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("writing %s: %w", messageType, err)
	}
	return nil
}

// ReadMessage reads exactly one frame and returns its type and raw
// CBOR body. It never reads past the end of the frame, so a descriptor
// sent right after the frame is still waiting on the socket.
func ReadMessage(r io.Reader) (MessageType, []byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}

	version := binary.LittleEndian.Uint64(header[0:8])
	if version != Version {
		return 0, nil, fmt.Errorf("protocol: peer speaks version %d, want %d", version, Version)
	}
	messageType := MessageType(binary.LittleEndian.Uint64(header[8:16]))
	length := binary.LittleEndian.Uint64(header[16:24])
	if length > MaxMessageSize {
		return 0, nil, fmt.Errorf("reading %s of %d bytes: %w", messageType, length, ErrMessageTooLarge)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, fmt.Errorf("reading %s body: %w", messageType, io.ErrUnexpectedEOF)
	}
	return messageType, body, nil
}

// Decode unmarshals a message body read by ReadMessage.
func Decode(body []byte, v any) error {
	return codec.Unmarshal(body, v)
}

// WriteNotification writes one length-prefixed ObjectInfo.
func WriteNotification(w io.Writer, info ObjectInfo) error {
	payload, err := codec.Marshal(info)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}
	frame := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint64(frame[0:8], uint64(len(payload)))
	copy(frame[8:], payload)
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("writing notification: %w", err)
	}
	return nil
}

// ReadNotification reads one length-prefixed ObjectInfo.
func ReadNotification(r io.Reader) (ObjectInfo, error) {
	var info ObjectInfo

	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return info, err
	}
	length := binary.LittleEndian.Uint64(header[:])
	if length > MaxMessageSize {
		return info, fmt.Errorf("reading notification of %d bytes: %w", length, ErrMessageTooLarge)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return info, fmt.Errorf("reading notification body: %w", io.ErrUnexpectedEOF)
	}
	if err := codec.Unmarshal(body, &info); err != nil {
		return info, fmt.Errorf("decoding notification: %w", err)
	}
	return info, nil
}
