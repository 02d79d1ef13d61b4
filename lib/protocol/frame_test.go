// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/bureau-foundation/objstore/lib/contenthash"
	"github.com/bureau-foundation/objstore/lib/objectid"
)

func TestWriteReadMessage(t *testing.T) {
	id := objectid.Random()
	request := CreateRequest{ObjectID: id, DataSize: 100, MetadataSize: 10}

	var buffer bytes.Buffer
	if err := WriteMessage(&buffer, MessageCreateRequest, request); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	messageType, body, err := ReadMessage(&buffer)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if messageType != MessageCreateRequest {
		t.Fatalf("type = %s, want %s", messageType, MessageCreateRequest)
	}

	var decoded CreateRequest
	if err := Decode(body, &decoded); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != request {
		t.Errorf("decoded %+v, want %+v", decoded, request)
	}
	if buffer.Len() != 0 {
		t.Errorf("ReadMessage left %d bytes unread", buffer.Len())
	}
}

func TestReadMessageStopsAtFrameBoundary(t *testing.T) {
	var buffer bytes.Buffer
	if err := WriteMessage(&buffer, MessageEvictRequest, EvictRequest{NumBytes: 1}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if err := WriteMessage(&buffer, MessageEvictRequest, EvictRequest{NumBytes: 2}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	for _, want := range []int64{1, 2} {
		_, body, err := ReadMessage(&buffer)
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		var request EvictRequest
		if err := Decode(body, &request); err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if request.NumBytes != want {
			t.Errorf("NumBytes = %d, want %d", request.NumBytes, want)
		}
	}
}

func TestReadMessageRejectsVersion(t *testing.T) {
	var header [headerSize]byte
	binary.LittleEndian.PutUint64(header[0:8], Version+1)
	binary.LittleEndian.PutUint64(header[8:16], uint64(MessageConnectReply))

	if _, _, err := ReadMessage(bytes.NewReader(header[:])); err == nil {
		t.Fatal("ReadMessage should reject a foreign protocol version")
	}
}

func TestReadMessageRejectsOversize(t *testing.T) {
	var header [headerSize]byte
	binary.LittleEndian.PutUint64(header[0:8], Version)
	binary.LittleEndian.PutUint64(header[8:16], uint64(MessageGetReply))
	binary.LittleEndian.PutUint64(header[16:24], MaxMessageSize+1)

	_, _, err := ReadMessage(bytes.NewReader(header[:]))
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Fatalf("err = %v, want ErrMessageTooLarge", err)
	}
}

func TestReadMessageTruncated(t *testing.T) {
	var buffer bytes.Buffer
	if err := WriteMessage(&buffer, MessageConnectReply, ConnectReply{MemoryCapacity: 1 << 30}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	truncated := buffer.Bytes()[:buffer.Len()-1]

	_, _, err := ReadMessage(bytes.NewReader(truncated))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("err = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestReadMessageEOF(t *testing.T) {
	_, _, err := ReadMessage(bytes.NewReader(nil))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}

func TestGetReplyNotFoundEntries(t *testing.T) {
	ids := []objectid.ID{objectid.Random(), objectid.Random()}
	reply := GetReply{
		ObjectIDs: ids,
		Objects: []PlasmaObject{
			{StoreFD: 7, MapSize: 4096, DataOffset: 0, MetadataOffset: 100, DataSize: 100, MetadataSize: 10},
			{DataSize: -1, MetadataSize: -1},
		},
	}

	var buffer bytes.Buffer
	if err := WriteMessage(&buffer, MessageGetReply, reply); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	_, body, err := ReadMessage(&buffer)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var decoded GetReply
	if err := Decode(body, &decoded); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.ObjectIDs[1] != ids[1] || decoded.Objects[1].DataSize != -1 {
		t.Errorf("decoded %+v", decoded)
	}
	if decoded.Objects[0] != reply.Objects[0] {
		t.Errorf("object 0 = %+v, want %+v", decoded.Objects[0], reply.Objects[0])
	}
}

func TestSealRequestCarriesDigest(t *testing.T) {
	request := SealRequest{ObjectID: objectid.Random(), Digest: contenthash.Sum([]byte("x"), nil)}

	var buffer bytes.Buffer
	if err := WriteMessage(&buffer, MessageSealRequest, request); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	_, body, err := ReadMessage(&buffer)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var decoded SealRequest
	if err := Decode(body, &decoded); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != request {
		t.Errorf("decoded %+v, want %+v", decoded, request)
	}
}

func TestNotificationRoundTrip(t *testing.T) {
	infos := []ObjectInfo{
		{ObjectID: objectid.Random(), DataSize: 100, MetadataSize: 10},
		{ObjectID: objectid.Random(), IsDeletion: true},
	}

	var buffer bytes.Buffer
	for _, info := range infos {
		if err := WriteNotification(&buffer, info); err != nil {
			t.Fatalf("WriteNotification: %v", err)
		}
	}
	for _, want := range infos {
		got, err := ReadNotification(&buffer)
		if err != nil {
			t.Fatalf("ReadNotification: %v", err)
		}
		if got != want {
			t.Errorf("notification = %+v, want %+v", got, want)
		}
	}
}

func TestMessageTypeString(t *testing.T) {
	if got := MessageWaitReply.String(); got != "wait_reply" {
		t.Errorf("String = %q, want wait_reply", got)
	}
	if got := MessageType(999).String(); got != "unknown(999)" {
		t.Errorf("String = %q, want unknown(999)", got)
	}
}
