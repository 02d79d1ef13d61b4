// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package objectid

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bureau-foundation/objstore/lib/codec"
)

func TestParseRoundTrip(t *testing.T) {
	original := Random()

	parsed, err := Parse(original.String())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed != original {
		t.Errorf("Parse(String()) = %s, want %s", parsed, original)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not hex", strings.Repeat("z", 40)},
		{"too short", "abcd"},
		{"too long", strings.Repeat("ab", 21)},
		{"empty", ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := Parse(test.input); err == nil {
				t.Errorf("Parse(%q) should fail", test.input)
			}
		})
	}
}

func TestRandomDistinct(t *testing.T) {
	seen := make(map[ID]bool)
	for range 100 {
		id := Random()
		if id.IsNil() {
			t.Fatal("Random returned the nil id")
		}
		if seen[id] {
			t.Fatalf("Random returned %s twice", id)
		}
		seen[id] = true
	}
}

func TestCBORRoundTrip(t *testing.T) {
	type envelope struct {
		ID  ID   `cbor:"object_id"`
		IDs []ID `cbor:"object_ids"`
	}
	original := envelope{ID: Random(), IDs: []ID{Random(), Random()}}

	data, err := codec.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded envelope
	if err := codec.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.ID != original.ID {
		t.Errorf("ID = %s, want %s", decoded.ID, original.ID)
	}
	if len(decoded.IDs) != 2 || decoded.IDs[0] != original.IDs[0] || decoded.IDs[1] != original.IDs[1] {
		t.Errorf("IDs = %v, want %v", decoded.IDs, original.IDs)
	}
}

func TestCBORWrongLength(t *testing.T) {
	data, err := codec.Marshal([]byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var id ID
	if err := codec.Unmarshal(data, &id); err == nil {
		t.Error("decoding a 3-byte string into an ID should fail")
	}
}

func TestCBOREncodesByteString(t *testing.T) {
	id := ID{1}
	data, err := id.MarshalCBOR()
	if err != nil {
		t.Fatalf("MarshalCBOR: %v", err)
	}
	// Major type 2 (byte string); a length of 20 fits in the initial byte.
	if len(data) != 1+Size {
		t.Fatalf("encoded length = %d, want %d", len(data), 1+Size)
	}
	if data[0] != 0x40|Size {
		t.Errorf("header = %x, want %x", data[0], 0x40|Size)
	}
	if !bytes.Equal(data[1:], id[:]) {
		t.Errorf("payload = %x, want %x", data[1:], id[:])
	}
}
