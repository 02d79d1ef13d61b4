// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package objectid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/bureau-foundation/objstore/lib/codec"
)

// Size is the number of bytes in an ID.
const Size = 20

// ID identifies one object in the store.
type ID [Size]byte

// Nil is the zero ID. The store never assigns it.
var Nil ID

// FromBinary copies a 20-byte slice into an ID.
func FromBinary(raw []byte) (ID, error) {
	var id ID
	if len(raw) != Size {
		return id, fmt.Errorf("object id is %d bytes, want %d", len(raw), Size)
	}
	copy(id[:], raw)
	return id, nil
}

// Parse decodes the 40-character hex form produced by [ID.String].
func Parse(hexString string) (ID, error) {
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return Nil, fmt.Errorf("parsing object id %q: %w", hexString, err)
	}
	return FromBinary(decoded)
}

// Random returns a new ID filled from crypto/rand.
func Random() ID {
	var id ID
	// crypto/rand.Read never returns an error on supported platforms.
	rand.Read(id[:])
	return id
}

// String returns the lowercase hex encoding of the ID.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// IsNil reports whether id is the zero ID.
func (id ID) IsNil() bool {
	return id == Nil
}

// MarshalText implements encoding.TextMarshaler for JSON output and
// flag values.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// MarshalCBOR encodes the ID as a 20-byte CBOR byte string.
func (id ID) MarshalCBOR() ([]byte, error) {
	return codec.Marshal(id[:])
}

// UnmarshalCBOR decodes a 20-byte CBOR byte string.
func (id *ID) UnmarshalCBOR(data []byte) error {
	var raw []byte
	if err := codec.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding object id: %w", err)
	}
	parsed, err := FromBinary(raw)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
