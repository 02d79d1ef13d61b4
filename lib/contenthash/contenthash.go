// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contenthash

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/objstore/lib/codec"
)

const (
	// ParallelThreshold is the data size at which hashing switches to
	// the chunked parallel path.
	ParallelThreshold = 1 << 20

	// Workers is the number of block-aligned chunks the data is split
	// into on the parallel path. A remainder chunk is hashed in
	// addition.
	Workers = 8

	// BlockSize is the chunk alignment on the parallel path.
	BlockSize = 64
)

// Digest is a 32-byte object content digest.
type Digest [32]byte

// seedKey is the fixed BLAKE3 key. Changing it changes every digest
// the store has recorded.
var seedKey = [32]byte{
	'o', 'b', 'j', 's', 't', 'o', 'r', 'e', '.', 'o', 'b', 'j', 'e', 'c', 't', '.',
	'd', 'i', 'g', 'e', 's', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

func newHasher() *blake3.Hasher {
	// NewKeyed only fails for a key that is not 32 bytes.
	hasher, err := blake3.NewKeyed(seedKey[:])
	if err != nil {
		panic("contenthash: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return hasher
}

// Sum computes the digest of an object with the given data and
// metadata.
func Sum(data, metadata []byte) Digest {
	hasher := newHasher()
	if len(data) >= ParallelThreshold {
		hasher.Write(chunkDigests(data))
	} else {
		hasher.Write(data)
	}
	hasher.Write(metadata)

	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}

// chunkDigests hashes Workers equal block-aligned chunks of data and
// the trailing remainder concurrently, returning the per-chunk digests
// concatenated in chunk order.
func chunkDigests(data []byte) []byte {
	chunkSize := (len(data) / BlockSize / Workers) * BlockSize

	ranges := make([][]byte, Workers+1)
	for i := range Workers {
		ranges[i] = data[i*chunkSize : (i+1)*chunkSize]
	}
	ranges[Workers] = data[Workers*chunkSize:]

	digests := make([]Digest, len(ranges))
	var group sync.WaitGroup
	for i, chunk := range ranges {
		group.Add(1)
		go func() {
			defer group.Done()
			hasher := newHasher()
			hasher.Write(chunk)
			copy(digests[i][:], hasher.Sum(nil))
		}()
	}
	group.Wait()

	concatenated := make([]byte, 0, len(digests)*len(Digest{}))
	for _, digest := range digests {
		concatenated = append(concatenated, digest[:]...)
	}
	return concatenated
}

// String returns the lowercase hex encoding of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Parse decodes a 64-character hex digest.
func Parse(hexString string) (Digest, error) {
	var digest Digest
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return digest, fmt.Errorf("parsing content digest: %w", err)
	}
	if len(decoded) != len(digest) {
		return digest, fmt.Errorf("content digest is %d bytes, want %d", len(decoded), len(digest))
	}
	copy(digest[:], decoded)
	return digest, nil
}

// MarshalCBOR encodes the digest as a CBOR byte string.
func (d Digest) MarshalCBOR() ([]byte, error) {
	return codec.Marshal(d[:])
}

// UnmarshalCBOR decodes a 32-byte CBOR byte string.
func (d *Digest) UnmarshalCBOR(data []byte) error {
	var raw []byte
	if err := codec.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding content digest: %w", err)
	}
	if len(raw) != len(d) {
		return fmt.Errorf("content digest is %d bytes, want %d", len(raw), len(d))
	}
	copy(d[:], raw)
	return nil
}
