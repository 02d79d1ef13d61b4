// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package payload

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/bureau-foundation/objstore/lib/codec"
)

// Compression names an object encoding. The string values are stored
// in object metadata.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionLZ4  Compression = "lz4"
	CompressionZstd Compression = "zstd"

	// CompressionAuto samples the data and picks one of the others.
	// It never appears in metadata.
	CompressionAuto Compression = "auto"
)

// ParseCompression parses a compression name.
func ParseCompression(name string) (Compression, error) {
	switch compression := Compression(name); compression {
	case CompressionNone, CompressionLZ4, CompressionZstd, CompressionAuto:
		return compression, nil
	default:
		return "", fmt.Errorf("unknown compression %q", name)
	}
}

// Header is the CBOR object metadata describing an encoded payload.
type Header struct {
	Encoding    Compression `cbor:"encoding"`
	RawSize     int64       `cbor:"raw_size"`
	ContentType string      `cbor:"content_type,omitempty"`
}

// errIncompressible is returned by the compressors when the output
// would not be smaller than the input.
var errIncompressible = errors.New("data is incompressible")

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("payload: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("payload: zstd decoder initialization failed: " + err.Error())
	}
}

// Encode compresses data as requested and returns the encoded bytes
// together with the metadata to store alongside them. The returned
// bytes alias data when no compression is applied.
func Encode(data []byte, compression Compression, contentType string) (encoded, metadata []byte, err error) {
	if compression == CompressionAuto {
		compression = selectCompression(data, contentType)
	}

	encoded, err = compress(data, compression)
	if errors.Is(err, errIncompressible) {
		encoded, compression, err = data, CompressionNone, nil
	}
	if err != nil {
		return nil, nil, err
	}

	metadata, err = codec.Marshal(Header{
		Encoding:    compression,
		RawSize:     int64(len(data)),
		ContentType: contentType,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("encoding payload header: %w", err)
	}
	return encoded, metadata, nil
}

// Decode reverses Encode. Empty metadata means data is raw and is
// returned as is.
func Decode(data, metadata []byte) ([]byte, Header, error) {
	header, err := ParseHeader(metadata)
	if err != nil {
		return nil, header, err
	}
	if len(metadata) == 0 {
		return data, header, nil
	}

	decoded, err := decompress(data, header.Encoding, header.RawSize)
	if err != nil {
		return nil, header, err
	}
	return decoded, header, nil
}

// ParseHeader decodes object metadata. Empty metadata yields a header
// for raw data of unknown size.
func ParseHeader(metadata []byte) (Header, error) {
	if len(metadata) == 0 {
		return Header{Encoding: CompressionNone, RawSize: -1}, nil
	}
	var header Header
	if err := codec.Unmarshal(metadata, &header); err != nil {
		return header, fmt.Errorf("decoding payload header: %w", err)
	}
	if header.RawSize < 0 {
		return header, fmt.Errorf("payload header has negative raw size %d", header.RawSize)
	}
	return header, nil
}

func compress(data []byte, compression Compression) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return data, nil
	case CompressionLZ4:
		destination := make([]byte, lz4.CompressBlockBound(len(data)))
		written, err := lz4.CompressBlock(data, destination, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		// CompressBlock reports 0 for incompressible input.
		if written == 0 || written >= len(data) {
			return nil, errIncompressible
		}
		return destination[:written], nil
	case CompressionZstd:
		compressed := zstdEncoder.EncodeAll(data, nil)
		if len(compressed) >= len(data) {
			return nil, errIncompressible
		}
		return compressed, nil
	default:
		return nil, fmt.Errorf("unsupported compression %q", compression)
	}
}

func decompress(data []byte, compression Compression, rawSize int64) ([]byte, error) {
	switch compression {
	case CompressionNone:
		if int64(len(data)) != rawSize {
			return nil, fmt.Errorf("uncompressed payload: size %d does not match header %d", len(data), rawSize)
		}
		return data, nil
	case CompressionLZ4:
		destination := make([]byte, rawSize)
		read, err := lz4.UncompressBlock(data, destination)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if int64(read) != rawSize {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, rawSize)
		}
		return destination, nil
	case CompressionZstd:
		result, err := zstdDecoder.DecodeAll(data, make([]byte, 0, rawSize))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if int64(len(result)) != rawSize {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), rawSize)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unsupported compression %q", compression)
	}
}

// selectCompression picks zstd for text-like content types, and
// otherwise compresses a sample with zstd: a ratio of at least 1.5
// selects zstd, at least 1.1 selects LZ4, and anything less stores the
// data raw.
func selectCompression(data []byte, contentType string) Compression {
	switch contentType {
	case "text/plain", "text/csv", "text/markdown",
		"application/json", "application/x-ndjson", "application/xml":
		return CompressionZstd
	}
	if len(data) == 0 {
		return CompressionNone
	}

	sample := data
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}
	ratio := float64(len(sample)) / float64(len(zstdEncoder.EncodeAll(sample, nil)))
	switch {
	case ratio >= 1.5:
		return CompressionZstd
	case ratio >= 1.1:
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// sampleSize bounds the prefix compressed to choose an encoding.
const sampleSize = 64 << 10
