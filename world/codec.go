// This file is part of go-mc/server project.
// Copyright (C) 2023.  Tnze
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package world

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

var (
	ErrMalformedPayload      = errors.New("malformed chunk payload")
	ErrChunkPositionMismatch = errors.New("chunk payload belongs to another chunk")
	ErrUnknownCompression    = errors.New("unknown compression type")
)

// Compression is the first byte of every stored chunk sector.
type Compression byte

const (
	CompressGzip Compression = 1
	CompressZlib Compression = 2
	CompressNone Compression = 3
	CompressZstd Compression = 4
)

func (c Compression) String() string {
	switch c {
	case CompressGzip:
		return "gzip"
	case CompressZlib:
		return "zlib"
	case CompressNone:
		return "none"
	case CompressZstd:
		return "zstd"
	}
	return fmt.Sprintf("Compression(%d)", byte(c))
}

// ParseCompression maps a config name to a Compression. An empty name
// selects gzip.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "gzip", "":
		return CompressGzip, nil
	case "zlib":
		return CompressZlib, nil
	case "none":
		return CompressNone, nil
	case "zstd":
		return CompressZstd, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, name)
}

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// CompressSector frames payload as a stored sector.
func CompressSector(c Compression, payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(c))
	var w io.WriteCloser
	switch c {
	case CompressNone:
		buf.Write(payload)
		return buf.Bytes(), nil
	case CompressZstd:
		return zstdEncoder.EncodeAll(payload, buf.Bytes()), nil
	case CompressGzip:
		w = gzip.NewWriter(&buf)
	case CompressZlib:
		w = zlib.NewWriter(&buf)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, byte(c))
	}
	if _, err := w.Write(payload); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecompressSector returns the payload of a stored sector.
func DecompressSector(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty sector", ErrMalformedPayload)
	}
	body := data[1:]
	var r io.ReadCloser
	var err error
	switch c := Compression(data[0]); c {
	case CompressNone:
		return body, nil
	case CompressZstd:
		return zstdDecoder.DecodeAll(body, nil)
	case CompressGzip:
		r, err = gzip.NewReader(bytes.NewReader(body))
	case CompressZlib:
		r, err = zlib.NewReader(bytes.NewReader(body))
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, byte(c))
	}
	if err != nil {
		return nil, fmt.Errorf("open decompressor: %w", err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// encodeChunkPayload writes the chunk position, the entity count and
// every entity blob prefixed by its length, all little endian.
func encodeChunkPayload(pos IVec3, blobs [][]byte) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, pos)
	_ = binary.Write(&buf, binary.LittleEndian, uint64(len(blobs)))
	for _, b := range blobs {
		_ = binary.Write(&buf, binary.LittleEndian, uint32(len(b)))
		buf.Write(b)
	}
	return buf.Bytes()
}

// DecodeChunkPayload splits a chunk payload into its position and
// entity blobs.
func DecodeChunkPayload(payload []byte) (pos IVec3, blobs [][]byte, err error) {
	r := bytes.NewReader(payload)
	if err = binary.Read(r, binary.LittleEndian, &pos); err != nil {
		return pos, nil, fmt.Errorf("%w: position: %v", ErrMalformedPayload, err)
	}
	var count uint64
	if err = binary.Read(r, binary.LittleEndian, &count); err != nil {
		return pos, nil, fmt.Errorf("%w: entity count: %v", ErrMalformedPayload, err)
	}
	if count > uint64(r.Len()/4) {
		return pos, nil, fmt.Errorf("%w: %d entities in %d bytes", ErrMalformedPayload, count, r.Len())
	}
	blobs = make([][]byte, 0, count)
	for i := uint64(0); i < count; i++ {
		var n uint32
		if err = binary.Read(r, binary.LittleEndian, &n); err != nil {
			return pos, nil, fmt.Errorf("%w: entity %d length: %v", ErrMalformedPayload, i, err)
		}
		if int64(n) > int64(r.Len()) {
			return pos, nil, fmt.Errorf("%w: entity %d truncated", ErrMalformedPayload, i)
		}
		b := make([]byte, n)
		_, _ = io.ReadFull(r, b)
		blobs = append(blobs, b)
	}
	return pos, blobs, nil
}
