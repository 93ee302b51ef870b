package dataset

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec defines the compression algorithm of a dataset payload.
type Codec uint8

const (
	// CodecNone stores the payload uncompressed. Uncompressed files are
	// memory-mapped on load without copying.
	CodecNone Codec = 0
	// CodecLZ4 uses LZ4 block compression (fast, moderate ratio).
	CodecLZ4 Codec = 1
	// CodecZstd uses Zstandard block compression (better ratio).
	CodecZstd Codec = 2
)

// String implements fmt.Stringer.
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// ParseCodec converts a codec name ("none", "lz4", "zstd") to its Codec
// value.
func ParseCodec(s string) (Codec, error) {
	switch strings.ToLower(s) {
	case "", "none", "raw":
		return CodecNone, nil
	case "lz4":
		return CodecLZ4, nil
	case "zstd":
		return CodecZstd, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCodec, s)
	}
}

// The payload block starts with an 8-byte frame:
// [UncompressedSize uint32][StoredSize uint32][Data...]
// StoredSize == 0 means the data is stored uncompressed.
const blockHeaderSize = 8

// Compression that saves less than 10% is not worth losing the
// zero-copy load path over.
const rawFallbackRatio = 0.9

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// encodeBlock frames and compresses a payload. When compression does not
// pay for itself the payload is framed raw, so every codec still produces
// a file the zero-copy loader can serve.
func encodeBlock(data []byte, codec Codec) ([]byte, error) {
	var (
		compressed []byte
		err        error
	)

	switch codec {
	case CodecNone:
		// Framed raw below.
	case CodecLZ4:
		compressed, err = compressLZ4(data)
	case CodecZstd:
		compressed = compressZstd(data)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, uint8(codec))
	}

	if err != nil {
		return nil, err
	}

	if compressed == nil || float64(len(compressed)) > float64(len(data))*rawFallbackRatio {
		block := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(block[0:], uint32(len(data)))
		binary.LittleEndian.PutUint32(block[4:], 0)
		copy(block[blockHeaderSize:], data)
		return block, nil
	}

	block := make([]byte, blockHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(block[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(block[4:], uint32(len(compressed)))
	copy(block[blockHeaderSize:], compressed)
	return block, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))

	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("dataset: lz4 compression failed: %w", err)
	}

	if n == 0 {
		return nil, nil // Incompressible
	}

	return compressed[:n], nil
}

func compressZstd(data []byte) []byte {
	enc := getZstdEncoder()
	defer putZstdEncoder(enc)

	return enc.EncodeAll(data, nil)
}

// splitBlock parses the block frame and returns the payload slice it
// describes.
func splitBlock(block []byte) (uncompressed, stored uint32, payload []byte, err error) {
	if len(block) < blockHeaderSize {
		return 0, 0, nil, fmt.Errorf("%w: truncated block header", ErrCorruptFile)
	}

	uncompressed = binary.LittleEndian.Uint32(block[0:])
	stored = binary.LittleEndian.Uint32(block[4:])

	size := stored
	if stored == 0 {
		size = uncompressed
	}

	if uint64(blockHeaderSize)+uint64(size) > uint64(len(block)) {
		return 0, 0, nil, fmt.Errorf("%w: block extends beyond file", ErrCorruptFile)
	}

	return uncompressed, stored, block[blockHeaderSize : blockHeaderSize+int(size)], nil
}

// decompressInto decodes a compressed payload directly into dst, which must
// have the exact uncompressed length.
func decompressInto(payload []byte, codec Codec, dst []byte) error {
	switch codec {
	case CodecLZ4:
		n, err := lz4.UncompressBlock(payload, dst)
		if err != nil {
			return fmt.Errorf("dataset: lz4 decompression failed: %w", err)
		}
		if n != len(dst) {
			return fmt.Errorf("%w: decompressed size mismatch", ErrCorruptFile)
		}

	case CodecZstd:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)

		decoded, err := dec.DecodeAll(payload, dst[:0])
		if err != nil {
			return fmt.Errorf("dataset: zstd decompression failed: %w", err)
		}
		if len(decoded) != len(dst) {
			return fmt.Errorf("%w: decompressed size mismatch", ErrCorruptFile)
		}
		// DecodeAll reallocates when its guess exceeds cap(dst).
		if unsafe.SliceData(decoded) != unsafe.SliceData(dst) {
			copy(dst, decoded)
		}

	case CodecNone:
		return fmt.Errorf("%w: stored size set for uncompressed codec", ErrCorruptFile)

	default:
		return fmt.Errorf("%w: %d", ErrUnknownCodec, uint8(codec))
	}

	return nil
}
