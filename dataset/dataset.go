// Package dataset reads and writes files of flat row-major float32
// matrices, the on-disk interchange format of the embedder and its CLI.
//
// A dataset file is a 24-byte header followed by a single payload block.
// The header is little-endian; the payload holds the raw float32
// coordinates, optionally compressed (see Codec). Uncompressed payloads are
// memory-mapped on load, so even multi-gigabyte inputs open without copying.
package dataset

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/hupe1980/tsnego/internal/mmap"
)

const (
	// magicNumber identifies dataset files (ASCII: "TSNE").
	magicNumber = 0x54534E45
	// formatVersion is the current file format version.
	formatVersion = 1

	headerSize = 24
)

var (
	// ErrInvalidMagic is returned when a file does not start with the
	// dataset magic number.
	ErrInvalidMagic = errors.New("dataset: invalid magic number")
	// ErrInvalidVersion is returned when the file format version is not
	// supported.
	ErrInvalidVersion = errors.New("dataset: unsupported version")
	// ErrChecksumMismatch is returned when the payload does not match the
	// checksum recorded in the header.
	ErrChecksumMismatch = errors.New("dataset: checksum mismatch")
	// ErrCorruptFile is returned when the file structure is inconsistent.
	ErrCorruptFile = errors.New("dataset: corrupt file")
	// ErrInvalidShape is returned when a matrix length does not match its
	// declared n x dim shape, or the shape exceeds the format limits.
	ErrInvalidShape = errors.New("dataset: invalid shape")
	// ErrUnknownCodec is returned for codec values this version does not
	// know.
	ErrUnknownCodec = errors.New("dataset: unknown codec")
)

// fileHeader is the 24-byte header at the start of every dataset file.
type fileHeader struct {
	Magic    uint32
	Version  uint32
	Count    uint32
	Dim      uint32
	Codec    uint8
	Padding  [3]byte
	Checksum uint32 // CRC32 (IEEE) of everything after the header
}

// Points is a dataset of flat row-major N x Dim float32 coordinates.
//
// Data loaded from an uncompressed file aliases the memory-mapped file and
// stays valid until Close. Compressed loads own their memory; Close is a
// no-op for them but always safe to call.
type Points struct {
	Data []float32
	N    int
	Dim  int

	closer io.Closer
}

// Close releases the backing memory mapping, if any.
func (p *Points) Close() error {
	if p.closer == nil {
		return nil
	}

	err := p.closer.Close()
	p.closer = nil
	p.Data = nil

	return err
}

// SaveOptions contains the configuration options for Save.
type SaveOptions struct {
	// Codec selects the payload compression.
	Codec Codec
}

// DefaultSaveOptions contains the default configuration options for Save.
var DefaultSaveOptions = SaveOptions{
	Codec: CodecNone,
}

// Save writes a flat row-major n x dim matrix to path. The file is written
// to a temporary sibling first and renamed into place, so readers never
// observe a partial file.
func Save(path string, data []float32, n, dim int, optFns ...func(o *SaveOptions)) error {
	opts := DefaultSaveOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if n < 1 || dim < 1 || len(data) != n*dim {
		return fmt.Errorf("%w: %d values do not form a %d x %d matrix", ErrInvalidShape, len(data), n, dim)
	}
	if uint64(n)*uint64(dim)*4 > math.MaxUint32 {
		return fmt.Errorf("%w: %d x %d exceeds the format limit", ErrInvalidShape, n, dim)
	}

	block, err := encodeBlock(float32Bytes(data), opts.Codec)
	if err != nil {
		return err
	}

	header := fileHeader{
		Magic:    magicNumber,
		Version:  formatVersion,
		Count:    uint32(n),
		Dim:      uint32(dim),
		Codec:    uint8(opts.Codec),
		Checksum: crc32.ChecksumIEEE(block),
	}

	dir := filepath.Dir(path)

	// Write to a temp file in the same directory for an atomic rename.
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("dataset: failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := writeFile(tmp, &header, block); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("dataset: failed to sync %s: %w", tmpName, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("dataset: failed to close %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("dataset: failed to rename to %s: %w", path, err)
	}

	return nil
}

func writeFile(w io.Writer, header *fileHeader, block []byte) error {
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("dataset: failed to write header: %w", err)
	}

	if _, err := w.Write(block); err != nil {
		return fmt.Errorf("dataset: failed to write payload: %w", err)
	}

	return nil
}

// Load opens a dataset file. Uncompressed payloads are served directly from
// the memory-mapped file; call Close on the returned Points when done.
func Load(path string) (*Points, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}

	p, err := loadMapped(m)
	if err != nil {
		_ = m.Close()
		return nil, err
	}

	return p, nil
}

func loadMapped(m *mmap.Mapping) (*Points, error) {
	header, err := readHeader(m)
	if err != nil {
		return nil, err
	}

	n, dim := int(header.Count), int(header.Dim)
	want := n * dim * 4

	region, err := m.Region(headerSize, m.Size()-headerSize)
	if err != nil {
		return nil, fmt.Errorf("%w: file too small for payload", ErrCorruptFile)
	}
	block := region.Bytes()

	if crc32.ChecksumIEEE(block) != header.Checksum {
		return nil, ErrChecksumMismatch
	}

	uncompressed, stored, payload, err := splitBlock(block)
	if err != nil {
		return nil, err
	}
	if int(uncompressed) != want {
		return nil, fmt.Errorf("%w: payload of %d bytes does not match %d x %d", ErrCorruptFile, uncompressed, n, dim)
	}

	if stored == 0 {
		// Raw payload: serve the mapped bytes directly.
		_ = region.Advise(mmap.AccessWillNeed)

		data, copied := bytesToFloat32(payload)
		if copied {
			_ = m.Close()
			return &Points{Data: data, N: n, Dim: dim}, nil
		}

		return &Points{Data: data, N: n, Dim: dim, closer: m}, nil
	}

	// Compressed payload: decode into fresh memory, the mapping can go.
	_ = region.Advise(mmap.AccessSequential)

	data := make([]float32, n*dim)
	if err := decompressInto(payload, Codec(header.Codec), float32Bytes(data)); err != nil {
		return nil, err
	}

	_ = m.Close()

	return &Points{Data: data, N: n, Dim: dim}, nil
}

func readHeader(m *mmap.Mapping) (*fileHeader, error) {
	buf := make([]byte, headerSize)
	if _, err := m.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("%w: file too small for header", ErrCorruptFile)
	}

	var h fileHeader
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &h); err != nil {
		return nil, err
	}

	if h.Magic != magicNumber {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, h.Magic)
	}
	if h.Version != formatVersion {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidVersion, h.Version)
	}
	if h.Count == 0 || h.Dim == 0 {
		return nil, fmt.Errorf("%w: empty dataset", ErrCorruptFile)
	}
	if uint64(h.Count)*uint64(h.Dim)*4 > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d x %d exceeds the format limit", ErrCorruptFile, h.Count, h.Dim)
	}

	return &h, nil
}

// Info describes a dataset file without loading its payload.
type Info struct {
	Version uint32
	N       int
	Dim     int
	Codec   Codec
	// Compressed reports whether the payload is actually stored
	// compressed; incompressible payloads fall back to raw storage even
	// under a compressing codec.
	Compressed bool
	// StoredBytes is the payload size on disk, RawBytes after
	// decompression.
	StoredBytes int
	RawBytes    int
	FileSize    int64
	Checksum    uint32
}

// Inspect reads and verifies the file structure and returns its metadata.
func Inspect(path string) (*Info, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	header, err := readHeader(m)
	if err != nil {
		return nil, err
	}

	region, err := m.Region(headerSize, m.Size()-headerSize)
	if err != nil {
		return nil, fmt.Errorf("%w: file too small for payload", ErrCorruptFile)
	}
	block := region.Bytes()

	if crc32.ChecksumIEEE(block) != header.Checksum {
		return nil, ErrChecksumMismatch
	}

	uncompressed, stored, payload, err := splitBlock(block)
	if err != nil {
		return nil, err
	}

	return &Info{
		Version:     header.Version,
		N:           int(header.Count),
		Dim:         int(header.Dim),
		Codec:       Codec(header.Codec),
		Compressed:  stored != 0,
		StoredBytes: len(payload),
		RawBytes:    int(uncompressed),
		FileSize:    int64(m.Size()),
		Checksum:    header.Checksum,
	}, nil
}

// float32Bytes views a float32 slice as raw bytes without copying.
func float32Bytes(data []float32) []byte {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4)
}

// bytesToFloat32 views raw bytes as a float32 slice. Mapped payloads start
// at a 4-aligned offset, so the view is normally free; a misaligned source
// falls back to copying and reports it.
func bytesToFloat32(b []byte) (data []float32, copied bool) {
	if len(b) == 0 {
		return nil, false
	}

	if uintptr(unsafe.Pointer(&b[0]))%unsafe.Alignof(float32(0)) == 0 {
		return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4), false
	}

	data = make([]float32, len(b)/4)
	copy(float32Bytes(data), b)
	return data, true
}
