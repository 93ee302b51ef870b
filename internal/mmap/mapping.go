package mmap

import (
	"errors"
	"io"
	"os"
	"sync/atomic"
)

var (
	// ErrClosed is returned when accessing a mapping after Close.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned when the file size cannot be mapped.
	ErrInvalidSize = errors.New("mmap: invalid file size")
	// ErrOutOfBounds is returned when a region exceeds the mapping.
	ErrOutOfBounds = errors.New("mmap: out of bounds")
	// ErrInvalidOffset is returned for negative read offsets.
	ErrInvalidOffset = errors.New("mmap: invalid offset")
)

// AccessPattern hints to the kernel how the mapped bytes will be read.
type AccessPattern int

const (
	// AccessDefault leaves the kernel's readahead policy untouched.
	AccessDefault AccessPattern = iota
	// AccessSequential announces a front-to-back scan, such as
	// decompressing a payload block.
	AccessSequential
	// AccessRandom disables readahead for scattered access.
	AccessRandom
	// AccessWillNeed asks the kernel to fault pages in ahead of use.
	AccessWillNeed
	// AccessDontNeed tells the kernel the pages can be dropped.
	AccessDontNeed
)

// Mapping is a read-only memory-mapped file. The dataset loader maps a file
// once, reads the fixed-size header through ReadAt, and slices the payload
// out as a Region, so an uncompressed payload is never copied.
type Mapping struct {
	buf    []byte
	closed atomic.Bool
	unmap  func([]byte) error
}

// Open maps the file at path read-only. An empty file yields a valid,
// empty mapping.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	switch size := fi.Size(); {
	case size == 0:
		return &Mapping{}, nil
	case size < 0 || int64(int(size)) != size:
		return nil, ErrInvalidSize
	default:
		buf, unmap, err := osMap(f, int(size))
		if err != nil {
			return nil, err
		}

		return &Mapping{buf: buf, unmap: unmap}, nil
	}
}

// Close releases the mapping. It is idempotent. Any byte slice handed out
// by Bytes or Region.Bytes is invalid once Close returns.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil
	}

	if m.unmap != nil && m.buf != nil {
		return m.unmap(m.buf)
	}

	return nil
}

// Bytes returns the mapped file contents, or nil after Close.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}

	return m.buf
}

// Size returns the mapped length in bytes.
func (m *Mapping) Size() int {
	return len(m.buf)
}

// Advise passes an access-pattern hint for the whole mapping to the kernel.
// Hints are advisory; unsupported platforms accept and ignore them.
func (m *Mapping) Advise(pattern AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}

	if len(m.buf) == 0 {
		return nil
	}

	return osAdvise(m.buf, pattern)
}

// ReadAt implements io.ReaderAt over the mapped bytes. A read past the end
// returns the available bytes and io.EOF.
func (m *Mapping) ReadAt(p []byte, off int64) (int, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}

	if off < 0 {
		return 0, ErrInvalidOffset
	}

	if off >= int64(len(m.buf)) {
		return 0, io.EOF
	}

	n := copy(p, m.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}
