package mmap

// Region is a window into a Mapping, used to address a dataset file's
// payload block without copying it. The parent mapping owns the memory;
// a Region is invalid once the parent is closed.
type Region struct {
	parent *Mapping
	off    int
	size   int
}

// Region returns a view of size bytes starting at offset.
func (m *Mapping) Region(offset, size int) (*Region, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}

	if offset < 0 || size < 0 || offset+size > len(m.buf) {
		return nil, ErrOutOfBounds
	}

	return &Region{parent: m, off: offset, size: size}, nil
}

// Bytes returns the region's window into the mapped file, or nil after the
// parent mapping is closed.
func (r *Region) Bytes() []byte {
	if r.parent.closed.Load() {
		return nil
	}

	return r.parent.buf[r.off : r.off+r.size]
}

// Advise passes an access-pattern hint covering only this region, so
// payload advice does not disturb the header pages.
func (r *Region) Advise(pattern AccessPattern) error {
	if r.parent.closed.Load() {
		return ErrClosed
	}

	return osAdvise(r.parent.buf[r.off:r.off+r.size], pattern)
}
