//go:build windows

package mmap

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

func osMap(f *os.File, size int) ([]byte, func([]byte) error, error) {
	if size == 0 {
		return nil, nil, nil
	}

	h, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, windows.PAGE_READONLY, 0, 0, nil)
	if err != nil {
		return nil, nil, err
	}
	// The view keeps the mapping object alive; the handle can go right away.
	defer windows.CloseHandle(h)

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_READ, 0, 0, uintptr(size))
	if err != nil {
		return nil, nil, err
	}

	buf := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)

	// UnmapViewOfFile needs the base address, so capture it rather than
	// recovering it from the slice.
	unmap := func([]byte) error {
		return windows.UnmapViewOfFile(addr)
	}

	return buf, unmap, nil
}

// Windows has no madvise equivalent; access-pattern hints are accepted and
// dropped, the page cache handles readahead on its own.
func osAdvise(_ []byte, _ AccessPattern) error {
	return nil
}
