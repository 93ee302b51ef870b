//go:build unix || linux || darwin || freebsd || openbsd || netbsd

package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

func osMap(f *os.File, size int) ([]byte, func([]byte) error, error) {
	buf, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}

	return buf, unix.Munmap, nil
}

func osAdvise(buf []byte, pattern AccessPattern) error {
	if len(buf) == 0 {
		return nil
	}

	advice := unix.MADV_NORMAL
	switch pattern {
	case AccessSequential:
		advice = unix.MADV_SEQUENTIAL
	case AccessRandom:
		advice = unix.MADV_RANDOM
	case AccessWillNeed:
		advice = unix.MADV_WILLNEED
	case AccessDontNeed:
		advice = unix.MADV_DONTNEED
	}

	// madvise wants page-aligned addresses on Linux; region advice can start
	// mid-page. The hint is best-effort, so alignment rejections are ignored.
	if err := unix.Madvise(buf, advice); err != nil && err != unix.EINVAL {
		return err
	}

	return nil
}
