//go:build unix

package triedex

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// mmapFile maps the whole of f read-only. Callers remap after every flush
// since the file only ever grows.
func mmapFile(f *os.File) ([]byte, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(ErrIO, err.Error())
	}

	if fi.Size() == 0 {
		return nil, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrap(ErrIO, err.Error())
	}

	return data, nil
}

func munmapFile(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	if err := unix.Munmap(data); err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}

	return nil
}
