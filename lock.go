package triedex

import (
	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// writeLock is an advisory, process-wide single-writer lock held for the
// lifetime of an Index opened for writing. Readers never take it.
type writeLock struct {
	fl *flock.Flock
}

func acquireWriteLock(path string) (*writeLock, error) {
	fl := flock.New(path + ".lock")

	ok, err := fl.TryLock()
	if err != nil {
		return nil, errors.Wrap(ErrIO, err.Error())
	}

	if !ok {
		return nil, errors.Wrap(ErrIO, "another writer already holds the lock on "+path)
	}

	return &writeLock{fl: fl}, nil
}

func (wl *writeLock) release() error {
	if wl == nil {
		return nil
	}

	return wl.fl.Unlock()
}
