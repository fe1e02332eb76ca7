package triedex

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// Offset space & translation.
//
// A single uint64 namespace carries two semantic classes distinguished by
// bit 63: clean offsets (bit 63 = 0) name a byte position in the on-disk
// file, dirty offsets (bit 63 = 1) name an in-memory staged node that has
// not yet been flushed. Offset 0 is never valid; it means "absent".

const (
	// dirtyBit marks an offset as naming an in-memory node rather than a
	// file position.
	dirtyBit uint64 = 1 << 63

	// nullOffset is the sentinel meaning "no child"/"no next link"/"no key".
	nullOffset uint64 = 0
)

// isDirty reports whether v names an in-memory staged node.
func isDirty(v uint64) bool {
	return v&dirtyBit != 0
}

// isClean reports whether v names a durable file byte position. The null
// offset is considered clean (it is simply absent, never looked up).
func isClean(v uint64) bool {
	return !isDirty(v)
}

// dirtyAllocator hands out monotonically increasing dirty offsets, each
// tagged with the dirty bit, for newly created in-memory nodes.
type dirtyAllocator struct {
	next uint64
}

// alloc returns a fresh dirty offset. Offsets start at 1 (under the dirty
// bit) so that a zero-valued dirtyAllocator never hands out nullOffset.
func (a *dirtyAllocator) alloc() uint64 {
	id := atomic.AddUint64(&a.next, 1)
	return dirtyBit | id
}

// offsetMap translates dirty offsets to the clean offsets they were
// assigned during a flush. It is built incrementally, children first, as
// each in-memory node is serialized.
type offsetMap struct {
	m map[uint64]uint64
}

func newOffsetMap() *offsetMap {
	return &offsetMap{m: make(map[uint64]uint64)}
}

// set records that the dirty offset `dirty` was written at clean file
// position `clean`.
func (om *offsetMap) set(dirty, clean uint64) {
	om.m[dirty] = clean
}

// translate returns v unchanged if it is clean (or null), or its recorded
// clean replacement if it is dirty. A dirty offset with no recorded
// replacement means flush serialized nodes out of topological order, which
// is an internal invariant violation, not a caller error.
func (om *offsetMap) translate(v uint64) (uint64, error) {
	if v == nullOffset || isClean(v) {
		return v, nil
	}

	clean, ok := om.m[v]
	if !ok {
		return 0, errors.Wrapf(ErrInternal, "dirty offset %#x unresolved at flush time", v)
	}

	return clean, nil
}
