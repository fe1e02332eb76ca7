package triedex

// arena is the in-memory staging area: dirty Radix/Leaf/Link/Key nodes
// created or modified since the last flush, addressable by their dirty
// offset. One separate map per node kind is used rather than a single
// tagged container; only the addressability and per-kind lookup matter.
type arena struct {
	alloc dirtyAllocator
	pool  *nodePool

	radix map[uint64]*radixEntry
	leaf  map[uint64]*leafEntry
	link  map[uint64]*linkEntry
	key   map[uint64]*keyEntry
}

func newArena() *arena {
	return &arena{
		pool:  newNodePool(),
		radix: make(map[uint64]*radixEntry),
		leaf:  make(map[uint64]*leafEntry),
		link:  make(map[uint64]*linkEntry),
		key:   make(map[uint64]*keyEntry),
	}
}

// newRadix allocates a fresh, empty dirty Radix node.
func (a *arena) newRadix() (uint64, *radixEntry) {
	off := a.alloc.alloc()
	r := a.pool.getRadix()
	a.radix[off] = r

	return off, r
}

// copyRadix allocates a fresh dirty Radix node carrying src's contents, for
// copy-on-write of a clean parent that needs one of its edges rewritten.
func (a *arena) copyRadix(src *radixEntry) (uint64, *radixEntry) {
	off, r := a.newRadix()
	r.offsets = src.offsets
	r.linkOffset = src.linkOffset

	return off, r
}

func (a *arena) newLeaf(keyOffset, linkOffset uint64) uint64 {
	off := a.alloc.alloc()
	l := a.pool.getLeaf()
	l.keyOffset = keyOffset
	l.linkOffset = linkOffset
	a.leaf[off] = l

	return off
}

func (a *arena) newLink(value, nextLinkOffset uint64) uint64 {
	off := a.alloc.alloc()
	a.link[off] = &linkEntry{value: value, nextLinkOffset: nextLinkOffset}

	return off
}

func (a *arena) newKey(key []byte) uint64 {
	off := a.alloc.alloc()

	owned := make([]byte, len(key))
	copy(owned, key)
	a.key[off] = &keyEntry{bytes: owned}

	return off
}

// dirtyCount reports the total number of staged nodes, used by Metrics.
func (a *arena) dirtyCount() int {
	return len(a.radix) + len(a.leaf) + len(a.link) + len(a.key)
}

// reset discards the entire dirty staging area, returning pooled nodes to
// the node pool. Called after a successful flush, and on Close when
// unflushed mutations are discarded.
func (a *arena) reset() {
	for _, r := range a.radix {
		a.pool.putRadix(r)
	}

	for _, l := range a.leaf {
		a.pool.putLeaf(l)
	}

	a.radix = make(map[uint64]*radixEntry)
	a.leaf = make(map[uint64]*leafEntry)
	a.link = make(map[uint64]*linkEntry)
	a.key = make(map[uint64]*keyEntry)
}
