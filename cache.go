package triedex

import lru "github.com/hashicorp/golang-lru/v2"

// decodedCache holds already-parsed clean-offset nodes, keyed by offset, so
// repeated lookups of hot Radix nodes skip re-parsing bytes out of the
// mmap. Purely an optimization: a miss always falls back to reading from
// the mmap, and nothing here is ever consulted for a dirty offset.
type decodedCache struct {
	radix *lru.Cache[uint64, *radixEntry]
}

func newDecodedCache(size int) *decodedCache {
	if size <= 0 {
		return &decodedCache{}
	}

	c, err := lru.New[uint64, *radixEntry](size)
	if err != nil {
		return &decodedCache{}
	}

	return &decodedCache{radix: c}
}

func (c *decodedCache) getRadix(offset uint64) (*radixEntry, bool) {
	if c.radix == nil {
		return nil, false
	}

	return c.radix.Get(offset)
}

func (c *decodedCache) putRadix(offset uint64, r *radixEntry) {
	if c.radix == nil {
		return
	}

	c.radix.Add(offset, r)
}

// invalidate drops every cached entry, called after a remap since clean
// offsets are only ever reused for append (never overwritten) but a fresh
// mmap means stale cached pointers should not outlive the old mapping in
// readers' hands for longer than necessary.
func (c *decodedCache) invalidate() {
	if c.radix != nil {
		c.radix.Purge()
	}
}
