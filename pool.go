package triedex

import "sync"

// nodePool recycles radixEntry/leafEntry allocations across flushes instead
// of letting garbage collection handle every dirty node. A single-writer
// index never needs to reclaim a node on a failed compare-and-swap — nodes
// are only ever returned here once a flush has discarded the dirty staging
// area.
type nodePool struct {
	radix sync.Pool
	leaf  sync.Pool
}

func newNodePool() *nodePool {
	np := &nodePool{}

	np.radix.New = func() interface{} { return &radixEntry{} }
	np.leaf.New = func() interface{} { return &leafEntry{} }

	return np
}

func (np *nodePool) getRadix() *radixEntry {
	return np.radix.Get().(*radixEntry)
}

func (np *nodePool) putRadix(r *radixEntry) {
	*r = radixEntry{}
	np.radix.Put(r)
}

func (np *nodePool) getLeaf() *leafEntry {
	return np.leaf.Get().(*leafEntry)
}

func (np *nodePool) putLeaf(l *leafEntry) {
	*l = leafEntry{}
	np.leaf.Put(l)
}
