package triedex

import (
	"bytes"

	"github.com/pkg/errors"
)

// Lookup / insert: a base-16 radix walk over a hybrid (on-disk + in-memory)
// tree. Keys are treated as sequences of 4-bit nibbles, high nibble of each
// byte first.

// nibbleAt returns the nibble at the given zero-based position within key
// (high nibble of key[level/2] first).
func nibbleAt(key []byte, level int) byte {
	b := key[level/2]
	if level%2 == 0 {
		return b >> 4
	}

	return b & 0x0f
}

// nibbleCount is the number of 4-bit nibbles in key.
func nibbleCount(key []byte) int {
	return len(key) * 2
}

// getRadix resolves offset (dirty or clean) to its radixEntry.
func (idx *Index) getRadix(offset uint64) (*radixEntry, error) {
	if isDirty(offset) {
		r, ok := idx.arena.radix[offset]
		if !ok {
			return nil, errors.Wrapf(ErrInternal, "dirty offset %#x is not a staged radix node", offset)
		}

		return r, nil
	}

	if cached, ok := idx.cache.getRadix(offset); ok {
		return cached, nil
	}

	r, _, err := readRadixAt(idx.data, int(offset))
	if err != nil {
		return nil, err
	}

	idx.cache.putRadix(offset, r)
	return r, nil
}

func (idx *Index) getLeaf(offset uint64) (*leafEntry, error) {
	if isDirty(offset) {
		l, ok := idx.arena.leaf[offset]
		if !ok {
			return nil, errors.Wrapf(ErrInternal, "dirty offset %#x is not a staged leaf node", offset)
		}

		return l, nil
	}

	l, _, err := readLeafAt(idx.data, int(offset))
	if err != nil {
		return nil, err
	}

	return l, nil
}

func (idx *Index) getLink(offset uint64) (*linkEntry, error) {
	if isDirty(offset) {
		l, ok := idx.arena.link[offset]
		if !ok {
			return nil, errors.Wrapf(ErrInternal, "dirty offset %#x is not a staged link node", offset)
		}

		return l, nil
	}

	l, _, err := readLinkAt(idx.data, int(offset))
	if err != nil {
		return nil, err
	}

	return l, nil
}

func (idx *Index) getKey(offset uint64) (*keyEntry, error) {
	if isDirty(offset) {
		k, ok := idx.arena.key[offset]
		if !ok {
			return nil, errors.Wrapf(ErrInternal, "dirty offset %#x is not a staged key node", offset)
		}

		return k, nil
	}

	k, _, err := readKeyAt(idx.data, int(offset))
	if err != nil {
		return nil, err
	}

	return k, nil
}

// childIsLeaf reports whether a Radix child edge (never nullOffset) leads
// to a Leaf (true) or another Radix (false). A child offset whose type byte
// is neither is an internal invariant violation.
func (idx *Index) childIsLeaf(offset uint64) (bool, error) {
	if isDirty(offset) {
		if _, ok := idx.arena.leaf[offset]; ok {
			return true, nil
		}

		if _, ok := idx.arena.radix[offset]; ok {
			return false, nil
		}

		return false, errors.Wrapf(ErrInternal, "dirty child offset %#x is neither radix nor leaf", offset)
	}

	if int(offset) >= len(idx.data) {
		return false, errors.Wrapf(ErrInvalidData, "child offset %d out of range", offset)
	}

	switch entryKind(idx.data[offset]) {
	case kindLeaf:
		return true, nil
	case kindRadix:
		return false, nil
	default:
		return false, errors.Wrapf(ErrInternal, "child offset %d has type %d, expected radix or leaf", offset, idx.data[offset])
	}
}

// ValueIter is a lazy, one-shot, finite sequence of values for a looked-up
// key, newest-first. It is not restartable; call Lookup again for a fresh
// iterator.
type ValueIter struct {
	idx  *Index
	next uint64
	err  error
}

func (idx *Index) valueIter(head uint64) *ValueIter {
	return &ValueIter{idx: idx, next: head}
}

// Next advances the iterator, returning the next value and true, or false
// when the list is exhausted. A non-nil error from a prior call is sticky.
func (it *ValueIter) Next() (uint64, bool, error) {
	if it.err != nil {
		return 0, false, it.err
	}

	if it.next == nullOffset {
		return 0, false, nil
	}

	link, err := it.idx.getLink(it.next)
	if err != nil {
		it.err = err
		return 0, false, err
	}

	it.next = link.nextLinkOffset
	return link.value, true, nil
}

// Lookup walks from the current root, returning an iterator over the
// values stored for key in reverse-insertion order, or an empty iterator if
// key is absent. It never fails against an uncorrupted, clean file.
func (idx *Index) Lookup(key []byte) (*ValueIter, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.root == nullOffset {
		idx.metrics.observeLookup(false)
		return idx.valueIter(nullOffset), nil
	}

	it, err := idx.lookupAt(idx.root, key, 0)
	if err != nil {
		return nil, err
	}

	idx.metrics.observeLookup(it.next != nullOffset)
	return it, nil
}

func (idx *Index) lookupAt(offset uint64, key []byte, level int) (*ValueIter, error) {
	radix, err := idx.getRadix(offset)
	if err != nil {
		return nil, err
	}

	if level == nibbleCount(key) {
		return idx.valueIter(radix.linkOffset), nil
	}

	nib := nibbleAt(key, level)
	child := radix.offsets[nib]
	if child == nullOffset {
		return idx.valueIter(nullOffset), nil
	}

	isLeaf, err := idx.childIsLeaf(child)
	if err != nil {
		return nil, err
	}

	if !isLeaf {
		return idx.lookupAt(child, key, level+1)
	}

	leaf, err := idx.getLeaf(child)
	if err != nil {
		return nil, err
	}

	storedKey, err := idx.getKey(leaf.keyOffset)
	if err != nil {
		return nil, err
	}

	if !bytes.Equal(storedKey.bytes, key) {
		return idx.valueIter(nullOffset), nil
	}

	return idx.valueIter(leaf.linkOffset), nil
}

// Insert prepends value to the list associated with key, creating the key
// with a one-element list if absent. It writes nothing to the file; the only
// errors possible here are internal invariant violations and ErrInvalidData
// from reading a corrupt on-disk entry along the path.
func (idx *Index) Insert(key []byte, value uint64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.root == nullOffset {
		off, _ := idx.arena.newRadix()
		idx.root = off
	}

	newRoot, err := idx.insertAt(idx.root, key, value, 0)
	if err != nil {
		return err
	}

	idx.root = newRoot
	idx.metrics.observeInsert()

	return nil
}

// dirtyRadixAt returns a mutable dirty radixEntry for offset: the same
// staged node if offset is already dirty, or a fresh copy-on-write dirty
// node if offset is clean. The caller's edge must be rewritten to the
// returned offset.
func (idx *Index) dirtyRadixAt(offset uint64) (uint64, *radixEntry, error) {
	if isDirty(offset) {
		r, err := idx.getRadix(offset)
		if err != nil {
			return 0, nil, err
		}

		return offset, r, nil
	}

	clean, err := idx.getRadix(offset)
	if err != nil {
		return 0, nil, err
	}

	newOff, newR := idx.arena.copyRadix(clean)
	return newOff, newR, nil
}

// insertAt walks from offset toward key, copy-on-writing every Radix it
// touches, and returns the (always dirty) offset that should replace the
// caller's edge to this node.
func (idx *Index) insertAt(offset uint64, key []byte, value uint64, level int) (uint64, error) {
	radixOff, radix, err := idx.dirtyRadixAt(offset)
	if err != nil {
		return 0, err
	}

	if level == nibbleCount(key) {
		linkOff := idx.arena.newLink(value, radix.linkOffset)
		radix.linkOffset = linkOff

		return radixOff, nil
	}

	nib := nibbleAt(key, level)
	child := radix.offsets[nib]

	switch {
	case child == nullOffset:
		keyOff := idx.arena.newKey(key)
		linkOff := idx.arena.newLink(value, nullOffset)
		leafOff := idx.arena.newLeaf(keyOff, linkOff)
		radix.offsets[nib] = leafOff

		return radixOff, nil

	default:
		isLeaf, err := idx.childIsLeaf(child)
		if err != nil {
			return 0, err
		}

		if !isLeaf {
			childOff, err := idx.insertAt(child, key, value, level+1)
			if err != nil {
				return 0, err
			}

			radix.offsets[nib] = childOff
			return radixOff, nil
		}

		leaf, err := idx.getLeaf(child)
		if err != nil {
			return 0, err
		}

		storedKey, err := idx.getKey(leaf.keyOffset)
		if err != nil {
			return 0, err
		}

		if bytes.Equal(storedKey.bytes, key) {
			linkOff := idx.arena.newLink(value, leaf.linkOffset)
			leafOff := idx.arena.newLeaf(leaf.keyOffset, linkOff)
			radix.offsets[nib] = leafOff

			return radixOff, nil
		}

		splitOff, err := idx.splitLeaf(child, storedKey.bytes, key, value, level+1)
		if err != nil {
			return 0, err
		}

		radix.offsets[nib] = splitOff
		return radixOff, nil
	}
}

// splitLeaf replaces a Leaf for storedKey with a chain of new Radix nodes
// covering the common nibble prefix between storedKey and key (starting at
// startLevel, the first nibble position they might still share), bottoming
// out at the first differing nibble with the old Leaf (oldLeafOffset,
// reused unchanged — a Leaf's Key is immutable) and a new Leaf for key on
// separate edges. If one key is a proper prefix of the other, the shorter
// key's list is attached to the split Radix's own link_offset instead of a
// Leaf edge.
func (idx *Index) splitLeaf(oldLeafOffset uint64, storedKey, key []byte, value uint64, startLevel int) (uint64, error) {
	storedLen := nibbleCount(storedKey)
	keyLen := nibbleCount(key)

	topOff, radix := idx.arena.newRadix()

	level := startLevel
	for {
		storedHasMore := level < storedLen
		keyHasMore := level < keyLen

		switch {
		case !storedHasMore && !keyHasMore:
			// Equal-length keys that differ must diverge before both run
			// out; reaching here would mean the keys were equal, which the
			// caller already handles before calling splitLeaf.
			return 0, errors.Wrap(ErrInternal, "split reached end of both keys without finding a divergence")

		case !storedHasMore:
			linkOff, err := idx.reusedLink(oldLeafOffset)
			if err != nil {
				return 0, err
			}

			radix.linkOffset = linkOff

			newLeafOff, err := idx.newFullLeaf(key, value)
			if err != nil {
				return 0, err
			}

			radix.offsets[nibbleAt(key, level)] = newLeafOff
			return topOff, nil

		case !keyHasMore:
			linkOff := idx.arena.newLink(value, nullOffset)
			radix.linkOffset = linkOff
			radix.offsets[nibbleAt(storedKey, level)] = oldLeafOffset

			return topOff, nil

		default:
			storedNib := nibbleAt(storedKey, level)
			newNib := nibbleAt(key, level)

			if storedNib == newNib {
				childOff, childRadix := idx.arena.newRadix()
				radix.offsets[storedNib] = childOff
				radix = childRadix
				level++
				continue
			}

			newLeafOff, err := idx.newFullLeaf(key, value)
			if err != nil {
				return 0, err
			}

			radix.offsets[storedNib] = oldLeafOffset
			radix.offsets[newNib] = newLeafOff

			return topOff, nil
		}
	}
}

// newFullLeaf materializes a brand new Key (full key bytes), a
// single-element Link list, and the Leaf tying them together.
func (idx *Index) newFullLeaf(key []byte, value uint64) (uint64, error) {
	keyOff := idx.arena.newKey(key)
	linkOff := idx.arena.newLink(value, nullOffset)

	return idx.arena.newLeaf(keyOff, linkOff), nil
}

// reusedLink returns the existing Link list head of an (unmodified) Leaf,
// for the case where that Leaf's key becomes a proper prefix match at a new
// split Radix instead of staying a Leaf.
func (idx *Index) reusedLink(leafOffset uint64) (uint64, error) {
	leaf, err := idx.getLeaf(leafOffset)
	if err != nil {
		return 0, err
	}

	return leaf.linkOffset, nil
}
