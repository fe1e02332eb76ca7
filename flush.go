package triedex

import (
	"bytes"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// flushCtx carries the running state of one Flush call: the buffer
// everything is serialized into before a single write+fsync, the base file
// offset it starts at, and the offset map being built up children-first.
type flushCtx struct {
	idx    *Index
	buf    bytes.Buffer
	base   int64
	om     *offsetMap
	visited map[uint64]bool
}

// Flush serializes every staged dirty node to the file tail in topological
// (children-first) order, emits a new Root record, and fsyncs. It is a
// no-op if nothing has been inserted since the last flush.
func (idx *Index) Flush() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.readOnly {
		return errors.Wrap(ErrInvalidData, "cannot flush a read-only index")
	}

	if idx.arena.dirtyCount() == 0 {
		return nil
	}

	fi, err := idx.file.Stat()
	if err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}

	ctx := &flushCtx{
		idx:     idx,
		base:    fi.Size(),
		om:      newOffsetMap(),
		visited: make(map[uint64]bool),
	}

	if err := ctx.flushRadix(idx.root); err != nil {
		return err
	}

	cleanRoot, err := ctx.om.translate(idx.root)
	if err != nil {
		return err
	}

	if _, err := writeRootTo(&ctx.buf, cleanRoot, ctx.om); err != nil {
		return err
	}

	n, err := idx.file.WriteAt(ctx.buf.Bytes(), ctx.base)
	if err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}

	if err := idx.file.Sync(); err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}

	if err := idx.remap(); err != nil {
		return err
	}

	idx.arena.reset()
	idx.root = cleanRoot
	idx.metrics.observeFlush(n)
	idx.logger.Debug("triedex flush complete", zap.Int("bytes", n), zap.Uint64("root", idx.root))

	return nil
}

// currentOffset is where the next entry written to ctx.buf will land.
func (ctx *flushCtx) currentOffset() uint64 {
	return uint64(ctx.base) + uint64(ctx.buf.Len())
}

func (ctx *flushCtx) flushKey(offset uint64) error {
	if isClean(offset) || ctx.visited[offset] {
		return nil
	}

	k, err := ctx.idx.getKey(offset)
	if err != nil {
		return err
	}

	clean := ctx.currentOffset()
	if _, err := writeKeyTo(&ctx.buf, k); err != nil {
		return err
	}

	ctx.om.set(offset, clean)
	ctx.visited[offset] = true

	return nil
}

// flushLink walks the singly-linked value list from offset to its tail,
// flushing from the tail inward so every nextLinkOffset can be translated
// before the node that references it is written.
func (ctx *flushCtx) flushLink(offset uint64) error {
	if isClean(offset) || ctx.visited[offset] {
		return nil
	}

	l, err := ctx.idx.getLink(offset)
	if err != nil {
		return err
	}

	if err := ctx.flushLink(l.nextLinkOffset); err != nil {
		return err
	}

	clean := ctx.currentOffset()
	if _, err := writeLinkTo(&ctx.buf, l, ctx.om); err != nil {
		return err
	}

	ctx.om.set(offset, clean)
	ctx.visited[offset] = true

	return nil
}

func (ctx *flushCtx) flushLeaf(offset uint64) error {
	if isClean(offset) || ctx.visited[offset] {
		return nil
	}

	l, err := ctx.idx.getLeaf(offset)
	if err != nil {
		return err
	}

	if err := ctx.flushKey(l.keyOffset); err != nil {
		return err
	}

	if err := ctx.flushLink(l.linkOffset); err != nil {
		return err
	}

	clean := ctx.currentOffset()
	if _, err := writeLeafTo(&ctx.buf, l, ctx.om); err != nil {
		return err
	}

	ctx.om.set(offset, clean)
	ctx.visited[offset] = true

	return nil
}

func (ctx *flushCtx) flushRadix(offset uint64) error {
	if isClean(offset) || ctx.visited[offset] {
		return nil
	}

	r, err := ctx.idx.getRadix(offset)
	if err != nil {
		return err
	}

	if err := ctx.flushLink(r.linkOffset); err != nil {
		return err
	}

	for _, child := range r.offsets {
		if child == nullOffset || isClean(child) {
			continue
		}

		isLeaf, err := ctx.idx.childIsLeaf(child)
		if err != nil {
			return err
		}

		if isLeaf {
			if err := ctx.flushLeaf(child); err != nil {
				return err
			}
		} else {
			if err := ctx.flushRadix(child); err != nil {
				return err
			}
		}
	}

	clean := ctx.currentOffset()
	if _, err := writeRadixTo(&ctx.buf, r, ctx.om); err != nil {
		return err
	}

	ctx.om.set(offset, clean)
	ctx.visited[offset] = true

	return nil
}
