package triedex

import (
	"io"

	"github.com/pkg/errors"
)

// Entry records: five typed, variable-length records plus the one-byte
// Header. Every entry starts with a discriminator byte so that a linear
// scan from file offset 1 can classify entries without consulting a Root
// (see Scan in scan.go, a feature carried over from the original source
// this spec was distilled from).

type entryKind byte

const (
	kindHeader entryKind = 0
	kindRoot   entryKind = 1
	kindRadix  entryKind = 2
	kindLeaf   entryKind = 3
	kindLink   entryKind = 4
	kindKey    entryKind = 5
)

// radixEntry is the internal node of the base-16 trie: up to 16 children,
// one per nibble value, plus a link for a key that is a proper prefix of
// some other stored key.
type radixEntry struct {
	offsets    [16]uint64
	linkOffset uint64
}

// leafEntry is a terminal node: a pointer to the full stored Key and the
// head of the Link list holding that key's values.
type leafEntry struct {
	keyOffset  uint64
	linkOffset uint64
}

// linkEntry is one node of the singly-linked value list. nextLinkOffset ==
// nullOffset terminates the list.
type linkEntry struct {
	value          uint64
	nextLinkOffset uint64
}

// keyEntry stores a full byte-string key once; Leafs reference it.
type keyEntry struct {
	bytes []byte
}

// rootEntry is the file-tail marker identifying the current authoritative
// tree. rootLen is the total record length, enabling backward discovery.
type rootEntry struct {
	radixOffset uint64
	rootLen     uint8
}

func checkType(buf []byte, offset int, want entryKind) error {
	if offset < 0 || offset >= len(buf) {
		return errors.Wrapf(ErrInvalidData, "offset %d out of range (len %d)", offset, len(buf))
	}

	if got := entryKind(buf[offset]); got != want {
		return errors.Wrapf(ErrInvalidData, "expected entry type %d at offset %d, got %d", want, offset, got)
	}

	return nil
}

// readRadixAt parses a Radix record from buf starting at offset. It
// validates every non-zero jump-table byte against the actual parse
// position, rejecting anything but canonical VLQ encodings as corruption.
func readRadixAt(buf []byte, offset int) (*radixEntry, int, error) {
	if err := checkType(buf, offset, kindRadix); err != nil {
		return nil, 0, err
	}

	pos := 1
	if offset+pos+16 > len(buf) {
		return nil, 0, errors.Wrapf(ErrInvalidData, "radix jump table truncated at offset %d", offset)
	}

	var jumpTable [16]byte
	copy(jumpTable[:], buf[offset+pos:offset+pos+16])
	pos += 16

	linkOffset, n, err := decodeUvarintAt(buf, offset+pos)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "radix link offset at %d", offset+pos)
	}
	pos += n

	var offsets [16]uint64
	for i := 0; i < 16; i++ {
		if jumpTable[i] == 0 {
			continue
		}

		if int(jumpTable[i]) != pos {
			return nil, 0, errors.Wrapf(ErrInvalidData, "radix jump table entry %d points at %d, actual position is %d", i, jumpTable[i], pos)
		}

		v, n, err := decodeUvarintAt(buf, offset+pos)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "radix child %d at %d", i, offset+pos)
		}

		offsets[i] = v
		pos += n
	}

	return &radixEntry{offsets: offsets, linkOffset: linkOffset}, pos, nil
}

// writeRadixTo serializes r, translating every outgoing offset through om.
// It lays out a 16-byte placeholder jump table and backfills jumpTable[i]
// with the byte position immediately before emitting VLQ(offsets[i]) for
// each present child.
func writeRadixTo(w io.Writer, r *radixEntry, om *offsetMap) (int, error) {
	linkOffset, err := om.translate(r.linkOffset)
	if err != nil {
		return 0, err
	}

	buf := make([]byte, 1+16, 1+16+5*17)
	buf[0] = byte(kindRadix)
	buf = encodeUvarint(buf, linkOffset)

	for i := 0; i < 16; i++ {
		v := r.offsets[i]
		if v == nullOffset {
			continue
		}

		translated, err := om.translate(v)
		if err != nil {
			return 0, err
		}

		buf[1+i] = byte(len(buf))
		buf = encodeUvarint(buf, translated)
	}

	n, werr := w.Write(buf)
	if werr != nil {
		return n, errors.Wrap(ErrIO, werr.Error())
	}

	return n, nil
}

func readLeafAt(buf []byte, offset int) (*leafEntry, int, error) {
	if err := checkType(buf, offset, kindLeaf); err != nil {
		return nil, 0, err
	}

	pos := 1

	keyOffset, n, err := decodeUvarintAt(buf, offset+pos)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "leaf key offset at %d", offset+pos)
	}
	pos += n

	linkOffset, n, err := decodeUvarintAt(buf, offset+pos)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "leaf link offset at %d", offset+pos)
	}
	pos += n

	return &leafEntry{keyOffset: keyOffset, linkOffset: linkOffset}, pos, nil
}

func writeLeafTo(w io.Writer, l *leafEntry, om *offsetMap) (int, error) {
	keyOffset, err := om.translate(l.keyOffset)
	if err != nil {
		return 0, err
	}

	linkOffset, err := om.translate(l.linkOffset)
	if err != nil {
		return 0, err
	}

	buf := make([]byte, 0, 1+10+10)
	buf = append(buf, byte(kindLeaf))
	buf = encodeUvarint(buf, keyOffset)
	buf = encodeUvarint(buf, linkOffset)

	n, werr := w.Write(buf)
	if werr != nil {
		return n, errors.Wrap(ErrIO, werr.Error())
	}

	return n, nil
}

func readLinkAt(buf []byte, offset int) (*linkEntry, int, error) {
	if err := checkType(buf, offset, kindLink); err != nil {
		return nil, 0, err
	}

	pos := 1

	value, n, err := decodeUvarintAt(buf, offset+pos)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "link value at %d", offset+pos)
	}
	pos += n

	nextLinkOffset, n, err := decodeUvarintAt(buf, offset+pos)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "link next offset at %d", offset+pos)
	}
	pos += n

	return &linkEntry{value: value, nextLinkOffset: nextLinkOffset}, pos, nil
}

func writeLinkTo(w io.Writer, l *linkEntry, om *offsetMap) (int, error) {
	nextLinkOffset, err := om.translate(l.nextLinkOffset)
	if err != nil {
		return 0, err
	}

	buf := make([]byte, 0, 1+10+10)
	buf = append(buf, byte(kindLink))
	buf = encodeUvarint(buf, l.value)
	buf = encodeUvarint(buf, nextLinkOffset)

	n, werr := w.Write(buf)
	if werr != nil {
		return n, errors.Wrap(ErrIO, werr.Error())
	}

	return n, nil
}

func readKeyAt(buf []byte, offset int) (*keyEntry, int, error) {
	if err := checkType(buf, offset, kindKey); err != nil {
		return nil, 0, err
	}

	pos := 1

	keyLen, n, err := decodeUvarintAt(buf, offset+pos)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "key length at %d", offset+pos)
	}
	pos += n

	if offset+pos+int(keyLen) > len(buf) {
		return nil, 0, errors.Wrapf(ErrInvalidData, "key bytes truncated at offset %d", offset)
	}

	key := make([]byte, keyLen)
	copy(key, buf[offset+pos:offset+pos+int(keyLen)])
	pos += int(keyLen)

	return &keyEntry{bytes: key}, pos, nil
}

func writeKeyTo(w io.Writer, k *keyEntry) (int, error) {
	buf := make([]byte, 0, 1+10+len(k.bytes))
	buf = append(buf, byte(kindKey))
	buf = encodeUvarint(buf, uint64(len(k.bytes)))
	buf = append(buf, k.bytes...)

	n, werr := w.Write(buf)
	if werr != nil {
		return n, errors.Wrap(ErrIO, werr.Error())
	}

	return n, nil
}

// readRootAt parses a Root record. rootLen is a raw trailing byte, not a VLQ.
func readRootAt(buf []byte, offset int) (*rootEntry, int, error) {
	if err := checkType(buf, offset, kindRoot); err != nil {
		return nil, 0, err
	}

	pos := 1

	radixOffset, n, err := decodeUvarintAt(buf, offset+pos)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "root radix offset at %d", offset+pos)
	}
	pos += n

	if offset+pos >= len(buf) {
		return nil, 0, errors.Wrapf(ErrInvalidData, "root length byte truncated at offset %d", offset)
	}

	rootLen := buf[offset+pos]
	pos++

	if int(rootLen) != pos {
		return nil, 0, errors.Wrapf(ErrInvalidData, "root length byte %d does not match actual record length %d", rootLen, pos)
	}

	return &rootEntry{radixOffset: radixOffset, rootLen: rootLen}, pos, nil
}

// writeRootTo serializes a Root record for radixOffset (already clean or
// translated through om) and returns the number of bytes written.
func writeRootTo(w io.Writer, radixOffset uint64, om *offsetMap) (int, error) {
	translated, err := om.translate(radixOffset)
	if err != nil {
		return 0, err
	}

	buf := make([]byte, 0, 1+10+1)
	buf = append(buf, byte(kindRoot))
	buf = encodeUvarint(buf, translated)

	rootLen := len(buf) + 1
	if rootLen > 0xff {
		return 0, errors.Wrap(ErrInternal, "root record length overflows a single byte")
	}
	buf = append(buf, byte(rootLen))

	n, werr := w.Write(buf)
	if werr != nil {
		return n, errors.Wrap(ErrIO, werr.Error())
	}

	return n, nil
}
