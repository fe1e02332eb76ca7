package triedex

import "github.com/pkg/errors"

// ScanEntry describes one record found by Scan.
type ScanEntry struct {
	Offset uint64
	Kind   string
	Length int
}

func (k entryKind) String() string {
	switch k {
	case kindHeader:
		return "header"
	case kindRoot:
		return "root"
	case kindRadix:
		return "radix"
	case kindLeaf:
		return "leaf"
	case kindLink:
		return "link"
	case kindKey:
		return "key"
	default:
		return "unknown"
	}
}

// Scan walks every entry in the file from offset 1 forward, classifying
// each by its type byte independently of any Root chain. It does not
// require a valid root and will surface every Radix/Leaf/Link/Key record
// ever written, including ones orphaned by later mutation. An external
// recovery or compaction tool uses this to enumerate everything reachable
// in the file rather than trusting the last-written root.
func (idx *Index) Scan() ([]ScanEntry, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var entries []ScanEntry

	pos := 1
	for pos < len(idx.data) {
		kind := entryKind(idx.data[pos])

		var n int
		var err error

		switch kind {
		case kindRadix:
			_, n, err = readRadixAt(idx.data, pos)
		case kindLeaf:
			_, n, err = readLeafAt(idx.data, pos)
		case kindLink:
			_, n, err = readLinkAt(idx.data, pos)
		case kindKey:
			_, n, err = readKeyAt(idx.data, pos)
		case kindRoot:
			_, n, err = readRootAt(idx.data, pos)
		default:
			return entries, errors.Wrapf(ErrInvalidData, "unrecognized entry type %d at offset %d", kind, pos)
		}

		if err != nil {
			return entries, errors.Wrapf(err, "scan stopped at offset %d", pos)
		}

		entries = append(entries, ScanEntry{Offset: uint64(pos), Kind: kind.String(), Length: n})
		pos += n
	}

	return entries, nil
}
