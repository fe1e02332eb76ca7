package triedex

import (
	"bytes"
	"testing"
)

func TestRadixEntryRoundTrip(t *testing.T) {
	om := newOffsetMap()
	om.set(dirtyBit|1, 50)
	om.set(dirtyBit|2, 80)
	om.set(dirtyBit|3, 120)

	r := &radixEntry{linkOffset: dirtyBit | 1}
	r.offsets[0x3] = dirtyBit | 2
	r.offsets[0xf] = dirtyBit | 3

	var buf bytes.Buffer
	n, err := writeRadixTo(&buf, r, om)
	if err != nil {
		t.Fatal(err)
	}

	if n != buf.Len() {
		t.Fatalf("writeRadixTo returned %d, buffer has %d bytes", n, buf.Len())
	}

	data := append([]byte{0}, buf.Bytes()...)

	got, consumed, err := readRadixAt(data, 1)
	if err != nil {
		t.Fatal(err)
	}

	if consumed != buf.Len() {
		t.Fatalf("readRadixAt consumed %d, expected %d", consumed, buf.Len())
	}

	if got.linkOffset != 50 {
		t.Errorf("linkOffset = %d, want 50", got.linkOffset)
	}

	if got.offsets[0x3] != 80 || got.offsets[0xf] != 120 {
		t.Errorf("offsets = %v", got.offsets)
	}

	for i, off := range got.offsets {
		if i != 0x3 && i != 0xf && off != nullOffset {
			t.Errorf("offsets[%d] = %d, want nullOffset", i, off)
		}
	}
}

func TestRadixEntryRejectsBadJumpTable(t *testing.T) {
	om := newOffsetMap()
	om.set(dirtyBit|1, 5)

	r := &radixEntry{}
	r.offsets[0] = dirtyBit | 1

	var buf bytes.Buffer
	if _, err := writeRadixTo(&buf, r, om); err != nil {
		t.Fatal(err)
	}

	data := append([]byte{0}, buf.Bytes()...)
	data[2]++ // corrupt the jump table entry for offsets[0]

	if _, _, err := readRadixAt(data, 1); err == nil {
		t.Fatal("expected readRadixAt to reject a corrupted jump table")
	}
}

func TestLeafEntryRoundTrip(t *testing.T) {
	om := newOffsetMap()
	om.set(dirtyBit|1, 7)
	om.set(dirtyBit|2, 42)

	l := &leafEntry{keyOffset: dirtyBit | 1, linkOffset: dirtyBit | 2}

	var buf bytes.Buffer
	if _, err := writeLeafTo(&buf, l, om); err != nil {
		t.Fatal(err)
	}

	data := append([]byte{0}, buf.Bytes()...)
	got, n, err := readLeafAt(data, 1)
	if err != nil {
		t.Fatal(err)
	}

	if n != buf.Len() || got.keyOffset != 7 || got.linkOffset != 42 {
		t.Fatalf("got %+v n=%d", got, n)
	}
}

func TestLinkEntryRoundTrip(t *testing.T) {
	om := newOffsetMap()
	om.set(dirtyBit|1, 99)

	l := &linkEntry{value: 12345, nextLinkOffset: dirtyBit | 1}

	var buf bytes.Buffer
	if _, err := writeLinkTo(&buf, l, om); err != nil {
		t.Fatal(err)
	}

	data := append([]byte{0}, buf.Bytes()...)
	got, n, err := readLinkAt(data, 1)
	if err != nil {
		t.Fatal(err)
	}

	if n != buf.Len() || got.value != 12345 || got.nextLinkOffset != 99 {
		t.Fatalf("got %+v n=%d", got, n)
	}
}

func TestLinkEntryTerminal(t *testing.T) {
	om := newOffsetMap()
	l := &linkEntry{value: 1, nextLinkOffset: nullOffset}

	var buf bytes.Buffer
	if _, err := writeLinkTo(&buf, l, om); err != nil {
		t.Fatal(err)
	}

	data := append([]byte{0}, buf.Bytes()...)
	got, _, err := readLinkAt(data, 1)
	if err != nil {
		t.Fatal(err)
	}

	if got.nextLinkOffset != nullOffset {
		t.Errorf("nextLinkOffset = %d, want nullOffset", got.nextLinkOffset)
	}
}

func TestKeyEntryRoundTrip(t *testing.T) {
	k := &keyEntry{bytes: []byte("hello world")}

	var buf bytes.Buffer
	if _, err := writeKeyTo(&buf, k); err != nil {
		t.Fatal(err)
	}

	data := append([]byte{0}, buf.Bytes()...)
	got, n, err := readKeyAt(data, 1)
	if err != nil {
		t.Fatal(err)
	}

	if n != buf.Len() || !bytes.Equal(got.bytes, k.bytes) {
		t.Fatalf("got %q n=%d", got.bytes, n)
	}
}

func TestRootEntryRoundTrip(t *testing.T) {
	om := newOffsetMap()

	var buf bytes.Buffer
	if _, err := writeRootTo(&buf, 12345, om); err != nil {
		t.Fatal(err)
	}

	data := append([]byte{0}, buf.Bytes()...)
	got, n, err := readRootAt(data, 1)
	if err != nil {
		t.Fatal(err)
	}

	if n != buf.Len() || got.radixOffset != 12345 {
		t.Fatalf("got %+v n=%d", got, n)
	}

	if int(got.rootLen) != n {
		t.Errorf("rootLen = %d, actual record length %d", got.rootLen, n)
	}
}

func TestRootEntryRejectsBadLength(t *testing.T) {
	om := newOffsetMap()

	var buf bytes.Buffer
	if _, err := writeRootTo(&buf, 1, om); err != nil {
		t.Fatal(err)
	}

	data := append([]byte{0}, buf.Bytes()...)
	data[len(data)-1]++ // corrupt the trailing length byte

	if _, _, err := readRootAt(data, 1); err == nil {
		t.Fatal("expected readRootAt to reject a mismatched length byte")
	}
}

func TestCheckTypeMismatch(t *testing.T) {
	data := []byte{byte(kindLeaf)}

	if err := checkType(data, 0, kindRadix); err == nil {
		t.Fatal("expected checkType to reject a mismatched entry kind")
	}
}
