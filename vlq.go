package triedex

import "github.com/pkg/errors"

// VLQ encode/decode: unsigned LEB128-style variable length quantities.
// Seven payload bits per byte, high bit set on every byte but the last.
// Every pointer and length field in an entry record is a VLQ.

// encodeUvarint appends the canonical (minimum-length) VLQ encoding of v to dst.
func encodeUvarint(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}

	return append(dst, byte(v))
}

// decodeUvarintAt decodes a VLQ starting at buf[pos], returning the decoded
// value and the number of bytes consumed. Fails with ErrInvalidData if the
// buffer ends before a terminating byte is seen, or the encoding would
// overflow 64 bits.
func decodeUvarintAt(buf []byte, pos int) (uint64, int, error) {
	var v uint64
	var shift uint

	for i := pos; i < len(buf); i++ {
		b := buf[i]
		n := i - pos + 1

		if shift >= 64 || (shift == 63 && b&0x7f > 1) {
			return 0, 0, errors.Wrap(ErrInvalidData, "vlq: varint overflows uint64")
		}

		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return v, n, nil
		}

		shift += 7
	}

	return 0, 0, errors.Wrap(ErrInvalidData, "vlq: ran out of buffer before terminating byte")
}

// sizeUvarint returns the number of bytes encodeUvarint would emit for v,
// without allocating.
func sizeUvarint(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}

	return n
}
