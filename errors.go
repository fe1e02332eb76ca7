package triedex

import "github.com/pkg/errors"

// Error kinds, per the file format's error handling design. Callers should
// compare against these sentinels with errors.Is; every returned error wraps
// one of them with github.com/pkg/errors for call-site context.
var (
	// ErrInvalidData marks a read that encountered a wrong type byte, a
	// truncated VLQ, a Radix jump-table/position mismatch, or an
	// inconsistent Root length. The index remains usable for other
	// operations if the corruption is localized.
	ErrInvalidData = errors.New("triedex: invalid data")

	// ErrIO marks an underlying file read/write/fsync failure. A failed
	// flush leaves in-memory state intact; the caller may retry.
	ErrIO = errors.New("triedex: io failure")

	// ErrInternal marks an internal invariant violation: a dirty offset
	// left unresolved at flush time, or a child offset whose type byte
	// doesn't match Radix/Leaf on read. These indicate bugs in this
	// package, not recoverable caller errors.
	ErrInternal = errors.New("triedex: internal invariant violation")
)
