package mptable

import (
	"errors"
	"fmt"
)

var (
	ErrShortBuffer      = errors.New("mptable: structure extends past buffer")
	ErrInvalidSignature = errors.New("mptable: invalid signature")
	ErrInvalidChecksum  = errors.New("mptable: invalid checksum")
	ErrUnknownEntry     = errors.New("mptable: unknown entry type")
	ErrNoConfigTable    = errors.New("mptable: floating pointer has no configuration table")
)

// UnknownEntryError reports an entry whose type code has no defined length.
// The entry stream cannot be resynchronised past it.
type UnknownEntryError struct {
	Code   uint8
	Index  int
	Offset int
}

func (e *UnknownEntryError) Error() string {
	return fmt.Sprintf("mptable: unknown entry type %d at index %d (offset %d)", e.Code, e.Index, e.Offset)
}

func (e *UnknownEntryError) Unwrap() error {
	return ErrUnknownEntry
}
