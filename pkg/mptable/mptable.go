// Package mptable decodes the Intel MultiProcessor Specification
// configuration structures.
//
// The floating pointer structure locates a configuration table whose base
// section is a fixed header followed by a stream of fixed-length entries
// describing processors, buses, I/O APICs and interrupt routing. All
// structures are little-endian with no padding and are read from
// firmware-provided memory, so every decoder here works on a byte slice and
// fails with ErrShortBuffer rather than reading past it.
//
// Decoding and iteration never allocate: typed entries are decoded on demand
// from the window of the table they occupy.
package mptable

import "encoding/binary"

// Layout constants must never change.
const (
	// FloatingPointerSignature is "_MP_".
	FloatingPointerSignature = "_MP_"

	// ConfigTableSignature is "PCMP".
	ConfigTableSignature = "PCMP"

	// FloatingPointerSize is the size of the floating pointer structure.
	FloatingPointerSize = 16

	// ConfigTableHeaderSize is the size of the base table header. Entries
	// start immediately after it.
	ConfigTableHeaderSize = 44

	// ParagraphSize is the unit used by FloatingPointer.Length.
	ParagraphSize = 16
)

var le = binary.LittleEndian
