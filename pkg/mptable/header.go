package mptable

import (
	"fmt"
	"strings"
)

// ConfigTableHeader is the base MP configuration table header.
type ConfigTableHeader struct {
	// Signature must read "PCMP".
	Signature [4]byte

	// BaseTableLength covers the header and every base table entry.
	BaseTableLength uint16

	SpecRev  uint8
	Checksum uint8

	OEMID     [8]byte
	ProductID [12]byte

	OEMTablePointer uint32
	OEMTableSize    uint16

	// EntryCount is the number of base table entries following the header.
	EntryCount uint16

	// LocalAPICAddr is the physical address each processor uses to reach
	// its local APIC.
	LocalAPICAddr uint32

	ExtTableLength   uint16
	ExtTableChecksum uint8
}

// DecodeConfigTableHeader decodes the first ConfigTableHeaderSize bytes of b.
func DecodeConfigTableHeader(b []byte) (ConfigTableHeader, error) {
	if len(b) < ConfigTableHeaderSize {
		return ConfigTableHeader{}, fmt.Errorf("%w: table header needs %d bytes, have %d",
			ErrShortBuffer, ConfigTableHeaderSize, len(b))
	}
	var h ConfigTableHeader
	copy(h.Signature[:], b[0:4])
	h.BaseTableLength = le.Uint16(b[4:6])
	h.SpecRev = b[6]
	h.Checksum = b[7]
	copy(h.OEMID[:], b[8:16])
	copy(h.ProductID[:], b[16:28])
	h.OEMTablePointer = le.Uint32(b[28:32])
	h.OEMTableSize = le.Uint16(b[32:34])
	h.EntryCount = le.Uint16(b[34:36])
	h.LocalAPICAddr = le.Uint32(b[36:40])
	h.ExtTableLength = le.Uint16(b[40:42])
	h.ExtTableChecksum = b[42]
	// b[43] is reserved.
	return h, nil
}

func (h *ConfigTableHeader) VerifySignature() bool {
	return string(h.Signature[:]) == ConfigTableSignature
}

// VerifyChecksum always reports true. The header alone cannot be checked:
// the checksum covers the whole base table. Callers holding the table bytes
// should use VerifyTableChecksum.
func (h *ConfigTableHeader) VerifyChecksum() bool {
	return true
}

// VerifyTableChecksum reports whether the first BaseTableLength bytes of
// table sum to zero modulo 256. table must start at the header.
func (h *ConfigTableHeader) VerifyTableChecksum(table []byte) bool {
	n := int(h.BaseTableLength)
	if n < ConfigTableHeaderSize || n > len(table) {
		return false
	}
	return checksumOK(table[:n])
}

func (h *ConfigTableHeader) IsValid() bool {
	return h.VerifySignature() && h.VerifyChecksum()
}

// OEM returns the OEM ID with padding removed.
func (h *ConfigTableHeader) OEM() string {
	return trimID(h.OEMID[:])
}

// Product returns the product ID with padding removed.
func (h *ConfigTableHeader) Product() string {
	return trimID(h.ProductID[:])
}

// Entries returns an iterator over the base table entries. table must start
// at the header; entries are read from ConfigTableHeaderSize onwards and
// never past len(table). A table too short to hold any entry only fails
// once an entry is actually due.
func (h *ConfigTableHeader) Entries(table []byte) *EntryIterator {
	it := &EntryIterator{total: int(h.EntryCount)}
	if len(table) > ConfigTableHeaderSize {
		it.data = table[ConfigTableHeaderSize:]
	}
	return it
}

func trimID(b []byte) string {
	return strings.TrimRight(string(b), " \x00")
}
