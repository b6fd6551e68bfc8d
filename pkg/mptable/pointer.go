package mptable

import "fmt"

// FloatingPointer is the MP Floating Pointer Structure.
type FloatingPointer struct {
	// Signature must read "_MP_".
	Signature [4]byte

	// PhysAddr is the physical address of the configuration table, or 0
	// when the system uses one of the default configurations.
	PhysAddr uint32

	// Length is the structure length in 16-byte paragraphs.
	Length uint8

	SpecRev  uint8
	Checksum uint8

	// Features holds MP feature information bytes 1-5.
	Features [5]byte
}

// DecodeFloatingPointer decodes the first FloatingPointerSize bytes of b.
func DecodeFloatingPointer(b []byte) (FloatingPointer, error) {
	if len(b) < FloatingPointerSize {
		return FloatingPointer{}, fmt.Errorf("%w: floating pointer needs %d bytes, have %d",
			ErrShortBuffer, FloatingPointerSize, len(b))
	}
	var p FloatingPointer
	copy(p.Signature[:], b[0:4])
	p.PhysAddr = le.Uint32(b[4:8])
	p.Length = b[8]
	p.SpecRev = b[9]
	p.Checksum = b[10]
	copy(p.Features[:], b[11:16])
	return p, nil
}

func (p *FloatingPointer) raw() [FloatingPointerSize]byte {
	var b [FloatingPointerSize]byte
	copy(b[0:4], p.Signature[:])
	le.PutUint32(b[4:8], p.PhysAddr)
	b[8] = p.Length
	b[9] = p.SpecRev
	b[10] = p.Checksum
	copy(b[11:16], p.Features[:])
	return b
}

func (p *FloatingPointer) VerifySignature() bool {
	return string(p.Signature[:]) == FloatingPointerSignature
}

// VerifyChecksum sums all sixteen bytes of the structure and accepts it when
// the low nibble of the sum is zero.
//
// Intel MP 1.4 requires the whole sum to be zero modulo 256, so this admits
// some corrupt structures. Existing consumers depend on which tables it
// accepts. VerifyStrictChecksum applies the MP 1.4 rule.
func (p *FloatingPointer) VerifyChecksum() bool {
	b := p.raw()
	return byteSum(b[:])&0x0f == 0
}

// VerifyStrictChecksum reports whether all bytes sum to zero modulo 256.
func (p *FloatingPointer) VerifyStrictChecksum() bool {
	b := p.raw()
	return checksumOK(b[:])
}

func (p *FloatingPointer) IsValid() bool {
	return p.VerifySignature() && p.VerifyChecksum()
}

// ByteLength returns the declared structure length in bytes.
func (p *FloatingPointer) ByteLength() int {
	return int(p.Length) * ParagraphSize
}

// HasConfigTable reports whether the pointer references a configuration
// table.
func (p *FloatingPointer) HasConfigTable() bool {
	return p.PhysAddr != 0
}

// DefaultConfiguration returns feature byte 1. Zero means a configuration
// table is present; any other value names a default configuration.
func (p *FloatingPointer) DefaultConfiguration() uint8 {
	return p.Features[0]
}

// IMCRPresent reports feature byte 2 bit 7 (PIC mode implemented).
func (p *FloatingPointer) IMCRPresent() bool {
	return p.Features[1]&0x80 != 0
}
