package mptable

import "strings"

// Processor entry flag bits.
const (
	ProcessorFlagEnabled = 1 << 0
	ProcessorFlagBoot    = 1 << 1
)

// ProcessorEntry describes one processor and its local APIC. Bytes 12-19 of
// the entry are reserved.
type ProcessorEntry struct {
	EntryType        uint8
	LocalAPICID      uint8
	LocalAPICVersion uint8
	Flags            uint8

	// CPUSignature packs stepping, model and family in bits 0-3, 4-7 and
	// 8-11.
	CPUSignature uint16
	Reserved     [2]byte

	// FeatureFlags mirrors CPUID leaf 1 EDX.
	FeatureFlags uint32
}

func decodeProcessor(b []byte) ProcessorEntry {
	return ProcessorEntry{
		EntryType:        b[0],
		LocalAPICID:      b[1],
		LocalAPICVersion: b[2],
		Flags:            b[3],
		CPUSignature:     le.Uint16(b[4:6]),
		Reserved:         [2]byte{b[6], b[7]},
		FeatureFlags:     le.Uint32(b[8:12]),
	}
}

// Enabled reports whether the operating system may use this processor.
func (p ProcessorEntry) Enabled() bool { return p.Flags&ProcessorFlagEnabled != 0 }

// BootProcessor reports whether this is the bootstrap processor.
func (p ProcessorEntry) BootProcessor() bool { return p.Flags&ProcessorFlagBoot != 0 }

func (p ProcessorEntry) Stepping() uint8 { return uint8(p.CPUSignature & 0x0f) }
func (p ProcessorEntry) Model() uint8    { return uint8(p.CPUSignature>>4) & 0x0f }
func (p ProcessorEntry) Family() uint8   { return uint8(p.CPUSignature>>8) & 0x0f }

// BusEntry identifies one bus and its type.
type BusEntry struct {
	EntryType uint8
	BusID     uint8

	// BusType is a space-padded ASCII name such as "PCI   " or "ISA   ".
	BusType [6]byte
}

func decodeBus(b []byte) BusEntry {
	e := BusEntry{EntryType: b[0], BusID: b[1]}
	copy(e.BusType[:], b[2:8])
	return e
}

// TypeString returns BusType without padding.
func (b BusEntry) TypeString() string {
	return strings.TrimRight(string(b.BusType[:]), " \x00")
}

// IOAPICFlagUsable marks an I/O APIC the operating system may use.
const IOAPICFlagUsable = 1 << 0

type IOAPICEntry struct {
	EntryType uint8
	ID        uint8
	Version   uint8
	Flags     uint8

	// Address is the physical base address of the I/O APIC registers.
	Address uint32
}

func decodeIOAPIC(b []byte) IOAPICEntry {
	return IOAPICEntry{
		EntryType: b[0],
		ID:        b[1],
		Version:   b[2],
		Flags:     b[3],
		Address:   le.Uint32(b[4:8]),
	}
}

func (e IOAPICEntry) Usable() bool { return e.Flags&IOAPICFlagUsable != 0 }

// InterruptType is the kind of interrupt an assignment entry routes.
type InterruptType uint8

const (
	InterruptINT InterruptType = iota
	InterruptNMI
	InterruptSMI
	InterruptExtINT
)

func (t InterruptType) String() string {
	switch t {
	case InterruptINT:
		return "INT"
	case InterruptNMI:
		return "NMI"
	case InterruptSMI:
		return "SMI"
	case InterruptExtINT:
		return "ExtINT"
	default:
		return "reserved"
	}
}

// Polarity and Trigger values carried in InterruptAssignment.IntMode.
const (
	ModeConforms    = 0
	ModeActiveHigh  = 1
	ModeActiveLow   = 3
	ModeEdge        = 1
	ModeLevel       = 3
	modeFieldMask   = 0x03
	modeTriggerBits = 2
)

// InterruptAssignment is the layout shared by I/O and local interrupt
// assignment entries.
type InterruptAssignment struct {
	EntryType     uint8
	InterruptType InterruptType

	// IntMode holds polarity in bits 0-1 and trigger mode in bits 2-3.
	IntMode  uint8
	Reserved uint8

	SourceBusID  uint8
	SourceBusIRQ uint8

	// DestAPICID is the destination APIC (0xFF means all local APICs for
	// local assignments); DestINTIN is its input pin.
	DestAPICID uint8
	DestINTIN  uint8
}

func decodeInterrupt(b []byte) InterruptAssignment {
	return InterruptAssignment{
		EntryType:     b[0],
		InterruptType: InterruptType(b[1]),
		IntMode:       b[2],
		Reserved:      b[3],
		SourceBusID:   b[4],
		SourceBusIRQ:  b[5],
		DestAPICID:    b[6],
		DestINTIN:     b[7],
	}
}

// Polarity returns one of ModeConforms, ModeActiveHigh or ModeActiveLow
// (2 is reserved).
func (a InterruptAssignment) Polarity() uint8 {
	return a.IntMode & modeFieldMask
}

// Trigger returns one of ModeConforms, ModeEdge or ModeLevel (2 is
// reserved).
func (a InterruptAssignment) Trigger() uint8 {
	return (a.IntMode >> modeTriggerBits) & modeFieldMask
}

// IOInterruptEntry routes a bus interrupt source to an I/O APIC input.
type IOInterruptEntry struct {
	InterruptAssignment
}

// LocalInterruptEntry routes an interrupt source to a local APIC LINTIN
// pin.
type LocalInterruptEntry struct {
	InterruptAssignment
}
