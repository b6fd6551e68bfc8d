package mptable

import "fmt"

// EntryCode is the leading type byte of a base table entry.
type EntryCode uint8

const (
	EntryProcessor EntryCode = iota
	EntryBus
	EntryIOAPIC
	EntryIOInterrupt
	EntryLocalInterrupt

	// EntryUnknown stands for every type byte the base table does not
	// define.
	EntryUnknown
)

// Fixed entry lengths in bytes.
const (
	ProcessorEntrySize      = 20
	BusEntrySize            = 8
	IOAPICEntrySize         = 8
	IOInterruptEntrySize    = 8
	LocalInterruptEntrySize = 8
)

// ParseEntryCode classifies a type byte.
func ParseEntryCode(b byte) EntryCode {
	if b >= byte(EntryUnknown) {
		return EntryUnknown
	}
	return EntryCode(b)
}

// Length returns the fixed byte length of entries with this code. The
// length of EntryUnknown is undefined and reported as ErrUnknownEntry.
func (c EntryCode) Length() (int, error) {
	switch c {
	case EntryProcessor:
		return ProcessorEntrySize, nil
	case EntryBus:
		return BusEntrySize, nil
	case EntryIOAPIC:
		return IOAPICEntrySize, nil
	case EntryIOInterrupt:
		return IOInterruptEntrySize, nil
	case EntryLocalInterrupt:
		return LocalInterruptEntrySize, nil
	default:
		return 0, ErrUnknownEntry
	}
}

func (c EntryCode) String() string {
	switch c {
	case EntryProcessor:
		return "processor"
	case EntryBus:
		return "bus"
	case EntryIOAPIC:
		return "ioapic"
	case EntryIOInterrupt:
		return "io_interrupt"
	case EntryLocalInterrupt:
		return "local_interrupt"
	case EntryUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("EntryCode(%d)", uint8(c))
	}
}

// Entry is one classified base table entry. It borrows its bytes from the
// table passed to ConfigTableHeader.Entries.
type Entry struct {
	Code EntryCode

	// Offset is relative to the first entry.
	Offset int

	raw []byte
}

// Bytes returns the entry's window of the table. The slice aliases the
// table and must not be modified.
func (e Entry) Bytes() []byte {
	return e.raw
}

func (e Entry) AsProcessor() (ProcessorEntry, bool) {
	if e.Code != EntryProcessor || len(e.raw) < ProcessorEntrySize {
		return ProcessorEntry{}, false
	}
	return decodeProcessor(e.raw), true
}

func (e Entry) AsBus() (BusEntry, bool) {
	if e.Code != EntryBus || len(e.raw) < BusEntrySize {
		return BusEntry{}, false
	}
	return decodeBus(e.raw), true
}

func (e Entry) AsIOAPIC() (IOAPICEntry, bool) {
	if e.Code != EntryIOAPIC || len(e.raw) < IOAPICEntrySize {
		return IOAPICEntry{}, false
	}
	return decodeIOAPIC(e.raw), true
}

func (e Entry) AsIOInterruptAssignment() (IOInterruptEntry, bool) {
	if e.Code != EntryIOInterrupt || len(e.raw) < IOInterruptEntrySize {
		return IOInterruptEntry{}, false
	}
	return IOInterruptEntry{decodeInterrupt(e.raw)}, true
}

func (e Entry) AsLocalInterruptAssignment() (LocalInterruptEntry, bool) {
	if e.Code != EntryLocalInterrupt || len(e.raw) < LocalInterruptEntrySize {
		return LocalInterruptEntry{}, false
	}
	return LocalInterruptEntry{decodeInterrupt(e.raw)}, true
}
