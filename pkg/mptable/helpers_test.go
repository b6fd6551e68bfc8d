package mptable

import "encoding/binary"

// pointerBytes builds a floating pointer whose checksum makes the byte sum
// zero modulo 256.
func pointerBytes(tableAddr uint32, features [5]byte) []byte {
	b := make([]byte, FloatingPointerSize)
	copy(b, FloatingPointerSignature)
	binary.LittleEndian.PutUint32(b[4:8], tableAddr)
	b[8] = 1
	b[9] = 4
	copy(b[11:], features[:])
	b[10] = fixSum(b)
	return b
}

// tableBytes builds a base table from raw entries and fixes its checksum.
func tableBytes(count int, entries ...[]byte) []byte {
	b := make([]byte, ConfigTableHeaderSize)
	copy(b, ConfigTableSignature)
	b[6] = 4
	copy(b[8:16], "OEMCORP ")
	copy(b[16:28], "BOARD-9000  ")
	binary.LittleEndian.PutUint16(b[34:36], uint16(count))
	binary.LittleEndian.PutUint32(b[36:40], 0xfee00000)
	for _, e := range entries {
		b = append(b, e...)
	}
	binary.LittleEndian.PutUint16(b[4:6], uint16(len(b)))
	b[7] = fixSum(b)
	return b
}

func fixSum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v
	}
	return -sum
}

func processorBytes(apicID, flags uint8) []byte {
	b := make([]byte, ProcessorEntrySize)
	b[0] = byte(EntryProcessor)
	b[1] = apicID
	b[2] = 0x14
	b[3] = flags
	binary.LittleEndian.PutUint16(b[4:6], 0x0633)
	binary.LittleEndian.PutUint32(b[8:12], 0x0781abfd)
	return b
}

func busBytes(id uint8, name string) []byte {
	b := []byte{byte(EntryBus), id, ' ', ' ', ' ', ' ', ' ', ' '}
	copy(b[2:], name)
	return b
}

func ioapicBytes(id uint8, addr uint32) []byte {
	b := []byte{byte(EntryIOAPIC), id, 0x11, IOAPICFlagUsable, 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(b[4:], addr)
	return b
}

func interruptBytes(code EntryCode, typ InterruptType, mode, bus, irq, dest, pin uint8) []byte {
	return []byte{byte(code), byte(typ), mode, 0, bus, irq, dest, pin}
}
