package mptable

import (
	"errors"
	"fmt"
	"io"
)

// Slicer is implemented by address spaces that can lend a window of their
// backing memory. Read uses it instead of copying when available.
type Slicer interface {
	Slice(addr, n int64) ([]byte, error)
}

// ReadOptions controls validation during Read and ReadTable.
type ReadOptions struct {
	// StrictChecksum applies the modulo-256 rule to the floating pointer
	// and the whole base table instead of the historical checks.
	StrictChecksum bool
}

// Config is a validated floating pointer and configuration table.
type Config struct {
	// PointerAddr is zero when the table was read directly by address.
	PointerAddr int64
	Pointer     FloatingPointer

	TableAddr int64
	Header    ConfigTableHeader

	// Table holds BaseTableLength bytes starting at the header.
	Table []byte
}

// Entries returns a fresh iterator over the table's base entries.
func (c *Config) Entries() *EntryIterator {
	return c.Header.Entries(c.Table)
}

// Read decodes the floating pointer at pointerAddr and the configuration
// table it references. r is addressed by physical address.
func Read(r io.ReaderAt, pointerAddr int64, opts ReadOptions) (*Config, error) {
	var raw [FloatingPointerSize]byte
	if err := readFull(r, raw[:], pointerAddr); err != nil {
		return nil, fmt.Errorf("read floating pointer at %#x: %w", pointerAddr, err)
	}
	fp, err := DecodeFloatingPointer(raw[:])
	if err != nil {
		return nil, err
	}
	if !fp.VerifySignature() {
		return nil, fmt.Errorf("%w: floating pointer at %#x reads %q", ErrInvalidSignature, pointerAddr, fp.Signature[:])
	}
	sumOK := fp.VerifyChecksum()
	if opts.StrictChecksum {
		sumOK = fp.VerifyStrictChecksum()
	}
	if !sumOK {
		return nil, fmt.Errorf("%w: floating pointer at %#x", ErrInvalidChecksum, pointerAddr)
	}
	if !fp.HasConfigTable() {
		return nil, fmt.Errorf("%w: default configuration %d", ErrNoConfigTable, fp.DefaultConfiguration())
	}

	cfg, err := ReadTable(r, int64(fp.PhysAddr), opts)
	if err != nil {
		return nil, err
	}
	cfg.PointerAddr = pointerAddr
	cfg.Pointer = fp
	return cfg, nil
}

// ReadTable decodes the configuration table at tableAddr without a floating
// pointer.
func ReadTable(r io.ReaderAt, tableAddr int64, opts ReadOptions) (*Config, error) {
	var raw [ConfigTableHeaderSize]byte
	if err := readFull(r, raw[:], tableAddr); err != nil {
		return nil, fmt.Errorf("read table header at %#x: %w", tableAddr, err)
	}
	hdr, err := DecodeConfigTableHeader(raw[:])
	if err != nil {
		return nil, err
	}
	if !hdr.VerifySignature() {
		return nil, fmt.Errorf("%w: table at %#x reads %q", ErrInvalidSignature, tableAddr, hdr.Signature[:])
	}
	if hdr.BaseTableLength < ConfigTableHeaderSize {
		return nil, fmt.Errorf("%w: base table length %d is smaller than the header", ErrShortBuffer, hdr.BaseTableLength)
	}

	table, err := borrow(r, tableAddr, int64(hdr.BaseTableLength))
	if err != nil {
		return nil, fmt.Errorf("read table at %#x: %w", tableAddr, err)
	}

	sumOK := hdr.VerifyChecksum()
	if opts.StrictChecksum {
		sumOK = hdr.VerifyTableChecksum(table)
	}
	if !sumOK {
		return nil, fmt.Errorf("%w: table at %#x", ErrInvalidChecksum, tableAddr)
	}

	return &Config{
		TableAddr: tableAddr,
		Header:    hdr,
		Table:     table,
	}, nil
}

func borrow(r io.ReaderAt, addr, n int64) ([]byte, error) {
	if s, ok := r.(Slicer); ok {
		return s.Slice(addr, n)
	}
	buf := make([]byte, n)
	if err := readFull(r, buf, addr); err != nil {
		return nil, err
	}
	return buf, nil
}

func readFull(r io.ReaderAt, p []byte, addr int64) error {
	n, err := r.ReadAt(p, addr)
	if n == len(p) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: got %d of %d bytes", ErrShortBuffer, n, len(p))
	}
	return err
}
