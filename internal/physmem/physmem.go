// Package physmem exposes a window of physical memory, taken from a memory
// image or a device such as /dev/mem, as a byte region addressed by
// physical address.
package physmem

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

var (
	ErrOutOfRange  = errors.New("physmem: address outside region")
	ErrEmptyWindow = errors.New("physmem: empty window")
)

// Options selects the window to expose.
type Options struct {
	// Origin is the physical address of byte 0 of the file. It is 0 for
	// /dev/mem and for dumps taken from the bottom of memory.
	Origin int64

	// Start is the first physical address of the window. Zero means Origin.
	Start int64

	// Size is the window length. Zero means up to the end of the file,
	// which requires a regular file.
	Size int64
}

// Region is a read-only view of physical memory. Its methods are safe for
// concurrent use until Close.
type Region struct {
	data    []byte
	base    int64
	mapping []byte
}

// Open maps the requested window of path read-only. If mmap is unavailable
// the window is read into memory instead. The region must be closed to
// release any mapping.
func Open(path string, opts Options) (*Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	start := opts.Start
	if start == 0 {
		start = opts.Origin
	}
	if start < opts.Origin {
		return nil, fmt.Errorf("%w: start %#x below origin %#x", ErrOutOfRange, start, opts.Origin)
	}
	fileOff := start - opts.Origin

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := opts.Size
	if st.Mode().IsRegular() {
		// Touching a mapping past EOF faults, so clamp to the file.
		if remaining := st.Size() - fileOff; size == 0 || size > remaining {
			size = remaining
		}
	} else if size == 0 {
		return nil, fmt.Errorf("physmem: %s is not a regular file; a window size is required", path)
	}
	if size <= 0 {
		return nil, ErrEmptyWindow
	}
	if size > int64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("%w: window of %d bytes", ErrOutOfRange, size)
	}

	// mmap offsets must be page aligned.
	page := int64(os.Getpagesize())
	pad := fileOff % page
	mapping, err := unix.Mmap(int(f.Fd()), fileOff-pad, int(size+pad), unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		return &Region{data: mapping[pad:], base: start, mapping: mapping}, nil
	}

	// Fallback path that does not require mmap support.
	data := make([]byte, size)
	n, err := f.ReadAt(data, fileOff)
	if err != nil && !(errors.Is(err, io.EOF) && n > 0) {
		return nil, fmt.Errorf("physmem: read %s: %w", path, err)
	}
	return &Region{data: data[:n], base: start}, nil
}

// FromBytes wraps data as a region whose first byte sits at physical
// address base. data is used in place.
func FromBytes(data []byte, base int64) *Region {
	return &Region{data: data, base: base}
}

// Base returns the physical address of the first byte of the region.
func (r *Region) Base() int64 { return r.base }

// Len returns the region size in bytes.
func (r *Region) Len() int64 { return int64(len(r.data)) }

// Mapped reports whether the region is backed by an mmap.
func (r *Region) Mapped() bool { return r.mapping != nil }

// ReadAt copies from physical address addr. Reads that run off the end of
// the region return the bytes available and io.EOF.
func (r *Region) ReadAt(p []byte, addr int64) (int, error) {
	off, err := r.offset(addr)
	if err != nil {
		return 0, err
	}
	n := copy(p, r.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Slice returns n bytes at physical address addr without copying. The slice
// must not be retained after Close.
func (r *Region) Slice(addr, n int64) ([]byte, error) {
	off, err := r.offset(addr)
	if err != nil {
		return nil, err
	}
	if n < 0 || n > int64(len(r.data))-off {
		return nil, fmt.Errorf("%w: %d bytes at %#x", ErrOutOfRange, n, addr)
	}
	end := off + n
	return r.data[off:end:end], nil
}

func (r *Region) offset(addr int64) (int64, error) {
	if r == nil || r.data == nil {
		return 0, fmt.Errorf("%w: region closed", ErrOutOfRange)
	}
	off := addr - r.base
	if addr < r.base || off >= int64(len(r.data)) {
		return 0, fmt.Errorf("%w: %#x not in [%#x, %#x)", ErrOutOfRange, addr, r.base, r.base+int64(len(r.data)))
	}
	return off, nil
}

// Close releases the mapping, if any.
func (r *Region) Close() error {
	if r == nil {
		return nil
	}
	var err error
	if r.mapping != nil {
		err = unix.Munmap(r.mapping)
	}
	r.data = nil
	r.mapping = nil
	return err
}
