package mptable

import (
	"fmt"
	"iter"
)

// EntryIterator walks the base table entry stream. It is forward-only and
// cannot be restarted. Once Next returns false, Err reports whether the
// stream ended normally.
//
//	it := hdr.Entries(table)
//	for it.Next() {
//		e := it.Entry()
//		...
//	}
//	if err := it.Err(); err != nil {
//		...
//	}
type EntryIterator struct {
	data     []byte
	offset   int
	consumed int
	total    int

	cur Entry
	err error
}

// Next advances to the next entry. It returns false when EntryCount entries
// have been consumed or the stream is corrupt; corruption is terminal.
func (it *EntryIterator) Next() bool {
	if it.err != nil || it.consumed >= it.total {
		it.cur = Entry{}
		return false
	}
	if it.offset >= len(it.data) {
		return it.fail(fmt.Errorf("%w: entry %d at offset %d", ErrShortBuffer, it.consumed, it.offset))
	}

	typ := it.data[it.offset]
	code := ParseEntryCode(typ)
	n, err := code.Length()
	if err != nil {
		return it.fail(&UnknownEntryError{Code: typ, Index: it.consumed, Offset: it.offset})
	}

	end := it.offset + n
	if end > len(it.data) {
		return it.fail(fmt.Errorf("%w: %s entry %d at offset %d needs %d bytes, have %d",
			ErrShortBuffer, code, it.consumed, it.offset, n, len(it.data)-it.offset))
	}

	it.cur = Entry{Code: code, Offset: it.offset, raw: it.data[it.offset:end:end]}
	it.offset = end
	it.consumed++
	return true
}

func (it *EntryIterator) fail(err error) bool {
	it.err = err
	it.cur = Entry{}
	return false
}

// Entry returns the entry produced by the last successful Next.
func (it *EntryIterator) Entry() Entry {
	return it.cur
}

// Err returns the terminal error, or nil if the stream ended normally.
func (it *EntryIterator) Err() error {
	return it.err
}

func (it *EntryIterator) Consumed() int {
	return it.consumed
}

// Remaining returns how many entries the header still promises.
func (it *EntryIterator) Remaining() int {
	return it.total - it.consumed
}

// All adapts the iterator for range-over-func. A terminal error is yielded
// once, paired with a zero Entry, as the last element.
func (it *EntryIterator) All() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		for it.Next() {
			if !yield(it.cur, nil) {
				return
			}
		}
		if it.err != nil {
			yield(Entry{}, it.err)
		}
	}
}
