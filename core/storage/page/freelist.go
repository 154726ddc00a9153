package page

import (
	"encoding/binary"
	"fmt"
)

// MaxFreeListEntries is how many reclaimed page numbers fit in one
// free-list node.
const MaxFreeListEntries = (Size - HeaderSize) / 4

// FreeList is a decoded free-list node: a batch of reclaimed page numbers
// and the page number of the next node in the chain, 0 at the end.
type FreeList struct {
	Next  uint32
	Pages []uint32
}

// Full reports whether the node has no room for another entry.
func (f *FreeList) Full() bool {
	return len(f.Pages) >= MaxFreeListEntries
}

// Push appends a reclaimed page number. Fails with ErrPageFull when the
// node is at capacity.
func (f *FreeList) Push(n uint32) error {
	if f.Full() {
		return fmt.Errorf("%w: free-list node at %d entries", ErrPageFull, len(f.Pages))
	}
	f.Pages = append(f.Pages, n)
	return nil
}

// Pop removes and returns the most recently pushed page number.
func (f *FreeList) Pop() (uint32, bool) {
	if len(f.Pages) == 0 {
		return 0, false
	}
	last := len(f.Pages) - 1
	n := f.Pages[last]
	f.Pages = f.Pages[:last]
	return n, true
}

// Encode serializes the node into a fresh page-sized buffer.
func (f *FreeList) Encode() ([]byte, error) {
	if len(f.Pages) > MaxFreeListEntries {
		return nil, fmt.Errorf("%w: free-list node holds %d entries", ErrCorruptPage, len(f.Pages))
	}
	buf := make([]byte, Size)
	writeHeader(buf, header{
		kind:      KindFreeList,
		cellCount: uint16(len(f.Pages)),
		ptr0:      f.Next,
	})

	off := HeaderSize
	for _, n := range f.Pages {
		binary.LittleEndian.PutUint32(buf[off:], n)
		off += 4
	}
	return buf, nil
}

// DecodeFreeList parses a free-list page.
func DecodeFreeList(buf []byte) (*FreeList, error) {
	h, err := readHeader(buf, KindFreeList)
	if err != nil {
		return nil, err
	}
	if int(h.cellCount) > MaxFreeListEntries {
		return nil, fmt.Errorf("%w: free-list entry count %d exceeds capacity %d", ErrCorruptPage, h.cellCount, MaxFreeListEntries)
	}

	f := &FreeList{Next: h.ptr0}
	off := HeaderSize
	for i := 0; i < int(h.cellCount); i++ {
		f.Pages = append(f.Pages, binary.LittleEndian.Uint32(buf[off:]))
		off += 4
	}
	return f, nil
}
