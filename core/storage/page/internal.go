package page

import (
	"encoding/binary"
	"fmt"
	"slices"
	"sort"
)

// internalCellSize is one separator key plus one child page number.
const internalCellSize = 12

// MaxInternalCells is how many separator cells fit in one internal page.
const MaxInternalCells = (Size - HeaderSize) / internalCellSize

// InternalCell pairs a separator with the child holding keys strictly
// below it. A separator always equals the first key stored under the child
// to its right, so equal keys route right.
type InternalCell struct {
	Separator uint64
	Child     uint32
}

// Internal is a decoded internal node: sorted separator cells plus the
// rightmost child, which holds keys at or above the last separator.
type Internal struct {
	Rightmost uint32
	Cells     []InternalCell
}

// ChildFor returns the child page to descend into for key.
func (n *Internal) ChildFor(key uint64) uint32 {
	idx := sort.Search(len(n.Cells), func(i int) bool { return n.Cells[i].Separator > key })
	if idx == len(n.Cells) {
		return n.Rightmost
	}
	return n.Cells[idx].Child
}

// FirstChild returns the leftmost child page.
func (n *Internal) FirstChild() uint32 {
	if len(n.Cells) > 0 {
		return n.Cells[0].Child
	}
	return n.Rightmost
}

// InsertSplit records a child split: left keeps its page and the keys below
// sep, right is the new page at or above sep. The slot that referred to the
// split page moves to right and a new (sep, left) cell lands before it.
// Fails with ErrPageFull, leaving the node untouched, when no cell slot is
// free.
func (n *Internal) InsertSplit(sep uint64, left, right uint32) error {
	if len(n.Cells) >= MaxInternalCells {
		return fmt.Errorf("%w: internal node at %d cells", ErrPageFull, len(n.Cells))
	}
	idx := sort.Search(len(n.Cells), func(i int) bool { return n.Cells[i].Separator > sep })
	n.Cells = slices.Insert(n.Cells, idx, InternalCell{Separator: sep, Child: left})
	if idx+1 == len(n.Cells) {
		n.Rightmost = right
	} else {
		n.Cells[idx+1].Child = right
	}
	return nil
}

// Split moves the upper half of the cells into a new right node and
// promotes the middle separator, which belongs to neither half afterwards.
// Returns the new node and the promoted separator.
func (n *Internal) Split() (*Internal, uint64) {
	mid := len(n.Cells) / 2
	promoted := n.Cells[mid].Separator

	right := &Internal{Rightmost: n.Rightmost}
	right.Cells = append(right.Cells, n.Cells[mid+1:]...)

	n.Rightmost = n.Cells[mid].Child
	n.Cells = n.Cells[:mid]
	return right, promoted
}

// RemoveChild drops the reference to child, reporting whether it was
// present. Dropping the rightmost promotes the last cell's child in its
// place; dropping the last reference leaves the node with no children.
func (n *Internal) RemoveChild(child uint32) bool {
	if n.Rightmost == child {
		if len(n.Cells) == 0 {
			n.Rightmost = 0
			return true
		}
		last := len(n.Cells) - 1
		n.Rightmost = n.Cells[last].Child
		n.Cells = n.Cells[:last]
		return true
	}
	for i, c := range n.Cells {
		if c.Child == child {
			n.Cells = slices.Delete(n.Cells, i, i+1)
			return true
		}
	}
	return false
}

// Empty reports whether the node has no children left.
func (n *Internal) Empty() bool {
	return n.Rightmost == 0 && len(n.Cells) == 0
}

// Encode serializes the node into a fresh page-sized buffer.
func (n *Internal) Encode() ([]byte, error) {
	if len(n.Cells) > MaxInternalCells {
		return nil, fmt.Errorf("%w: internal node holds %d cells", ErrCorruptPage, len(n.Cells))
	}
	buf := make([]byte, Size)
	writeHeader(buf, header{
		kind:      KindInternal,
		cellCount: uint16(len(n.Cells)),
		ptr0:      n.Rightmost,
	})

	off := HeaderSize
	for _, c := range n.Cells {
		binary.LittleEndian.PutUint64(buf[off:], c.Separator)
		binary.LittleEndian.PutUint32(buf[off+8:], c.Child)
		off += internalCellSize
	}
	return buf, nil
}

// DecodeInternal parses an internal page, rejecting cell counts past the
// page capacity and separators out of order.
func DecodeInternal(buf []byte) (*Internal, error) {
	h, err := readHeader(buf, KindInternal)
	if err != nil {
		return nil, err
	}
	if int(h.cellCount) > MaxInternalCells {
		return nil, fmt.Errorf("%w: internal cell count %d exceeds capacity %d", ErrCorruptPage, h.cellCount, MaxInternalCells)
	}

	n := &Internal{Rightmost: h.ptr0}
	off := HeaderSize
	for i := 0; i < int(h.cellCount); i++ {
		c := InternalCell{
			Separator: binary.LittleEndian.Uint64(buf[off:]),
			Child:     binary.LittleEndian.Uint32(buf[off+8:]),
		}
		if i > 0 && c.Separator <= n.Cells[i-1].Separator {
			return nil, fmt.Errorf("%w: internal separators out of order at cell %d", ErrCorruptPage, i)
		}
		n.Cells = append(n.Cells, c)
		off += internalCellSize
	}
	return n, nil
}
