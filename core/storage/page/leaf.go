package page

import (
	"encoding/binary"
	"fmt"
	"slices"
	"sort"
)

// leafCellOverhead is the fixed part of a leaf cell: an 8-byte key and a
// 2-byte payload length, followed by the payload itself.
const leafCellOverhead = 10

// MaxCellPayload is the largest payload a leaf cell may carry. Capped at a
// third of the cell area so a page always holds at least three cells and
// one split always resolves one full page.
const MaxCellPayload = (Size-HeaderSize)/3 - leafCellOverhead

// LeafCell is one key and its row payload.
type LeafCell struct {
	Key     uint64
	Payload []byte
}

// Leaf is a decoded leaf node. Cells are kept sorted ascending by key.
// Next is the page number of the right sibling, 0 for the last leaf.
type Leaf struct {
	Next  uint32
	Cells []LeafCell

	// used tracks the encoded size, header included. It is the free-space
	// watermark that decides when an insert must split instead.
	used int
}

// NewLeaf returns an empty leaf node.
func NewLeaf() *Leaf {
	return &Leaf{used: HeaderSize}
}

func cellSize(c LeafCell) int {
	return leafCellOverhead + len(c.Payload)
}

// FreeSpace reports the bytes still available for cells.
func (l *Leaf) FreeSpace() int {
	return Size - l.used
}

// Find returns the position of key and whether it is present. When absent,
// the position is where an insert would place it.
func (l *Leaf) Find(key uint64) (int, bool) {
	idx := sort.Search(len(l.Cells), func(i int) bool { return l.Cells[i].Key >= key })
	return idx, idx < len(l.Cells) && l.Cells[idx].Key == key
}

// Insert places c at its sorted position. The caller has already checked
// that the key is absent. Fails with ErrPageFull, leaving the leaf
// untouched, when the encoded cell does not fit.
func (l *Leaf) Insert(c LeafCell) error {
	if l.used+cellSize(c) > Size {
		return fmt.Errorf("%w: leaf needs %d bytes, %d free", ErrPageFull, cellSize(c), l.FreeSpace())
	}
	idx, _ := l.Find(c.Key)
	l.Cells = slices.Insert(l.Cells, idx, c)
	l.used += cellSize(c)
	return nil
}

// Remove deletes the cell at idx.
func (l *Leaf) Remove(idx int) {
	l.used -= cellSize(l.Cells[idx])
	l.Cells = slices.Delete(l.Cells, idx, idx+1)
}

// LeafFromCells builds a leaf holding the given cells, which must be
// sorted. Fails with ErrPageFull if they exceed one page.
func LeafFromCells(cells []LeafCell) (*Leaf, error) {
	l := NewLeaf()
	for _, c := range cells {
		if err := l.Insert(c); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// SplitCells partitions a sorted cell sequence that overflowed one page
// into two runs balanced by byte size. With payloads capped at
// MaxCellPayload, both runs are guaranteed to fit a page each. The second
// run's first key is the separator for the parent.
func SplitCells(cells []LeafCell) ([]LeafCell, []LeafCell) {
	total := 0
	for _, c := range cells {
		total += cellSize(c)
	}

	mid := len(cells) - 1
	acc := 0
	for i, c := range cells {
		acc += cellSize(c)
		if acc >= (total+1)/2 {
			mid = i + 1
			break
		}
	}
	if mid > len(cells)-1 {
		mid = len(cells) - 1
	}
	return cells[:mid], cells[mid:]
}

// Encode serializes the leaf into a fresh page-sized buffer.
func (l *Leaf) Encode() ([]byte, error) {
	if l.used > Size {
		return nil, fmt.Errorf("%w: leaf holds %d bytes", ErrCorruptPage, l.used)
	}
	buf := make([]byte, Size)
	writeHeader(buf, header{
		kind:      KindLeaf,
		cellCount: uint16(len(l.Cells)),
		ptr0:      l.Next,
		ptr1:      uint32(l.used),
	})

	off := HeaderSize
	for _, c := range l.Cells {
		binary.LittleEndian.PutUint64(buf[off:], c.Key)
		binary.LittleEndian.PutUint16(buf[off+8:], uint16(len(c.Payload)))
		copy(buf[off+leafCellOverhead:], c.Payload)
		off += cellSize(c)
	}
	return buf, nil
}

// DecodeLeaf parses a leaf page. It walks every cell against the recorded
// end-of-cell-area offset, so truncated cells, keys out of order, and cell
// counts that overrun the page all surface as ErrCorruptPage.
func DecodeLeaf(buf []byte) (*Leaf, error) {
	h, err := readHeader(buf, KindLeaf)
	if err != nil {
		return nil, err
	}
	end := int(h.ptr1)
	if end < HeaderSize || end > Size {
		return nil, fmt.Errorf("%w: leaf cell area ends at %d", ErrCorruptPage, end)
	}

	l := NewLeaf()
	l.Next = h.ptr0
	off := HeaderSize
	for i := 0; i < int(h.cellCount); i++ {
		if off+leafCellOverhead > end {
			return nil, fmt.Errorf("%w: leaf cell %d overruns cell area", ErrCorruptPage, i)
		}
		key := binary.LittleEndian.Uint64(buf[off:])
		plen := int(binary.LittleEndian.Uint16(buf[off+8:]))
		if off+leafCellOverhead+plen > end {
			return nil, fmt.Errorf("%w: leaf cell %d payload overruns cell area", ErrCorruptPage, i)
		}
		if i > 0 && key <= l.Cells[i-1].Key {
			return nil, fmt.Errorf("%w: leaf keys out of order at cell %d", ErrCorruptPage, i)
		}
		payload := make([]byte, plen)
		copy(payload, buf[off+leafCellOverhead:])
		l.Cells = append(l.Cells, LeafCell{Key: key, Payload: payload})
		off += leafCellOverhead + plen
	}
	if off != end {
		return nil, fmt.Errorf("%w: leaf cell area ends at %d, header says %d", ErrCorruptPage, off, end)
	}
	l.used = end
	return l, nil
}
