// Package page implements the on-disk page format of a ShaleDB database
// file. A file is an array of fixed-size pages. Page 0 is the meta page;
// every other page starts with a common header:
//
//	offset 0  kind       byte    (leaf, internal, or free-list)
//	offset 1  cell count uint16
//	offset 3  pointer 0  uint32
//	offset 7  pointer 1  uint32
//
// The two pointer slots are repurposed per kind: a leaf stores its right
// sibling and its end-of-cell-area offset, an internal node stores its
// rightmost child, a free-list node stores the next node in the chain.
// All integers are little-endian. Page number 0 never refers to a real
// page (it is the meta page), so 0 doubles as the nil pointer.
package page

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Size is one page of the database file. Fixed at build time; a file
// written with a different size is rejected when opened.
const Size = 4096

// HeaderSize is the byte length of the common page header.
const HeaderSize = 11

// Page kinds, stored in the first header byte. Zero is deliberately not a
// valid kind so an all-zero page reads as corrupt rather than as an empty
// node.
const (
	KindLeaf     byte = 1
	KindInternal byte = 2
	KindFreeList byte = 3
)

var (
	// ErrCorruptPage reports page bytes that do not decode: an unknown
	// kind tag, or cell geometry that escapes the page.
	ErrCorruptPage = errors.New("corrupt page")

	// ErrPageFull reports an insertion that does not fit the page. It is
	// an internal signal that drives node splits and never escapes the
	// tree layer.
	ErrPageFull = errors.New("page full")
)

const (
	offKind      = 0
	offCellCount = 1
	offPtr0      = 3
	offPtr1      = 7
)

// KindOf returns the kind tag of an encoded page without decoding it.
func KindOf(buf []byte) byte {
	if len(buf) < 1 {
		return 0
	}
	return buf[offKind]
}

type header struct {
	kind      byte
	cellCount uint16
	ptr0      uint32
	ptr1      uint32
}

func writeHeader(buf []byte, h header) {
	buf[offKind] = h.kind
	binary.LittleEndian.PutUint16(buf[offCellCount:], h.cellCount)
	binary.LittleEndian.PutUint32(buf[offPtr0:], h.ptr0)
	binary.LittleEndian.PutUint32(buf[offPtr1:], h.ptr1)
}

func readHeader(buf []byte, wantKind byte) (header, error) {
	if len(buf) != Size {
		return header{}, fmt.Errorf("%w: page buffer is %d bytes, want %d", ErrCorruptPage, len(buf), Size)
	}
	h := header{
		kind:      buf[offKind],
		cellCount: binary.LittleEndian.Uint16(buf[offCellCount:]),
		ptr0:      binary.LittleEndian.Uint32(buf[offPtr0:]),
		ptr1:      binary.LittleEndian.Uint32(buf[offPtr1:]),
	}
	if h.kind != wantKind {
		return header{}, fmt.Errorf("%w: kind tag %d, want %d", ErrCorruptPage, h.kind, wantKind)
	}
	return h, nil
}
