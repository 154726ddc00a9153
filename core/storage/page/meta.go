package page

import (
	"encoding/binary"
	"fmt"
)

// Magic identifies a ShaleDB file. Reads "SHAL" when the first four bytes
// of the file are viewed as ASCII.
const Magic uint32 = 0x4C414853

// Meta is page 0 of the file: the magic number, the page number of the
// B-tree root, the total page count (file length in pages), and the head
// of the free-list chain (0 when no pages are free).
type Meta struct {
	Root         uint32
	PageCount    uint32
	FreeListHead uint32
}

// Encode serializes the meta page into a fresh page-sized buffer.
func (m Meta) Encode() []byte {
	buf := make([]byte, Size)
	binary.LittleEndian.PutUint32(buf[0:], Magic)
	binary.LittleEndian.PutUint32(buf[4:], m.Root)
	binary.LittleEndian.PutUint32(buf[8:], m.PageCount)
	binary.LittleEndian.PutUint32(buf[12:], m.FreeListHead)
	return buf
}

// DecodeMeta parses page 0, verifying the magic number and that the root
// and free-list head lie inside the file.
func DecodeMeta(buf []byte) (Meta, error) {
	if len(buf) != Size {
		return Meta{}, fmt.Errorf("%w: meta page buffer is %d bytes, want %d", ErrCorruptPage, len(buf), Size)
	}
	if got := binary.LittleEndian.Uint32(buf[0:]); got != Magic {
		return Meta{}, fmt.Errorf("%w: magic 0x%08x, want 0x%08x", ErrCorruptPage, got, Magic)
	}
	m := Meta{
		Root:         binary.LittleEndian.Uint32(buf[4:]),
		PageCount:    binary.LittleEndian.Uint32(buf[8:]),
		FreeListHead: binary.LittleEndian.Uint32(buf[12:]),
	}
	if m.PageCount < 2 {
		return Meta{}, fmt.Errorf("%w: page count %d, a database holds at least the meta page and the root", ErrCorruptPage, m.PageCount)
	}
	if m.Root == 0 || m.Root >= m.PageCount {
		return Meta{}, fmt.Errorf("%w: root page %d out of range", ErrCorruptPage, m.Root)
	}
	if m.FreeListHead >= m.PageCount {
		return Meta{}, fmt.Errorf("%w: free-list head %d out of range", ErrCorruptPage, m.FreeListHead)
	}
	return m, nil
}
