// Package record encodes the fixed-schema row a ShaleDB table stores: an
// integer primary key and two variable-length text columns. Rows are
// serialized with length-prefixed fields, so short values cost only their
// actual bytes.
package record

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Column limits, enforced at insert time. They keep the worst-case row
// small enough that a page always holds several cells.
const (
	MaxUsernameLen = 32
	MaxEmailLen    = 255
)

// MaxEncodedSize is the largest encoded row: the id, two length prefixes,
// and both columns at their caps.
const MaxEncodedSize = 8 + 2 + MaxUsernameLen + 2 + MaxEmailLen

var (
	// ErrRowDecode reports row bytes whose length prefixes disagree with
	// the data present.
	ErrRowDecode = errors.New("row decode failed")

	// ErrFieldTooLong reports a text column over its limit.
	ErrFieldTooLong = errors.New("field too long")

	// ErrInvalidRowID reports a non-positive primary key.
	ErrInvalidRowID = errors.New("row id must be positive")
)

// Row is one table row.
type Row struct {
	ID       int64
	Username string
	Email    string
}

// Key is the B-tree key the row is stored under.
func (r Row) Key() uint64 {
	return uint64(r.ID)
}

// Validate checks the primary key and the column limits.
func (r Row) Validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidRowID, r.ID)
	}
	if len(r.Username) > MaxUsernameLen {
		return fmt.Errorf("%w: username is %d bytes, limit %d", ErrFieldTooLong, len(r.Username), MaxUsernameLen)
	}
	if len(r.Email) > MaxEmailLen {
		return fmt.Errorf("%w: email is %d bytes, limit %d", ErrFieldTooLong, len(r.Email), MaxEmailLen)
	}
	return nil
}

// Encode serializes the row: id, then each column as a uint16 length
// prefix and its bytes. Fails if the row does not validate.
func Encode(r Row) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 8+2+len(r.Username)+2+len(r.Email))
	buf = binary.LittleEndian.AppendUint64(buf, r.Key())
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(r.Username)))
	buf = append(buf, r.Username...)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(r.Email)))
	buf = append(buf, r.Email...)
	return buf, nil
}

// Decode parses an encoded row. Truncated fields and trailing bytes both
// fail with ErrRowDecode.
func Decode(buf []byte) (Row, error) {
	if len(buf) < 8 {
		return Row{}, fmt.Errorf("%w: %d bytes is shorter than the id", ErrRowDecode, len(buf))
	}
	id := binary.LittleEndian.Uint64(buf)
	off := 8

	username, off, err := readField(buf, off, "username")
	if err != nil {
		return Row{}, err
	}
	email, off, err := readField(buf, off, "email")
	if err != nil {
		return Row{}, err
	}
	if off != len(buf) {
		return Row{}, fmt.Errorf("%w: %d trailing bytes", ErrRowDecode, len(buf)-off)
	}
	return Row{ID: int64(id), Username: username, Email: email}, nil
}

func readField(buf []byte, off int, name string) (string, int, error) {
	if off+2 > len(buf) {
		return "", 0, fmt.Errorf("%w: %s length prefix truncated", ErrRowDecode, name)
	}
	n := int(binary.LittleEndian.Uint16(buf[off:]))
	off += 2
	if off+n > len(buf) {
		return "", 0, fmt.Errorf("%w: %s needs %d bytes, %d left", ErrRowDecode, name, n, len(buf)-off)
	}
	return string(buf[off : off+n]), off + n, nil
}
