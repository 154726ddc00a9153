package record

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestEncodeDecodeRoundTrip serializes representative rows and parses them
// back, covering empty columns, multi-byte text, and both columns at their
// exact limits.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	rows := []Row{
		{ID: 1, Username: "alice", Email: "alice@example.com"},
		{ID: 42, Username: "", Email: ""},
		{ID: 7, Username: "żółw", Email: "żółw@example.pl"},
		{ID: 9223372036854775807, Username: strings.Repeat("u", MaxUsernameLen), Email: strings.Repeat("e", MaxEmailLen)},
	}

	for _, row := range rows {
		buf, err := Encode(row)
		require.NoError(t, err)
		require.LessOrEqual(t, len(buf), MaxEncodedSize)

		got, err := Decode(buf)
		require.NoError(t, err)
		require.Equal(t, row, got)
	}
}

// TestEncodeRejectsInvalidRows runs the validation gates: non-positive ids
// and columns over their byte limits must fail before any bytes are
// produced.
func TestEncodeRejectsInvalidRows(t *testing.T) {
	t.Run("zero id", func(t *testing.T) {
		_, err := Encode(Row{ID: 0, Username: "a", Email: "b"})
		require.ErrorIs(t, err, ErrInvalidRowID)
	})

	t.Run("negative id", func(t *testing.T) {
		_, err := Encode(Row{ID: -5, Username: "a", Email: "b"})
		require.ErrorIs(t, err, ErrInvalidRowID)
	})

	t.Run("username over limit", func(t *testing.T) {
		_, err := Encode(Row{ID: 1, Username: strings.Repeat("u", MaxUsernameLen+1)})
		require.ErrorIs(t, err, ErrFieldTooLong)
	})

	t.Run("email over limit", func(t *testing.T) {
		_, err := Encode(Row{ID: 1, Email: strings.Repeat("e", MaxEmailLen+1)})
		require.ErrorIs(t, err, ErrFieldTooLong)
	})

	t.Run("limits count bytes not runes", func(t *testing.T) {
		// 17 four-byte runes exceed the 32-byte username cap.
		_, err := Encode(Row{ID: 1, Username: strings.Repeat("🐢", 17)})
		require.ErrorIs(t, err, ErrFieldTooLong)
	})
}

// TestDecodeRejectsMalformedBytes feeds Decode every truncation point and a
// buffer with bytes left over, expecting ErrRowDecode for each.
func TestDecodeRejectsMalformedBytes(t *testing.T) {
	buf, err := Encode(Row{ID: 3, Username: "carol", Email: "carol@example.com"})
	require.NoError(t, err)

	cases := map[string][]byte{
		"empty":                     {},
		"shorter than the id":       buf[:5],
		"username prefix truncated": buf[:9],
		"username truncated":        buf[:12],
		"email prefix truncated":    buf[:8+2+5+1],
		"email truncated":           buf[:len(buf)-3],
		"trailing bytes":            append(append([]byte{}, buf...), 0x00),
	}

	for name, bad := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(bad)
			require.ErrorIs(t, err, ErrRowDecode)
		})
	}
}

// TestKeyMatchesID checks the tree key is the id bit pattern, which keeps
// positive ids in ascending scan order.
func TestKeyMatchesID(t *testing.T) {
	require.Equal(t, uint64(1), Row{ID: 1}.Key())
	require.Equal(t, uint64(9000), Row{ID: 9000}.Key())
	require.Less(t, Row{ID: 5}.Key(), Row{ID: 6}.Key())
}
