package query

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shaledb/shale/core/engine"
	"github.com/shaledb/shale/core/storage/record"
)

// --- Test Helpers ---

// setupExecutor opens a fresh database and wraps it in an executor.
func setupExecutor(t *testing.T) *Executor {
	t.Helper()
	path := filepath.Join(t.TempDir(), "exec.db")
	eng, err := engine.Open(path, engine.Config{NoSync: true})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, eng.Close()) })

	return NewExecutor(eng, nil, nil)
}

// mustExec runs a statement that is expected to succeed.
func mustExec(t *testing.T, exec *Executor, stmt string) *Result {
	t.Helper()
	res, err := exec.Execute(stmt)
	require.NoError(t, err, "statement: %s", stmt)
	return res
}

// --- Test Cases ---

// TestExecuteInsertSelect runs the whole happy path through SQL text:
// out-of-order inserts, a full scan in id order, a point lookup, and a
// lookup that matches nothing.
func TestExecuteInsertSelect(t *testing.T) {
	exec := setupExecutor(t)

	// 1. Insert three rows, ids out of order.
	for _, stmt := range []string{
		"INSERT INTO users VALUES (1, 'a', 'x')",
		"INSERT INTO users VALUES (3, 'b', 'y')",
		"INSERT INTO users VALUES (2, 'c', 'z')",
	} {
		res := mustExec(t, exec, stmt)
		require.Equal(t, 1, res.RowsAffected)
		require.Nil(t, res.Rows)
	}

	// 2. A full scan comes back sorted by id.
	res := mustExec(t, exec, "SELECT * FROM users")
	require.Equal(t, []record.Row{
		{ID: 1, Username: "a", Email: "x"},
		{ID: 2, Username: "c", Email: "z"},
		{ID: 3, Username: "b", Email: "y"},
	}, res.Rows)

	// 3. Point lookups, hit and miss. A miss is an empty result, not an
	// error.
	res = mustExec(t, exec, "SELECT * FROM users WHERE id = 2")
	require.Equal(t, []record.Row{{ID: 2, Username: "c", Email: "z"}}, res.Rows)

	res = mustExec(t, exec, "SELECT * FROM users WHERE id = 5")
	require.NotNil(t, res.Rows)
	require.Empty(t, res.Rows)
}

// TestExecuteDelete checks DELETE reports one affected row when it matches
// and zero when it does not, without erroring either way.
func TestExecuteDelete(t *testing.T) {
	exec := setupExecutor(t)

	mustExec(t, exec, "INSERT INTO users VALUES (1, 'a', 'x')")
	mustExec(t, exec, "INSERT INTO users VALUES (2, 'b', 'y')")

	res := mustExec(t, exec, "DELETE FROM users WHERE id = 1")
	require.Equal(t, 1, res.RowsAffected)

	res = mustExec(t, exec, "DELETE FROM users WHERE id = 1")
	require.Zero(t, res.RowsAffected)

	res = mustExec(t, exec, "SELECT * FROM users")
	require.Equal(t, []record.Row{{ID: 2, Username: "b", Email: "y"}}, res.Rows)
}

// TestExecuteSurfacesEngineErrors drives the error paths end to end:
// malformed SQL, duplicate ids, and column limits all surface through
// Execute with their sentinel intact.
func TestExecuteSurfacesEngineErrors(t *testing.T) {
	exec := setupExecutor(t)

	mustExec(t, exec, "INSERT INTO users VALUES (1, 'a', 'x')")

	t.Run("syntax error", func(t *testing.T) {
		_, err := exec.Execute("SELECT FROM WHERE")
		require.ErrorIs(t, err, ErrSyntax)
	})

	t.Run("duplicate id", func(t *testing.T) {
		_, err := exec.Execute("INSERT INTO users VALUES (1, 'b', 'y')")
		require.ErrorIs(t, err, engine.ErrDuplicateKey)
	})

	t.Run("invalid id", func(t *testing.T) {
		_, err := exec.Execute("INSERT INTO users VALUES (0, 'b', 'y')")
		require.ErrorIs(t, err, engine.ErrInvalidRowID)

		_, err = exec.Execute("INSERT INTO users VALUES (-4, 'b', 'y')")
		require.ErrorIs(t, err, engine.ErrInvalidRowID)
	})

	t.Run("oversized column", func(t *testing.T) {
		stmt := fmt.Sprintf("INSERT INTO users VALUES (9, '%s', 'y')",
			strings.Repeat("u", record.MaxUsernameLen+1))
		_, err := exec.Execute(stmt)
		require.ErrorIs(t, err, engine.ErrFieldTooLong)
	})
}
