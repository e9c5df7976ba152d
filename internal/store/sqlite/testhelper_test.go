// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sigil-dev/journal/internal/store/sqlite"
	"github.com/stretchr/testify/require"
)

// testDir creates a temp directory for a test and returns cleanup func.
func testDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "journal-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// testDBPath returns a temp SQLite database path.
func testDBPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(testDir(t), name+".db")
}

// newJournalStore opens a fresh store whose clock advances one second per call,
// so entries created in sequence have strictly increasing timestamps.
func newJournalStore(t *testing.T) *sqlite.JournalStore {
	t.Helper()
	js, err := sqlite.NewJournalStore(testDBPath(t, "journal"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = js.Close() })

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	js.SetNowFunc(func() time.Time {
		now = now.Add(time.Second)
		return now
	})
	return js
}

func ptr[T any](v T) *T { return &v }
