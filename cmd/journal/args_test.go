// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/journal/internal/store"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

func TestParseID(t *testing.T) {
	id, err := parseID("17")
	require.NoError(t, err)
	assert.Equal(t, int64(17), id)

	for _, bad := range []string{"", "0", "-3", "1.5", "x"} {
		_, err := parseID(bad)
		assert.True(t, sigilerr.IsInvalidInput(err), "input %q", bad)
	}
}

func TestParseTime(t *testing.T) {
	ts, err := parseTime("2026-04-01T09:30:00Z", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC), ts.UTC())

	start, err := parseTime("2026-04-01", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.Local), start)

	end, err := parseTime("2026-04-01", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 4, 1, 23, 59, 59, 999999999, time.Local), end)

	_, err = parseTime("April 1st", false)
	assert.True(t, sigilerr.IsInvalidInput(err))
}

func TestScopeFilter(t *testing.T) {
	for scope, want := range map[string]*bool{"": nil, "all": nil} {
		got, err := scopeFilter(scope)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	personal, err := scopeFilter("personal")
	require.NoError(t, err)
	assert.True(t, *personal)

	project, err := scopeFilter("project")
	require.NoError(t, err)
	assert.False(t, *project)

	_, err = scopeFilter("team")
	assert.True(t, sigilerr.IsInvalidInput(err))
}

func TestEntryTypes(t *testing.T) {
	types, err := entryTypes([]string{"bug_fix", " milestone "})
	require.NoError(t, err)
	assert.Equal(t, []store.EntryType{store.EntryTypeBugFix, store.EntryTypeMilestone}, types)

	_, err = entryTypes([]string{"haiku"})
	assert.True(t, sigilerr.IsInvalidInput(err))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short text", preview("short\n  text", 20))
	assert.Equal(t, "abc...", preview("abcdef", 3))
}
