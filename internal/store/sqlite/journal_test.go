// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/sigil-dev/journal/internal/store"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	js := newJournalStore(t)

	created, err := js.Create(ctx, &store.NewEntry{
		Content:      "Shipped the importer",
		EntryType:    store.EntryTypeFeatureImplementation,
		IsPersonal:   false,
		Significance: store.SignificanceMilestone,
		Tags:         []string{"Importer", "release", "importer"},
		CrossRefs: store.CrossRefs{
			ProjectNumber: ptr(int64(3)),
			PRNumber:      ptr(int64(42)),
			PRStatus:      store.PRStatusMerged,
			PRURL:         "https://example.test/pr/42",
		},
	})
	require.NoError(t, err)
	assert.Positive(t, created.ID)

	got, err := js.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shipped the importer", got.Content)
	assert.Equal(t, store.EntryTypeFeatureImplementation, got.EntryType)
	assert.False(t, got.IsPersonal)
	assert.Equal(t, store.SignificanceMilestone, got.Significance)
	assert.Equal(t, []string{"importer", "release"}, got.Tags)
	require.NotNil(t, got.CrossRefs.PRNumber)
	assert.Equal(t, int64(42), *got.CrossRefs.PRNumber)
	assert.Equal(t, store.PRStatusMerged, got.CrossRefs.PRStatus)
	assert.Nil(t, got.CrossRefs.IssueNumber)
	assert.Nil(t, got.DeletedAt)
	assert.Equal(t, created.Timestamp, got.Timestamp)
}

func TestJournalStore_CreateDefaults(t *testing.T) {
	ctx := context.Background()
	js := newJournalStore(t)

	e, err := js.Create(ctx, &store.NewEntry{Content: "thinking out loud", IsPersonal: true})
	require.NoError(t, err)
	assert.Equal(t, store.EntryTypePersonalReflection, e.EntryType)
	assert.Empty(t, e.Tags)
	assert.False(t, e.Timestamp.IsZero())
}

func TestJournalStore_CreateKeepsExplicitTimestamp(t *testing.T) {
	ctx := context.Background()
	js := newJournalStore(t)

	ts := time.Date(2025, 12, 24, 18, 30, 0, 123, time.UTC)
	e, err := js.Create(ctx, &store.NewEntry{Content: "backfilled", Timestamp: ts})
	require.NoError(t, err)
	assert.True(t, ts.Equal(e.Timestamp))
}

func TestJournalStore_CreateValidation(t *testing.T) {
	ctx := context.Background()
	js := newJournalStore(t)

	_, err := js.Create(ctx, &store.NewEntry{Content: ""})
	require.Error(t, err)
	assert.True(t, sigilerr.IsInvalidInput(err))

	_, err = js.Create(ctx, nil)
	require.Error(t, err)
	assert.True(t, sigilerr.IsInvalidInput(err))
}

func TestJournalStore_InvalidTagLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	js := newJournalStore(t)

	_, err := js.Create(ctx, &store.NewEntry{Content: "tagged", Tags: []string{"good", "bad<tag>"}})
	require.Error(t, err)
	assert.Equal(t, sigilerr.KindValidation, sigilerr.KindOf(err))

	hits, err := js.Search(ctx, store.SearchQuery{Text: "tagged"})
	require.NoError(t, err)
	assert.Empty(t, hits)

	tags, err := js.ListTags(ctx)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestJournalStore_GetNotFound(t *testing.T) {
	js := newJournalStore(t)

	_, err := js.Get(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, sigilerr.IsNotFound(err))
	assert.Equal(t, sigilerr.CodeStoreEntryGetNotFound, sigilerr.CodeOf(err))
}

func TestJournalStore_UpdateReplacesTags(t *testing.T) {
	ctx := context.Background()
	js := newJournalStore(t)

	e, err := js.Create(ctx, &store.NewEntry{Content: "draft", Tags: []string{"a", "b"}})
	require.NoError(t, err)

	content := "final"
	tags := []string{"c", "A"}
	updated, err := js.Update(ctx, e.ID, store.EntryPatch{Content: &content, Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Content)
	assert.Equal(t, []string{"a", "c"}, updated.Tags)
	assert.True(t, updated.UpdatedAt.After(e.UpdatedAt))
	assert.Equal(t, e.Timestamp, updated.Timestamp, "timestamp is immutable")

	// FTS follows the content change inside the same transaction.
	hits, err := js.Search(ctx, store.SearchQuery{Text: "draft"})
	require.NoError(t, err)
	assert.Empty(t, hits)
	hits, err = js.Search(ctx, store.SearchQuery{Text: "final"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, e.ID, hits[0].Entry.ID)
}

func TestJournalStore_UpdateLeavesUnsetFields(t *testing.T) {
	ctx := context.Background()
	js := newJournalStore(t)

	e, err := js.Create(ctx, &store.NewEntry{
		Content:    "keep me",
		Tags:       []string{"x"},
		CrossRefs:  store.CrossRefs{IssueNumber: ptr(int64(7))},
		IsPersonal: true,
	})
	require.NoError(t, err)

	updated, err := js.Update(ctx, e.ID, store.EntryPatch{IsPersonal: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, "keep me", updated.Content)
	assert.Equal(t, []string{"x"}, updated.Tags)
	assert.False(t, updated.IsPersonal)
	require.NotNil(t, updated.CrossRefs.IssueNumber)
	assert.Equal(t, int64(7), *updated.CrossRefs.IssueNumber)
}

func TestJournalStore_UpdateDeletedIsNotFound(t *testing.T) {
	ctx := context.Background()
	js := newJournalStore(t)

	e, err := js.Create(ctx, &store.NewEntry{Content: "gone soon"})
	require.NoError(t, err)
	ok, err := js.SoftDelete(ctx, e.ID)
	require.NoError(t, err)
	require.True(t, ok)

	content := "too late"
	_, err = js.Update(ctx, e.ID, store.EntryPatch{Content: &content})
	require.Error(t, err)
	assert.True(t, sigilerr.IsNotFound(err))

	_, err = js.Update(ctx, 12345, store.EntryPatch{Content: &content})
	assert.True(t, sigilerr.IsNotFound(err))
}

func TestJournalStore_SoftThenPermanentDelete(t *testing.T) {
	ctx := context.Background()
	js := newJournalStore(t)

	e, err := js.Create(ctx, &store.NewEntry{Content: "Temporary note", Tags: []string{"tmp"}})
	require.NoError(t, err)

	ok, err := js.SoftDelete(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	hits, err := js.Search(ctx, store.SearchQuery{Text: "Temporary"})
	require.NoError(t, err)
	assert.Empty(t, hits)

	got, err := js.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.DeletedAt)
	assert.Equal(t, []string{"tmp"}, got.Tags, "tags stay stored while soft-deleted")

	ok, err = js.SoftDelete(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, ok, "second soft delete is a no-op")

	ok, err = js.PermanentDelete(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = js.Get(ctx, e.ID)
	assert.True(t, sigilerr.IsNotFound(err))

	ok, err = js.PermanentDelete(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJournalStore_Restore(t *testing.T) {
	ctx := context.Background()
	js := newJournalStore(t)

	e, err := js.Create(ctx, &store.NewEntry{Content: "comeback"})
	require.NoError(t, err)

	ok, err := js.Restore(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, ok, "live entries are not restored")

	_, err = js.SoftDelete(ctx, e.ID)
	require.NoError(t, err)

	ok, err = js.Restore(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	hits, err := js.Search(ctx, store.SearchQuery{Text: "comeback"})
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestJournalStore_IDsAreNeverReused(t *testing.T) {
	ctx := context.Background()
	js := newJournalStore(t)

	a, err := js.Create(ctx, &store.NewEntry{Content: "first"})
	require.NoError(t, err)
	_, err = js.PermanentDelete(ctx, a.ID)
	require.NoError(t, err)

	b, err := js.Create(ctx, &store.NewEntry{Content: "second"})
	require.NoError(t, err)
	assert.Greater(t, b.ID, a.ID)
}

func TestJournalStore_ListLivePages(t *testing.T) {
	ctx := context.Background()
	js := newJournalStore(t)

	var ids []int64
	for _, c := range []string{"one", "two", "three", "four", "five"} {
		e, err := js.Create(ctx, &store.NewEntry{Content: c})
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}
	_, err := js.SoftDelete(ctx, ids[2])
	require.NoError(t, err)

	page, err := js.ListLive(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[0], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)

	page, err = js.ListLive(ctx, page[1].ID, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[3], page[0].ID)
	assert.Equal(t, ids[4], page[1].ID)

	n, err := js.CountLive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
