// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite_test

import (
	"context"
	"testing"

	"github.com/sigil-dev/journal/internal/store"
	"github.com/sigil-dev/journal/internal/store/sqlite"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createEntries(t *testing.T, js *sqlite.JournalStore, contents ...string) []*store.Entry {
	t.Helper()
	out := make([]*store.Entry, 0, len(contents))
	for _, c := range contents {
		e, err := js.Create(context.Background(), &store.NewEntry{Content: c, Tags: []string{"graph"}})
		require.NoError(t, err)
		out = append(out, e)
	}
	return out
}

func TestLinkEntries(t *testing.T) {
	ctx := context.Background()
	js := newJournalStore(t)
	es := createEntries(t, js, "design doc", "implementation")

	rel, err := js.LinkEntries(ctx, &store.NewRelationship{
		FromID:      es[1].ID,
		ToID:        es[0].ID,
		Type:        store.RelImplements,
		Description: "built from the doc",
	})
	require.NoError(t, err)
	assert.Positive(t, rel.ID)
	assert.Equal(t, store.RelImplements, rel.Type)

	rels, err := js.GetRelationships(ctx, es[0].ID)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, es[1].ID, rels[0].FromID)
	assert.Equal(t, es[0].ID, rels[0].ToID)
	assert.Equal(t, "built from the doc", rels[0].Description)

	// Same pair, different type is a distinct relationship.
	def, err := js.LinkEntries(ctx, &store.NewRelationship{FromID: es[1].ID, ToID: es[0].ID})
	require.NoError(t, err)
	assert.Equal(t, store.RelReferences, def.Type)
}

func TestLinkEntries_Errors(t *testing.T) {
	ctx := context.Background()
	js := newJournalStore(t)
	es := createEntries(t, js, "a", "b", "c")

	_, err := js.LinkEntries(ctx, &store.NewRelationship{FromID: es[0].ID, ToID: es[1].ID})
	require.NoError(t, err)

	_, err = js.SoftDelete(ctx, es[2].ID)
	require.NoError(t, err)

	tests := []struct {
		name  string
		in    *store.NewRelationship
		check func(error) bool
	}{
		{"self link", &store.NewRelationship{FromID: es[0].ID, ToID: es[0].ID}, sigilerr.IsConflict},
		{"duplicate", &store.NewRelationship{FromID: es[0].ID, ToID: es[1].ID}, sigilerr.IsConflict},
		{"deleted endpoint", &store.NewRelationship{FromID: es[0].ID, ToID: es[2].ID}, sigilerr.IsNotFound},
		{"missing endpoint", &store.NewRelationship{FromID: 999, ToID: es[0].ID}, sigilerr.IsNotFound},
		{"bad type", &store.NewRelationship{FromID: es[0].ID, ToID: es[1].ID, Type: "likes"}, sigilerr.IsInvalidInput},
		{"non-positive id", &store.NewRelationship{FromID: 0, ToID: es[1].ID}, sigilerr.IsInvalidInput},
		{"nil input", nil, sigilerr.IsInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := js.LinkEntries(ctx, tt.in)
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)
		})
	}
}

func TestRelationships_DeletionSemantics(t *testing.T) {
	ctx := context.Background()
	js := newJournalStore(t)
	es := createEntries(t, js, "hub", "spoke one", "spoke two")

	for _, spoke := range es[1:] {
		_, err := js.LinkEntries(ctx, &store.NewRelationship{FromID: es[0].ID, ToID: spoke.ID})
		require.NoError(t, err)
	}

	_, err := js.SoftDelete(ctx, es[1].ID)
	require.NoError(t, err)

	rels, err := js.GetRelationships(ctx, es[0].ID)
	require.NoError(t, err)
	require.Len(t, rels, 1, "relationships to soft-deleted entries are hidden")
	assert.Equal(t, es[2].ID, rels[0].ToID)

	touching, err := js.RelationshipsTouching(ctx, []int64{es[0].ID})
	require.NoError(t, err)
	assert.Len(t, touching, 2, "soft delete keeps the rows")

	_, err = js.PermanentDelete(ctx, es[1].ID)
	require.NoError(t, err)
	touching, err = js.RelationshipsTouching(ctx, []int64{es[0].ID})
	require.NoError(t, err)
	assert.Len(t, touching, 1, "permanent delete cascades")
}

func TestGraphSourceQueries(t *testing.T) {
	ctx := context.Background()
	js := newJournalStore(t)
	es := createEntries(t, js, "one", "two", "three", "four")

	_, err := js.LinkEntries(ctx, &store.NewRelationship{FromID: es[0].ID, ToID: es[1].ID})
	require.NoError(t, err)
	_, err = js.LinkEntries(ctx, &store.NewRelationship{FromID: es[2].ID, ToID: es[3].ID})
	require.NoError(t, err)
	_, err = js.SoftDelete(ctx, es[3].ID)
	require.NoError(t, err)

	live, err := js.LiveEntries(ctx, []int64{es[0].ID, es[3].ID, 999})
	require.NoError(t, err)
	assert.Len(t, live, 1)
	assert.Contains(t, live, es[0].ID)

	byTag, err := js.EntriesByTags(ctx, []string{"GRAPH"}, 2)
	require.NoError(t, err)
	require.Len(t, byTag, 2)
	assert.Equal(t, es[2].ID, byTag[0].ID)
	assert.Equal(t, es[1].ID, byTag[1].ID)

	// es[2] only links to a deleted entry.
	recent, err := js.RecentLinkedEntries(ctx, 10)
	require.NoError(t, err)
	ids := make([]int64, 0, len(recent))
	for _, e := range recent {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []int64{es[1].ID, es[0].ID}, ids)
}
