// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package graph_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sigil-dev/journal/internal/graph"
	"github.com/sigil-dev/journal/internal/store"
	"github.com/sigil-dev/journal/internal/store/sqlite"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.JournalStore {
	t.Helper()
	js, err := sqlite.NewJournalStore(filepath.Join(t.TempDir(), "journal.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = js.Close() })
	return js
}

func add(t *testing.T, js *sqlite.JournalStore, content string, tags ...string) int64 {
	t.Helper()
	e, err := js.Create(context.Background(), &store.NewEntry{Content: content, Tags: tags})
	require.NoError(t, err)
	return e.ID
}

func link(t *testing.T, js *sqlite.JournalStore, from, to int64, typ store.RelationshipType) {
	t.Helper()
	_, err := js.LinkEntries(context.Background(), &store.NewRelationship{FromID: from, ToID: to, Type: typ})
	require.NoError(t, err)
}

func entryIDs(sg *store.Subgraph) []int64 {
	ids := make([]int64, 0, len(sg.Entries))
	for _, e := range sg.Entries {
		ids = append(ids, e.ID)
	}
	return ids
}

type edge struct {
	from, to int64
	typ      store.RelationshipType
}

func edges(sg *store.Subgraph) []edge {
	out := make([]edge, 0, len(sg.Relationships))
	for _, r := range sg.Relationships {
		out = append(out, edge{r.FromID, r.ToID, r.Type})
	}
	return out
}

func TestConnectedSubgraph_CreateLinkVisualize(t *testing.T) {
	js := newStore(t)
	x := add(t, js, "Implemented X")
	tests := add(t, js, "Tests for X")
	link(t, js, tests, x, store.RelImplements)

	sg, err := graph.NewEngine(js).ConnectedSubgraph(context.Background(), graph.EntrySeed(x), 1, graph.DefaultLimit)
	require.NoError(t, err)
	assert.Equal(t, []int64{x, tests}, entryIDs(sg))
	assert.Equal(t, []edge{{tests, x, store.RelImplements}}, edges(sg))
}

func TestConnectedSubgraph_CyclesTerminate(t *testing.T) {
	js := newStore(t)
	a := add(t, js, "A")
	b := add(t, js, "B")
	link(t, js, a, b, store.RelImplements)
	link(t, js, b, a, store.RelReferences)

	sg, err := graph.NewEngine(js).ConnectedSubgraph(context.Background(), graph.EntrySeed(a), 2, graph.DefaultLimit)
	require.NoError(t, err)
	assert.Equal(t, []int64{a, b}, entryIDs(sg))
	assert.Len(t, sg.Relationships, 2)
}

func TestConnectedSubgraph_DepthBound(t *testing.T) {
	js := newStore(t)
	ids := []int64{add(t, js, "1"), add(t, js, "2"), add(t, js, "3"), add(t, js, "4"), add(t, js, "5")}
	for i := 0; i+1 < len(ids); i++ {
		link(t, js, ids[i], ids[i+1], store.RelReferences)
	}
	eng := graph.NewEngine(js)

	for depth := graph.MinDepth; depth <= graph.MaxDepth; depth++ {
		sg, err := eng.ConnectedSubgraph(context.Background(), graph.EntrySeed(ids[0]), depth, graph.DefaultLimit)
		require.NoError(t, err)
		assert.Equal(t, ids[:depth+1], entryIDs(sg), "depth %d", depth)
		assert.Len(t, sg.Relationships, depth)
	}

	// Reachability ignores direction by default: seed in the middle.
	sg, err := eng.ConnectedSubgraph(context.Background(), graph.EntrySeed(ids[2]), 1, graph.DefaultLimit)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{ids[1], ids[2], ids[3]}, entryIDs(sg))
	assert.Equal(t, ids[2], sg.Entries[0].ID)
}

func TestConnectedSubgraph_Direction(t *testing.T) {
	js := newStore(t)
	a := add(t, js, "a")
	b := add(t, js, "b")
	c := add(t, js, "c")
	link(t, js, a, b, store.RelReferences)
	link(t, js, c, b, store.RelClarifies)
	eng := graph.NewEngine(js)

	sg, err := eng.ConnectedSubgraph(context.Background(), graph.EntrySeed(b), 1, 10, graph.WithDirection(graph.DirectionOutgoing))
	require.NoError(t, err)
	assert.Equal(t, []int64{b}, entryIDs(sg))

	sg, err = eng.ConnectedSubgraph(context.Background(), graph.EntrySeed(b), 1, 10, graph.WithDirection(graph.DirectionIncoming))
	require.NoError(t, err)
	assert.Equal(t, []int64{b, a, c}, entryIDs(sg))

	sg, err = eng.ConnectedSubgraph(context.Background(), graph.EntrySeed(a), 2, 10, graph.WithDirection(graph.DirectionOutgoing))
	require.NoError(t, err)
	assert.Equal(t, []int64{a, b}, entryIDs(sg))
}

func TestConnectedSubgraph_LimitCapsEntries(t *testing.T) {
	js := newStore(t)
	hub := add(t, js, "hub")
	for range 5 {
		link(t, js, add(t, js, "spoke"), hub, store.RelReferences)
	}

	sg, err := graph.NewEngine(js).ConnectedSubgraph(context.Background(), graph.EntrySeed(hub), 1, 3)
	require.NoError(t, err)
	assert.Len(t, sg.Entries, 3)
	assert.Equal(t, hub, sg.Entries[0].ID)
	assert.Len(t, sg.Relationships, 2)
}

func TestConnectedSubgraph_SoftDeletion(t *testing.T) {
	ctx := context.Background()
	js := newStore(t)
	a := add(t, js, "a")
	b := add(t, js, "b")
	c := add(t, js, "c")
	d := add(t, js, "d")
	link(t, js, a, b, store.RelReferences)
	link(t, js, b, c, store.RelReferences)
	link(t, js, a, d, store.RelReferences)
	link(t, js, d, c, store.RelReferences)
	eng := graph.NewEngine(js)

	_, err := js.SoftDelete(ctx, b)
	require.NoError(t, err)

	sg, err := eng.ConnectedSubgraph(ctx, graph.EntrySeed(a), 2, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{a, d, c}, entryIDs(sg), "c stays reachable through d")
	for _, r := range sg.Relationships {
		assert.NotEqual(t, b, r.FromID)
		assert.NotEqual(t, b, r.ToID)
	}

	for _, seed := range []int64{b, 999} {
		sg, err := eng.ConnectedSubgraph(ctx, graph.EntrySeed(seed), 2, 10)
		require.NoError(t, err)
		assert.Empty(t, sg.Entries)
		assert.Empty(t, sg.Relationships)
		assert.NotNil(t, sg.Entries)
	}
}

func TestConnectedSubgraph_TagSeedNeverSynthesizesEdges(t *testing.T) {
	js := newStore(t)
	a := add(t, js, "alpha", "release")
	b := add(t, js, "beta", "release")
	c := add(t, js, "gamma", "other")
	link(t, js, a, c, store.RelReferences)
	eng := graph.NewEngine(js)

	sg, err := eng.ConnectedSubgraph(context.Background(), graph.TagSeed("release"), 1, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{a, b}, entryIDs(sg))
	assert.Empty(t, sg.Relationships)

	link(t, js, b, a, store.RelResponseTo)
	sg, err = eng.ConnectedSubgraph(context.Background(), graph.TagSeed("release"), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []edge{{b, a, store.RelResponseTo}}, edges(sg))
}

func TestConnectedSubgraph_RecentSeed(t *testing.T) {
	js := newStore(t)
	a := add(t, js, "a")
	_ = add(t, js, "loner")
	b := add(t, js, "b")
	link(t, js, a, b, store.RelEvolvesFrom)

	sg, err := graph.NewEngine(js).ConnectedSubgraph(context.Background(), graph.RecentSeed(), 1, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{a, b}, entryIDs(sg))
	assert.Len(t, sg.Relationships, 1)
}

func TestConnectedSubgraph_Validation(t *testing.T) {
	eng := graph.NewEngine(newStore(t))

	tests := []struct {
		name  string
		seed  graph.Seed
		depth int
		limit int
		opts  []graph.Option
	}{
		{"depth zero", graph.EntrySeed(1), 0, 10, nil},
		{"depth four", graph.EntrySeed(1), 4, 10, nil},
		{"limit zero", graph.EntrySeed(1), 1, 0, nil},
		{"limit too large", graph.EntrySeed(1), 1, graph.MaxLimit + 1, nil},
		{"no seed", graph.Seed{}, 1, 10, nil},
		{"two seeds", graph.Seed{EntryID: 1, Recent: true}, 1, 10, nil},
		{"negative id", graph.EntrySeed(-1), 1, 10, nil},
		{"blank tag", graph.TagSeed(""), 1, 10, nil},
		{"bad direction", graph.EntrySeed(1), 1, 10, []graph.Option{graph.WithDirection("sideways")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.ConnectedSubgraph(context.Background(), tt.seed, tt.depth, tt.limit, tt.opts...)
			require.Error(t, err)
			assert.True(t, sigilerr.IsInvalidInput(err))
			assert.True(t, sigilerr.HasCode(err, sigilerr.CodeGraphQueryInvalidInput))
		})
	}
}
