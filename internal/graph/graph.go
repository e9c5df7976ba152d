// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package graph answers bounded-depth reachability queries over entry
// relationships and renders the result as a Mermaid diagram.
package graph

import (
	"context"
	"sort"

	"github.com/samber/lo"

	"github.com/sigil-dev/journal/internal/store"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

// Traversal bounds.
const (
	MinDepth     = 1
	MaxDepth     = 3
	DefaultDepth = 1
	DefaultLimit = 20
	MaxLimit     = 200
)

// Direction selects which edges a traversal may follow from an entry.
type Direction string

const (
	// DirectionBoth treats every relationship as undirected for reachability.
	DirectionBoth     Direction = "both"
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	switch d {
	case DirectionBoth, DirectionOutgoing, DirectionIncoming:
		return true
	}
	return false
}

// Seed picks where a subgraph starts. Exactly one of EntryID, Tags or
// Recent must be set.
type Seed struct {
	EntryID int64
	Tags    []string
	Recent  bool
}

// EntrySeed starts traversal at a single entry.
func EntrySeed(id int64) Seed { return Seed{EntryID: id} }

// TagSeed selects live entries carrying any of tags.
func TagSeed(tags ...string) Seed { return Seed{Tags: tags} }

// RecentSeed selects the most recent entries that have relationships.
func RecentSeed() Seed { return Seed{Recent: true} }

func (s Seed) validate() error {
	set := 0
	if s.EntryID != 0 {
		set++
		if s.EntryID < 0 {
			return sigilerr.Errorf(sigilerr.CodeGraphQueryInvalidInput, "seed entry id must be positive, got %d", s.EntryID)
		}
	}
	if len(s.Tags) > 0 {
		set++
		if lo.Contains(s.Tags, "") {
			return sigilerr.New(sigilerr.CodeGraphQueryInvalidInput, "seed tags must not be empty")
		}
	}
	if s.Recent {
		set++
	}
	if set != 1 {
		return sigilerr.New(sigilerr.CodeGraphQueryInvalidInput, "exactly one of entry id, tags or recent must seed the graph")
	}
	return nil
}

// Option adjusts a single ConnectedSubgraph call.
type Option func(*options)

type options struct {
	direction Direction
}

// WithDirection restricts which relationships an entry-seeded traversal
// follows. The default is DirectionBoth.
func WithDirection(d Direction) Option {
	return func(o *options) { o.direction = d }
}

// Engine walks relationships through a store.GraphSource. It holds no state
// between calls.
type Engine struct {
	src store.GraphSource
}

// NewEngine creates an Engine reading from src.
func NewEngine(src store.GraphSource) *Engine {
	return &Engine{src: src}
}

// ConnectedSubgraph returns the live entries reachable from seed within
// depth hops, capped at limit entries, together with every relationship
// whose endpoints are both in the result. A missing or soft-deleted seed
// entry yields an empty subgraph.
func (e *Engine) ConnectedSubgraph(ctx context.Context, seed Seed, depth, limit int, opts ...Option) (*store.Subgraph, error) {
	o := options{direction: DirectionBoth}
	for _, opt := range opts {
		opt(&o)
	}
	if err := seed.validate(); err != nil {
		return nil, err
	}
	if depth < MinDepth || depth > MaxDepth {
		return nil, sigilerr.Errorf(sigilerr.CodeGraphQueryInvalidInput, "depth must be between %d and %d, got %d", MinDepth, MaxDepth, depth)
	}
	if limit < 1 || limit > MaxLimit {
		return nil, sigilerr.Errorf(sigilerr.CodeGraphQueryInvalidInput, "limit must be between 1 and %d, got %d", MaxLimit, limit)
	}
	if !o.direction.Valid() {
		return nil, sigilerr.Errorf(sigilerr.CodeGraphQueryInvalidInput, "unknown direction %q", o.direction)
	}

	var (
		entries []*store.Entry
		err     error
	)
	switch {
	case seed.EntryID != 0:
		entries, err = e.walk(ctx, seed.EntryID, depth, limit, o.direction)
	case len(seed.Tags) > 0:
		entries, err = e.src.EntriesByTags(ctx, seed.Tags, limit)
	default:
		entries, err = e.src.RecentLinkedEntries(ctx, limit)
	}
	if err != nil {
		return nil, err
	}
	return e.induced(ctx, entries)
}

// walk is a breadth-first search that visits each entry at most once, so
// cycles terminate. Soft-deleted entries are neither returned nor expanded.
func (e *Engine) walk(ctx context.Context, seedID int64, depth, limit int, dir Direction) ([]*store.Entry, error) {
	seed, err := e.src.LiveEntries(ctx, []int64{seedID})
	if err != nil {
		return nil, err
	}
	root, ok := seed[seedID]
	if !ok {
		return nil, nil
	}

	visited := map[int64]bool{seedID: true}
	result := []*store.Entry{root}
	frontier := []int64{seedID}

	for hop := 0; hop < depth && len(frontier) > 0 && len(result) < limit; hop++ {
		rels, err := e.src.RelationshipsTouching(ctx, frontier)
		if err != nil {
			return nil, err
		}
		sortRelationships(rels)

		inFrontier := lo.SliceToMap(frontier, func(id int64) (int64, bool) { return id, true })
		var candidates []int64
		for _, r := range rels {
			if (dir == DirectionBoth || dir == DirectionOutgoing) && inFrontier[r.FromID] && !visited[r.ToID] {
				candidates = append(candidates, r.ToID)
			}
			if (dir == DirectionBoth || dir == DirectionIncoming) && inFrontier[r.ToID] && !visited[r.FromID] {
				candidates = append(candidates, r.FromID)
			}
		}
		candidates = lo.Uniq(candidates)
		if len(candidates) == 0 {
			break
		}
		for _, id := range candidates {
			visited[id] = true
		}

		live, err := e.src.LiveEntries(ctx, candidates)
		if err != nil {
			return nil, err
		}
		var next []int64
		for _, id := range candidates {
			entry, ok := live[id]
			if !ok {
				continue
			}
			if len(result) >= limit {
				break
			}
			result = append(result, entry)
			next = append(next, id)
		}
		frontier = next
	}
	return result, nil
}

// induced attaches the relationships among entries. Relationships are never
// synthesized: two entries appear connected only if a stored row links them.
func (e *Engine) induced(ctx context.Context, entries []*store.Entry) (*store.Subgraph, error) {
	sg := &store.Subgraph{Entries: []*store.Entry{}, Relationships: []*store.Relationship{}}
	if len(entries) == 0 {
		return sg, nil
	}
	sg.Entries = entries

	ids := lo.Map(entries, func(en *store.Entry, _ int) int64 { return en.ID })
	member := lo.SliceToMap(ids, func(id int64) (int64, bool) { return id, true })

	rels, err := e.src.RelationshipsTouching(ctx, ids)
	if err != nil {
		return nil, err
	}
	sg.Relationships = lo.Filter(rels, func(r *store.Relationship, _ int) bool {
		return member[r.FromID] && member[r.ToID]
	})
	sortRelationships(sg.Relationships)
	return sg, nil
}

func sortRelationships(rels []*store.Relationship) {
	sort.Slice(rels, func(i, j int) bool { return rels[i].ID < rels[j].ID })
}
