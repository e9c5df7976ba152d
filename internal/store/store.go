// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import "context"

// EntryStore owns entries, tags and relationships and the full-text index
// kept in step with them.
type EntryStore interface {
	Create(ctx context.Context, entry *NewEntry) (*Entry, error)
	// Get returns soft-deleted entries too.
	Get(ctx context.Context, id int64) (*Entry, error)
	Update(ctx context.Context, id int64, patch EntryPatch) (*Entry, error)
	SoftDelete(ctx context.Context, id int64) (bool, error)
	PermanentDelete(ctx context.Context, id int64) (bool, error)
	Restore(ctx context.Context, id int64) (bool, error)

	Search(ctx context.Context, query SearchQuery) ([]*SearchHit, error)
	ListTags(ctx context.Context) ([]*Tag, error)

	LinkEntries(ctx context.Context, rel *NewRelationship) (*Relationship, error)
	GetRelationships(ctx context.Context, entryID int64) ([]*Relationship, error)

	Statistics(ctx context.Context, query StatsQuery) (*Statistics, error)

	// ListLive pages through non-deleted entries in id order, starting after afterID.
	ListLive(ctx context.Context, afterID int64, limit int) ([]*Entry, error)
	CountLive(ctx context.Context) (int64, error)

	GraphSource
	Close() error
}

// GraphSource is the read surface the relationship graph engine walks.
type GraphSource interface {
	// LiveEntries returns the non-deleted entries among ids, keyed by id.
	LiveEntries(ctx context.Context, ids []int64) (map[int64]*Entry, error)
	// RelationshipsTouching returns every relationship with either endpoint in ids.
	RelationshipsTouching(ctx context.Context, ids []int64) ([]*Relationship, error)
	// EntriesByTags returns the most recent live entries carrying any of tags.
	EntriesByTags(ctx context.Context, tags []string, limit int) ([]*Entry, error)
	// RecentLinkedEntries returns the most recent live entries with at least one relationship.
	RecentLinkedEntries(ctx context.Context, limit int) ([]*Entry, error)
}

// VectorStore persists the vector similarity artifact as numbered
// generations, exactly one of which is active.
type VectorStore interface {
	// Active returns the active generation, or nil when none exists.
	Active(ctx context.Context) (*VectorState, error)
	// CreateGeneration allocates a new, inactive generation.
	CreateGeneration(ctx context.Context, model string, dimensions int) (string, error)
	// Activate makes generation the active one and drops the generation it replaces.
	Activate(ctx context.Context, generation string) error
	DropGeneration(ctx context.Context, generation string) error

	Upsert(ctx context.Context, generation string, entryID int64, vec []float32) error
	Delete(ctx context.Context, generation string, entryID int64) error
	Search(ctx context.Context, generation string, query []float32, k int) ([]VectorMatch, error)
	Close() error
}
