// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package journal ties the entry store, the vector index and the graph
// engine together. Writes commit to the store first; vector index updates
// follow asynchronously and never roll a write back.
package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/sigil-dev/journal/internal/graph"
	"github.com/sigil-dev/journal/internal/store"
	"github.com/sigil-dev/journal/internal/vector"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

// DefaultSimilarityThreshold is the minimum cosine similarity for semantic hits.
const DefaultSimilarityThreshold = 0.3

// Config holds the dependencies and tuning parameters for a Service.
type Config struct {
	Store store.EntryStore
	Index *vector.Index

	QueueSize           int
	Workers             int
	SimilarityThreshold float64 // zero means DefaultSimilarityThreshold
	GraphDepth          int     // zero means graph.DefaultDepth
	GraphLimit          int     // zero means graph.DefaultLimit

	Logger *slog.Logger
}

// Service is the journal's application layer.
type Service struct {
	store   store.EntryStore
	index   *vector.Index
	graph   *graph.Engine
	indexer *Indexer
	logger  *slog.Logger

	threshold  float64
	graphDepth int
	graphLimit int
}

// New creates a Service and starts its background indexer.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil || cfg.Index == nil {
		return nil, sigilerr.New(sigilerr.CodeJournalInternalFailure, "journal service requires an entry store and a vector index")
	}
	if cfg.SimilarityThreshold < 0 || cfg.SimilarityThreshold > 1 {
		return nil, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue,
			"similarity threshold must be between 0 and 1, got %g", cfg.SimilarityThreshold)
	}
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if cfg.GraphDepth == 0 {
		cfg.GraphDepth = graph.DefaultDepth
	}
	if cfg.GraphLimit == 0 {
		cfg.GraphLimit = graph.DefaultLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Service{
		store:      cfg.Store,
		index:      cfg.Index,
		graph:      graph.NewEngine(cfg.Store),
		indexer:    NewIndexer(cfg.Index, cfg.QueueSize, cfg.Workers, cfg.Logger),
		logger:     cfg.Logger,
		threshold:  cfg.SimilarityThreshold,
		graphDepth: cfg.GraphDepth,
		graphLimit: cfg.GraphLimit,
	}, nil
}

// --- Entries ---

// Create stores a new entry and queues its embedding.
func (s *Service) Create(ctx context.Context, in *store.NewEntry) (*store.Entry, error) {
	e, err := s.store.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.indexer.EnqueueAdd(e.ID, e.Content)
	s.logger.DebugContext(ctx, "entry created", "entry_id", e.ID, "entry_type", e.EntryType)
	return e, nil
}

// Get returns an entry, including soft-deleted ones.
func (s *Service) Get(ctx context.Context, id int64) (*store.Entry, error) {
	return s.store.Get(ctx, id)
}

// Update applies patch and re-queues the embedding when content changed.
func (s *Service) Update(ctx context.Context, id int64, patch store.EntryPatch) (*store.Entry, error) {
	e, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if patch.Content != nil {
		s.indexer.EnqueueAdd(e.ID, e.Content)
	}
	return e, nil
}

// SoftDelete hides an entry from search and graphs.
func (s *Service) SoftDelete(ctx context.Context, id int64) (bool, error) {
	ok, err := s.store.SoftDelete(ctx, id)
	if err != nil || !ok {
		return ok, err
	}
	s.indexer.EnqueueRemove(id)
	return true, nil
}

// PermanentDelete removes an entry and its relationships.
func (s *Service) PermanentDelete(ctx context.Context, id int64) (bool, error) {
	ok, err := s.store.PermanentDelete(ctx, id)
	if err != nil || !ok {
		return ok, err
	}
	s.indexer.EnqueueRemove(id)
	return true, nil
}

// Restore undoes a soft delete and re-queues the embedding.
func (s *Service) Restore(ctx context.Context, id int64) (bool, error) {
	ok, err := s.store.Restore(ctx, id)
	if err != nil || !ok {
		return ok, err
	}
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return true, err
	}
	s.indexer.EnqueueAdd(e.ID, e.Content)
	return true, nil
}

// --- Search ---

// Search runs a full-text and filter query.
func (s *Service) Search(ctx context.Context, q store.SearchQuery) ([]*store.SearchHit, error) {
	return s.store.Search(ctx, q)
}

// SearchByDateRange lists entries with timestamps in [from, to], both
// inclusive, applying the other filters in q.
func (s *Service) SearchByDateRange(ctx context.Context, from, to time.Time, q store.SearchQuery) ([]*store.SearchHit, error) {
	if from.IsZero() || to.IsZero() {
		return nil, sigilerr.New(sigilerr.CodeStoreSearchInvalidInput, "search: date range needs both from and to")
	}
	q.From, q.To = &from, &to
	return s.store.Search(ctx, q)
}

// SemanticQuery is a similarity search with optional filters.
type SemanticQuery struct {
	Text       string
	Limit      int      // zero means store.DefaultSearchSize
	Threshold  *float64 // nil means the configured threshold
	IsPersonal *bool
	EntryTypes []store.EntryType
	Tags       []string
}

// SemanticSearch returns live entries similar to q.Text, best first. Hits
// are resolved through the store so deleted entries never surface; filters
// apply after resolution, so fewer than Limit hits come back only when no
// more candidates above the threshold match within vector.MaxSearchLimit.
// An index that cannot answer returns an index-unavailable error rather
// than an empty list.
func (s *Service) SemanticSearch(ctx context.Context, q SemanticQuery) ([]*store.SearchHit, error) {
	limit := q.Limit
	if limit == 0 {
		limit = store.DefaultSearchSize
	}
	if limit < 0 || limit > vector.MaxSearchLimit {
		return nil, sigilerr.Errorf(sigilerr.CodeVectorQueryInvalid, "limit must be between 1 and %d, got %d", vector.MaxSearchLimit, limit)
	}
	threshold := s.threshold
	if q.Threshold != nil {
		threshold = *q.Threshold
	}
	filter, err := store.SearchQuery{IsPersonal: q.IsPersonal, EntryTypes: q.EntryTypes, Tags: q.Tags}.Normalize()
	if err != nil {
		return nil, err
	}

	// Over-fetch so dropped and filtered hits still leave limit results,
	// widening k until enough survive, the index runs out of candidates
	// above the threshold, or k reaches MaxSearchLimit.
	k := min(limit*2, vector.MaxSearchLimit)
	for {
		hits, err := s.index.Search(ctx, q.Text, k, threshold)
		if err != nil {
			return nil, err
		}
		out, err := s.resolveHits(ctx, hits, filter, limit)
		if err != nil {
			return nil, err
		}
		if len(out) == limit || len(hits) < k || k == vector.MaxSearchLimit {
			return out, nil
		}
		k = min(k*4, vector.MaxSearchLimit)
	}
}

// resolveHits loads the live entries behind hits and keeps up to limit of
// those matching filter, in hit order.
func (s *Service) resolveHits(ctx context.Context, hits []vector.Hit, filter store.SearchQuery, limit int) ([]*store.SearchHit, error) {
	ids := lo.Map(hits, func(h vector.Hit, _ int) int64 { return h.EntryID })
	live, err := s.store.LiveEntries(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := []*store.SearchHit{}
	for _, h := range hits {
		e, ok := live[h.EntryID]
		if !ok || !matches(e, filter) {
			continue
		}
		out = append(out, &store.SearchHit{Entry: e, Score: h.Score})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func matches(e *store.Entry, f store.SearchQuery) bool {
	if f.IsPersonal != nil && e.IsPersonal != *f.IsPersonal {
		return false
	}
	if len(f.EntryTypes) > 0 && !lo.Contains(f.EntryTypes, e.EntryType) {
		return false
	}
	if len(f.Tags) > 0 && !lo.Some(e.Tags, f.Tags) {
		return false
	}
	return true
}

// ListTags returns every tag with its live usage count.
func (s *Service) ListTags(ctx context.Context) ([]*store.Tag, error) {
	return s.store.ListTags(ctx)
}

// --- Relationships ---

// Link creates a typed relationship between two live entries.
func (s *Service) Link(ctx context.Context, rel *store.NewRelationship) (*store.Relationship, error) {
	return s.store.LinkEntries(ctx, rel)
}

// Relationships returns the relationships of an entry whose counterpart is live.
func (s *Service) Relationships(ctx context.Context, id int64) ([]*store.Relationship, error) {
	return s.store.GetRelationships(ctx, id)
}

// Graph returns the connected subgraph for seed. Zero depth or limit use
// the configured defaults.
func (s *Service) Graph(ctx context.Context, seed graph.Seed, depth, limit int, opts ...graph.Option) (*store.Subgraph, error) {
	if depth == 0 {
		depth = s.graphDepth
	}
	if limit == 0 {
		limit = s.graphLimit
	}
	return s.graph.ConnectedSubgraph(ctx, seed, depth, limit, opts...)
}

// Statistics summarises live entries.
func (s *Service) Statistics(ctx context.Context, q store.StatsQuery) (*store.Statistics, error) {
	return s.store.Statistics(ctx, q)
}

// --- Index maintenance ---

// RebuildIndex re-embeds every live entry into a fresh vector generation.
func (s *Service) RebuildIndex(ctx context.Context, progress func(done, total int)) (int, error) {
	n, err := s.index.Rebuild(ctx, s.store, progress)
	if err != nil {
		s.logger.ErrorContext(ctx, "vector index rebuild failed", "error", err)
		return 0, err
	}
	return n, nil
}

// IndexStats describes the vector index and the background queue.
func (s *Service) IndexStats(ctx context.Context) (vector.Stats, error) {
	st, err := s.index.Stats(ctx)
	if err != nil {
		return st, err
	}
	q := s.indexer.Stats()
	st.Queue = &q
	return st, nil
}

// Close drains the embedding queue until ctx ends. It does not close the
// stores.
func (s *Service) Close(ctx context.Context) error {
	return s.indexer.Close(ctx)
}
