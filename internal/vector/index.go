// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package vector maintains the semantic similarity index over journal
// entries. The index is derived data: it is written after the entry store
// commits, may lag behind it, and can always be rebuilt from live entries.
package vector

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sigil-dev/journal/internal/embedding"
	"github.com/sigil-dev/journal/internal/store"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
	"github.com/sigil-dev/journal/pkg/health"
)

// Limits for Search.
const (
	DefaultBatchSize = 64
	MaxSearchLimit   = 500
)

// Hit is a semantic match. Score is cosine similarity in [-1, 1].
type Hit struct {
	EntryID int64   `json:"entry_id" yaml:"entry_id"`
	Score   float64 `json:"score" yaml:"score"`
}

// Source supplies the live entries a rebuild walks.
type Source interface {
	ListLive(ctx context.Context, afterID int64, limit int) ([]*store.Entry, error)
	CountLive(ctx context.Context) (int64, error)
}

// Stats is a point-in-time description of the index.
type Stats struct {
	Items              int64           `json:"items" yaml:"items"`
	Model              string          `json:"model,omitempty" yaml:"model,omitempty"`
	Dimensions         int             `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Generation         string          `json:"generation,omitempty" yaml:"generation,omitempty"`
	BuiltAt            *time.Time      `json:"built_at,omitempty" yaml:"built_at,omitempty"`
	ProviderModel      string          `json:"provider_model" yaml:"provider_model"`
	ProviderDimensions int             `json:"provider_dimensions" yaml:"provider_dimensions"`
	Stale              bool            `json:"stale" yaml:"stale"`
	Rebuilding         bool            `json:"rebuilding" yaml:"rebuilding"`
	Provider           *health.Metrics `json:"provider_health,omitempty" yaml:"provider_health,omitempty"`
	Queue              *health.Queue   `json:"queue,omitempty" yaml:"queue,omitempty"`
}

// Config holds the dependencies and tuning parameters for an Index.
type Config struct {
	Vectors   store.VectorStore
	Embedder  embedding.Provider
	BatchSize int
	Logger    *slog.Logger
}

// Index embeds entry text and keeps the active vector generation current.
type Index struct {
	vectors  store.VectorStore
	embedder embedding.Provider
	batch    int
	logger   *slog.Logger

	rebuilding atomic.Bool

	// mu serializes writes against the generation swap. Searches hold it
	// for reading so the generation they query is not dropped underneath.
	mu sync.RWMutex
	// pending records writes that arrive while a rebuild is running. It is
	// nil when no rebuild is in progress.
	pending map[int64]pendingOp
}

type pendingOp struct {
	vec    []float32
	remove bool
}

// NewIndex creates an Index with the given configuration.
func NewIndex(cfg Config) (*Index, error) {
	if cfg.Vectors == nil || cfg.Embedder == nil {
		return nil, sigilerr.New(sigilerr.CodeVectorQueryInvalid, "vector index requires a vector store and an embedder")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Index{
		vectors:  cfg.Vectors,
		embedder: cfg.Embedder,
		batch:    cfg.BatchSize,
		logger:   cfg.Logger,
	}, nil
}

// AddEntry embeds text and stores it under id. It reports false without an
// error when text has nothing to embed; any previous vector for id is
// removed in that case.
func (ix *Index) AddEntry(ctx context.Context, id int64, text string) (bool, error) {
	vec, ok, err := ix.embed(ctx, text)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ix.RemoveEntry(ctx, id)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.pending != nil {
		ix.pending[id] = pendingOp{vec: vec}
	}

	active, err := ix.vectors.Active(ctx)
	if err != nil {
		return false, err
	}
	if active == nil {
		if ix.pending != nil {
			// The running rebuild creates the first generation and replays this write.
			return true, nil
		}
		return true, ix.bootstrap(ctx, id, vec)
	}
	if ix.stale(active) {
		return false, ix.staleError(active)
	}
	if err := ix.vectors.Upsert(ctx, active.Generation, id, vec); err != nil {
		return false, err
	}
	return true, nil
}

// bootstrap creates and activates the first generation holding a single
// vector. Caller holds mu.
func (ix *Index) bootstrap(ctx context.Context, id int64, vec []float32) error {
	gen, err := ix.vectors.CreateGeneration(ctx, ix.embedder.Model(), ix.embedder.Dimensions())
	if err != nil {
		return err
	}
	if err := ix.vectors.Upsert(ctx, gen, id, vec); err != nil {
		ix.drop(gen)
		return err
	}
	if err := ix.vectors.Activate(ctx, gen); err != nil {
		ix.drop(gen)
		return err
	}
	ix.logger.InfoContext(ctx, "vector index initialized", "generation", gen, "model", ix.embedder.Model())
	return nil
}

// RemoveEntry deletes the vector for id from the active generation, if any.
func (ix *Index) RemoveEntry(ctx context.Context, id int64) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.pending != nil {
		ix.pending[id] = pendingOp{remove: true}
	}
	active, err := ix.vectors.Active(ctx)
	if err != nil || active == nil {
		return err
	}
	return ix.vectors.Delete(ctx, active.Generation, id)
}

// Rebuild embeds every live entry from src into a fresh generation and
// swaps it in. On error or cancellation the fresh generation is dropped and
// the previous one stays active. progress, when non-nil, is called after
// each page. It returns the number of vectors in the new generation.
func (ix *Index) Rebuild(ctx context.Context, src Source, progress func(done, total int)) (int, error) {
	if !ix.rebuilding.CompareAndSwap(false, true) {
		return 0, sigilerr.New(sigilerr.CodeVectorRebuildConflict, "a vector index rebuild is already running")
	}
	defer ix.rebuilding.Store(false)

	ix.mu.Lock()
	ix.pending = make(map[int64]pendingOp)
	ix.mu.Unlock()
	defer func() {
		ix.mu.Lock()
		ix.pending = nil
		ix.mu.Unlock()
	}()

	total, err := src.CountLive(ctx)
	if err != nil {
		return 0, err
	}

	model, dims := ix.embedder.Model(), ix.embedder.Dimensions()
	gen, err := ix.vectors.CreateGeneration(ctx, model, dims)
	if err != nil {
		return 0, err
	}
	swapped := false
	defer func() {
		if !swapped {
			ix.drop(gen)
		}
	}()

	ix.logger.InfoContext(ctx, "vector index rebuild started", "generation", gen, "model", model, "entries", total)

	done := 0
	var after int64
	for {
		if ctx.Err() != nil {
			return 0, ix.cancelled(ctx, done, total)
		}
		page, err := src.ListLive(ctx, after, ix.batch)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ix.cancelled(ctx, done, total)
			}
			return 0, err
		}
		if len(page) == 0 {
			break
		}
		for _, e := range page {
			vec, ok, err := ix.embed(ctx, e.Content)
			if err != nil {
				if ctx.Err() != nil {
					return 0, ix.cancelled(ctx, done, total)
				}
				return 0, err
			}
			if ok {
				if err := ix.vectors.Upsert(ctx, gen, e.ID, vec); err != nil {
					return 0, err
				}
			}
			done++
			after = e.ID
		}
		if progress != nil {
			progress(done, int(total))
		}
	}

	if err := ix.swap(ctx, gen, done, total); err != nil {
		return 0, err
	}
	swapped = true

	state, err := ix.vectors.Active(ctx)
	if err != nil {
		return 0, err
	}
	ix.logger.InfoContext(ctx, "vector index rebuilt", "generation", gen, "vectors", state.Count)
	return int(state.Count), nil
}

// swap replays writes recorded during the rebuild into gen and activates it.
func (ix *Index) swap(ctx context.Context, gen string, done int, total int64) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for id, op := range ix.pending {
		var err error
		if op.remove {
			err = ix.vectors.Delete(ctx, gen, id)
		} else {
			err = ix.vectors.Upsert(ctx, gen, id, op.vec)
		}
		if err != nil {
			return err
		}
	}
	if ctx.Err() != nil {
		return ix.cancelled(ctx, done, total)
	}
	return ix.vectors.Activate(ctx, gen)
}

// Search embeds text and returns up to limit entries whose similarity is at
// least threshold, best first. An index that cannot answer returns
// vector.index.unavailable with a reason, never an empty result.
func (ix *Index) Search(ctx context.Context, text string, limit int, threshold float64) ([]Hit, error) {
	if text == "" {
		return nil, sigilerr.New(sigilerr.CodeVectorQueryInvalid, "semantic query text is required")
	}
	if limit < 1 || limit > MaxSearchLimit {
		return nil, sigilerr.Errorf(sigilerr.CodeVectorQueryInvalid, "limit must be between 1 and %d, got %d", MaxSearchLimit, limit)
	}
	if threshold < 0 || threshold > 1 {
		return nil, sigilerr.Errorf(sigilerr.CodeVectorQueryInvalid, "threshold must be between 0 and 1, got %g", threshold)
	}

	if _, err := ix.searchable(ctx); err != nil {
		return nil, err
	}

	vec, ok, err := ix.embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, sigilerr.New(sigilerr.CodeVectorQueryInvalid, "semantic query has no embeddable content")
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	active, err := ix.searchable(ctx)
	if err != nil {
		return nil, err
	}
	matches, err := ix.vectors.Search(ctx, active.Generation, vec, limit)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(matches))
	for _, m := range matches {
		score := Similarity(m.Distance)
		if score < threshold {
			continue
		}
		hits = append(hits, Hit{EntryID: m.EntryID, Score: score})
	}
	return hits, nil
}

// searchable returns the active generation when it can answer queries from
// the current embedder.
func (ix *Index) searchable(ctx context.Context) (*store.VectorState, error) {
	active, err := ix.vectors.Active(ctx)
	if err != nil {
		return nil, err
	}
	if active == nil || active.Count == 0 {
		return nil, sigilerr.Unavailable(sigilerr.ReasonEmpty,
			"vector index is empty; add entries or run an index rebuild")
	}
	if ix.stale(active) {
		return nil, ix.staleError(active)
	}
	return active, nil
}

// Similarity converts the L2 distance between two unit vectors into cosine
// similarity.
func Similarity(distance float64) float64 {
	return 1 - distance*distance/2
}

// Stats describes the active generation and the embedder serving it.
func (ix *Index) Stats(ctx context.Context) (Stats, error) {
	st := Stats{
		ProviderModel:      ix.embedder.Model(),
		ProviderDimensions: ix.embedder.Dimensions(),
		Rebuilding:         ix.rebuilding.Load(),
	}
	if h, ok := ix.embedder.(interface{ Health() health.Metrics }); ok {
		m := h.Health()
		st.Provider = &m
	}

	active, err := ix.vectors.Active(ctx)
	if err != nil {
		return st, err
	}
	if active != nil {
		builtAt := active.BuiltAt
		st.Items = active.Count
		st.Model = active.Model
		st.Dimensions = active.Dimensions
		st.Generation = active.Generation
		st.BuiltAt = &builtAt
		st.Stale = ix.stale(active)
	}
	return st, nil
}

// Rebuilding reports whether a rebuild is running.
func (ix *Index) Rebuilding() bool { return ix.rebuilding.Load() }

func (ix *Index) embed(ctx context.Context, text string) ([]float32, bool, error) {
	raw, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		if sigilerr.IsInvalidInput(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	vec, ok := embedding.Normalize(raw)
	return vec, ok, nil
}

func (ix *Index) stale(active *store.VectorState) bool {
	return active.Model != ix.embedder.Model() || active.Dimensions != ix.embedder.Dimensions()
}

func (ix *Index) staleError(active *store.VectorState) error {
	return sigilerr.Unavailable(sigilerr.ReasonStaleModel,
		"vector index was built with "+active.Model+" but the embedder is "+ix.embedder.Model()+"; run an index rebuild",
		sigilerr.Field("index_model", active.Model),
		sigilerr.Field("index_dimensions", active.Dimensions),
		sigilerr.Field("embedder_model", ix.embedder.Model()),
		sigilerr.Field("embedder_dimensions", ix.embedder.Dimensions()),
	)
}

func (ix *Index) cancelled(ctx context.Context, done int, total int64) error {
	return sigilerr.Errorf(sigilerr.CodeVectorRebuildCancelled,
		"vector index rebuild stopped after %d of %d entries: %w", done, total, context.Cause(ctx))
}

// drop removes an unused generation. It runs even when the caller's
// context is cancelled.
func (ix *Index) drop(gen string) {
	ctx := context.Background()
	if err := ix.vectors.DropGeneration(ctx, gen); err != nil {
		ix.logger.WarnContext(ctx, "dropping vector generation failed", "generation", gen, "error", err)
	}
}
