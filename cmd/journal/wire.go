// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/journal/internal/config"
	"github.com/sigil-dev/journal/internal/embedding"
	googleemb "github.com/sigil-dev/journal/internal/embedding/google"
	openaiemb "github.com/sigil-dev/journal/internal/embedding/openai"
	"github.com/sigil-dev/journal/internal/journal"
	"github.com/sigil-dev/journal/internal/store"
	_ "github.com/sigil-dev/journal/internal/store/sqlite" // register sqlite backend
	"github.com/sigil-dev/journal/internal/vector"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

// drainTimeout bounds how long a command waits for queued embeddings
// before exiting. Entries still queued are picked up by the next rebuild.
const drainTimeout = 30 * time.Second

// app holds the wired subsystems for one command invocation.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	entries store.EntryStore
	vectors store.VectorStore
	gate    *embedding.Gate
	svc     *journal.Service
}

// newRegistry returns the embedding registry with every built-in backend.
func newRegistry() *embedding.Registry {
	r := embedding.NewRegistry()
	r.Register("openai", openaiemb.Backend())
	r.Register("google", googleemb.Backend())
	return r
}

// wire opens the stores and builds the service stack for cfg.
func wire(cfg *config.Config, logger *slog.Logger) (*app, error) {
	gate, err := newRegistry().Gate(cfg.EmbeddingConfig())
	if err != nil {
		return nil, err
	}

	entries, vectors, err := store.Open(cfg.StorageConfig())
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, entries: entries, vectors: vectors, gate: gate}

	idx, err := vector.NewIndex(vector.Config{
		Vectors:   vectors,
		Embedder:  gate,
		BatchSize: cfg.Vector.RebuildBatch,
		Logger:    logger,
	})
	if err != nil {
		_ = a.closeStores()
		return nil, err
	}

	a.svc, err = journal.New(journal.Config{
		Store:               entries,
		Index:               idx,
		QueueSize:           cfg.Vector.QueueSize,
		Workers:             cfg.Vector.Workers,
		SimilarityThreshold: cfg.Vector.SimilarityThreshold,
		GraphDepth:          cfg.Graph.DefaultDepth,
		GraphLimit:          cfg.Graph.DefaultLimit,
		Logger:              logger,
	})
	if err != nil {
		_ = a.closeStores()
		return nil, err
	}
	return a, nil
}

func (a *app) closeStores() error {
	var errs []error
	if err := a.vectors.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.entries.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return sigilerr.Join(errs...)
	}
	return nil
}

// Close waits for queued embeddings, then closes both stores.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	if err := a.svc.Close(ctx); err != nil {
		a.logger.Warn("embedding queue not drained; run 'journal index rebuild' to catch up", "error", err)
	}
	return a.closeStores()
}

// withApp loads config, wires the service and runs fn, closing everything
// afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Logging)
	slog.SetDefault(logger)

	a, err := wire(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(cmd.Context(), a)
}
