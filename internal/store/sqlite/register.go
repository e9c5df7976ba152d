// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"os"
	"path/filepath"

	"github.com/sigil-dev/journal/internal/store"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

// Database file names inside the data directory.
const (
	JournalDBName = "journal.db"
	VectorDBName  = "vectors.db"
)

func init() {
	store.RegisterBackend("sqlite", openStores)
}

func openStores(cfg store.StorageConfig) (store.EntryStore, store.VectorStore, error) {
	if cfg.DataDir == "" {
		return nil, nil, sigilerr.New(sigilerr.CodeStoreConfigInvalid, "sqlite backend: data directory is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "creating data directory: %w", err)
	}

	js, err := NewJournalStore(filepath.Join(cfg.DataDir, JournalDBName), cfg.BusyTimeout)
	if err != nil {
		return nil, nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "creating journal store: %w", err)
	}

	vs, err := NewVectorStore(filepath.Join(cfg.DataDir, VectorDBName), cfg.BusyTimeout)
	if err != nil {
		_ = js.Close()
		return nil, nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "creating vector store: %w", err)
	}

	return js, vs, nil
}
