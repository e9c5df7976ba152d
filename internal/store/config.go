// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import "time"

// StorageConfig controls which backend the store factory opens and where.
type StorageConfig struct {
	Backend     string        // "sqlite" is the only registered backend.
	DataDir     string        // Directory holding journal.db and vectors.db.
	BusyTimeout time.Duration // Zero uses the backend default.
}
