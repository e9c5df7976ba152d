// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/google/uuid"

	"github.com/sigil-dev/journal/internal/store"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

func init() {
	sqlite_vec.Auto()
}

// Compile-time interface check.
var _ store.VectorStore = (*VectorStore)(nil)

// VectorStore implements store.VectorStore with one sqlite-vec vec0 table per
// generation. vector_index_state names the active generation; swapping it
// is a single-row update, so readers see either the old or the new table.
type VectorStore struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time
}

// AbandonedGenerationAge is how long an inactive generation may go without a
// write before it is treated as left behind by an interrupted rebuild. A
// rebuild in progress writes to its generation for every embedded entry.
const AbandonedGenerationAge = 10 * time.Minute

// NewVectorStore opens (or creates) the vector database at dbPath and drops
// generations abandoned by an interrupted rebuild. Generations another
// process is still filling are left alone.
func NewVectorStore(dbPath string, busyTimeout time.Duration) (*VectorStore, error) {
	db, err := openDB(dbPath, busyTimeout)
	if err != nil {
		return nil, err
	}

	if err := migrate(db, "vector", vectorMigrations); err != nil {
		_ = db.Close()
		return nil, err
	}

	v := &VectorStore{db: db, logger: slog.Default(), nowFunc: time.Now}
	if _, err := v.DropAbandoned(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return v, nil
}

var vectorMigrations = []migration{
	{version: 1, ddl: `
CREATE TABLE IF NOT EXISTS vector_generations (
	generation TEXT PRIMARY KEY,
	model      TEXT NOT NULL,
	dimensions INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS vector_index_state (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	generation   TEXT NOT NULL,
	active_table TEXT NOT NULL,
	model        TEXT NOT NULL,
	dimensions   INTEGER NOT NULL,
	built_at     TEXT NOT NULL
);
`},
	{version: 2, ddl: `ALTER TABLE vector_generations ADD COLUMN heartbeat_at TEXT;`},
}

// SetNowFunc overrides the clock. For testing.
func (v *VectorStore) SetNowFunc(fn func() time.Time) {
	v.nowFunc = fn
}

// tableName maps a generation id to its vec0 table. Only ids that parse as
// UUIDs are accepted so the name is safe to splice into DDL.
func tableName(generation string) (string, error) {
	id, err := uuid.Parse(generation)
	if err != nil {
		return "", sigilerr.Errorf(sigilerr.CodeStoreVectorGenerationNotFound, "invalid vector generation %q", generation)
	}
	return "vectors_" + strings.ReplaceAll(id.String(), "-", ""), nil
}

// Close closes the underlying database connection.
func (v *VectorStore) Close() error {
	return v.db.Close()
}

// Active returns the active generation with its item count, or nil if the
// artifact has never been built.
func (v *VectorStore) Active(ctx context.Context) (*store.VectorState, error) {
	var (
		st             store.VectorState
		table, builtAt string
	)
	err := v.db.QueryRowContext(ctx, `SELECT generation, active_table, model, dimensions, built_at
FROM vector_index_state WHERE id = 1`).Scan(&st.Generation, &table, &st.Model, &st.Dimensions, &builtAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "reading vector index state: %w", err)
	}

	if st.BuiltAt, err = ParseTime(builtAt); err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "parsing vector built_at: %w", err)
	}
	if err := v.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&st.Count); err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "counting vectors: %w", err)
	}
	return &st, nil
}

// CreateGeneration creates an empty, inactive vec0 table for model.
func (v *VectorStore) CreateGeneration(ctx context.Context, model string, dimensions int) (string, error) {
	if dimensions <= 0 {
		return "", sigilerr.Errorf(sigilerr.CodeStoreVectorDimensionInvalid, "vector dimensions must be positive, got %d", dimensions)
	}

	generation := uuid.NewString()
	table, _ := tableName(generation)

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return "", sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ddl := fmt.Sprintf(`CREATE VIRTUAL TABLE %s USING vec0(embedding float[%d])`, table, dimensions)
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return "", sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "creating %s: %w", table, err)
	}
	now := formatTime(v.nowFunc())
	if _, err := tx.ExecContext(ctx, `INSERT INTO vector_generations (generation, model, dimensions, created_at, heartbeat_at)
VALUES (?, ?, ?, ?, ?)`, generation, model, dimensions, now, now); err != nil {
		return "", sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "recording generation %s: %w", generation, err)
	}

	if err := tx.Commit(); err != nil {
		return "", sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "committing generation %s: %w", generation, err)
	}
	return generation, nil
}

// Activate points vector_index_state at generation in one transaction and
// then drops the generation it replaced.
func (v *VectorStore) Activate(ctx context.Context, generation string) error {
	table, err := tableName(generation)
	if err != nil {
		return err
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		model string
		dims  int
	)
	err = tx.QueryRowContext(ctx, `SELECT model, dimensions FROM vector_generations WHERE generation = ?`, generation).Scan(&model, &dims)
	if errors.Is(err, sql.ErrNoRows) {
		return sigilerr.Errorf(sigilerr.CodeStoreVectorGenerationNotFound, "vector generation %s not found", generation)
	}
	if err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "reading generation %s: %w", generation, err)
	}

	var previous sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT generation FROM vector_index_state WHERE id = 1`).Scan(&previous)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "reading vector index state: %w", err)
	}

	const swap = `INSERT INTO vector_index_state (id, generation, active_table, model, dimensions, built_at)
VALUES (1, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	generation = excluded.generation,
	active_table = excluded.active_table,
	model = excluded.model,
	dimensions = excluded.dimensions,
	built_at = excluded.built_at`
	if _, err := tx.ExecContext(ctx, swap, generation, table, model, dims, formatTime(v.nowFunc())); err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "activating generation %s: %w", generation, err)
	}

	if err := tx.Commit(); err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "committing generation swap: %w", err)
	}

	if previous.Valid && previous.String != generation {
		if err := v.DropGeneration(ctx, previous.String); err != nil {
			// Left for DropAbandoned.
			v.logger.WarnContext(ctx, "dropping replaced vector generation", "generation", previous.String, "error", err)
		}
	}
	return nil
}

// DropGeneration removes an inactive generation and its table.
func (v *VectorStore) DropGeneration(ctx context.Context, generation string) error {
	table, err := tableName(generation)
	if err != nil {
		return err
	}

	var active bool
	if err := v.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM vector_index_state WHERE generation = ?)`, generation).Scan(&active); err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "reading vector index state: %w", err)
	}
	if active {
		return sigilerr.Errorf(sigilerr.CodeStoreVectorGenerationActive, "vector generation %s is active", generation)
	}

	if _, err := v.db.ExecContext(ctx, `DROP TABLE IF EXISTS `+table); err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "dropping %s: %w", table, err)
	}
	if _, err := v.db.ExecContext(ctx, `DELETE FROM vector_generations WHERE generation = ?`, generation); err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "forgetting generation %s: %w", generation, err)
	}
	return nil
}

// Upsert stores vec for entryID in generation.
func (v *VectorStore) Upsert(ctx context.Context, generation string, entryID int64, vec []float32) error {
	table, err := v.checkedTable(ctx, generation, len(vec))
	if err != nil {
		return err
	}

	blob, err := sqlite_vec.SerializeFloat32(vec)
	if err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "serializing embedding: %w", err)
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// vec0 does not support ON CONFLICT; delete first for upsert.
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE rowid = ?`, entryID); err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "deleting vector %d: %w", entryID, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO `+table+`(rowid, embedding) VALUES (?, ?)`, entryID, blob); err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "inserting vector %d: %w", entryID, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE vector_generations SET heartbeat_at = ? WHERE generation = ?`,
		formatTime(v.nowFunc()), generation); err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "touching generation %s: %w", generation, err)
	}

	if err := tx.Commit(); err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "committing vector %d: %w", entryID, err)
	}
	return nil
}

// Delete removes entryID from generation. Missing rows are not an error.
func (v *VectorStore) Delete(ctx context.Context, generation string, entryID int64) error {
	table, err := tableName(generation)
	if err != nil {
		return err
	}
	if _, err := v.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE rowid = ?`, entryID); err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "deleting vector %d: %w", entryID, err)
	}
	return nil
}

// Search returns the k nearest neighbours of query in generation by L2
// distance, closest first.
func (v *VectorStore) Search(ctx context.Context, generation string, query []float32, k int) ([]store.VectorMatch, error) {
	table, err := v.checkedTable(ctx, generation, len(query))
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return []store.VectorMatch{}, nil
	}

	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "serializing query vector: %w", err)
	}

	rows, err := v.db.QueryContext(ctx, `SELECT rowid, distance FROM `+table+`
WHERE embedding MATCH ? AND k = ?
ORDER BY distance`, blob, k)
	if err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "searching vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	matches := []store.VectorMatch{}
	for rows.Next() {
		var m store.VectorMatch
		if err := rows.Scan(&m.EntryID, &m.Distance); err != nil {
			return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "scanning vector result: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "iterating vector results: %w", err)
	}
	return matches, nil
}

// checkedTable resolves generation and verifies a vector of length n fits it.
func (v *VectorStore) checkedTable(ctx context.Context, generation string, n int) (string, error) {
	table, err := tableName(generation)
	if err != nil {
		return "", err
	}

	var dims int
	err = v.db.QueryRowContext(ctx, `SELECT dimensions FROM vector_generations WHERE generation = ?`, generation).Scan(&dims)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sigilerr.Errorf(sigilerr.CodeStoreVectorGenerationNotFound, "vector generation %s not found", generation)
	}
	if err != nil {
		return "", sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "reading generation %s: %w", generation, err)
	}
	if n != dims {
		return "", sigilerr.Errorf(sigilerr.CodeStoreVectorDimensionInvalid,
			"vector has %d dimensions, generation %s expects %d", n, generation, dims)
	}
	return table, nil
}

// DropAbandoned removes inactive generations that have not been written to
// for AbandonedGenerationAge and reports how many it dropped.
func (v *VectorStore) DropAbandoned(ctx context.Context) (int, error) {
	cutoff := formatTime(v.nowFunc().Add(-AbandonedGenerationAge))
	rows, err := v.db.QueryContext(ctx, `SELECT generation FROM vector_generations
WHERE generation NOT IN (SELECT generation FROM vector_index_state)
  AND COALESCE(heartbeat_at, created_at) < ?`, cutoff)
	if err != nil {
		return 0, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "listing vector generations: %w", err)
	}
	var abandoned []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			_ = rows.Close()
			return 0, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "scanning vector generation: %w", err)
		}
		abandoned = append(abandoned, g)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return 0, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "iterating vector generations: %w", err)
	}

	for _, g := range abandoned {
		if err := v.DropGeneration(ctx, g); err != nil {
			return 0, err
		}
		v.logger.InfoContext(ctx, "dropped abandoned vector generation", "generation", g)
	}
	return len(abandoned), nil
}
