// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

const defaultBusyTimeout = 5 * time.Second

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// openDB opens dbPath in WAL mode with foreign keys enforced. Write
// transactions take the database lock up front.
func openDB(dbPath string, busyTimeout time.Duration) (*sql.DB, error) {
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=on&_txlock=immediate",
		dbPath, busyTimeout.Milliseconds())

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "pinging sqlite db: %w", err)
	}
	return db, nil
}

// migration is one schema step for a component, applied in version order.
type migration struct {
	version int
	ddl     string
}

// migrate applies the pending steps for component and records the new
// version in schema_versions.
func migrate(db *sql.DB, component string, steps []migration) error {
	const ddl = `CREATE TABLE IF NOT EXISTS schema_versions (
	component TEXT PRIMARY KEY,
	version   INTEGER NOT NULL
)`
	if _, err := db.Exec(ddl); err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreSchemaFailure, "creating schema_versions: %w", err)
	}

	var current int
	err := db.QueryRow(`SELECT version FROM schema_versions WHERE component = ?`, component).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return sigilerr.Errorf(sigilerr.CodeStoreSchemaFailure, "reading %s schema version: %w", component, err)
	}

	for _, step := range steps {
		if step.version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return sigilerr.Errorf(sigilerr.CodeStoreSchemaFailure, "beginning migration: %w", err)
		}
		if _, err := tx.Exec(step.ddl); err != nil {
			_ = tx.Rollback()
			return sigilerr.Errorf(sigilerr.CodeStoreSchemaFailure, "applying %s schema v%d: %w", component, step.version, err)
		}
		const upsert = `INSERT INTO schema_versions (component, version) VALUES (?, ?)
ON CONFLICT(component) DO UPDATE SET version = excluded.version`
		if _, err := tx.Exec(upsert, component, step.version); err != nil {
			_ = tx.Rollback()
			return sigilerr.Errorf(sigilerr.CodeStoreSchemaFailure, "recording %s schema v%d: %w", component, step.version, err)
		}
		if err := tx.Commit(); err != nil {
			return sigilerr.Errorf(sigilerr.CodeStoreSchemaFailure, "committing %s schema v%d: %w", component, step.version, err)
		}
		current = step.version
	}
	return nil
}

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
