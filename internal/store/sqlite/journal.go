// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sigil-dev/journal/internal/store"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

// Compile-time interface check.
var _ store.EntryStore = (*JournalStore)(nil)

// JournalStore implements store.EntryStore backed by SQLite. Entries, tags,
// relationships and the FTS5 index share one database file; the index is
// maintained by triggers inside each write transaction.
type JournalStore struct {
	db      *sql.DB
	writeMu sync.Mutex // one writer at a time; readers go through WAL
	logger  *slog.Logger
	nowFunc func() time.Time
}

// NewJournalStore opens (or creates) the journal database at dbPath and
// applies pending schema migrations.
func NewJournalStore(dbPath string, busyTimeout time.Duration) (*JournalStore, error) {
	db, err := openDB(dbPath, busyTimeout)
	if err != nil {
		return nil, err
	}

	if err := migrate(db, "journal", journalMigrations); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &JournalStore{db: db, logger: slog.Default(), nowFunc: time.Now}, nil
}

var journalMigrations = []migration{
	{version: 1, ddl: `
CREATE TABLE IF NOT EXISTS entries (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	content         TEXT NOT NULL,
	entry_type      TEXT NOT NULL DEFAULT 'personal_reflection',
	timestamp       TEXT NOT NULL,
	is_personal     INTEGER NOT NULL DEFAULT 1,
	significance    TEXT NOT NULL DEFAULT '',
	deleted_at      TEXT,
	project_number  INTEGER,
	project_item_id INTEGER,
	project_url     TEXT NOT NULL DEFAULT '',
	issue_number    INTEGER,
	issue_url       TEXT NOT NULL DEFAULT '',
	pr_number       INTEGER,
	pr_url          TEXT NOT NULL DEFAULT '',
	pr_status       TEXT NOT NULL DEFAULT '',
	workflow_run_id INTEGER,
	project_context TEXT NOT NULL DEFAULT '',
	updated_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_timestamp ON entries(timestamp);
CREATE INDEX IF NOT EXISTS idx_entries_deleted ON entries(deleted_at);
CREATE INDEX IF NOT EXISTS idx_entries_type ON entries(entry_type);

CREATE TABLE IF NOT EXISTS tags (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS entry_tags (
	entry_id INTEGER NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
	tag_id   INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	PRIMARY KEY (entry_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_entry_tags_tag ON entry_tags(tag_id);

CREATE TABLE IF NOT EXISTS relationships (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	from_entry_id     INTEGER NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
	to_entry_id       INTEGER NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
	relationship_type TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	created_at        TEXT NOT NULL,
	UNIQUE(from_entry_id, to_entry_id, relationship_type),
	CHECK (from_entry_id <> to_entry_id)
);

CREATE INDEX IF NOT EXISTS idx_relationships_from ON relationships(from_entry_id);
CREATE INDEX IF NOT EXISTS idx_relationships_to ON relationships(to_entry_id);

CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
	content,
	content='entries',
	content_rowid='id'
);

-- Triggers keep the FTS index in the same transaction as the entry write.
CREATE TRIGGER IF NOT EXISTS entries_ai AFTER INSERT ON entries BEGIN
	INSERT INTO entries_fts(rowid, content) VALUES (new.id, new.content);
END;

CREATE TRIGGER IF NOT EXISTS entries_ad AFTER DELETE ON entries BEGIN
	INSERT INTO entries_fts(entries_fts, rowid, content) VALUES ('delete', old.id, old.content);
END;

CREATE TRIGGER IF NOT EXISTS entries_au AFTER UPDATE OF content ON entries BEGIN
	INSERT INTO entries_fts(entries_fts, rowid, content) VALUES ('delete', old.id, old.content);
	INSERT INTO entries_fts(rowid, content) VALUES (new.id, new.content);
END;
`},
}

// SetNowFunc overrides the clock (for testing).
func (s *JournalStore) SetNowFunc(fn func() time.Time) {
	s.nowFunc = fn
}

// Close closes the underlying database connection.
func (s *JournalStore) Close() error {
	return s.db.Close()
}

const entryColumns = `e.id, e.content, e.entry_type, e.timestamp, e.is_personal, e.significance, e.deleted_at,
	e.project_number, e.project_item_id, e.project_url, e.issue_number, e.issue_url,
	e.pr_number, e.pr_url, e.pr_status, e.workflow_run_id, e.project_context, e.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanEntry reads entryColumns plus any trailing destinations.
func scanEntry(row rowScanner, extra ...any) (*store.Entry, error) {
	var (
		e                                   store.Entry
		entryType, significance, prStatus   string
		timestamp, updatedAt                string
		deletedAt                           sql.NullString
		projectNumber, projectItemID, issue sql.NullInt64
		prNumber, workflowRunID             sql.NullInt64
	)

	dest := []any{
		&e.ID, &e.Content, &entryType, &timestamp, &e.IsPersonal, &significance, &deletedAt,
		&projectNumber, &projectItemID, &e.CrossRefs.ProjectURL, &issue, &e.CrossRefs.IssueURL,
		&prNumber, &e.CrossRefs.PRURL, &prStatus, &workflowRunID, &e.CrossRefs.ProjectContext, &updatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	var err error
	if e.Timestamp, err = ParseTime(timestamp); err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "parsing entry %d timestamp: %w", e.ID, err)
	}
	if e.UpdatedAt, err = ParseTime(updatedAt); err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "parsing entry %d updated_at: %w", e.ID, err)
	}
	if e.DeletedAt, err = parseNullTime(deletedAt); err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "parsing entry %d deleted_at: %w", e.ID, err)
	}

	e.EntryType = store.EntryType(entryType)
	e.Significance = store.SignificanceType(significance)
	e.CrossRefs.PRStatus = store.PRStatus(prStatus)
	e.CrossRefs.ProjectNumber = intPtr(projectNumber)
	e.CrossRefs.ProjectItemID = intPtr(projectItemID)
	e.CrossRefs.IssueNumber = intPtr(issue)
	e.CrossRefs.PRNumber = intPtr(prNumber)
	e.CrossRefs.WorkflowRunID = intPtr(workflowRunID)
	e.Tags = []string{}
	return &e, nil
}

// Create inserts an entry and its tags in one transaction.
func (s *JournalStore) Create(ctx context.Context, in *store.NewEntry) (*store.Entry, error) {
	if in == nil {
		return nil, sigilerr.New(sigilerr.CodeStoreEntryValidateInvalid, "entry: input is required")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	tags, _ := store.NormalizeTags(in.Tags)

	entryType := in.EntryType
	if entryType == "" {
		entryType = store.EntryTypePersonalReflection
	}
	now := s.nowFunc()
	ts := in.Timestamp
	if ts.IsZero() {
		ts = now
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "beginning transaction: %w", err)
	}
	defer s.rollback(tx)

	const q = `INSERT INTO entries (content, entry_type, timestamp, is_personal, significance,
	project_number, project_item_id, project_url, issue_number, issue_url,
	pr_number, pr_url, pr_status, workflow_run_id, project_context, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	refs := in.CrossRefs
	res, err := tx.ExecContext(ctx, q,
		in.Content, string(entryType), formatTime(ts), in.IsPersonal, string(in.Significance),
		nullInt(refs.ProjectNumber), nullInt(refs.ProjectItemID), refs.ProjectURL,
		nullInt(refs.IssueNumber), refs.IssueURL,
		nullInt(refs.PRNumber), refs.PRURL, string(refs.PRStatus),
		nullInt(refs.WorkflowRunID), refs.ProjectContext, formatTime(now),
	)
	if err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "inserting entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "reading entry id: %w", err)
	}

	if err := setEntryTags(ctx, tx, id, tags); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "committing entry %d: %w", id, err)
	}

	s.logger.DebugContext(ctx, "entry created", "entry_id", id, "tags", len(tags))
	return s.Get(ctx, id)
}

// Get returns an entry by id, including soft-deleted entries.
func (s *JournalStore) Get(ctx context.Context, id int64) (*store.Entry, error) {
	return getEntry(ctx, s.db, id)
}

func getEntry(ctx context.Context, q querier, id int64) (*store.Entry, error) {
	row := q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries e WHERE e.id = ?`, id)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sigilerr.New(sigilerr.CodeStoreEntryGetNotFound, "entry not found", sigilerr.FieldEntryID(id))
		}
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "getting entry %d: %w", id, err)
	}
	if err := loadTags(ctx, q, []*store.Entry{e}); err != nil {
		return nil, err
	}
	return e, nil
}

// Update applies the non-nil fields of patch to a live entry. A non-nil
// Tags replaces the whole tag set inside the same transaction.
func (s *JournalStore) Update(ctx context.Context, id int64, patch store.EntryPatch) (*store.Entry, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "beginning transaction: %w", err)
	}
	defer s.rollback(tx)

	var deletedAt sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT deleted_at FROM entries WHERE id = ?`, id).Scan(&deletedAt)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && deletedAt.Valid) {
		return nil, sigilerr.New(sigilerr.CodeStoreEntryUpdateNotFound, "entry not found or deleted", sigilerr.FieldEntryID(id))
	}
	if err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "checking entry %d: %w", id, err)
	}

	if patch.Empty() {
		return getEntry(ctx, tx, id)
	}

	sets := []string{"updated_at = ?"}
	args := []any{formatTime(s.nowFunc())}
	if patch.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *patch.Content)
	}
	if patch.EntryType != nil {
		sets = append(sets, "entry_type = ?")
		args = append(args, string(*patch.EntryType))
	}
	if patch.IsPersonal != nil {
		sets = append(sets, "is_personal = ?")
		args = append(args, *patch.IsPersonal)
	}
	if patch.Significance != nil {
		sets = append(sets, "significance = ?")
		args = append(args, string(*patch.Significance))
	}
	if r := patch.CrossRefs; r != nil {
		sets = append(sets,
			"project_number = ?", "project_item_id = ?", "project_url = ?",
			"issue_number = ?", "issue_url = ?",
			"pr_number = ?", "pr_url = ?", "pr_status = ?",
			"workflow_run_id = ?", "project_context = ?")
		args = append(args,
			nullInt(r.ProjectNumber), nullInt(r.ProjectItemID), r.ProjectURL,
			nullInt(r.IssueNumber), r.IssueURL,
			nullInt(r.PRNumber), r.PRURL, string(r.PRStatus),
			nullInt(r.WorkflowRunID), r.ProjectContext)
	}
	args = append(args, id)

	if _, err := tx.ExecContext(ctx, `UPDATE entries SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "updating entry %d: %w", id, err)
	}

	if patch.Tags != nil {
		tags, _ := store.NormalizeTags(*patch.Tags)
		if _, err := tx.ExecContext(ctx, `DELETE FROM entry_tags WHERE entry_id = ?`, id); err != nil {
			return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "clearing tags of entry %d: %w", id, err)
		}
		if err := setEntryTags(ctx, tx, id, tags); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "committing entry %d: %w", id, err)
	}
	return s.Get(ctx, id)
}

// SoftDelete marks a live entry deleted. It reports false when no live entry matched.
func (s *JournalStore) SoftDelete(ctx context.Context, id int64) (bool, error) {
	now := formatTime(s.nowFunc())
	return s.execAffecting(ctx, "soft-deleting", id,
		`UPDATE entries SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`, now, now, id)
}

// Restore clears the deletion mark of a soft-deleted entry.
func (s *JournalStore) Restore(ctx context.Context, id int64) (bool, error) {
	return s.execAffecting(ctx, "restoring", id,
		`UPDATE entries SET deleted_at = NULL, updated_at = ? WHERE id = ? AND deleted_at IS NOT NULL`,
		formatTime(s.nowFunc()), id)
}

// PermanentDelete removes the row. Tag links and relationships cascade and
// the FTS row is removed by trigger.
func (s *JournalStore) PermanentDelete(ctx context.Context, id int64) (bool, error) {
	return s.execAffecting(ctx, "deleting", id, `DELETE FROM entries WHERE id = ?`, id)
}

func (s *JournalStore) execAffecting(ctx context.Context, op string, id int64, q string, args ...any) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "%s entry %d: %w", op, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "%s entry %d: %w", op, id, err)
	}
	return n > 0, nil
}

// ListLive pages through non-deleted entries in id order.
func (s *JournalStore) ListLive(ctx context.Context, afterID int64, limit int) ([]*store.Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.queryEntries(ctx, `SELECT `+entryColumns+` FROM entries e
WHERE e.id > ? AND e.deleted_at IS NULL ORDER BY e.id LIMIT ?`, afterID, limit)
}

// CountLive returns the number of non-deleted entries.
func (s *JournalStore) CountLive(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE deleted_at IS NULL`).Scan(&n); err != nil {
		return 0, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "counting entries: %w", err)
	}
	return n, nil
}

// queryEntries runs a query selecting entryColumns and loads tags for the result.
func (s *JournalStore) queryEntries(ctx context.Context, q string, args ...any) ([]*store.Entry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "querying entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []*store.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "scanning entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "iterating entries: %w", err)
	}

	if err := loadTags(ctx, s.db, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *JournalStore) rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.logger.Error("rolling back transaction", "error", err)
	}
}
