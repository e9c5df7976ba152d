// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"
	"database/sql"

	"github.com/sigil-dev/journal/internal/store"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

// setEntryTags upserts tags and links them to entryID. Tags must already be normalised.
func setEntryTags(ctx context.Context, tx *sql.Tx, entryID int64, tags []string) error {
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx, `INSERT INTO tags (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, tag); err != nil {
			return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "upserting tag %q: %w", tag, err)
		}
		const link = `INSERT OR IGNORE INTO entry_tags (entry_id, tag_id)
SELECT ?, id FROM tags WHERE name = ?`
		if _, err := tx.ExecContext(ctx, link, entryID, tag); err != nil {
			return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "linking tag %q to entry %d: %w", tag, entryID, err)
		}
	}
	return nil
}

// loadTags fills the Tags field of every entry with one query.
func loadTags(ctx context.Context, q querier, entries []*store.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	byID := make(map[int64]*store.Entry, len(entries))
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		if _, dup := byID[e.ID]; !dup {
			ids = append(ids, e.ID)
		}
		byID[e.ID] = e
	}

	rows, err := q.QueryContext(ctx, `SELECT et.entry_id, t.name FROM entry_tags et
JOIN tags t ON t.id = et.tag_id
WHERE et.entry_id IN (`+placeholders(len(ids))+`)
ORDER BY t.name`, int64Args(ids)...)
	if err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "loading tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "scanning tag: %w", err)
		}
		if e, ok := byID[id]; ok {
			e.Tags = append(e.Tags, name)
		}
	}
	if err := rows.Err(); err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "iterating tags: %w", err)
	}
	return nil
}

// ListTags returns every tag with its live usage count, most used first.
// Counts are computed on read, so soft-deleted entries never contribute.
func (s *JournalStore) ListTags(ctx context.Context) ([]*store.Tag, error) {
	const q = `SELECT t.id, t.name, COUNT(e.id) AS usage
FROM tags t
LEFT JOIN entry_tags et ON et.tag_id = t.id
LEFT JOIN entries e ON e.id = et.entry_id AND e.deleted_at IS NULL
GROUP BY t.id, t.name
ORDER BY usage DESC, t.name ASC`

	return s.queryTags(ctx, q)
}

func (s *JournalStore) queryTags(ctx context.Context, q string, args ...any) ([]*store.Tag, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "listing tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tags := []*store.Tag{}
	for rows.Next() {
		var t store.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.UsageCount); err != nil {
			return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "scanning tag: %w", err)
		}
		tags = append(tags, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "iterating tags: %w", err)
	}
	return tags, nil
}
