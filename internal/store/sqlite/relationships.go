// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"
	"errors"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/sigil-dev/journal/internal/store"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

const relationshipColumns = `r.id, r.from_entry_id, r.to_entry_id, r.relationship_type, r.description, r.created_at`

// LinkEntries records a typed relationship between two live entries.
func (s *JournalStore) LinkEntries(ctx context.Context, in *store.NewRelationship) (*store.Relationship, error) {
	if in == nil {
		return nil, sigilerr.New(sigilerr.CodeStoreRelationshipInvalid, "relationship: input is required")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.FromID == in.ToID {
		return nil, sigilerr.New(sigilerr.CodeStoreRelationshipLinkConflict,
			"relationship: an entry cannot be linked to itself", sigilerr.FieldEntryID(in.FromID))
	}
	relType := in.Type
	if relType == "" {
		relType = store.RelReferences
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "beginning transaction: %w", err)
	}
	defer s.rollback(tx)

	for _, id := range []int64{in.FromID, in.ToID} {
		var live bool
		err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM entries WHERE id = ? AND deleted_at IS NULL)`, id).Scan(&live)
		if err != nil {
			return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "checking entry %d: %w", id, err)
		}
		if !live {
			return nil, sigilerr.New(sigilerr.CodeStoreRelationshipLinkNotFound,
				"relationship: entry not found or deleted", sigilerr.FieldEntryID(id))
		}
	}

	var exists bool
	err = tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM relationships
WHERE from_entry_id = ? AND to_entry_id = ? AND relationship_type = ?)`, in.FromID, in.ToID, string(relType)).Scan(&exists)
	if err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "checking relationship: %w", err)
	}
	if exists {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreRelationshipLinkConflict,
			"relationship: %d %s %d already exists", in.FromID, relType, in.ToID)
	}

	created := s.nowFunc()
	res, err := tx.ExecContext(ctx, `INSERT INTO relationships (from_entry_id, to_entry_id, relationship_type, description, created_at)
VALUES (?, ?, ?, ?, ?)`, in.FromID, in.ToID, string(relType), in.Description, formatTime(created))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, sigilerr.Errorf(sigilerr.CodeStoreRelationshipLinkConflict,
				"relationship: %d %s %d already exists", in.FromID, relType, in.ToID)
		}
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "inserting relationship: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "reading relationship id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "committing relationship: %w", err)
	}

	return &store.Relationship{
		ID:          id,
		FromID:      in.FromID,
		ToID:        in.ToID,
		Type:        relType,
		Description: in.Description,
		CreatedAt:   created.UTC(),
	}, nil
}

// GetRelationships returns the relationships of entryID in both directions
// whose other endpoint is live.
func (s *JournalStore) GetRelationships(ctx context.Context, entryID int64) ([]*store.Relationship, error) {
	const q = `SELECT ` + relationshipColumns + ` FROM relationships r
JOIN entries o ON o.id = CASE WHEN r.from_entry_id = ? THEN r.to_entry_id ELSE r.from_entry_id END
WHERE (r.from_entry_id = ? OR r.to_entry_id = ?) AND o.deleted_at IS NULL
ORDER BY r.id`
	return s.queryRelationships(ctx, q, entryID, entryID, entryID)
}

// RelationshipsTouching returns every relationship with at least one endpoint in ids.
func (s *JournalStore) RelationshipsTouching(ctx context.Context, ids []int64) ([]*store.Relationship, error) {
	if len(ids) == 0 {
		return []*store.Relationship{}, nil
	}
	ph := placeholders(len(ids))
	args := append(int64Args(ids), int64Args(ids)...)
	return s.queryRelationships(ctx, `SELECT `+relationshipColumns+` FROM relationships r
WHERE r.from_entry_id IN (`+ph+`) OR r.to_entry_id IN (`+ph+`)
ORDER BY r.id`, args...)
}

// LiveEntries returns the non-deleted entries among ids.
func (s *JournalStore) LiveEntries(ctx context.Context, ids []int64) (map[int64]*store.Entry, error) {
	out := make(map[int64]*store.Entry, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	entries, err := s.queryEntries(ctx, `SELECT `+entryColumns+` FROM entries e
WHERE e.id IN (`+placeholders(len(ids))+`) AND e.deleted_at IS NULL`, int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		out[e.ID] = e
	}
	return out, nil
}

// EntriesByTags returns the most recent live entries carrying any of tags.
func (s *JournalStore) EntriesByTags(ctx context.Context, tags []string, limit int) ([]*store.Entry, error) {
	names, err := store.NormalizeTags(tags)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return []*store.Entry{}, nil
	}
	args := make([]any, 0, len(names)+1)
	for _, n := range names {
		args = append(args, n)
	}
	args = append(args, limit)
	return s.queryEntries(ctx, `SELECT `+entryColumns+` FROM entries e
WHERE e.deleted_at IS NULL AND EXISTS (
	SELECT 1 FROM entry_tags et JOIN tags t ON t.id = et.tag_id
	WHERE et.entry_id = e.id AND t.name IN (`+placeholders(len(names))+`))
ORDER BY e.timestamp DESC, e.id DESC
LIMIT ?`, args...)
}

// RecentLinkedEntries returns the most recent live entries with at least one
// relationship to another live entry.
func (s *JournalStore) RecentLinkedEntries(ctx context.Context, limit int) ([]*store.Entry, error) {
	return s.queryEntries(ctx, `SELECT `+entryColumns+` FROM entries e
WHERE e.deleted_at IS NULL AND EXISTS (
	SELECT 1 FROM relationships r
	JOIN entries o ON o.id = CASE WHEN r.from_entry_id = e.id THEN r.to_entry_id ELSE r.from_entry_id END
	WHERE (r.from_entry_id = e.id OR r.to_entry_id = e.id) AND o.deleted_at IS NULL)
ORDER BY e.timestamp DESC, e.id DESC
LIMIT ?`, limit)
}

func (s *JournalStore) queryRelationships(ctx context.Context, q string, args ...any) ([]*store.Relationship, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "querying relationships: %w", err)
	}
	defer func() { _ = rows.Close() }()

	rels := []*store.Relationship{}
	for rows.Next() {
		var (
			r         store.Relationship
			relType   string
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.FromID, &r.ToID, &relType, &r.Description, &createdAt); err != nil {
			return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "scanning relationship: %w", err)
		}
		r.Type = store.RelationshipType(relType)
		if r.CreatedAt, err = ParseTime(createdAt); err != nil {
			return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "parsing relationship %d created_at: %w", r.ID, err)
		}
		rels = append(rels, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "iterating relationships: %w", err)
	}
	return rels, nil
}
