// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"
	"errors"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/sigil-dev/journal/internal/store"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

// Search runs a full-text query ranked by bm25 when q.Text is set, and a
// filtered listing ordered by recency otherwise. Ties break by timestamp
// then id, newest first.
func (s *JournalStore) Search(ctx context.Context, query store.SearchQuery) ([]*store.SearchHit, error) {
	q, err := query.Normalize()
	if err != nil {
		return nil, err
	}

	match := store.EscapeFTSQuery(q.Text)

	var (
		qb   strings.Builder
		args []any
	)
	if match != "" {
		qb.WriteString(`SELECT ` + entryColumns + `, snippet(entries_fts, 0, '**', '**', '...', 20)
FROM entries_fts
JOIN entries e ON e.id = entries_fts.rowid
WHERE entries_fts MATCH ?`)
		args = append(args, match)
	} else {
		qb.WriteString(`SELECT ` + entryColumns + `, '' FROM entries e WHERE 1 = 1`)
	}

	args = appendFilters(&qb, args, q)

	if match != "" {
		qb.WriteString(` ORDER BY bm25(entries_fts), e.timestamp DESC, e.id DESC`)
	} else {
		qb.WriteString(` ORDER BY e.timestamp DESC, e.id DESC`)
	}
	qb.WriteString(` LIMIT ? OFFSET ?`)
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, classifySearchError(err, q.Text)
	}
	defer func() { _ = rows.Close() }()

	hits := []*store.SearchHit{}
	entries := []*store.Entry{}
	for rows.Next() {
		var snippet string
		e, err := scanEntry(rows, &snippet)
		if err != nil {
			return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "scanning search hit: %w", err)
		}
		hits = append(hits, &store.SearchHit{Entry: e, Snippet: snippet})
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classifySearchError(err, q.Text)
	}

	if err := loadTags(ctx, s.db, entries); err != nil {
		return nil, err
	}
	return hits, nil
}

// appendFilters adds the AND-ed filter clauses of q for an entries alias "e".
func appendFilters(qb *strings.Builder, args []any, q store.SearchQuery) []any {
	if !q.IncludeDeleted {
		qb.WriteString(` AND e.deleted_at IS NULL`)
	}
	if q.IsPersonal != nil {
		qb.WriteString(` AND e.is_personal = ?`)
		args = append(args, *q.IsPersonal)
	}
	if len(q.EntryTypes) > 0 {
		qb.WriteString(` AND e.entry_type IN (` + placeholders(len(q.EntryTypes)) + `)`)
		for _, t := range q.EntryTypes {
			args = append(args, string(t))
		}
	}
	if len(q.Tags) > 0 {
		qb.WriteString(` AND EXISTS (SELECT 1 FROM entry_tags et JOIN tags t ON t.id = et.tag_id
	WHERE et.entry_id = e.id AND t.name IN (` + placeholders(len(q.Tags)) + `))`)
		for _, t := range q.Tags {
			args = append(args, t)
		}
	}
	if q.From != nil {
		qb.WriteString(` AND e.timestamp >= ?`)
		args = append(args, formatTime(*q.From))
	}
	if q.To != nil {
		qb.WriteString(` AND e.timestamp <= ?`)
		args = append(args, formatTime(*q.To))
	}
	if q.ProjectNumber != nil {
		qb.WriteString(` AND e.project_number = ?`)
		args = append(args, *q.ProjectNumber)
	}
	if q.IssueNumber != nil {
		qb.WriteString(` AND e.issue_number = ?`)
		args = append(args, *q.IssueNumber)
	}
	if q.PRNumber != nil {
		qb.WriteString(` AND e.pr_number = ?`)
		args = append(args, *q.PRNumber)
	}
	if q.PRStatus != "" {
		qb.WriteString(` AND e.pr_status = ?`)
		args = append(args, string(q.PRStatus))
	}
	return args
}

// classifySearchError reports FTS5 query syntax problems as invalid input
// and everything else as a database failure.
func classifySearchError(err error, text string) error {
	msg := err.Error()
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrError &&
		(strings.Contains(msg, "fts5") || strings.Contains(msg, "unterminated string")) {
		return sigilerr.Errorf(sigilerr.CodeStoreSearchInvalidInput, "search: cannot parse query %q: %w", text, err)
	}
	return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "searching entries: %w", err)
}
