// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"
	"strings"

	"github.com/sigil-dev/journal/internal/store"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

// periodExpr returns the SQL bucketing expression over e.timestamp.
func periodExpr(g store.GroupBy) string {
	switch g {
	case store.GroupByDay:
		return `substr(e.timestamp, 1, 10)`
	case store.GroupByMonth:
		return `substr(e.timestamp, 1, 7)`
	default:
		return `strftime('%Y-W%W', substr(e.timestamp, 1, 19))`
	}
}

// Statistics summarises live entries within the optional date range.
func (s *JournalStore) Statistics(ctx context.Context, query store.StatsQuery) (*store.Statistics, error) {
	q, err := query.Normalize()
	if err != nil {
		return nil, err
	}

	var (
		rb   strings.Builder
		args []any
	)
	if q.From != nil {
		rb.WriteString(` AND e.timestamp >= ?`)
		args = append(args, formatTime(*q.From))
	}
	if q.To != nil {
		rb.WriteString(` AND e.timestamp <= ?`)
		args = append(args, formatTime(*q.To))
	}
	inRange := rb.String()

	stats := &store.Statistics{
		ByType:             map[store.EntryType]int64{},
		SignificantEntries: map[store.SignificanceType]int64{},
		TopTags:            []*store.Tag{},
		Activity:           []store.ActivityBucket{},
		Projects:           []store.ProjectActivity{},
	}

	totals := `SELECT COUNT(*), COALESCE(SUM(e.is_personal), 0)
FROM entries e WHERE e.deleted_at IS NULL` + inRange
	if err := s.db.QueryRowContext(ctx, totals, args...).Scan(&stats.TotalEntries, &stats.PersonalEntries); err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "counting entries: %w", err)
	}
	stats.ProjectEntries = stats.TotalEntries - stats.PersonalEntries

	deleted := `SELECT COUNT(*) FROM entries e WHERE e.deleted_at IS NOT NULL` + inRange
	if err := s.db.QueryRowContext(ctx, deleted, args...).Scan(&stats.DeletedEntries); err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "counting deleted entries: %w", err)
	}

	byType := `SELECT e.entry_type, COUNT(*) FROM entries e WHERE e.deleted_at IS NULL` + inRange + ` GROUP BY e.entry_type`
	if err := s.scanCounts(ctx, byType, args, func(k string, n int64) { stats.ByType[store.EntryType(k)] = n }); err != nil {
		return nil, err
	}

	significant := `SELECT e.significance, COUNT(*) FROM entries e
WHERE e.deleted_at IS NULL AND e.significance <> ''` + inRange + ` GROUP BY e.significance`
	if err := s.scanCounts(ctx, significant, args, func(k string, n int64) {
		stats.SignificantEntries[store.SignificanceType(k)] = n
	}); err != nil {
		return nil, err
	}

	activity := `SELECT ` + periodExpr(q.GroupBy) + ` AS period, COUNT(*) FROM entries e
WHERE e.deleted_at IS NULL` + inRange + ` GROUP BY period ORDER BY period`
	if err := s.scanCounts(ctx, activity, args, func(k string, n int64) {
		stats.Activity = append(stats.Activity, store.ActivityBucket{Period: k, Count: n})
	}); err != nil {
		return nil, err
	}

	topTags := `SELECT t.id, t.name, COUNT(*) AS usage FROM tags t
JOIN entry_tags et ON et.tag_id = t.id
JOIN entries e ON e.id = et.entry_id
WHERE e.deleted_at IS NULL` + inRange + `
GROUP BY t.id, t.name ORDER BY usage DESC, t.name ASC LIMIT ?`
	if stats.TopTags, err = s.queryTags(ctx, topTags, append(append([]any{}, args...), q.TopTags)...); err != nil {
		return nil, err
	}

	if stats.Projects, err = s.projectActivity(ctx, inRange, args); err != nil {
		return nil, err
	}

	const rels = `SELECT COUNT(*) FROM relationships r
JOIN entries a ON a.id = r.from_entry_id AND a.deleted_at IS NULL
JOIN entries b ON b.id = r.to_entry_id AND b.deleted_at IS NULL`
	if err := s.db.QueryRowContext(ctx, rels).Scan(&stats.Relationships); err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "counting relationships: %w", err)
	}

	return stats, nil
}

// projectActivity breaks live entries down by project number, busiest first.
func (s *JournalStore) projectActivity(ctx context.Context, inRange string, args []any) ([]store.ProjectActivity, error) {
	q := `SELECT e.project_number, COUNT(*) AS entries,
	COUNT(DISTINCT substr(e.timestamp, 1, 10)),
	MIN(substr(e.timestamp, 1, 10)), MAX(substr(e.timestamp, 1, 10))
FROM entries e
WHERE e.deleted_at IS NULL AND e.project_number IS NOT NULL` + inRange + `
GROUP BY e.project_number ORDER BY entries DESC, e.project_number ASC`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "querying project activity: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []store.ProjectActivity{}
	for rows.Next() {
		var p store.ProjectActivity
		if err := rows.Scan(&p.ProjectNumber, &p.Entries, &p.ActiveDays, &p.FirstEntry, &p.LastEntry); err != nil {
			return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "scanning project activity: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "iterating project activity: %w", err)
	}
	return out, nil
}

func (s *JournalStore) scanCounts(ctx context.Context, q string, args []any, fn func(key string, n int64)) error {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "querying statistics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			key string
			n   int64
		)
		if err := rows.Scan(&key, &n); err != nil {
			return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "scanning statistics: %w", err)
		}
		fn(key, n)
	}
	if err := rows.Err(); err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "iterating statistics: %w", err)
	}
	return nil
}
