// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"

	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

const invalidTagChars = "<>\"'&\x00"

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	return lo.Contains(EntryTypes, t)
}

// Valid reports whether s is a known significance. The empty value is valid.
func (s SignificanceType) Valid() bool {
	switch s {
	case "", SignificanceMilestone, SignificanceBreakthrough, SignificanceTechnicalBreakthrough,
		SignificanceMajorDecision, SignificanceProjectCompletion, SignificanceLessonLearned:
		return true
	default:
		return false
	}
}

// Valid reports whether s is a known pull request state. The empty value is valid.
func (s PRStatus) Valid() bool {
	switch s {
	case "", PRStatusDraft, PRStatusOpen, PRStatusMerged, PRStatusClosed:
		return true
	default:
		return false
	}
}

// Valid reports whether t is a known relationship type.
func (t RelationshipType) Valid() bool {
	switch t {
	case RelReferences, RelImplements, RelClarifies, RelEvolvesFrom, RelResponseTo:
		return true
	default:
		return false
	}
}

// Valid reports whether g is a supported activity bucket.
func (g GroupBy) Valid() bool {
	switch g {
	case "", GroupByDay, GroupByWeek, GroupByMonth:
		return true
	default:
		return false
	}
}

// NormalizeTag trims and lower-cases a tag and checks it against the tag rules.
func NormalizeTag(raw string) (string, error) {
	tag := strings.ToLower(strings.TrimSpace(raw))
	if tag == "" {
		return "", sigilerr.New(sigilerr.CodeStoreTagValidateInvalid, "tag: must not be empty")
	}
	if n := utf8.RuneCountInString(tag); n > MaxTagLength {
		return "", sigilerr.Errorf(sigilerr.CodeStoreTagValidateInvalid,
			"tag: %d characters exceeds limit of %d", n, MaxTagLength)
	}
	if strings.ContainsAny(tag, invalidTagChars) {
		return "", sigilerr.New(sigilerr.CodeStoreTagValidateInvalid,
			"tag: contains a forbidden character", sigilerr.FieldTag(tag))
	}
	return tag, nil
}

// NormalizeTags normalises every tag and removes duplicates, keeping first-seen order.
func NormalizeTags(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		tag, err := NormalizeTag(r)
		if err != nil {
			return nil, err
		}
		out = append(out, tag)
	}
	return lo.Uniq(out), nil
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return sigilerr.New(sigilerr.CodeStoreEntryValidateInvalid, "entry: content is required")
	}
	if n := utf8.RuneCountInString(content); n > MaxContentLength {
		return sigilerr.Errorf(sigilerr.CodeStoreEntryValidateInvalid,
			"entry: content length %d exceeds limit of %d", n, MaxContentLength)
	}
	return nil
}

// Validate checks the cross references for well-formed values.
func (c CrossRefs) Validate() error {
	if !c.PRStatus.Valid() {
		return sigilerr.Errorf(sigilerr.CodeStoreEntryValidateInvalid, "entry: invalid pr_status %q", c.PRStatus)
	}
	ids := map[string]*int64{
		"project_number":  c.ProjectNumber,
		"project_item_id": c.ProjectItemID,
		"issue_number":    c.IssueNumber,
		"pr_number":       c.PRNumber,
		"workflow_run_id": c.WorkflowRunID,
	}
	for name, v := range ids {
		if v != nil && *v <= 0 {
			return sigilerr.Errorf(sigilerr.CodeStoreEntryValidateInvalid, "entry: %s must be positive, got %d", name, *v)
		}
	}
	return nil
}

// Validate checks a NewEntry before any storage is touched.
func (n NewEntry) Validate() error {
	if err := validateContent(n.Content); err != nil {
		return err
	}
	if n.EntryType != "" && !n.EntryType.Valid() {
		return sigilerr.Errorf(sigilerr.CodeStoreEntryValidateInvalid, "entry: invalid entry_type %q", n.EntryType)
	}
	if !n.Significance.Valid() {
		return sigilerr.Errorf(sigilerr.CodeStoreEntryValidateInvalid, "entry: invalid significance %q", n.Significance)
	}
	if err := n.CrossRefs.Validate(); err != nil {
		return err
	}
	_, err := NormalizeTags(n.Tags)
	return err
}

// Validate checks the fields a patch sets.
func (p EntryPatch) Validate() error {
	if p.Content != nil {
		if err := validateContent(*p.Content); err != nil {
			return err
		}
	}
	if p.EntryType != nil && !p.EntryType.Valid() {
		return sigilerr.Errorf(sigilerr.CodeStoreEntryValidateInvalid, "entry: invalid entry_type %q", *p.EntryType)
	}
	if p.Significance != nil && !p.Significance.Valid() {
		return sigilerr.Errorf(sigilerr.CodeStoreEntryValidateInvalid, "entry: invalid significance %q", *p.Significance)
	}
	if p.CrossRefs != nil {
		if err := p.CrossRefs.Validate(); err != nil {
			return err
		}
	}
	if p.Tags != nil {
		if _, err := NormalizeTags(*p.Tags); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks a link request. Endpoint existence is checked by the store.
func (r NewRelationship) Validate() error {
	if r.FromID <= 0 || r.ToID <= 0 {
		return sigilerr.Errorf(sigilerr.CodeStoreRelationshipInvalid,
			"relationship: entry ids must be positive, got %d -> %d", r.FromID, r.ToID)
	}
	if r.Type != "" && !r.Type.Valid() {
		return sigilerr.Errorf(sigilerr.CodeStoreRelationshipInvalid, "relationship: invalid type %q", r.Type)
	}
	return nil
}

// Normalize validates q and returns a copy with defaults applied.
func (q SearchQuery) Normalize() (SearchQuery, error) {
	switch {
	case q.Limit < 0:
		return q, sigilerr.Errorf(sigilerr.CodeStoreSearchInvalidInput, "search: limit must be >= 0, got %d", q.Limit)
	case q.Limit == 0:
		q.Limit = DefaultSearchSize
	case q.Limit > MaxSearchSize:
		return q, sigilerr.Errorf(sigilerr.CodeStoreSearchInvalidInput,
			"search: limit %d exceeds maximum of %d", q.Limit, MaxSearchSize)
	}
	if q.Offset < 0 {
		return q, sigilerr.Errorf(sigilerr.CodeStoreSearchInvalidInput, "search: offset must be >= 0, got %d", q.Offset)
	}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return q, sigilerr.Errorf(sigilerr.CodeStoreSearchInvalidInput,
			"search: from %s is after to %s", q.From.Format("2006-01-02"), q.To.Format("2006-01-02"))
	}
	for _, t := range q.EntryTypes {
		if !t.Valid() {
			return q, sigilerr.Errorf(sigilerr.CodeStoreSearchInvalidInput, "search: invalid entry_type %q", t)
		}
	}
	if !q.PRStatus.Valid() {
		return q, sigilerr.Errorf(sigilerr.CodeStoreSearchInvalidInput, "search: invalid pr_status %q", q.PRStatus)
	}
	if len(q.Tags) > 0 {
		tags, err := NormalizeTags(q.Tags)
		if err != nil {
			return q, err
		}
		q.Tags = tags
	}
	q.Text = strings.TrimSpace(q.Text)
	return q, nil
}

// Normalize validates q and returns a copy with defaults applied.
func (q StatsQuery) Normalize() (StatsQuery, error) {
	if !q.GroupBy.Valid() {
		return q, sigilerr.Errorf(sigilerr.CodeStoreStatsInvalidInput, "stats: invalid group_by %q", q.GroupBy)
	}
	if q.GroupBy == "" {
		q.GroupBy = GroupByWeek
	}
	if q.TopTags < 0 {
		return q, sigilerr.Errorf(sigilerr.CodeStoreStatsInvalidInput, "stats: top_tags must be >= 0, got %d", q.TopTags)
	}
	if q.TopTags == 0 {
		q.TopTags = 10
	}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return q, sigilerr.New(sigilerr.CodeStoreStatsInvalidInput, "stats: from is after to")
	}
	return q, nil
}
