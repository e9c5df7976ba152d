// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"time"
)

// Limits enforced at the store boundary.
const (
	MaxContentLength  = 50000
	MaxTagLength      = 100
	DefaultSearchSize = 10
	MaxSearchSize     = 500
)

// --- Entry types ---

// EntryType classifies what an entry records.
type EntryType string

const (
	EntryTypePersonalReflection    EntryType = "personal_reflection"
	EntryTypeProjectDecision       EntryType = "project_decision"
	EntryTypeTechnicalAchievement  EntryType = "technical_achievement"
	EntryTypeBugFix                EntryType = "bug_fix"
	EntryTypeFeatureImplementation EntryType = "feature_implementation"
	EntryTypeCodeReview            EntryType = "code_review"
	EntryTypeMeetingNotes          EntryType = "meeting_notes"
	EntryTypeLearning              EntryType = "learning"
	EntryTypeResearch              EntryType = "research"
	EntryTypeMilestone             EntryType = "milestone"
	EntryTypeDevelopmentNote       EntryType = "development_note"
	EntryTypeOther                 EntryType = "other"
)

// EntryTypes lists every known entry type in declaration order.
var EntryTypes = []EntryType{
	EntryTypePersonalReflection,
	EntryTypeProjectDecision,
	EntryTypeTechnicalAchievement,
	EntryTypeBugFix,
	EntryTypeFeatureImplementation,
	EntryTypeCodeReview,
	EntryTypeMeetingNotes,
	EntryTypeLearning,
	EntryTypeResearch,
	EntryTypeMilestone,
	EntryTypeDevelopmentNote,
	EntryTypeOther,
}

// SignificanceType marks an entry as notable. The empty value means none.
type SignificanceType string

const (
	SignificanceMilestone             SignificanceType = "milestone"
	SignificanceBreakthrough          SignificanceType = "breakthrough"
	SignificanceTechnicalBreakthrough SignificanceType = "technical_breakthrough"
	SignificanceMajorDecision         SignificanceType = "major_decision"
	SignificanceProjectCompletion     SignificanceType = "project_completion"
	SignificanceLessonLearned         SignificanceType = "lesson_learned"
)

// PRStatus is the state of a linked pull request.
type PRStatus string

const (
	PRStatusDraft  PRStatus = "draft"
	PRStatusOpen   PRStatus = "open"
	PRStatusMerged PRStatus = "merged"
	PRStatusClosed PRStatus = "closed"
)

// CrossRefs holds optional references into external trackers. The store
// persists and filters on them but never interprets them.
type CrossRefs struct {
	ProjectNumber  *int64   `json:"project_number,omitempty" yaml:"project_number,omitempty"`
	ProjectItemID  *int64   `json:"project_item_id,omitempty" yaml:"project_item_id,omitempty"`
	ProjectURL     string   `json:"project_url,omitempty" yaml:"project_url,omitempty"`
	IssueNumber    *int64   `json:"issue_number,omitempty" yaml:"issue_number,omitempty"`
	IssueURL       string   `json:"issue_url,omitempty" yaml:"issue_url,omitempty"`
	PRNumber       *int64   `json:"pr_number,omitempty" yaml:"pr_number,omitempty"`
	PRURL          string   `json:"pr_url,omitempty" yaml:"pr_url,omitempty"`
	PRStatus       PRStatus `json:"pr_status,omitempty" yaml:"pr_status,omitempty"`
	WorkflowRunID  *int64   `json:"workflow_run_id,omitempty" yaml:"workflow_run_id,omitempty"`
	ProjectContext string   `json:"project_context,omitempty" yaml:"project_context,omitempty"`
}

// Entry is a single journal record.
type Entry struct {
	ID           int64            `json:"id" yaml:"id"`
	Content      string           `json:"content" yaml:"content"`
	EntryType    EntryType        `json:"entry_type" yaml:"entry_type"`
	Timestamp    time.Time        `json:"timestamp" yaml:"timestamp"`
	IsPersonal   bool             `json:"is_personal" yaml:"is_personal"`
	Significance SignificanceType `json:"significance,omitempty" yaml:"significance,omitempty"`
	DeletedAt    *time.Time       `json:"deleted_at,omitempty" yaml:"deleted_at,omitempty"`
	CrossRefs    CrossRefs        `json:"cross_refs" yaml:"cross_refs"`
	Tags         []string         `json:"tags" yaml:"tags"`
	UpdatedAt    time.Time        `json:"updated_at" yaml:"updated_at"`
}

// Deleted reports whether the entry has been soft-deleted.
func (e *Entry) Deleted() bool {
	return e.DeletedAt != nil
}

// NewEntry is the input to EntryStore.Create.
type NewEntry struct {
	Content      string
	EntryType    EntryType // empty defaults to personal_reflection
	IsPersonal   bool
	Significance SignificanceType
	CrossRefs    CrossRefs
	Tags         []string
	Timestamp    time.Time // zero means now
}

// EntryPatch describes a partial update. Nil fields are left unchanged;
// a non-nil Tags replaces the whole tag set.
type EntryPatch struct {
	Content      *string
	EntryType    *EntryType
	IsPersonal   *bool
	Significance *SignificanceType
	CrossRefs    *CrossRefs
	Tags         *[]string
}

// Empty reports whether the patch changes nothing.
func (p EntryPatch) Empty() bool {
	return p.Content == nil && p.EntryType == nil && p.IsPersonal == nil &&
		p.Significance == nil && p.CrossRefs == nil && p.Tags == nil
}

// --- Tag types ---

// Tag is a label with its live usage count.
type Tag struct {
	ID         int64  `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	UsageCount int64  `json:"usage_count" yaml:"usage_count"`
}

// --- Relationship types ---

// RelationshipType is the kind of a directed link between two entries.
type RelationshipType string

const (
	RelReferences  RelationshipType = "references"
	RelImplements  RelationshipType = "implements"
	RelClarifies   RelationshipType = "clarifies"
	RelEvolvesFrom RelationshipType = "evolves_from"
	RelResponseTo  RelationshipType = "response_to"
)

// Relationship is a typed, directed edge between two entries.
type Relationship struct {
	ID          int64            `json:"id" yaml:"id"`
	FromID      int64            `json:"from_entry_id" yaml:"from_entry_id"`
	ToID        int64            `json:"to_entry_id" yaml:"to_entry_id"`
	Type        RelationshipType `json:"relationship_type" yaml:"relationship_type"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedAt   time.Time        `json:"created_at" yaml:"created_at"`
}

// NewRelationship is the input to EntryStore.LinkEntries.
type NewRelationship struct {
	FromID      int64
	ToID        int64
	Type        RelationshipType // empty defaults to references
	Description string
}

// Subgraph is a bounded set of entries plus the relationships among them.
type Subgraph struct {
	Entries       []*Entry        `json:"entries"`
	Relationships []*Relationship `json:"relationships"`
}

// --- Search types ---

// SearchQuery filters and optionally full-text matches entries. All set
// filters must match.
type SearchQuery struct {
	Text           string
	IsPersonal     *bool
	EntryTypes     []EntryType
	Tags           []string // any-of
	From           *time.Time
	To             *time.Time
	ProjectNumber  *int64
	IssueNumber    *int64
	PRNumber       *int64
	PRStatus       PRStatus
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// SearchHit is one search result. Snippet is set for full-text queries and
// Score for semantic ones.
type SearchHit struct {
	Entry   *Entry  `json:"entry"`
	Snippet string  `json:"snippet,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// --- Statistics types ---

// GroupBy is the activity bucket size for statistics.
type GroupBy string

const (
	GroupByDay   GroupBy = "day"
	GroupByWeek  GroupBy = "week"
	GroupByMonth GroupBy = "month"
)

// StatsQuery bounds a Statistics call.
type StatsQuery struct {
	From    *time.Time
	To      *time.Time
	GroupBy GroupBy // empty defaults to week
	TopTags int     // 0 defaults to 10
}

// Statistics summarises live entries.
type Statistics struct {
	TotalEntries       int64                      `json:"total_entries" yaml:"total_entries"`
	PersonalEntries    int64                      `json:"personal_entries" yaml:"personal_entries"`
	ProjectEntries     int64                      `json:"project_entries" yaml:"project_entries"`
	DeletedEntries     int64                      `json:"deleted_entries" yaml:"deleted_entries"`
	ByType             map[EntryType]int64        `json:"by_type" yaml:"by_type"`
	TopTags            []*Tag                     `json:"top_tags" yaml:"top_tags"`
	SignificantEntries map[SignificanceType]int64 `json:"significant_entries" yaml:"significant_entries"`
	Activity           []ActivityBucket           `json:"activity" yaml:"activity"`
	Projects           []ProjectActivity          `json:"projects" yaml:"projects"`
	Relationships      int64                      `json:"relationships" yaml:"relationships"`
}

// ProjectActivity summarises the live entries that reference one project.
// Dates are UTC calendar days.
type ProjectActivity struct {
	ProjectNumber int64  `json:"project_number" yaml:"project_number"`
	Entries       int64  `json:"entries" yaml:"entries"`
	ActiveDays    int64  `json:"active_days" yaml:"active_days"`
	FirstEntry    string `json:"first_entry" yaml:"first_entry"`
	LastEntry     string `json:"last_entry" yaml:"last_entry"`
}

// ActivityBucket is the entry count for one period.
type ActivityBucket struct {
	Period string `json:"period" yaml:"period"`
	Count  int64  `json:"count" yaml:"count"`
}

// --- Vector artifact types ---

// VectorState describes the active generation of the vector artifact.
type VectorState struct {
	Generation string
	Model      string
	Dimensions int
	BuiltAt    time.Time
	Count      int64
}

// VectorMatch is a raw nearest-neighbour result. Distance is L2.
type VectorMatch struct {
	EntryID  int64
	Distance float64
}
