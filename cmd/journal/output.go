// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/sigil-dev/journal/internal/store"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	tagStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("36"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
)

const timeLayout = "2006-01-02 15:04"

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func entryHeading(e *store.Entry) string {
	kind := "project"
	if e.IsPersonal {
		kind = "personal"
	}
	h := headingStyle.Render(fmt.Sprintf("#%d", e.ID)) + " " +
		dimStyle.Render(fmt.Sprintf("%s  %s  %s", e.Timestamp.Local().Format(timeLayout), e.EntryType, kind))
	if e.Significance != "" {
		h += " " + successStyle.Render("★ "+string(e.Significance))
	}
	if e.DeletedAt != nil {
		h += " " + errorStyle.Render("[deleted]")
	}
	return h
}

func tagLine(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = "#" + t
	}
	return tagStyle.Render(strings.Join(parts, " "))
}

func crossRefLine(c store.CrossRefs) string {
	var parts []string
	if c.ProjectNumber != nil {
		parts = append(parts, fmt.Sprintf("project %d", *c.ProjectNumber))
	}
	if c.IssueNumber != nil {
		parts = append(parts, fmt.Sprintf("issue #%d", *c.IssueNumber))
	}
	if c.PRNumber != nil {
		pr := fmt.Sprintf("PR #%d", *c.PRNumber)
		if c.PRStatus != "" {
			pr += " (" + string(c.PRStatus) + ")"
		}
		parts = append(parts, pr)
	}
	if c.WorkflowRunID != nil {
		parts = append(parts, fmt.Sprintf("run %d", *c.WorkflowRunID))
	}
	if c.ProjectContext != "" {
		parts = append(parts, c.ProjectContext)
	}
	return strings.Join(parts, " · ")
}

// printEntry writes the full entry.
func printEntry(w io.Writer, e *store.Entry) {
	_, _ = fmt.Fprintln(w, entryHeading(e))
	if refs := crossRefLine(e.CrossRefs); refs != "" {
		_, _ = fmt.Fprintln(w, dimStyle.Render(refs))
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, e.Content)
	if tags := tagLine(e.Tags); tags != "" {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, tags)
	}
}

// printHits writes one block per search hit with its snippet or preview.
func printHits(w io.Writer, hits []*store.SearchHit) {
	if len(hits) == 0 {
		_, _ = fmt.Fprintln(w, dimStyle.Render("No matching entries."))
		return
	}
	for i, h := range hits {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		head := entryHeading(h.Entry)
		if h.Score > 0 {
			head += " " + dimStyle.Render(fmt.Sprintf("score %.3f", h.Score))
		}
		_, _ = fmt.Fprintln(w, head)

		text := h.Snippet
		if text == "" {
			text = preview(h.Entry.Content, 160)
		}
		_, _ = fmt.Fprintln(w, "  "+text)
		if tags := tagLine(h.Entry.Tags); tags != "" {
			_, _ = fmt.Fprintln(w, "  "+tags)
		}
	}
}

func printRelationships(w io.Writer, id int64, rels []*store.Relationship) {
	if len(rels) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, headingStyle.Render("Relationships"))
	for _, r := range rels {
		var line string
		if r.FromID == id {
			line = fmt.Sprintf("  → #%d %s", r.ToID, r.Type)
		} else {
			line = fmt.Sprintf("  ← #%d %s", r.FromID, r.Type)
		}
		if r.Description != "" {
			line += dimStyle.Render("  " + r.Description)
		}
		_, _ = fmt.Fprintln(w, line)
	}
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.RFC3339)
}
