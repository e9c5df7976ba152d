// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package graph

import (
	"fmt"
	"strings"

	"github.com/sigil-dev/journal/internal/store"
)

// Node fill colours.
const (
	PersonalFill = "#E3F2FD"
	ProjectFill  = "#FFF3E0"
)

const (
	defaultPreviewLength = 40
	maxTypeLength        = 20
)

// RenderOptions controls Mermaid output.
type RenderOptions struct {
	// PreviewLength is the number of content characters in each node label.
	// Zero means 40.
	PreviewLength int
	// Fenced wraps the diagram in a ```mermaid code fence.
	Fenced bool
}

// Arrow returns the Mermaid link syntax for a relationship type.
func Arrow(t store.RelationshipType) string {
	switch t {
	case store.RelImplements:
		return "==>"
	case store.RelClarifies:
		return "-.->"
	case store.RelResponseTo:
		return "<-->"
	default:
		return "-->"
	}
}

// RenderMermaid renders sg as a top-down Mermaid flowchart. Entries become
// nodes labelled with their id, a content preview and their type; each
// relationship becomes an edge labelled with its type.
func RenderMermaid(sg *store.Subgraph, opts RenderOptions) string {
	if opts.PreviewLength <= 0 {
		opts.PreviewLength = defaultPreviewLength
	}

	var b strings.Builder
	if opts.Fenced {
		b.WriteString("```mermaid\n")
	}
	b.WriteString("graph TD\n")

	if sg != nil && len(sg.Entries) > 0 {
		for _, e := range sg.Entries {
			fmt.Fprintf(&b, "    E%d[\"#%d: %s<br/>%s\"]\n", e.ID, e.ID, preview(e.Content, opts.PreviewLength), truncate(string(e.EntryType), maxTypeLength))
		}

		if len(sg.Relationships) > 0 {
			b.WriteString("\n")
			for _, r := range sg.Relationships {
				fmt.Fprintf(&b, "    E%d %s|%s| E%d\n", r.FromID, Arrow(r.Type), r.Type, r.ToID)
			}
		}

		b.WriteString("\n")
		for _, e := range sg.Entries {
			fill := ProjectFill
			if e.IsPersonal {
				fill = PersonalFill
			}
			fmt.Fprintf(&b, "    style E%d fill:%s\n", e.ID, fill)
		}
	}

	if opts.Fenced {
		b.WriteString("```\n")
	}
	return b.String()
}

var labelEscaper = strings.NewReplacer(
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
	`"`, "'",
	"[", "(",
	"]", ")",
)

func preview(content string, n int) string {
	p := truncate(content, n)
	if p != content {
		p += "..."
	}
	return labelEscaper.Replace(p)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
