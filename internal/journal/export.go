// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package journal

import (
	"context"
	"encoding/json"
	"io"
	"slices"
	"sort"
	"time"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/sigil-dev/journal/internal/store"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ExportDocument is the serialized form of an export.
type ExportDocument struct {
	ExportedAt    time.Time             `json:"exported_at" yaml:"exported_at"`
	Count         int                   `json:"count" yaml:"count"`
	Entries       []*store.Entry        `json:"entries" yaml:"entries"`
	Relationships []*store.Relationship `json:"relationships" yaml:"relationships"`
}

// Export writes every entry matching q, oldest first, with the
// relationships among them. q.Limit and q.Offset are ignored.
func (s *Service) Export(ctx context.Context, w io.Writer, format string, q store.SearchQuery) (int, error) {
	if format != FormatJSON && format != FormatYAML {
		return 0, sigilerr.Errorf(sigilerr.CodeJournalExportInvalidInput, "export: unsupported format %q (want json or yaml)", format)
	}

	doc, err := s.collect(ctx, q)
	if err != nil {
		return 0, err
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		err = enc.Encode(doc)
		if err == nil {
			err = enc.Close()
		}
	}
	if err != nil {
		return 0, sigilerr.Errorf(sigilerr.CodeJournalInternalFailure, "export: encoding %s: %w", format, err)
	}
	return doc.Count, nil
}

func (s *Service) collect(ctx context.Context, q store.SearchQuery) (*ExportDocument, error) {
	q.Limit = store.MaxSearchSize
	q.Offset = 0

	var entries []*store.Entry
	for {
		hits, err := s.store.Search(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, h := range hits {
			entries = append(entries, h.Entry)
		}
		if len(hits) < q.Limit {
			break
		}
		q.Offset += len(hits)
	}
	slices.Reverse(entries)

	doc := &ExportDocument{
		ExportedAt:    time.Now().UTC(),
		Count:         len(entries),
		Entries:       []*store.Entry{},
		Relationships: []*store.Relationship{},
	}
	if len(entries) == 0 {
		return doc, nil
	}
	doc.Entries = entries

	ids := lo.Map(entries, func(e *store.Entry, _ int) int64 { return e.ID })
	member := lo.SliceToMap(ids, func(id int64) (int64, bool) { return id, true })
	seen := make(map[int64]bool)
	for _, chunk := range lo.Chunk(ids, store.MaxSearchSize) {
		rels, err := s.store.RelationshipsTouching(ctx, chunk)
		if err != nil {
			return nil, err
		}
		for _, r := range rels {
			if member[r.FromID] && member[r.ToID] && !seen[r.ID] {
				seen[r.ID] = true
				doc.Relationships = append(doc.Relationships, r)
			}
		}
	}
	sort.Slice(doc.Relationships, func(i, j int) bool { return doc.Relationships[i].ID < doc.Relationships[j].ID })
	return doc, nil
}
