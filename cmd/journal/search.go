// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/journal/internal/journal"
	"github.com/sigil-dev/journal/internal/store"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Search entries",
		Long: `Search entries by full-text query, filters, or meaning.

Without --semantic the query is matched against entry content and tags,
ranked by relevance. With no query at all, matching entries are listed
newest first. --semantic ranks entries by embedding similarity instead
and needs a query.`,
		RunE: runSearch,
	}
	addFilterFlags(cmd)
	cmd.Flags().Bool("semantic", false, "rank by embedding similarity")
	cmd.Flags().Float64("threshold", -1, "minimum similarity for --semantic (0..1), default from config")
	cmd.Flags().Int64("project", 0, "filter by project number")
	cmd.Flags().Int64("issue", 0, "filter by issue number")
	cmd.Flags().Int64("pr", 0, "filter by pull request number")
	cmd.Flags().String("pr-status", "", "filter by pull request status")
	cmd.Flags().Bool("include-deleted", false, "include soft-deleted entries")
	cmd.Flags().IntP("limit", "n", store.DefaultSearchSize, "maximum results")
	cmd.Flags().Int("offset", 0, "skip this many results")
	cmd.Flags().Bool("json", false, "print as JSON")
	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	q, err := filterQuery(cmd)
	if err != nil {
		return err
	}
	q.Text = strings.Join(args, " ")
	q.Limit, _ = cmd.Flags().GetInt("limit")
	q.Offset, _ = cmd.Flags().GetInt("offset")
	q.IncludeDeleted, _ = cmd.Flags().GetBool("include-deleted")
	q.ProjectNumber = int64Flag(cmd, "project")
	q.IssueNumber = int64Flag(cmd, "issue")
	q.PRNumber = int64Flag(cmd, "pr")
	status, _ := cmd.Flags().GetString("pr-status")
	q.PRStatus = store.PRStatus(status)

	semantic, _ := cmd.Flags().GetBool("semantic")
	asJSON, _ := cmd.Flags().GetBool("json")

	var sq journal.SemanticQuery
	if semantic {
		if q.Text == "" {
			return sigilerr.New(sigilerr.CodeCLIInvalidArgument, "--semantic needs a query")
		}
		sq = journal.SemanticQuery{
			Text:       q.Text,
			Limit:      q.Limit,
			IsPersonal: q.IsPersonal,
			EntryTypes: q.EntryTypes,
			Tags:       q.Tags,
		}
		if cmd.Flags().Changed("threshold") {
			t, _ := cmd.Flags().GetFloat64("threshold")
			sq.Threshold = &t
		}
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		var hits []*store.SearchHit
		var err error
		switch {
		case semantic:
			hits, err = a.svc.SemanticSearch(ctx, sq)
		case q.From != nil && q.To != nil:
			from, to := *q.From, *q.To
			hits, err = a.svc.SearchByDateRange(ctx, from, to, q)
		default:
			hits, err = a.svc.Search(ctx, q)
		}
		if err != nil {
			return err
		}

		if asJSON {
			return writeJSON(cmd.OutOrStdout(), hits)
		}
		printHits(cmd.OutOrStdout(), hits)
		return nil
	})
}
