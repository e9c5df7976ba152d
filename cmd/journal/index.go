// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/journal/internal/vector"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Maintain the semantic search index",
	}
	cmd.AddCommand(newIndexRebuildCmd(), newIndexStatsCmd())
	return cmd
}

func newIndexRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Re-embed every live entry into a fresh index",
		Long: `Re-embed every live entry with the configured provider and swap the new
index in when complete. Searches keep using the previous index until then,
and an interrupted rebuild leaves it untouched. Run this after changing
embedding.provider, embedding.model or embedding.dimensions.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				w := cmd.ErrOrStderr()
				n, err := a.svc.RebuildIndex(ctx, func(done, total int) {
					_, _ = fmt.Fprintf(w, "\r%s %d/%d", dimStyle.Render("embedding"), done, total)
				})
				_, _ = fmt.Fprintln(w)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %d entries with %s\n",
					successStyle.Render("Indexed"), n, a.gate.Model())
				return err
			})
		},
	}
}

func newIndexStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index size, model and queue state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			return withApp(cmd, func(ctx context.Context, a *app) error {
				st, err := a.svc.IndexStats(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), st)
				}
				return printIndexStats(cmd, a.gate.Name(), st)
			})
		},
	}
	cmd.Flags().Bool("json", false, "print as JSON")
	return cmd
}

func printIndexStats(cmd *cobra.Command, provider string, st vector.Stats) error {
	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(w, titleStyle.Render("Semantic index"))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Entries\t%d\n", st.Items)
	if st.Generation != "" {
		_, _ = fmt.Fprintf(tw, "Model\t%s (%d dims)\n", st.Model, st.Dimensions)
		_, _ = fmt.Fprintf(tw, "Built\t%s\n", formatTime(st.BuiltAt))
	} else {
		_, _ = fmt.Fprintf(tw, "Model\t%s\n", dimStyle.Render("not built yet"))
	}
	_, _ = fmt.Fprintf(tw, "Provider\t%s %s (%d dims)\n", provider, st.ProviderModel, st.ProviderDimensions)
	if st.Stale {
		_, _ = fmt.Fprintf(tw, "Status\t%s\n", errorStyle.Render("stale: run 'journal index rebuild'"))
	}
	if st.Provider != nil && !st.Provider.Available {
		_, _ = fmt.Fprintf(tw, "Health\t%s until %s (%s)\n",
			errorStyle.Render("cooling down"), formatTime(st.Provider.CooldownUntil), st.Provider.LastError)
	}
	if st.Queue != nil {
		_, _ = fmt.Fprintf(tw, "Queue\t%d pending, %d processed, %d failed, %d dropped\n",
			st.Queue.Pending, st.Queue.Processed, st.Queue.Failed, st.Queue.Dropped)
	}
	return tw.Flush()
}
