// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/journal/internal/store"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize journal activity",
		RunE:  runStats,
	}
	cmd.Flags().String("from", "", "start of the period (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().String("to", "", "end of the period")
	cmd.Flags().String("group-by", string(store.GroupByWeek), "activity buckets: day, week or month")
	cmd.Flags().Int("top-tags", 10, "number of tags to list")
	cmd.Flags().Bool("json", false, "print as JSON")
	return cmd
}

func runStats(cmd *cobra.Command, _ []string) error {
	var q store.StatsQuery
	var err error
	if q.From, err = timeFlag(cmd, "from", false); err != nil {
		return err
	}
	if q.To, err = timeFlag(cmd, "to", true); err != nil {
		return err
	}
	groupBy, _ := cmd.Flags().GetString("group-by")
	q.GroupBy = store.GroupBy(groupBy)
	q.TopTags, _ = cmd.Flags().GetInt("top-tags")
	asJSON, _ := cmd.Flags().GetBool("json")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		st, err := a.svc.Statistics(ctx, q)
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), st)
		}
		printStats(cmd, st)
		return nil
	})
}

func printStats(cmd *cobra.Command, st *store.Statistics) {
	w := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, titleStyle.Render("Journal statistics"))
	_, _ = fmt.Fprintf(tw, "Entries\t%d (%d personal, %d project)\n", st.TotalEntries, st.PersonalEntries, st.ProjectEntries)
	_, _ = fmt.Fprintf(tw, "Deleted\t%d\n", st.DeletedEntries)
	_, _ = fmt.Fprintf(tw, "Relationships\t%d\n", st.Relationships)
	_ = tw.Flush()

	if len(st.ByType) > 0 {
		_, _ = fmt.Fprintln(w, "\n"+headingStyle.Render("By type"))
		for _, t := range slices.Sorted(maps.Keys(st.ByType)) {
			_, _ = fmt.Fprintf(tw, "  %s\t%d\n", t, st.ByType[t])
		}
		_ = tw.Flush()
	}

	if len(st.SignificantEntries) > 0 {
		_, _ = fmt.Fprintln(w, "\n"+headingStyle.Render("Significant"))
		for _, s := range slices.Sorted(maps.Keys(st.SignificantEntries)) {
			_, _ = fmt.Fprintf(tw, "  %s\t%d\n", s, st.SignificantEntries[s])
		}
		_ = tw.Flush()
	}

	if len(st.TopTags) > 0 {
		_, _ = fmt.Fprintln(w, "\n"+headingStyle.Render("Top tags"))
		for _, t := range st.TopTags {
			_, _ = fmt.Fprintf(tw, "  %s\t%d\n", tagStyle.Render("#"+t.Name), t.UsageCount)
		}
		_ = tw.Flush()
	}

	if len(st.Projects) > 0 {
		_, _ = fmt.Fprintln(w, "\n"+headingStyle.Render("Projects"))
		for _, p := range st.Projects {
			_, _ = fmt.Fprintf(tw, "  #%d\t%d entries, %d active days\t%s .. %s\n",
				p.ProjectNumber, p.Entries, p.ActiveDays, p.FirstEntry, p.LastEntry)
		}
		_ = tw.Flush()
	}

	if len(st.Activity) > 0 {
		_, _ = fmt.Fprintln(w, "\n"+headingStyle.Render("Activity"))
		peak := slices.MaxFunc(st.Activity, func(a, b store.ActivityBucket) int { return int(a.Count - b.Count) }).Count
		for _, b := range st.Activity {
			_, _ = fmt.Fprintf(tw, "  %s\t%s %d\n", b.Period, bar(b.Count, peak, 30), b.Count)
		}
		_ = tw.Flush()
	}
}

func bar(n, peak int64, width int) string {
	if peak <= 0 {
		return ""
	}
	filled := max(int(n*int64(width)/peak), 1)
	return successStyle.Render(strings.Repeat("█", filled))
}
