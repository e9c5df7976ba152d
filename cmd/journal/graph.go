// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/journal/internal/graph"
	"github.com/sigil-dev/journal/internal/store"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

func newTagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List tags by usage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			return withApp(cmd, func(ctx context.Context, a *app) error {
				tags, err := a.svc.ListTags(ctx)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(w, tags)
				}
				if len(tags) == 0 {
					_, err = fmt.Fprintln(w, dimStyle.Render("No tags yet."))
					return err
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				for _, t := range tags {
					_, _ = fmt.Fprintf(tw, "%s\t%d\n", tagStyle.Render("#"+t.Name), t.UsageCount)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().Bool("json", false, "print as JSON")
	return cmd
}

func newLinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link <from-id> <to-id>",
		Short: "Relate two entries",
		Long: "Create a typed relationship from one entry to another. Types: references (default),\n" +
			"implements, clarifies, evolves_from, response_to.",
		Args: cobra.ExactArgs(2),
		RunE: runLink,
	}
	cmd.Flags().StringP("type", "t", string(store.RelReferences), "relationship type")
	cmd.Flags().StringP("description", "d", "", "optional description")
	return cmd
}

func runLink(cmd *cobra.Command, args []string) error {
	from, err := parseID(args[0])
	if err != nil {
		return err
	}
	to, err := parseID(args[1])
	if err != nil {
		return err
	}
	typ, _ := cmd.Flags().GetString("type")
	desc, _ := cmd.Flags().GetString("description")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		rel, err := a.svc.Link(ctx, &store.NewRelationship{
			FromID:      from,
			ToID:        to,
			Type:        store.RelationshipType(typ),
			Description: desc,
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s #%d %s #%d\n",
			successStyle.Render("Linked"), rel.FromID, rel.Type, rel.ToID)
		return err
	})
}

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph [id]",
		Short: "Render connected entries as a Mermaid diagram",
		Long: `Walk relationships outward from a starting point and print the connected
entries as a Mermaid flowchart. Start from an entry id, from every entry
carrying --tag, or with --recent from the most recently linked entries.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runGraph,
	}
	cmd.Flags().StringSlice("tag", nil, "start from entries with these tags")
	cmd.Flags().Bool("recent", false, "start from recently linked entries")
	cmd.Flags().Int("depth", 0, "relationship hops to follow (1-3), default from config")
	cmd.Flags().Int("limit", 0, "maximum entries in the diagram, default from config")
	cmd.Flags().String("direction", string(graph.DirectionBoth), "follow outgoing, incoming or both")
	cmd.Flags().Bool("fenced", false, "wrap the diagram in a ```mermaid fence")
	cmd.Flags().Bool("json", false, "print the subgraph as JSON instead")
	return cmd
}

func runGraph(cmd *cobra.Command, args []string) error {
	tags, _ := cmd.Flags().GetStringSlice("tag")
	recent, _ := cmd.Flags().GetBool("recent")

	var seed graph.Seed
	switch {
	case len(args) == 1:
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		seed = graph.EntrySeed(id)
		seed.Tags, seed.Recent = tags, recent
	case len(tags) > 0:
		seed = graph.TagSeed(tags...)
		seed.Recent = recent
	case recent:
		seed = graph.RecentSeed()
	default:
		return sigilerr.New(sigilerr.CodeCLIInvalidArgument, "graph needs an entry id, --tag or --recent")
	}

	depth, _ := cmd.Flags().GetInt("depth")
	limit, _ := cmd.Flags().GetInt("limit")
	dir, _ := cmd.Flags().GetString("direction")
	fenced, _ := cmd.Flags().GetBool("fenced")
	asJSON, _ := cmd.Flags().GetBool("json")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		sg, err := a.svc.Graph(ctx, seed, depth, limit, graph.WithDirection(graph.Direction(dir)))
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if asJSON {
			return writeJSON(w, sg)
		}
		_, err = fmt.Fprint(w, graph.RenderMermaid(sg, graph.RenderOptions{Fenced: fenced}))
		return err
	})
}
