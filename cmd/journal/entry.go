// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/journal/internal/store"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

func addEntryFlags(cmd *cobra.Command) {
	cmd.Flags().String("type", "", "entry type (personal_reflection, bug_fix, milestone, ...)")
	cmd.Flags().Bool("personal", false, "mark as a personal entry")
	cmd.Flags().String("significance", "", "significance (milestone, breakthrough, lesson_learned, ...)")
	cmd.Flags().Int64("project", 0, "project number")
	cmd.Flags().Int64("issue", 0, "issue number")
	cmd.Flags().Int64("pr", 0, "pull request number")
	cmd.Flags().String("pr-status", "", "pull request status (draft, open, merged, closed)")
	cmd.Flags().String("context", "", "free-form project context")
}

// crossRefs reads the cross-reference flags. changed reports whether any
// of them was given.
func crossRefs(cmd *cobra.Command, base store.CrossRefs) (refs store.CrossRefs, changed bool) {
	refs = base
	if v := int64Flag(cmd, "project"); v != nil {
		refs.ProjectNumber, changed = v, true
	}
	if v := int64Flag(cmd, "issue"); v != nil {
		refs.IssueNumber, changed = v, true
	}
	if v := int64Flag(cmd, "pr"); v != nil {
		refs.PRNumber, changed = v, true
	}
	if cmd.Flags().Changed("pr-status") {
		s, _ := cmd.Flags().GetString("pr-status")
		refs.PRStatus, changed = store.PRStatus(s), true
	}
	if cmd.Flags().Changed("context") {
		refs.ProjectContext, _ = cmd.Flags().GetString("context")
		changed = true
	}
	return refs, changed
}

// contentArg joins the positional arguments, or reads stdin when there are
// none or the only argument is "-".
func contentArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", sigilerr.Errorf(sigilerr.CodeCLIInvalidArgument, "reading content from stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [content...]",
		Short: "Record a new entry",
		Long:  "Record a new entry. Content comes from the arguments, or from stdin when none are given.",
		RunE:  runAdd,
	}
	addEntryFlags(cmd)
	cmd.Flags().StringSlice("tag", nil, "tag (repeatable)")
	cmd.Flags().String("at", "", "entry time (YYYY-MM-DD or RFC 3339), default now")
	return cmd
}

func runAdd(cmd *cobra.Command, args []string) error {
	content, err := contentArg(cmd, args)
	if err != nil {
		return err
	}

	in := &store.NewEntry{Content: content}
	typ, _ := cmd.Flags().GetString("type")
	in.EntryType = store.EntryType(typ)
	in.IsPersonal, _ = cmd.Flags().GetBool("personal")
	sig, _ := cmd.Flags().GetString("significance")
	in.Significance = store.SignificanceType(sig)
	in.Tags, _ = cmd.Flags().GetStringSlice("tag")
	in.CrossRefs, _ = crossRefs(cmd, store.CrossRefs{})
	at, err := timeFlag(cmd, "at", false)
	if err != nil {
		return err
	}
	if at != nil {
		in.Timestamp = *at
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		e, err := a.svc.Create(ctx, in)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s entry #%d\n", successStyle.Render("Created"), e.ID)
		return err
	})
}

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show an entry and its relationships",
		Args:  cobra.ExactArgs(1),
		RunE:  runGet,
	}
	cmd.Flags().Bool("json", false, "print as JSON")
	return cmd
}

func runGet(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		e, err := a.svc.Get(ctx, id)
		if err != nil {
			return err
		}
		rels, err := a.svc.Relationships(ctx, id)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if asJSON {
			return writeJSON(w, struct {
				*store.Entry
				Relationships []*store.Relationship `json:"relationships"`
			}{e, rels})
		}
		printEntry(w, e)
		printRelationships(w, id, rels)
		return nil
	})
}

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of an entry",
		Long:  "Change fields of an entry. Only flags that are given are applied; --tags replaces the whole tag set.",
		Args:  cobra.ExactArgs(1),
		RunE:  runUpdate,
	}
	addEntryFlags(cmd)
	cmd.Flags().String("content", "", "new content")
	cmd.Flags().StringSlice("tags", nil, "replace all tags (pass --tags= to clear)")
	return cmd
}

func runUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	var patch store.EntryPatch
	flags := cmd.Flags()
	if flags.Changed("content") {
		v, _ := flags.GetString("content")
		patch.Content = &v
	}
	if flags.Changed("type") {
		v, _ := flags.GetString("type")
		t := store.EntryType(v)
		patch.EntryType = &t
	}
	if flags.Changed("personal") {
		v, _ := flags.GetBool("personal")
		patch.IsPersonal = &v
	}
	if flags.Changed("significance") {
		v, _ := flags.GetString("significance")
		s := store.SignificanceType(v)
		patch.Significance = &s
	}
	if flags.Changed("tags") {
		v, _ := flags.GetStringSlice("tags")
		patch.Tags = &v
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		current, err := a.svc.Get(ctx, id)
		if err != nil {
			return err
		}
		if refs, changed := crossRefs(cmd, current.CrossRefs); changed {
			patch.CrossRefs = &refs
		}

		e, err := a.svc.Update(ctx, id, patch)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s entry #%d\n", successStyle.Render("Updated"), e.ID)
		return err
	})
}

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an entry",
		Long:  "Soft-delete an entry so it can be restored later, or remove it for good with --permanent.",
		Args:  cobra.ExactArgs(1),
		RunE:  runDelete,
	}
	cmd.Flags().Bool("permanent", false, "remove the entry and its relationships for good")
	return cmd
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	permanent, _ := cmd.Flags().GetBool("permanent")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		var ok bool
		var err error
		if permanent {
			ok, err = a.svc.PermanentDelete(ctx, id)
		} else {
			ok, err = a.svc.SoftDelete(ctx, id)
		}
		if err != nil {
			return err
		}
		if !ok {
			return sigilerr.New(sigilerr.CodeStoreEntryGetNotFound,
				fmt.Sprintf("entry %d not found or already deleted", id), sigilerr.FieldEntryID(id))
		}
		verb := "Deleted"
		if permanent {
			verb = "Permanently deleted"
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s entry #%d\n", successStyle.Render(verb), id)
		return err
	})
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore a soft-deleted entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				ok, err := a.svc.Restore(ctx, id)
				if err != nil {
					return err
				}
				if !ok {
					return sigilerr.New(sigilerr.CodeStoreEntryGetNotFound,
						fmt.Sprintf("entry %d not found or not deleted", id), sigilerr.FieldEntryID(id))
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s entry #%d\n", successStyle.Render("Restored"), id)
				return err
			})
		},
	}
}
