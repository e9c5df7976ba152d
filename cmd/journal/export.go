// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/journal/internal/journal"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write entries and their relationships as JSON or YAML",
		RunE:  runExport,
	}
	addFilterFlags(cmd)
	cmd.Flags().StringP("format", "f", journal.FormatJSON, "json or yaml")
	cmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")
	cmd.Flags().Bool("include-deleted", false, "include soft-deleted entries")
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	q, err := filterQuery(cmd)
	if err != nil {
		return err
	}
	q.IncludeDeleted, _ = cmd.Flags().GetBool("include-deleted")
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		var w io.Writer = cmd.OutOrStdout()
		if output != "" {
			f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
			if err != nil {
				return sigilerr.Errorf(sigilerr.CodeCLIInvalidArgument, "opening %s: %w", output, err)
			}
			defer func() { _ = f.Close() }()
			w = f
		}

		n, err := a.svc.Export(ctx, w, format, q)
		if err != nil {
			return err
		}
		if output != "" {
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %d entries to %s\n", successStyle.Render("Exported"), n, output)
		}
		return err
	})
}
