// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/journal/internal/config"
)

// probeTimeout bounds the optional live embedding request.
const probeTimeout = 15 * time.Second

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check the config, the database, the semantic index, the embedding provider and disk space.",
		RunE:  runDoctor,
	}
	cmd.Flags().Bool("probe", false, "send one test request to the embedding provider")
	return cmd
}

type check struct {
	name string
	fn   func() string
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	probe, _ := cmd.Flags().GetBool("probe")

	checks := []check{
		{"Binary", checkBinary},
		{"Platform", checkPlatform},
	}

	cfg, cfgErr := loadConfig(cmd)
	if cfgErr != nil {
		checks = append(checks,
			check{"Config", func() string { return errorStyle.Render("error: " + cfgErr.Error()) }},
			check{"Disk Space", func() string { return checkDiskSpace(config.DefaultDataDir()) }},
		)
		return runChecks(w, checks)
	}

	checks = append(checks, check{"Config", func() string { return checkConfig(cfg) }})

	a, wireErr := wire(cfg, newLogger(io.Discard, cfg.Logging))
	if wireErr != nil {
		checks = append(checks, check{"Storage", func() string { return errorStyle.Render("error: " + wireErr.Error()) }})
	} else {
		defer func() { _ = a.Close() }()
		ctx := cmd.Context()
		checks = append(checks,
			check{"Storage", func() string { return checkStorage(ctx, a) }},
			check{"Index", func() string { return checkIndex(ctx, a) }},
			check{"Embedding", func() string { return checkEmbedding(ctx, a, probe) }},
		)
	}
	checks = append(checks, check{"Disk Space", func() string { return checkDiskSpace(cfg.Storage.DataDir) }})

	return runChecks(w, checks)
}

func runChecks(w io.Writer, checks []check) error {
	for _, c := range checks {
		if _, err := fmt.Fprintf(w, "%-12s %s\n", c.name+":", c.fn()); err != nil {
			return err
		}
	}
	return nil
}

func checkBinary() string {
	b := currentBuild()
	return fmt.Sprintf("journal %s (commit %s)", b.Version, b.Commit)
}

func checkPlatform() string {
	return fmt.Sprintf("%s/%s, Go %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func checkConfig(cfg *config.Config) string {
	if cfg.Path == "" {
		return "using defaults (no config file found)"
	}
	msg := "loaded from " + cfg.Path
	if config.WarnInsecurePermissions(slog.New(slog.NewTextHandler(io.Discard, nil)), cfg.Path) {
		msg += " " + errorStyle.Render("(readable by other users, chmod 600)")
	}
	return msg
}

func checkStorage(ctx context.Context, a *app) string {
	n, err := a.entries.CountLive(ctx)
	if err != nil {
		return errorStyle.Render("error: " + err.Error())
	}
	return fmt.Sprintf("%d entries in %s (%s)", n, a.cfg.Storage.DataDir, a.cfg.Storage.Backend)
}

func checkIndex(ctx context.Context, a *app) string {
	st, err := a.svc.IndexStats(ctx)
	switch {
	case err != nil:
		return errorStyle.Render("error: " + err.Error())
	case st.Generation == "":
		return "not built yet (run 'journal index rebuild')"
	case st.Stale:
		return errorStyle.Render(fmt.Sprintf("stale: built with %s/%d, provider is %s/%d (run 'journal index rebuild')",
			st.Model, st.Dimensions, st.ProviderModel, st.ProviderDimensions))
	}
	return fmt.Sprintf("%d vectors, %s (%d dims)", st.Items, st.Model, st.Dimensions)
}

func checkEmbedding(ctx context.Context, a *app, probe bool) string {
	desc := fmt.Sprintf("%s %s (%d dims)", a.gate.Name(), a.gate.Model(), a.gate.Dimensions())
	if !probe {
		return desc
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if _, err := a.gate.Embed(ctx, "journal doctor probe"); err != nil {
		return desc + " " + errorStyle.Render("probe failed: "+err.Error())
	}
	return desc + " " + successStyle.Render("ok")
}

func checkDiskSpace(dataDir string) string {
	path := dataDir
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path, _ = os.UserHomeDir()
	}
	avail, err := availableBytes(path)
	if err != nil {
		return fmt.Sprintf("unable to check: %s", err)
	}
	return formatBytes(avail) + " available"
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b uint64) string {
	const (
		gb = 1024 * 1024 * 1024
		mb = 1024 * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}

