// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/journal/internal/config"
	"github.com/sigil-dev/journal/internal/secrets"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

// secretStoreFactory creates the secrets.Store used for keyring:// config
// values and the secret command. Tests substitute an in-memory store.
var secretStoreFactory = func() secrets.Store {
	return secrets.NewKeyringStore()
}

// NewRootCmd creates the root journal command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "journal",
		Short: "Searchable developer journal",
		Long: "journal records personal and project notes in a local SQLite database with\n" +
			"full-text search, semantic search over embeddings, and a relationship graph.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("data-dir", "", "directory holding journal.db and vectors.db")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "log format (text, json)")
	root.PersistentFlags().BoolP("verbose", "v", false, "shorthand for --log-level debug")

	root.AddCommand(
		newInitCmd(),
		newAddCmd(),
		newGetCmd(),
		newUpdateCmd(),
		newDeleteCmd(),
		newRestoreCmd(),
		newSearchCmd(),
		newTagsCmd(),
		newLinkCmd(),
		newGraphCmd(),
		newIndexCmd(),
		newStatsCmd(),
		newExportCmd(),
		newSecretCmd(),
		newVersionCmd(),
		newDoctorCmd(),
	)

	return root
}

// loadConfig reads the config named by --config, or the first journal.yaml
// on the search path, and applies the global flag overrides. When no config
// file exists anywhere the default one is bootstrapped.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Root().PersistentFlags()
	path, _ := flags.GetString("config")

	opts := []config.LoadOption{config.WithSecretStore(secretStoreFactory())}
	cfg, err := config.Load(path, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.Path == "" {
		if written := config.BootstrapDefault(); written != "" {
			if cfg, err = config.Load(written, opts...); err != nil {
				return nil, err
			}
		}
	}

	if dir, _ := flags.GetString("data-dir"); dir != "" {
		cfg.Storage.DataDir = dir
	}
	if level, _ := flags.GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if format, _ := flags.GetString("log-format"); format != "" {
		cfg.Logging.Format = format
	}
	if verbose, _ := flags.GetBool("verbose"); verbose {
		cfg.Logging.Level = "debug"
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue, "validating flags: %w", sigilerr.Join(errs...))
	}

	config.WarnInsecurePermissions(slog.Default(), cfg.Path)
	return cfg, nil
}

// newLogger builds the process logger from the logging section.
func newLogger(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
