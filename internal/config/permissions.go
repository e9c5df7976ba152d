// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

//go:build !windows

package config

import (
	"io/fs"
	"log/slog"
	"os"
)

const (
	groupRead fs.FileMode = 0o040
	otherRead fs.FileMode = 0o004
)

// WarnInsecurePermissions logs a warning when the config file at path is
// group- or world-readable. It reports whether it warned. API keys may sit
// in the file in plain text.
func WarnInsecurePermissions(logger *slog.Logger, path string) bool {
	if path == "" {
		return false
	}
	if logger == nil {
		logger = slog.Default()
	}

	info, err := os.Stat(path)
	if err != nil {
		logger.Debug("could not stat config file for permission check", "path", path, "error", err)
		return false
	}

	if perm := info.Mode().Perm(); perm&(groupRead|otherRead) != 0 {
		logger.Warn("config file is readable by other users; api keys may be exposed",
			"path", path,
			"mode", perm,
			"recommended", "0600",
		)
		return true
	}
	return false
}
