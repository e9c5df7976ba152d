// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/sigil-dev/journal/internal/config"
	"github.com/sigil-dev/journal/internal/secrets"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

func init() {
	keyring.MockInit()
}

// isolate keeps Load from picking up a journal.yaml on the host.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	return home
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultValues(t *testing.T) {
	home := isolate(t)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, filepath.Join(home, ".local", "share", "journal"), cfg.Storage.DataDir)
	assert.Equal(t, "hash", cfg.Embedding.Provider)
	assert.Equal(t, 30*time.Second, cfg.Embedding.Cooldown)
	assert.InDelta(t, 0.3, cfg.Vector.SimilarityThreshold, 1e-9)
	assert.Equal(t, 256, cfg.Vector.QueueSize)
	assert.Equal(t, 1, cfg.Graph.DefaultDepth)
	assert.Equal(t, 20, cfg.Graph.DefaultLimit)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Empty(t, cfg.Path)
}

func TestLoad_FromFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
storage:
  data_dir: /tmp/journal-data
  busy_timeout_ms: 250
embedding:
  provider: openai
  model: text-embedding-3-large
  dimensions: 512
  api_key: sk-test
  cooldown: 1m
vector:
  similarity_threshold: 0.5
graph:
  default_depth: 2
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, 512, cfg.Embedding.Dimensions)
	assert.Equal(t, time.Minute, cfg.Embedding.Cooldown)
	assert.Equal(t, 2, cfg.Graph.DefaultDepth)

	sc := cfg.StorageConfig()
	assert.Equal(t, "/tmp/journal-data", sc.DataDir)
	assert.Equal(t, 250*time.Millisecond, sc.BusyTimeout)

	ec := cfg.EmbeddingConfig()
	assert.Equal(t, "text-embedding-3-large", ec.Model)
	assert.Equal(t, "sk-test", ec.APIKey)
	assert.NotContains(t, cfg.String(), "sk-test")
}

func TestLoad_SearchPath(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".config", "journal")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "journal.yaml"), []byte("vector:\n  workers: 5\n"), 0o600))

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Vector.Workers)
	assert.Equal(t, filepath.Join(dir, "journal.yaml"), cfg.Path)
}

func TestLoad_EnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("JOURNAL_VECTOR_WORKERS", "7")
	t.Setenv("JOURNAL_LOGGING_FORMAT", "json")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Vector.Workers)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_ResolvesKeyringSecrets(t *testing.T) {
	isolate(t)
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Set(secrets.ServiceName, "config-test-key", "sk-from-keyring"))

	path := writeConfig(t, `
embedding:
  provider: google
  api_key: keyring://journal/config-test-key
`)
	cfg, err := config.Load(path, config.WithSecretStore(ks))
	require.NoError(t, err)
	assert.Equal(t, "sk-from-keyring", cfg.Embedding.APIKey)

	missing := writeConfig(t, `
embedding:
  provider: google
  api_key: keyring://journal/never-stored
`)
	_, err = config.Load(missing, config.WithSecretStore(ks))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding.api_key")
}

func TestLoad_Errors(t *testing.T) {
	isolate(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, sigilerr.HasCode(err, sigilerr.CodeConfigLoadReadFailure))

	_, err = config.Load(writeConfig(t, "storage: [unclosed\n"))
	require.Error(t, err)
	assert.True(t, sigilerr.HasCode(err, sigilerr.CodeConfigParseInvalidFormat))

	_, err = config.Load(writeConfig(t, "embedding:\n  provider: cohere\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding.provider")
	assert.Equal(t, 2, sigilerr.ExitCode(err))
}

func validConfig() *config.Config {
	return &config.Config{
		Storage:   config.StorageConfig{Backend: "sqlite", DataDir: "/tmp/j", BusyTimeoutMS: 100},
		Embedding: config.EmbeddingConfig{Provider: "hash"},
		Vector:    config.VectorConfig{SimilarityThreshold: 0.3, QueueSize: 8, Workers: 1, RebuildBatch: 16},
		Graph:     config.GraphConfig{DefaultDepth: 1, DefaultLimit: 20},
		Logging:   config.LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestValidate(t *testing.T) {
	assert.Empty(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"backend", func(c *config.Config) { c.Storage.Backend = "postgres" }, "storage.backend"},
		{"data dir", func(c *config.Config) { c.Storage.DataDir = "" }, "storage.data_dir"},
		{"busy timeout", func(c *config.Config) { c.Storage.BusyTimeoutMS = -1 }, "storage.busy_timeout_ms"},
		{"provider", func(c *config.Config) { c.Embedding.Provider = "cohere" }, "embedding.provider"},
		{"api key", func(c *config.Config) { c.Embedding.Provider = "openai" }, "embedding.api_key"},
		{"dimensions", func(c *config.Config) { c.Embedding.Dimensions = -3 }, "embedding.dimensions"},
		{"threshold", func(c *config.Config) { c.Vector.SimilarityThreshold = 1.5 }, "vector.similarity_threshold"},
		{"queue", func(c *config.Config) { c.Vector.QueueSize = 0 }, "vector.queue_size"},
		{"workers", func(c *config.Config) { c.Vector.Workers = 0 }, "vector.workers"},
		{"batch", func(c *config.Config) { c.Vector.RebuildBatch = 0 }, "vector.rebuild_batch"},
		{"depth", func(c *config.Config) { c.Graph.DefaultDepth = 4 }, "graph.default_depth"},
		{"limit", func(c *config.Config) { c.Graph.DefaultLimit = 500 }, "graph.default_limit"},
		{"level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			errs := cfg.Validate()
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0].Error(), tt.want)
			assert.True(t, sigilerr.IsInvalidInput(errs[0]))
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Backend = ""
	cfg.Vector.Workers = -1
	cfg.Logging.Format = ""
	assert.Len(t, cfg.Validate(), 3)
}

func TestBootstrap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.yaml")

	written, err := config.Bootstrap(path)
	require.NoError(t, err)
	assert.True(t, written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfigYAML, data)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	written, err = config.Bootstrap(path)
	require.NoError(t, err)
	assert.False(t, written, "existing file is left alone")
}

func TestDefaultConfigYAML_Loads(t *testing.T) {
	isolate(t)
	cfg, err := config.Load(writeConfig(t, string(config.DefaultConfigYAML)))
	require.NoError(t, err)
	assert.Equal(t, "hash", cfg.Embedding.Provider)
	assert.Equal(t, 64, cfg.Vector.RebuildBatch)
}

func TestBootstrapDefault(t *testing.T) {
	home := isolate(t)

	path := config.BootstrapDefault()
	assert.Equal(t, filepath.Join(home, ".config", "journal", "journal.yaml"), path)
	assert.Empty(t, config.BootstrapDefault())
}
