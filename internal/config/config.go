// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sigil-dev/journal/internal/embedding"
	"github.com/sigil-dev/journal/internal/graph"
	"github.com/sigil-dev/journal/internal/secrets"
	"github.com/sigil-dev/journal/internal/store"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

// Config is the top-level journal configuration.
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Graph     GraphConfig     `mapstructure:"graph"`
	Logging   LoggingConfig   `mapstructure:"logging"`

	// Path is the config file that was read, empty when running on
	// defaults and environment only.
	Path string `mapstructure:"-"`
}

// StorageConfig selects the storage backend and where it keeps its files.
type StorageConfig struct {
	Backend       string `mapstructure:"backend"`
	DataDir       string `mapstructure:"data_dir"`
	BusyTimeoutMS int    `mapstructure:"busy_timeout_ms"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider   string        `mapstructure:"provider"`
	Model      string        `mapstructure:"model"`
	Dimensions int           `mapstructure:"dimensions"`
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Cooldown   time.Duration `mapstructure:"cooldown"`
}

// VectorConfig tunes semantic search and the background indexer.
type VectorConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	QueueSize           int     `mapstructure:"queue_size"`
	Workers             int     `mapstructure:"workers"`
	RebuildBatch        int     `mapstructure:"rebuild_batch"`
}

// GraphConfig holds the defaults for graph traversal.
type GraphConfig struct {
	DefaultDepth int `mapstructure:"default_depth"`
	DefaultLimit int `mapstructure:"default_limit"`
}

// LoggingConfig controls the CLI log handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type loadOptions struct {
	secrets secrets.Store
}

// LoadOption customizes Load.
type LoadOption func(*loadOptions)

// WithSecretStore resolves keyring:// values against s instead of the OS
// keyring.
func WithSecretStore(s secrets.Store) LoadOption {
	return func(o *loadOptions) { o.secrets = s }
}

// DefaultDataDir returns ~/.local/share/journal.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".journal")
	}
	return filepath.Join(home, ".local", "share", "journal")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.data_dir", DefaultDataDir())
	v.SetDefault("storage.busy_timeout_ms", 5000)
	v.SetDefault("embedding.provider", "hash")
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.dimensions", 0)
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.cooldown", "30s")
	v.SetDefault("vector.similarity_threshold", 0.3)
	v.SetDefault("vector.queue_size", 256)
	v.SetDefault("vector.workers", 2)
	v.SetDefault("vector.rebuild_batch", 64)
	v.SetDefault("graph.default_depth", graph.DefaultDepth)
	v.SetDefault("graph.default_limit", graph.DefaultLimit)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Load reads configuration from path, or from journal.yaml in ./,
// $HOME/.config/journal or /etc/journal when path is empty. Environment
// variables prefixed JOURNAL_ override file values, and keyring:// values
// are replaced with the secrets they reference.
func Load(path string, opts ...LoadOption) (*Config, error) {
	o := loadOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.secrets == nil {
		o.secrets = secrets.NewKeyringStore()
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("JOURNAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, readError(path, err)
		}
	} else {
		v.SetConfigName("journal")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "journal"))
		}
		v.AddConfigPath("/etc/journal")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, readError(v.ConfigFileUsed(), err)
			}
		}
	}

	if err := secrets.ResolveViper(v, o.secrets); err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeConfigLoadReadFailure, "resolving secrets: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}
	cfg.Path = v.ConfigFileUsed()

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

func readError(path string, err error) error {
	var parseErr viper.ConfigParseError
	if errors.As(err, &parseErr) {
		return sigilerr.Errorf(sigilerr.CodeConfigParseInvalidFormat, "parsing config %s: %w", path, err)
	}
	return sigilerr.Errorf(sigilerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
}

// Validate checks the configuration for logical errors. It collects every
// issue rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateEmbedding()...)
	errs = append(errs, c.validateVector()...)
	errs = append(errs, c.validateGraph()...)
	errs = append(errs, c.validateLogging()...)

	return errs
}

func invalid(format string, args ...any) error {
	return sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue, "config: "+format, args...)
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"sqlite": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, invalid("storage.backend must be one of [sqlite], got %q", c.Storage.Backend))
	}
	if c.Storage.DataDir == "" {
		errs = append(errs, invalid("storage.data_dir must not be empty"))
	}
	if c.Storage.BusyTimeoutMS < 0 {
		errs = append(errs, invalid("storage.busy_timeout_ms must not be negative, got %d", c.Storage.BusyTimeoutMS))
	}

	return errs
}

func (c *Config) validateEmbedding() []error {
	var errs []error

	validProviders := map[string]bool{"hash": true, "openai": true, "google": true}
	if !validProviders[c.Embedding.Provider] {
		errs = append(errs, invalid("embedding.provider must be one of [hash, openai, google], got %q", c.Embedding.Provider))
	}
	if c.Embedding.Dimensions < 0 {
		errs = append(errs, invalid("embedding.dimensions must not be negative, got %d", c.Embedding.Dimensions))
	}
	if c.Embedding.Cooldown < 0 {
		errs = append(errs, invalid("embedding.cooldown must not be negative, got %s", c.Embedding.Cooldown))
	}
	// Remote providers fail at first use without a key; catch it at load.
	if (c.Embedding.Provider == "openai" || c.Embedding.Provider == "google") && c.Embedding.APIKey == "" {
		errs = append(errs, invalid("embedding.api_key is required for provider %q", c.Embedding.Provider))
	}

	return errs
}

func (c *Config) validateVector() []error {
	var errs []error

	if t := c.Vector.SimilarityThreshold; t < 0 || t > 1 {
		errs = append(errs, invalid("vector.similarity_threshold must be between 0 and 1, got %g", t))
	}
	if c.Vector.QueueSize <= 0 {
		errs = append(errs, invalid("vector.queue_size must be greater than 0, got %d", c.Vector.QueueSize))
	}
	if c.Vector.Workers <= 0 {
		errs = append(errs, invalid("vector.workers must be greater than 0, got %d", c.Vector.Workers))
	}
	if c.Vector.RebuildBatch <= 0 {
		errs = append(errs, invalid("vector.rebuild_batch must be greater than 0, got %d", c.Vector.RebuildBatch))
	}

	return errs
}

func (c *Config) validateGraph() []error {
	var errs []error

	if d := c.Graph.DefaultDepth; d < graph.MinDepth || d > graph.MaxDepth {
		errs = append(errs, invalid("graph.default_depth must be between %d and %d, got %d", graph.MinDepth, graph.MaxDepth, d))
	}
	if l := c.Graph.DefaultLimit; l < 1 || l > graph.MaxLimit {
		errs = append(errs, invalid("graph.default_limit must be between 1 and %d, got %d", graph.MaxLimit, l))
	}

	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, invalid("logging.level must be one of [debug, info, warn, error], got %q", c.Logging.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Logging.Format] {
		errs = append(errs, invalid("logging.format must be one of [text, json], got %q", c.Logging.Format))
	}

	return errs
}

// StorageConfig converts the storage section for store.Open.
func (c *Config) StorageConfig() store.StorageConfig {
	return store.StorageConfig{
		Backend:     c.Storage.Backend,
		DataDir:     c.Storage.DataDir,
		BusyTimeout: time.Duration(c.Storage.BusyTimeoutMS) * time.Millisecond,
	}
}

// EmbeddingConfig converts the embedding section for the provider registry.
func (c *Config) EmbeddingConfig() embedding.Config {
	return embedding.Config{
		Provider:   c.Embedding.Provider,
		Model:      c.Embedding.Model,
		Dimensions: c.Embedding.Dimensions,
		APIKey:     c.Embedding.APIKey,
		BaseURL:    c.Embedding.BaseURL,
		Cooldown:   c.Embedding.Cooldown,
	}
}

// String summarizes the effective configuration without secrets.
func (c *Config) String() string {
	key := "unset"
	if c.Embedding.APIKey != "" {
		key = "set"
	}
	return fmt.Sprintf("storage=%s:%s embedding=%s/%s api_key=%s threshold=%g",
		c.Storage.Backend, c.Storage.DataDir, c.Embedding.Provider, c.Embedding.Model, key, c.Vector.SimilarityThreshold)
}
