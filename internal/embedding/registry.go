// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package embedding

import (
	"context"
	"sort"
	"sync"

	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

// Registry maps provider names to backends. It is an explicit object so
// callers decide which providers exist; NewRegistry registers only "hash".
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRegistry creates a Registry holding the offline hash provider.
func NewRegistry() *Registry {
	r := &Registry{backends: make(map[string]Backend)}
	r.Register("hash", HashBackend())
	return r
}

// Register adds or replaces a backend.
func (r *Registry) Register(name string, b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[name] = b
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get retrieves a backend by name.
func (r *Registry) Get(name string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.backends[name]
	if !ok {
		return Backend{}, sigilerr.New(sigilerr.CodeEmbeddingProviderNotFound,
			"embedding provider not found: "+name, sigilerr.FieldProvider(name))
	}
	return b, nil
}

// Resolve fills in the backend defaults for cfg and checks required settings.
func (r *Registry) Resolve(cfg Config) (Config, Backend, error) {
	if cfg.Provider == "" {
		cfg.Provider = "hash"
	}
	b, err := r.Get(cfg.Provider)
	if err != nil {
		return cfg, Backend{}, err
	}
	if cfg.Model == "" {
		cfg.Model = b.DefaultModel
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = b.DefaultDimensions
	}
	if cfg.Dimensions < 0 {
		return cfg, Backend{}, sigilerr.Errorf(sigilerr.CodeEmbeddingConfigInvalid,
			"embedding dimensions must be positive, got %d", cfg.Dimensions)
	}
	if b.RequiresAPIKey && cfg.APIKey == "" {
		return cfg, Backend{}, sigilerr.New(sigilerr.CodeEmbeddingConfigInvalid,
			cfg.Provider+": missing api_key in config", sigilerr.FieldProvider(cfg.Provider))
	}
	return cfg, b, nil
}

// Gate resolves cfg and returns a lazily constructed, health-gated provider.
func (r *Registry) Gate(cfg Config) (*Gate, error) {
	cfg, b, err := r.Resolve(cfg)
	if err != nil {
		return nil, err
	}
	return NewGate(cfg.Provider, cfg.Model, cfg.Dimensions, cfg.Cooldown, func(ctx context.Context) (Provider, error) {
		return b.New(ctx, cfg)
	})
}
