// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package embedding

import (
	"context"
	"log/slog"
	"sync"
	"time"

	sigilerr "github.com/sigil-dev/journal/pkg/errors"
	"github.com/sigil-dev/journal/pkg/health"
)

// Compile-time interface check.
var _ Provider = (*Gate)(nil)

// Gate wraps a provider that may be slow to construct or unreliable. The
// provider is built on first use; after a failure calls fail fast with an
// index-unavailable error until the health cooldown passes.
type Gate struct {
	name   string
	model  string
	dims   int
	build  func(ctx context.Context) (Provider, error)
	health *HealthTracker
	logger *slog.Logger

	mu       sync.Mutex
	provider Provider
}

// NewGate returns a Gate for a provider producing dims-sized vectors of model.
func NewGate(name, model string, dims int, cooldown time.Duration, build func(ctx context.Context) (Provider, error)) (*Gate, error) {
	if model == "" || dims <= 0 {
		return nil, sigilerr.Errorf(sigilerr.CodeEmbeddingConfigInvalid,
			"embedding provider %s: model and positive dimensions are required (got %q, %d)", name, model, dims)
	}
	if build == nil {
		return nil, sigilerr.Errorf(sigilerr.CodeEmbeddingConfigInvalid, "embedding provider %s: no constructor", name)
	}
	if cooldown <= 0 {
		cooldown = DefaultHealthCooldown
	}
	h, err := NewHealthTracker(cooldown)
	if err != nil {
		return nil, err
	}
	return &Gate{
		name:   name,
		model:  model,
		dims:   dims,
		build:  build,
		health: h,
		logger: slog.Default(),
	}, nil
}

func (g *Gate) Name() string    { return g.name }
func (g *Gate) Model() string   { return g.model }
func (g *Gate) Dimensions() int { return g.dims }

// Health returns the provider health snapshot.
func (g *Gate) Health() health.Metrics { return g.health.Metrics() }

// HealthTracker exposes the tracker, mainly so tests can control its clock.
func (g *Gate) HealthTracker() *HealthTracker { return g.health }

// Embed calls the underlying provider. Provider failures are reported as
// vector.index.unavailable with reason provider_unavailable; invalid input
// and context cancellation pass through without affecting health.
func (g *Gate) Embed(ctx context.Context, text string) ([]float32, error) {
	if !g.health.IsHealthy() {
		return nil, sigilerr.Unavailable(sigilerr.ReasonProviderUnavailable,
			"embedding provider "+g.name+" is cooling down after a failure", sigilerr.FieldProvider(g.name))
	}

	p, err := g.get(ctx)
	if err != nil {
		return nil, g.fail(ctx, err)
	}

	vec, err := p.Embed(ctx, text)
	if err != nil {
		if sigilerr.IsInvalidInput(err) {
			return nil, err
		}
		return nil, g.fail(ctx, err)
	}
	if len(vec) != g.dims {
		err := sigilerr.Errorf(sigilerr.CodeEmbeddingResponseInvalid,
			"embedding provider %s returned %d dimensions, expected %d", g.name, len(vec), g.dims)
		return nil, g.fail(ctx, err)
	}

	g.health.RecordSuccess()
	return vec, nil
}

func (g *Gate) get(ctx context.Context) (Provider, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.provider != nil {
		return g.provider, nil
	}
	p, err := g.build(ctx)
	if err != nil {
		return nil, err
	}
	g.logger.InfoContext(ctx, "embedding provider ready", "provider", g.name, "model", g.model)
	g.provider = p
	return p, nil
}

func (g *Gate) fail(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	g.health.RecordFailure(err)
	g.logger.WarnContext(ctx, "embedding provider failed", "provider", g.name, "error", err)
	return sigilerr.Unavailable(sigilerr.ReasonProviderUnavailable,
		"embedding provider "+g.name+" unavailable: "+err.Error(), sigilerr.FieldProvider(g.name))
}
