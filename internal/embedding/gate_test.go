// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package embedding_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sigil-dev/journal/internal/embedding"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyProvider fails while fail is set and returns a fixed vector otherwise.
type flakyProvider struct {
	dims  int
	fail  atomic.Bool
	calls atomic.Int64
}

func (p *flakyProvider) Model() string   { return "flaky-v1" }
func (p *flakyProvider) Dimensions() int { return p.dims }

func (p *flakyProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.fail.Load() {
		return nil, sigilerr.New(sigilerr.CodeEmbeddingUpstreamFailure, "upstream 503")
	}
	if text == "" {
		return nil, sigilerr.New(sigilerr.CodeEmbeddingRequestInvalid, "empty")
	}
	vec := make([]float32, p.dims)
	vec[0] = 1
	return vec, nil
}

func newGate(t *testing.T, p embedding.Provider, builds *atomic.Int64) *embedding.Gate {
	t.Helper()
	g, err := embedding.NewGate("flaky", "flaky-v1", p.Dimensions(), 10*time.Second, func(context.Context) (embedding.Provider, error) {
		builds.Add(1)
		return p, nil
	})
	require.NoError(t, err)
	return g
}

func TestGate_BuildsLazilyOnce(t *testing.T) {
	var builds atomic.Int64
	g := newGate(t, &flakyProvider{dims: 4}, &builds)
	assert.Zero(t, builds.Load())

	for range 3 {
		vec, err := g.Embed(context.Background(), "text")
		require.NoError(t, err)
		assert.Len(t, vec, 4)
	}
	assert.Equal(t, int64(1), builds.Load())
	assert.True(t, g.Health().Available)
}

func TestGate_FailureStartsCooldown(t *testing.T) {
	var builds atomic.Int64
	p := &flakyProvider{dims: 4}
	g := newGate(t, p, &builds)

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	g.HealthTracker().SetNowFunc(func() time.Time { return now })

	p.fail.Store(true)
	_, err := g.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, sigilerr.IsIndexUnavailable(err))
	assert.Equal(t, sigilerr.ReasonProviderUnavailable, sigilerr.ReasonOf(err))
	assert.Contains(t, err.Error(), "upstream 503")

	// Fails fast without calling the provider while cooling down.
	p.fail.Store(false)
	calls := p.calls.Load()
	_, err = g.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.Equal(t, sigilerr.ReasonProviderUnavailable, sigilerr.ReasonOf(err))
	assert.Equal(t, calls, p.calls.Load())
	assert.False(t, g.Health().Available)

	g.HealthTracker().SetNowFunc(func() time.Time { return now.Add(11 * time.Second) })
	_, err = g.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.True(t, g.Health().Available)
}

func TestGate_InvalidInputDoesNotTripHealth(t *testing.T) {
	var builds atomic.Int64
	g := newGate(t, &flakyProvider{dims: 4}, &builds)

	_, err := g.Embed(context.Background(), "")
	require.Error(t, err)
	assert.True(t, sigilerr.IsInvalidInput(err))
	assert.True(t, g.Health().Available)
	assert.Zero(t, g.Health().FailureCount)
}

func TestGate_CancellationDoesNotTripHealth(t *testing.T) {
	var builds atomic.Int64
	g := newGate(t, &flakyProvider{dims: 4}, &builds)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Embed(ctx, "text")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, g.Health().FailureCount)
}

func TestGate_ConstructionFailure(t *testing.T) {
	g, err := embedding.NewGate("broken", "m", 3, 0, func(context.Context) (embedding.Provider, error) {
		return nil, errors.New("model download failed")
	})
	require.NoError(t, err)

	_, err = g.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, sigilerr.IsIndexUnavailable(err))
	assert.Equal(t, "broken", sigilerr.FieldsOf(err)["provider"])
	assert.Equal(t, int64(1), g.Health().FailureCount)
}

func TestGate_DimensionMismatchIsAFailure(t *testing.T) {
	p := &flakyProvider{dims: 8}
	g, err := embedding.NewGate("flaky", "flaky-v1", 4, 0, func(context.Context) (embedding.Provider, error) {
		return p, nil
	})
	require.NoError(t, err)

	_, err = g.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, sigilerr.IsIndexUnavailable(err))
	assert.Contains(t, err.Error(), "returned 8 dimensions")
}

func TestNewGate_Validation(t *testing.T) {
	build := func(context.Context) (embedding.Provider, error) { return nil, nil }

	_, err := embedding.NewGate("x", "", 4, 0, build)
	assert.True(t, sigilerr.IsInvalidInput(err))
	_, err = embedding.NewGate("x", "m", 0, 0, build)
	assert.True(t, sigilerr.IsInvalidInput(err))
	_, err = embedding.NewGate("x", "m", 4, 0, nil)
	assert.True(t, sigilerr.IsInvalidInput(err))
}
