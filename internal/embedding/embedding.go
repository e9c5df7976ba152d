// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package embedding defines the embedding provider capability consumed by
// the vector index, an offline hashing provider, and a health-gated wrapper
// for remote providers.
package embedding

import (
	"context"
	"math"
	"time"
)

// Provider turns text into a fixed-length vector.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Model identifies the vectors a provider produces. Vectors from
	// different models are never compared.
	Model() string
	Dimensions() int
}

// Config selects and configures a provider.
type Config struct {
	Provider   string
	Model      string
	Dimensions int
	APIKey     string
	BaseURL    string
	Cooldown   time.Duration
}

// Backend describes how to build one kind of provider.
type Backend struct {
	New               func(ctx context.Context, cfg Config) (Provider, error)
	DefaultModel      string
	DefaultDimensions int
	RequiresAPIKey    bool
}

// Normalize returns vec scaled to unit length. It reports false for a zero
// or non-finite vector.
func Normalize(vec []float32) ([]float32, bool) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, false
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out, true
}

// Float64s converts an API response vector to float32.
func Float64s(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
